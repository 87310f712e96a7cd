package getway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamRejected    = errors.New("upstream rejected request")
	ErrUnauthorized        = errors.New("upstream rejected credential")
)

// Upstream is a connection to the calculation service. Every call is bounded
// by the configured timeout or the context deadline, whichever comes first.
type Upstream struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
}

func NewUpstream(baseURL string, timeout time.Duration) *Upstream {
	return &Upstream{
		client: &fasthttp.Client{
			Name:                "taxgateway",
			MaxConnsPerHost:     100,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

func (u *Upstream) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(u.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		return dl
	}
	return d
}

type call struct {
	method        string
	path          string
	authorization string
	payload       any
}

type reply struct {
	status int
	body   []byte
}

func (r reply) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (u *Upstream) do(ctx context.Context, c call) (reply, error) {
	if err := ctx.Err(); err != nil {
		return reply{}, fmt.Errorf("%w: %s %s: %w", ErrUpstreamUnavailable, c.method, c.path, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(u.baseURL + c.path)
	req.Header.SetMethod(c.method)
	if c.authorization != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, c.authorization)
	}

	if c.payload != nil {
		data, err := json.Marshal(c.payload)
		if err != nil {
			return reply{}, fmt.Errorf("failed to marshal %s %s: %w", c.method, c.path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(data)
	}

	if err := u.client.DoDeadline(req, resp, u.deadline(ctx)); err != nil {
		return reply{}, fmt.Errorf("%w: %s %s: %w", ErrUpstreamUnavailable, c.method, c.path, err)
	}

	return reply{
		status: resp.StatusCode(),
		body:   append([]byte(nil), resp.Body()...),
	}, nil
}
