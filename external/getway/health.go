package getway

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
)

type Health struct {
	Failing        bool  `json:"failing"`
	ResponseTimeMs int64 `json:"responseTimeMs"`
}

type UpstreamHealth struct {
	upstream *Upstream
}

func NewUpstreamHealth(u *Upstream) *UpstreamHealth {
	return &UpstreamHealth{upstream: u}
}

// Check pings the root of the calculation service. Any transport error or
// 5xx counts as failing.
func (p *UpstreamHealth) Check(ctx context.Context) Health {
	start := time.Now()
	res, err := p.upstream.do(ctx, call{method: fasthttp.MethodGet, path: "/"})
	h := Health{ResponseTimeMs: time.Since(start).Milliseconds()}
	if err != nil || res.status >= fasthttp.StatusInternalServerError {
		h.Failing = true
	}
	return h
}
