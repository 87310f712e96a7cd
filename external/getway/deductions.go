package getway

import (
	"context"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"taxgateway/internal/auth"
	"taxgateway/internal/models"
)

const deductionsPath = "/admin/deductions"

type deductionsPatch struct {
	PersonalDeduction *float64 `json:"personalDeduction,omitempty"`
	KReceipt          *float64 `json:"k_receipt,omitempty"`
}

// DeductionsClient reads and patches the deduction settings record held by
// the calculation service.
type DeductionsClient struct {
	upstream *Upstream
}

func NewDeductionsClient(u *Upstream) *DeductionsClient {
	return &DeductionsClient{upstream: u}
}

func (c *DeductionsClient) Fetch(ctx context.Context) (models.DeductionSettings, error) {
	res, err := c.upstream.do(ctx, call{method: fasthttp.MethodGet, path: deductionsPath})
	if err != nil {
		return models.DeductionSettings{}, err
	}
	if !res.ok() {
		return models.DeductionSettings{}, fmt.Errorf("%w: GET %s returned %d", ErrUpstreamRejected, deductionsPath, res.status)
	}

	s, err := decodeSettings(res.body)
	if err != nil {
		return models.DeductionSettings{}, fmt.Errorf("%w: decode settings: %w", ErrUpstreamRejected, err)
	}
	return s, nil
}

// Update sends only the present fields of patch and returns the values the
// store confirmed.
func (c *DeductionsClient) Update(
	ctx context.Context,
	cred models.Credential,
	patch models.UpdateRequest,
) (models.DeductionSettings, error) {
	res, err := c.upstream.do(ctx, call{
		method:        fasthttp.MethodPost,
		path:          deductionsPath,
		authorization: auth.Header(cred),
		payload: deductionsPatch{
			PersonalDeduction: patch.PersonalDeduction,
			KReceipt:          patch.KReceipt,
		},
	})
	if err != nil {
		return models.DeductionSettings{}, err
	}

	switch {
	case res.status == fasthttp.StatusUnauthorized, res.status == fasthttp.StatusForbidden:
		return models.DeductionSettings{}, fmt.Errorf("%w: POST %s returned %d", ErrUnauthorized, deductionsPath, res.status)
	case !res.ok():
		return models.DeductionSettings{}, fmt.Errorf("%w: POST %s returned %d", ErrUpstreamRejected, deductionsPath, res.status)
	}

	s, err := decodeSettings(res.body)
	if err != nil {
		return models.DeductionSettings{}, fmt.Errorf("%w: decode confirmed settings: %w", ErrUpstreamRejected, err)
	}
	return s, nil
}

// decodeSettings accepts personalDeduction/PersonalDeduction and
// kReceipt/KReceipt/k_receipt; the store is not consistent across endpoints.
// When several spellings are present the exact camelCase key wins, then the
// first of the others in byte order. Absent keys decode as zero.
func decodeSettings(body []byte) (models.DeductionSettings, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.DeductionSettings{}, err
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var s models.DeductionSettings
	fields := []struct {
		exact string
		dst   *float64
	}{
		{"personalDeduction", &s.PersonalDeduction},
		{"kReceipt", &s.KReceipt},
	}
	for _, f := range fields {
		key, ok := settingsKey(raw, keys, f.exact)
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw[key], f.dst); err != nil {
			return models.DeductionSettings{}, fmt.Errorf("field %s: %w", key, err)
		}
	}
	return s, nil
}

func settingsKey(raw map[string]json.RawMessage, sorted []string, exact string) (string, bool) {
	if _, ok := raw[exact]; ok {
		return exact, true
	}
	want := normalizeKey(exact)
	for _, key := range sorted {
		if normalizeKey(key) == want {
			return key, true
		}
	}
	return "", false
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", ""))
}
