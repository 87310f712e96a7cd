package getway

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"taxgateway/internal/models"
)

const calculationsPath = "/tax/calculations"

type CalculationsClient struct {
	upstream *Upstream
}

func NewCalculationsClient(u *Upstream) *CalculationsClient {
	return &CalculationsClient{upstream: u}
}

// Calculate relays req to the calculation service. The upstream body of a
// failed call is never returned to the caller.
func (c *CalculationsClient) Calculate(
	ctx context.Context,
	req models.CalculationRequest,
) (models.CalculationResult, error) {
	res, err := c.upstream.do(ctx, call{
		method:  fasthttp.MethodPost,
		path:    calculationsPath,
		payload: req,
	})
	if err != nil {
		return models.CalculationResult{}, err
	}
	if !res.ok() {
		return models.CalculationResult{}, fmt.Errorf("%w: POST %s returned %d", ErrUpstreamRejected, calculationsPath, res.status)
	}

	var result models.CalculationResult
	if err := json.Unmarshal(res.body, &result); err != nil {
		return models.CalculationResult{}, fmt.Errorf("%w: decode calculation: %w", ErrUpstreamRejected, err)
	}
	return result, nil
}
