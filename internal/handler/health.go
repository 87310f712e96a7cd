package handler

import (
	"github.com/valyala/fasthttp"

	"taxgateway/external/getway"
)

type healthResponse struct {
	Upstream       getway.Health `json:"upstream"`
	HistoryFailing bool          `json:"historyFailing"`
}

// Health is 503 when the calculation service is failing. A failing history
// store is reported but does not change the status.
func (h *Handler) Health(ctx *fasthttp.RequestCtx) {
	res := healthResponse{
		Upstream:       h.health.Check(ctx),
		HistoryFailing: h.summary.Ping(ctx) != nil,
	}

	status := fasthttp.StatusOK
	if res.Upstream.Failing {
		status = fasthttp.StatusServiceUnavailable
	}
	writeJSON(ctx, status, res)
}
