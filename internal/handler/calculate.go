package handler

import (
	"errors"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"taxgateway/internal/models"
)

func (h *Handler) Calculate(ctx *fasthttp.RequestCtx) {
	var req models.CalculationRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		return
	}

	res, err := h.calculator.Forward(ctx, req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCalculation) {
			writeJSON(ctx, fasthttp.StatusBadRequest, errorResponse{Error: msgInvalidBody})
			return
		}
		h.logger.Error("error calculating tax", zap.Error(err))
		writeJSON(ctx, fasthttp.StatusInternalServerError, errorResponse{Error: msgCalculationFailed})
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, res)
}

func (h *Handler) GetSummary(ctx *fasthttp.RequestCtx) {
	from := string(ctx.QueryArgs().Peek("from"))
	to := string(ctx.QueryArgs().Peek("to"))

	summary, err := h.summary.Summary(ctx, from, to)
	if err != nil {
		h.logger.Error("error summarizing calculations", zap.Error(err))
		writeJSON(ctx, fasthttp.StatusInternalServerError, messageResponse{Message: msgInternalError})
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, summary)
}
