package handler

import (
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"taxgateway/external/getway"
	"taxgateway/internal/auth"
	"taxgateway/internal/models"
)

const msgSettingsUpdated = "Settings updated successfully"

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) GetSettings(ctx *fasthttp.RequestCtx) {
	s, err := h.settings.Fetch(ctx)
	if err != nil {
		h.logger.Error("error fetching settings", zap.Error(err))
		writeJSON(ctx, fasthttp.StatusInternalServerError, messageResponse{Message: msgInternalError})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, s)
}

func (h *Handler) PostSettings(ctx *fasthttp.RequestCtx) {
	outcome, err := h.admin.Login(ctx, authorization(ctx), ctx.PostBody())
	if err != nil {
		status, msg := settingsError(err)
		if status == fasthttp.StatusInternalServerError {
			h.logger.Error("error updating settings", zap.Error(err))
		}
		writeJSON(ctx, status, messageResponse{Message: msg})
		return
	}

	msg := msgSettingsUpdated
	if !outcome.Success {
		msg = outcome.Message
	}
	writeJSON(ctx, fasthttp.StatusOK, messageResponse{Message: msg})
}

// Login reports the outcome of the update; a request that changed nothing is
// still a 200.
func (h *Handler) Login(ctx *fasthttp.RequestCtx) {
	outcome, err := h.admin.Login(ctx, authorization(ctx), ctx.PostBody())
	if err != nil {
		status, msg := authError(err)
		if status == fasthttp.StatusInternalServerError {
			h.logger.Error("error updating settings", zap.Error(err))
		}
		writeJSON(ctx, status, loginResponse{Success: false, Message: msg})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, loginResponse{Success: outcome.Success, Message: outcome.Message})
}

func (h *Handler) Auth(ctx *fasthttp.RequestCtx) {
	if _, err := h.admin.Authenticate(authorization(ctx)); err != nil {
		status, msg := authError(err)
		writeJSON(ctx, status, messageResponse{Message: msg})
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
}

// authError maps the admin flow errors onto a status and a client message.
// Upstream detail never reaches the client.
func authError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingAuth):
		return fasthttp.StatusUnauthorized, "Authorization header is missing"
	case errors.Is(err, auth.ErrMalformedAuth):
		return fasthttp.StatusUnauthorized, "Authorization header is malformed"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fasthttp.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, models.ErrInvalidSettings):
		return fasthttp.StatusBadRequest, msgInvalidBody
	default:
		return fasthttp.StatusInternalServerError, msgInternalError
	}
}

// settingsError differs from authError only in passing a store-side
// credential rejection through as 401.
func settingsError(err error) (int, string) {
	if errors.Is(err, getway.ErrUnauthorized) {
		return fasthttp.StatusUnauthorized, "Unauthorized"
	}
	return authError(err)
}
