package handler

import (
	"context"

	"github.com/fasthttp/router"
	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"taxgateway/external/getway"
	"taxgateway/internal/service"
)

const (
	msgInternalError     = "Internal server error"
	msgMethodNotAllowed  = "Method not allowed"
	msgInvalidBody       = "Invalid request body"
	msgCalculationFailed = "Failed to calculate tax"

	pathCalculate = "/calculate"
)

type HealthChecker interface {
	Check(ctx context.Context) getway.Health
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	settings   *service.SettingsGateway
	admin      *service.AdminSession
	calculator *service.Calculator
	summary    *service.SummaryService
	health     HealthChecker
	logger     *zap.Logger
}

func New(
	settings *service.SettingsGateway,
	admin *service.AdminSession,
	calculator *service.Calculator,
	summary *service.SummaryService,
	health HealthChecker,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		settings:   settings,
		admin:      admin,
		calculator: calculator,
		summary:    summary,
		health:     health,
		logger:     logger,
	}
}

// Router wires every route behind the request logger.
func (h *Handler) Router() fasthttp.RequestHandler {
	r := router.New()
	r.HandleOPTIONS = false
	r.MethodNotAllowed = methodNotAllowed
	r.PanicHandler = func(ctx *fasthttp.RequestCtx, v any) {
		h.logger.Error("handler panic", zap.Any("panic", v), zap.ByteString("path", ctx.Path()))
		writeJSON(ctx, fasthttp.StatusInternalServerError, messageResponse{Message: msgInternalError})
	}

	r.GET("/settings", h.GetSettings)
	r.POST("/settings", h.PostSettings)
	r.POST("/login", h.Login)
	r.GET("/auth", h.Auth)
	r.POST(pathCalculate, h.Calculate)
	r.GET("/calculations/summary", h.GetSummary)
	r.GET("/health", h.Health)

	return withRequestLog(h.logger, r.Handler)
}

// methodNotAllowed answers in the error shape of the route: /calculate uses
// {error}, everything else {message}.
func methodNotAllowed(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) == pathCalculate {
		writeJSON(ctx, fasthttp.StatusMethodNotAllowed, errorResponse{Error: msgMethodNotAllowed})
		return
	}
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, messageResponse{Message: msgMethodNotAllowed})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"message":"Internal server error"}`)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func authorization(ctx *fasthttp.RequestCtx) string {
	return string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization))
}
