package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taxgateway/internal/models"
)

type TaxCalculator interface {
	Calculate(ctx context.Context, req models.CalculationRequest) (models.CalculationResult, error)
}

type HistoryStore interface {
	Add(ctx context.Context, rec models.CalculationRecord) error
	RangeQuery(ctx context.Context, fromTs, toTs int64) ([]models.CalculationRecord, error)
	Ping(ctx context.Context) error
}

// Calculator relays calculation requests. Results are never memoized; each
// Forward is a fresh upstream call.
type Calculator struct {
	upstream TaxCalculator
	history  HistoryStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewCalculator(upstream TaxCalculator, history HistoryStore, logger *zap.Logger) *Calculator {
	return &Calculator{
		upstream: upstream,
		history:  history,
		logger:   logger,
		now:      time.Now,
	}
}

func (c *Calculator) Forward(ctx context.Context, req models.CalculationRequest) (models.CalculationResult, error) {
	if err := req.Validate(); err != nil {
		return models.CalculationResult{}, err
	}

	requestedAt := c.now().UTC()
	res, err := c.upstream.Calculate(ctx, req)
	if err != nil {
		return models.CalculationResult{}, fmt.Errorf("calculate tax: %w", err)
	}

	c.record(ctx, requestedAt, req, res)
	return res, nil
}

func (c *Calculator) record(ctx context.Context, at time.Time, req models.CalculationRequest, res models.CalculationResult) {
	if c.history == nil {
		return
	}
	rec := models.CalculationRecord{
		ID:          uuid.NewString(),
		RequestedAt: at,
		TotalIncome: req.TotalIncome,
		Tax:         res.Tax,
	}
	if err := c.history.Add(ctx, rec); err != nil {
		c.logger.Warn("failed to record calculation", zap.String("id", rec.ID), zap.Error(err))
	}
}
