package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"taxgateway/internal/models"
)

type SummaryService struct {
	history HistoryStore
}

func NewSummaryService(history HistoryStore) *SummaryService {
	return &SummaryService{history: history}
}

// Summary totals recorded calculations between from and to (RFC3339Nano).
// Empty or unparsable bounds are open.
func (s *SummaryService) Summary(
	ctx context.Context,
	fromStr,
	toStr string,
) (summary models.Summary, err error) {
	from := int64(0)
	to := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()

	if fromStr != "" {
		t, err := time.Parse(time.RFC3339Nano, fromStr)
		if err == nil {
			from = t.UnixNano()
		}
	}

	if toStr != "" {
		t, err := time.Parse(time.RFC3339Nano, toStr)
		if err == nil {
			to = t.UnixNano()
		}
	}

	records, err := s.history.RangeQuery(ctx, from, to)
	if err != nil {
		return
	}

	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(decimal.NewFromFloat(rec.Tax))
	}

	summary.TotalRequests = len(records)
	summary.TotalTax = total.Round(2).InexactFloat64()
	return
}

func (s *SummaryService) Ping(ctx context.Context) error {
	return s.history.Ping(ctx)
}
