package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taxgateway/external/getway"
	"taxgateway/internal/auth"
	"taxgateway/internal/database"
	"taxgateway/internal/models"
)

func ptr(v float64) *float64 { return &v }

type fakeStore struct {
	settings    models.DeductionSettings
	confirm     func(models.UpdateRequest) models.DeductionSettings
	err         error
	fetchCalls  int
	updateCalls int
	lastPatch   models.UpdateRequest
	lastCred    models.Credential
}

func (f *fakeStore) Fetch(context.Context) (models.DeductionSettings, error) {
	f.fetchCalls++
	return f.settings, f.err
}

func (f *fakeStore) Update(_ context.Context, cred models.Credential, patch models.UpdateRequest) (models.DeductionSettings, error) {
	f.updateCalls++
	f.lastPatch = patch
	f.lastCred = cred
	if f.err != nil {
		return models.DeductionSettings{}, f.err
	}
	if f.confirm != nil {
		return f.confirm(patch), nil
	}
	// echo back the applied values, like the real store
	out := f.settings
	if patch.PersonalDeduction != nil {
		out.PersonalDeduction = *patch.PersonalDeduction
	}
	if patch.KReceipt != nil {
		out.KReceipt = *patch.KReceipt
	}
	f.settings = out
	return out, nil
}

type fakeCalculator struct {
	result models.CalculationResult
	err    error
	calls  []models.CalculationRequest
}

func (f *fakeCalculator) Calculate(_ context.Context, req models.CalculationRequest) (models.CalculationResult, error) {
	f.calls = append(f.calls, req)
	return f.result, f.err
}

type failingHistory struct{ database.MemStore }

func (*failingHistory) Add(context.Context, models.CalculationRecord) error {
	return errors.New("history offline")
}

func TestSettingsGatewayFetch(t *testing.T) {
	store := &fakeStore{settings: models.DeductionSettings{PersonalDeduction: 60000, KReceipt: 50000}}
	g := NewSettingsGateway(store, zap.NewNop())

	s, err := g.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.settings, s)

	_, err = g.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.fetchCalls, "settings must not be cached")
}

func TestSettingsGatewayFetchUnavailable(t *testing.T) {
	store := &fakeStore{err: getway.ErrUpstreamUnavailable}
	_, err := NewSettingsGateway(store, zap.NewNop()).Fetch(context.Background())
	assert.ErrorIs(t, err, getway.ErrUpstreamUnavailable)
}

func TestSettingsGatewayUpdate(t *testing.T) {
	cred := models.Credential{Username: "adminTax", Password: "admin!"}

	t.Run("single field confirmed", func(t *testing.T) {
		store := &fakeStore{settings: models.DeductionSettings{PersonalDeduction: 60000, KReceipt: 50000}}
		outcome, err := NewSettingsGateway(store, zap.NewNop()).Update(context.Background(), models.UpdateRequest{PersonalDeduction: ptr(5000)}, cred)
		require.NoError(t, err)

		assert.True(t, outcome.Success)
		assert.Equal(t, []string{"Personal Deduction"}, outcome.UpdatedFields)
		assert.Equal(t, "Updated successfully: Personal Deduction", outcome.Message)
		assert.Nil(t, store.lastPatch.KReceipt, "k-receipt must not be sent")
		assert.Equal(t, cred, store.lastCred)
	})

	t.Run("both fields confirmed", func(t *testing.T) {
		store := &fakeStore{}
		outcome, err := NewSettingsGateway(store, zap.NewNop()).Update(context.Background(), models.UpdateRequest{PersonalDeduction: ptr(70000), KReceipt: ptr(40000)}, cred)
		require.NoError(t, err)

		assert.True(t, outcome.Success)
		assert.Equal(t, []string{"Personal Deduction", "K Receipt"}, outcome.UpdatedFields)
		assert.Equal(t, "Updated successfully: Personal Deduction, K Receipt", outcome.Message)
	})

	t.Run("empty patch makes no call", func(t *testing.T) {
		store := &fakeStore{}
		outcome, err := NewSettingsGateway(store, zap.NewNop()).Update(context.Background(), models.UpdateRequest{}, cred)
		require.NoError(t, err)

		assert.False(t, outcome.Success)
		assert.Equal(t, "No fields were updated", outcome.Message)
		assert.Empty(t, outcome.UpdatedFields)
		assert.Zero(t, store.updateCalls)
	})

	t.Run("store confirms a different value", func(t *testing.T) {
		store := &fakeStore{confirm: func(models.UpdateRequest) models.DeductionSettings {
			return models.DeductionSettings{PersonalDeduction: 60000}
		}}
		outcome, err := NewSettingsGateway(store, zap.NewNop()).Update(context.Background(), models.UpdateRequest{PersonalDeduction: ptr(5000)}, cred)
		require.NoError(t, err)

		assert.False(t, outcome.Success)
		assert.Empty(t, outcome.UpdatedFields)
		assert.Equal(t, "No fields were updated", outcome.Message)
		assert.Equal(t, 1, store.updateCalls)
	})

	t.Run("only one of two fields confirmed", func(t *testing.T) {
		store := &fakeStore{confirm: func(p models.UpdateRequest) models.DeductionSettings {
			return models.DeductionSettings{PersonalDeduction: *p.PersonalDeduction, KReceipt: 100000}
		}}
		outcome, err := NewSettingsGateway(store, zap.NewNop()).Update(context.Background(), models.UpdateRequest{PersonalDeduction: ptr(5000), KReceipt: ptr(200000)}, cred)
		require.NoError(t, err)

		assert.True(t, outcome.Success)
		assert.Equal(t, []string{"Personal Deduction"}, outcome.UpdatedFields)
	})

	t.Run("negative value rejected locally", func(t *testing.T) {
		store := &fakeStore{}
		_, err := NewSettingsGateway(store, zap.NewNop()).Update(context.Background(), models.UpdateRequest{KReceipt: ptr(-1)}, cred)
		assert.ErrorIs(t, err, models.ErrInvalidSettings)
		assert.Zero(t, store.updateCalls)
	})

	t.Run("store errors propagate", func(t *testing.T) {
		for _, want := range []error{getway.ErrUnauthorized, getway.ErrUpstreamUnavailable} {
			store := &fakeStore{err: want}
			_, err := NewSettingsGateway(store, zap.NewNop()).Update(context.Background(), models.UpdateRequest{KReceipt: ptr(1)}, cred)
			assert.ErrorIs(t, err, want)
		}
	})
}

func newSession(store *fakeStore) *AdminSession {
	return NewAdminSession(
		auth.NewVerifier("adminTax", "admin!"),
		NewSettingsGateway(store, zap.NewNop()),
		zap.NewNop(),
	)
}

func TestAdminSessionLogin(t *testing.T) {
	valid := auth.Header(models.Credential{Username: "adminTax", Password: "admin!"})
	wrong := auth.Header(models.Credential{Username: "adminTax", Password: "nope"})
	patch := `{"kReceipt":1}`

	tests := []struct {
		name        string
		header      string
		body        string
		storeErr    error
		wantErr     error
		wantSuccess bool
		wantCalls   int
	}{
		{name: "missing auth", header: "", body: patch, wantErr: auth.ErrMissingAuth},
		{name: "malformed auth", header: "Basic ???", body: patch, wantErr: auth.ErrMalformedAuth},
		{name: "invalid credentials", header: wrong, body: patch, wantErr: auth.ErrInvalidCredentials},
		{name: "invalid credentials before body parsing", header: wrong, body: "{", wantErr: auth.ErrInvalidCredentials},
		{name: "bad body", header: valid, body: "{", wantErr: models.ErrInvalidSettings},
		{name: "completed", header: valid, body: patch, wantSuccess: true, wantCalls: 1},
		{name: "no-op empty object", header: valid, body: "{}"},
		{name: "no-op empty body", header: valid, body: ""},
		{name: "store unauthorized", header: valid, body: patch, storeErr: getway.ErrUnauthorized, wantErr: getway.ErrUnauthorized, wantCalls: 1},
		{name: "store unavailable", header: valid, body: patch, storeErr: getway.ErrUpstreamUnavailable, wantErr: getway.ErrUpstreamUnavailable, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{err: tt.storeErr}
			outcome, err := newSession(store).Login(context.Background(), tt.header, []byte(tt.body))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantSuccess, outcome.Success)
			}
			assert.Equal(t, tt.wantCalls, store.updateCalls)
		})
	}
}

func TestAdminSessionLoginSendsOnlyPresentFields(t *testing.T) {
	store := &fakeStore{settings: models.DeductionSettings{PersonalDeduction: 60000, KReceipt: 50000}}
	header := auth.Header(models.Credential{Username: "adminTax", Password: "admin!"})

	outcome, err := newSession(store).Login(context.Background(), header, []byte(`{"personalDeduction":5000}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Personal Deduction"}, outcome.UpdatedFields)
	require.NotNil(t, store.lastPatch.PersonalDeduction)
	assert.Equal(t, 5000.0, *store.lastPatch.PersonalDeduction)
	assert.Nil(t, store.lastPatch.KReceipt)
	assert.Equal(t, 50000.0, store.settings.KReceipt)
}

func TestCalculatorForwardPassThrough(t *testing.T) {
	upstream := &fakeCalculator{result: models.CalculationResult{Tax: 12500}}
	history := database.NewMemStore(100)
	c := NewCalculator(upstream, history, zap.NewNop())

	req := models.CalculationRequest{
		TotalIncome:       500000,
		WHT:               10000,
		Allowances:        []models.Allowance{{AllowanceType: "k-receipt", Amount: 20000}},
		PersonalDeduction: 60000,
	}

	first, err := c.Forward(context.Background(), req)
	require.NoError(t, err)
	second, err := c.Forward(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.CalculationResult{Tax: 12500}, first)
	assert.Equal(t, first, second)
	require.Len(t, upstream.calls, 2, "each forward is an independent upstream call")
	assert.Equal(t, req, upstream.calls[0])
	assert.Equal(t, req, upstream.calls[1])

	recs, err := history.RangeQuery(context.Background(), 0, time.Now().Add(time.Hour).UnixNano())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.NotEqual(t, recs[0].ID, recs[1].ID)
}

func TestCalculatorHistoryStaysBounded(t *testing.T) {
	history := database.NewMemStore(50)
	c := NewCalculator(&fakeCalculator{result: models.CalculationResult{Tax: 1}}, history, zap.NewNop())

	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}

	for n := 0; n < 2000; n++ {
		_, err := c.Forward(context.Background(), models.CalculationRequest{TotalIncome: 1})
		require.NoError(t, err)
	}

	recs, err := history.RangeQuery(context.Background(), 0, clock.Add(time.Hour).UnixNano())
	require.NoError(t, err)
	require.Len(t, recs, 50)
	assert.Equal(t, clock, recs[len(recs)-1].RequestedAt, "newest record is kept")
}

func TestCalculatorForwardErrors(t *testing.T) {
	t.Run("invalid request never reaches upstream", func(t *testing.T) {
		upstream := &fakeCalculator{}
		_, err := NewCalculator(upstream, nil, zap.NewNop()).Forward(context.Background(), models.CalculationRequest{TotalIncome: -1})
		assert.ErrorIs(t, err, models.ErrInvalidCalculation)
		assert.Empty(t, upstream.calls)
	})

	t.Run("upstream errors propagate and are not recorded", func(t *testing.T) {
		for _, want := range []error{getway.ErrUpstreamRejected, getway.ErrUpstreamUnavailable} {
			upstream := &fakeCalculator{err: want}
			history := database.NewMemStore(100)
			_, err := NewCalculator(upstream, history, zap.NewNop()).Forward(context.Background(), models.CalculationRequest{})
			assert.ErrorIs(t, err, want)

			recs, _ := history.RangeQuery(context.Background(), 0, time.Now().Add(time.Hour).UnixNano())
			assert.Empty(t, recs)
		}
	})

	t.Run("history failure does not fail the forward", func(t *testing.T) {
		upstream := &fakeCalculator{result: models.CalculationResult{Tax: 1}}
		res, err := NewCalculator(upstream, &failingHistory{}, zap.NewNop()).Forward(context.Background(), models.CalculationRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.Tax)
	})
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	history := database.NewMemStore(100)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, tax := range []float64{0.1, 0.2, 1000.35} {
		require.NoError(t, history.Add(ctx, models.CalculationRecord{
			ID:          string(rune('a' + i)),
			RequestedAt: base.Add(time.Duration(i) * time.Hour),
			Tax:         tax,
		}))
	}

	s := NewSummaryService(history)

	all, err := s.Summary(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.Summary{TotalRequests: 3, TotalTax: 1000.65}, all)

	firstTwo, err := s.Summary(ctx, base.Format(time.RFC3339Nano), base.Add(time.Hour).Format(time.RFC3339Nano))
	require.NoError(t, err)
	assert.Equal(t, models.Summary{TotalRequests: 2, TotalTax: 0.3}, firstTwo)

	bogus, err := s.Summary(ctx, "yesterday", "")
	require.NoError(t, err)
	assert.Equal(t, 3, bogus.TotalRequests)
}
