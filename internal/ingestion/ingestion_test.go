package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retradeBot/internal/domain"
	"retradeBot/internal/ports"
	"retradeBot/internal/retry"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// mockExchange serves canned candle pages and records the requested offsets.
type mockExchange struct {
	series      []*domain.Candle
	fetchErrs   []error // consumed before any page is served
	sinceSeen   []*time.Time
	fetchCalls  int
	ignoreSince bool // echo the full series regardless of the offset
}

func (m *mockExchange) SubmitOrder(ctx context.Context, market *domain.Market, side domain.OrderSide, typ domain.OrderType, amount, price decimal.Decimal) (*domain.Order, error) {
	return nil, ports.ErrInvalidOrder
}

func (m *mockExchange) FetchOrder(ctx context.Context, market *domain.Market, exchangeOrderID string) (*domain.Order, error) {
	return nil, ports.ErrNotFound
}

func (m *mockExchange) FetchCandles(ctx context.Context, market *domain.Market, timeframe domain.Timeframe, since *time.Time, limit int) ([]*domain.Candle, error) {
	m.fetchCalls++
	if len(m.fetchErrs) > 0 {
		err := m.fetchErrs[0]
		m.fetchErrs = m.fetchErrs[1:]
		return nil, err
	}

	var copied *time.Time
	if since != nil {
		t := *since
		copied = &t
	}
	m.sinceSeen = append(m.sinceSeen, copied)

	var page []*domain.Candle
	for _, c := range m.series {
		if !m.ignoreSince && since != nil && c.Timestamp.Before(*since) {
			continue
		}
		page = append(page, &domain.Candle{Timestamp: c.Timestamp, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume})
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (m *mockExchange) FetchTickers(ctx context.Context) (map[string]ports.Ticker, error) {
	return nil, nil
}

func (m *mockExchange) FetchBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// mockCandles implements ports.CandleRepository for testing
type mockCandles struct {
	stored  []*domain.Candle
	last    *domain.Candle
	batches int
}

func (m *mockCandles) InsertCandles(ctx context.Context, candles []*domain.Candle) error {
	m.stored = append(m.stored, candles...)
	m.batches++
	return nil
}

func (m *mockCandles) LastCandle(ctx context.Context, marketID int64, timeframe domain.Timeframe) (*domain.Candle, error) {
	return m.last, nil
}

func (m *mockCandles) FindCandles(ctx context.Context, marketID int64, timeframe domain.Timeframe) ([]*domain.Candle, error) {
	return m.stored, nil
}

// --- fixtures ---

func testMarket(id int64, base string) *domain.Market {
	return &domain.Market{
		ID:              id,
		Base:            base,
		Quote:           "BNB",
		Exchange:        "binance",
		Active:          true,
		LimitsAmountMin: decimal.New(1, 0),
		LimitsAmountMax: decimal.New(1, 6),
		LimitsPriceMin:  decimal.New(1, -8),
		LimitsPriceMax:  decimal.New(1, 3),
	}
}

func series(n int) []*domain.Candle {
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &domain.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      decimal.New(10, 0),
			High:      decimal.New(11, 0),
			Low:       decimal.New(9, 0),
			Close:     decimal.New(10, 0),
			Volume:    decimal.New(100, 0),
		})
	}
	return out
}

func newService(t *testing.T, cfg Config, exchange *mockExchange, candles *mockCandles) *Service {
	t.Helper()
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.Config{Attempts: 3, Delay: time.Millisecond}
	}
	svc, err := New(cfg, &mockLogger{}, exchange, candles)
	require.NoError(t, err)
	return svc
}

func TestUpdateMarketFullBackfill(t *testing.T) {
	exchange := &mockExchange{series: series(7)}
	candles := &mockCandles{}
	svc := newService(t, Config{BatchSize: 3, Parallelism: 1}, exchange, candles)

	require.NoError(t, svc.UpdateMarket(context.Background(), testMarket(1, "TRX"), domain.Timeframe1m))

	// 7 candles arrive in pages of 3, 3 and 1.
	assert.Len(t, candles.stored, 7)
	assert.Equal(t, 3, candles.batches)

	// Every stored candle is tagged with its market and timeframe.
	for _, c := range candles.stored {
		assert.Equal(t, int64(1), c.MarketID)
		assert.Equal(t, domain.Timeframe1m, c.Timeframe)
	}

	// First request has no offset; later ones resume past the stored tail.
	require.NotEmpty(t, exchange.sinceSeen)
	assert.Nil(t, exchange.sinceSeen[0])
}

func TestUpdateMarketResumesAfterHighWaterMark(t *testing.T) {
	full := series(7)
	exchange := &mockExchange{series: full}
	candles := &mockCandles{last: full[4]}
	svc := newService(t, Config{BatchSize: 10, Parallelism: 1}, exchange, candles)

	require.NoError(t, svc.UpdateMarket(context.Background(), testMarket(1, "TRX"), domain.Timeframe1m))

	// Only the two candles after the stored tail are written.
	require.Len(t, candles.stored, 2)
	assert.True(t, candles.stored[0].Timestamp.After(full[4].Timestamp))

	// The resume offset sits strictly after the high-water mark.
	require.NotEmpty(t, exchange.sinceSeen)
	require.NotNil(t, exchange.sinceSeen[0])
	assert.Equal(t, full[4].Timestamp.Add(time.Millisecond), *exchange.sinceSeen[0])
}

func TestUpdateMarketDiscardsEchoedBoundaryCandle(t *testing.T) {
	full := series(3)
	// The exchange ignores the offset and echoes everything back.
	exchange := &mockExchange{series: full, ignoreSince: true}
	candles := &mockCandles{last: full[2]}
	svc := newService(t, Config{BatchSize: 10, Parallelism: 1}, exchange, candles)

	require.NoError(t, svc.UpdateMarket(context.Background(), testMarket(1, "TRX"), domain.Timeframe1m))
	assert.Empty(t, candles.stored)
}

func TestUpdateMarketRetriesTransportFailures(t *testing.T) {
	exchange := &mockExchange{series: series(2), fetchErrs: []error{ports.ErrTimeout}}
	candles := &mockCandles{}
	svc := newService(t, Config{BatchSize: 10, Parallelism: 1}, exchange, candles)

	require.NoError(t, svc.UpdateMarket(context.Background(), testMarket(1, "TRX"), domain.Timeframe1m))
	assert.Len(t, candles.stored, 2)
	assert.GreaterOrEqual(t, exchange.fetchCalls, 2)
}

func TestUpdateAllContinuesPastFailingMarket(t *testing.T) {
	exchange := &mockExchange{
		series:    series(2),
		fetchErrs: []error{ports.ErrExchangeUnavailable, ports.ErrExchangeUnavailable, ports.ErrExchangeUnavailable},
	}
	candles := &mockCandles{}
	svc := newService(t, Config{BatchSize: 10, Parallelism: 1, Retry: retry.Config{Attempts: 3, Delay: time.Millisecond}}, exchange, candles)

	markets := []*domain.Market{testMarket(1, "TRX"), testMarket(2, "ADA")}
	err := svc.UpdateAll(context.Background(), markets, domain.Timeframe1m)

	// The first market exhausts its retries; the second succeeds anyway.
	assert.Error(t, err)
	assert.Len(t, candles.stored, 2)
}
