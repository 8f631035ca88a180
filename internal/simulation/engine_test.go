package simulation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retradeBot/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// mockStore implements the candle and simulation repositories for testing
type mockStore struct {
	mu      sync.Mutex
	candles []*domain.Candle
	results []*domain.SimulationResult
}

func (m *mockStore) InsertCandles(ctx context.Context, candles []*domain.Candle) error { return nil }

func (m *mockStore) LastCandle(ctx context.Context, marketID int64, timeframe domain.Timeframe) (*domain.Candle, error) {
	return nil, nil
}

func (m *mockStore) FindCandles(ctx context.Context, marketID int64, timeframe domain.Timeframe) ([]*domain.Candle, error) {
	return m.candles, nil
}

func (m *mockStore) CreateSimulationResult(ctx context.Context, r *domain.SimulationResult) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.results) + 1)
	m.results = append(m.results, r)
	return r.ID, nil
}

func (m *mockStore) FindSimulationResultsSince(ctx context.Context, since time.Time) ([]*domain.SimulationResult, error) {
	return m.results, nil
}

// --- fixtures ---

func testMarket() *domain.Market {
	return &domain.Market{
		ID:              1,
		Base:            "TRX",
		Quote:           "BNB",
		Exchange:        "binance",
		Active:          true,
		PrecisionAmount: 3,
		PrecisionPrice:  8,
		LimitsAmountMin: dec("0.001"),
		LimitsAmountMax: dec("90000000"),
		LimitsPriceMin:  dec("0.00000001"),
		LimitsPriceMax:  dec("1000"),
	}
}

func candle(i int, low, high, close string) *domain.Candle {
	return &domain.Candle{
		MarketID:  1,
		Timeframe: domain.Timeframe1m,
		Timestamp: time.Date(2021, 1, 1, 0, i, 0, 0, time.UTC),
		Open:      dec(low),
		High:      dec(high),
		Low:       dec(low),
		Close:     dec(close),
		Volume:    dec("1000"),
	}
}

func oscillatingSeries(n int) []*domain.Candle {
	series := make([]*domain.Candle, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			series = append(series, candle(i, "10", "10.5", "10.2"))
		} else {
			series = append(series, candle(i, "10.5", "11.5", "11"))
		}
	}
	return series
}

func TestNewEngineValidation(t *testing.T) {
	store := &mockStore{}
	valid := Config{
		MinProfits: []decimal.Decimal{dec("1")},
		WindowLens: []int{10},
		SeedAmount: dec("100"),
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "no min profits", mutate: func(c *Config) { c.MinProfits = nil }, wantErr: true},
		{name: "no window lengths", mutate: func(c *Config) { c.WindowLens = nil }, wantErr: true},
		{name: "zero seed", mutate: func(c *Config) { c.SeedAmount = decimal.Zero }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := NewEngine(cfg, &mockLogger{}, store, store)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReplayWindowSingleFlip(t *testing.T) {
	market := testMarket()
	// The seed buys at the first low; the 10% sell target never fills, so the
	// terminal position is valued at the last close.
	candles := []*domain.Candle{
		candle(0, "10", "10.2", "10.1"),
		candle(1, "10.2", "11.5", "10.8"),
		candle(2, "10.5", "12", "12"),
	}

	roi := replayWindow(market, candles, dec("10"), dec("100"), decimal.Zero)

	// 100 quote bought 10 base at 10; 10 base at the final close of 12 is
	// worth 120, a 20% return.
	assert.True(t, roi.Equal(dec("20")), "got %s", roi)
}

func TestReplayWindowRoundTripWithPriceCap(t *testing.T) {
	market := testMarket()
	market.LimitsPriceMax = dec("10.5")
	candles := []*domain.Candle{
		candle(0, "10", "10.2", "10.1"),
		candle(1, "9.8", "10.4", "10.3"),
		candle(2, "9.4", "12", "11"),
	}

	roi := replayWindow(market, candles, dec("10"), dec("100"), decimal.Zero)

	// The 11 sell target is capped at the 10.5 band maximum, fills on the
	// second candle and the 9.45 re-buy never does: 105 quote remains, 5%.
	assert.True(t, roi.Equal(dec("5")), "got %s", roi)
}

func TestReplayWindowFeeEatsTheSeed(t *testing.T) {
	market := testMarket()
	candles := []*domain.Candle{
		candle(0, "10", "10.2", "10.1"),
		candle(1, "10.2", "10.9", "10.8"),
	}

	roi := replayWindow(market, candles, dec("10"), dec("100"), dec("100"))

	// A 100% fee leaves nothing to trade with.
	assert.True(t, roi.Equal(dec("-100")), "got %s", roi)
}

func TestRunProducesOneRowPerCombination(t *testing.T) {
	store := &mockStore{candles: oscillatingSeries(10)}
	engine, err := NewEngine(Config{
		MinProfits: []decimal.Decimal{dec("1"), dec("2"), dec("3")},
		WindowLens: []int{2, 3, 4},
		SeedAmount: dec("100"),
		FeePercent: dec("0.1"),
		StartStep:  2,
		Workers:    2,
	}, &mockLogger{}, store, store)
	require.NoError(t, err)

	require.NoError(t, engine.Run(context.Background(), []*domain.Market{testMarket()}, domain.Timeframe1m))

	// 3 minProfit values x 3 window lengths, every combination sampled.
	require.Len(t, store.results, 9)

	seen := map[string]bool{}
	for _, r := range store.results {
		assert.Positive(t, r.Samples)
		assert.True(t, r.ROIMin.LessThanOrEqual(r.ROIAvg), "min %s > avg %s", r.ROIMin, r.ROIAvg)
		assert.True(t, r.ROIAvg.LessThanOrEqual(r.ROIMax), "avg %s > max %s", r.ROIAvg, r.ROIMax)
		assert.Equal(t, int64(1), r.MarketID)
		seen[fmt.Sprintf("%s/%d", r.MinProfit, r.WindowLen)] = true
	}
	assert.Len(t, seen, 9, "every combination appears exactly once")
}

func TestRunSkipsWindowsLongerThanHistory(t *testing.T) {
	store := &mockStore{candles: oscillatingSeries(10)}
	engine, err := NewEngine(Config{
		MinProfits: []decimal.Decimal{dec("1")},
		WindowLens: []int{50},
		SeedAmount: dec("100"),
	}, &mockLogger{}, store, store)
	require.NoError(t, err)

	require.NoError(t, engine.Run(context.Background(), []*domain.Market{testMarket()}, domain.Timeframe1m))
	assert.Empty(t, store.results)
}

func TestRunSkipsMarketsWithoutHistory(t *testing.T) {
	store := &mockStore{}
	engine, err := NewEngine(Config{
		MinProfits: []decimal.Decimal{dec("1")},
		WindowLens: []int{2},
		SeedAmount: dec("100"),
	}, &mockLogger{}, store, store)
	require.NoError(t, err)

	require.NoError(t, engine.Run(context.Background(), []*domain.Market{testMarket()}, domain.Timeframe1m))
	assert.Empty(t, store.results)
}
