package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retradeBot/config"
	"retradeBot/internal/domain"
	"retradeBot/internal/ports"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// mockExchange implements ports.ExchangeClient for testing
type mockExchange struct {
	remote map[string]*domain.Order // keyed by exchange order ID
}

func (m *mockExchange) SubmitOrder(ctx context.Context, market *domain.Market, side domain.OrderSide, typ domain.OrderType, amount, price decimal.Decimal) (*domain.Order, error) {
	return nil, ports.ErrInvalidOrder
}

func (m *mockExchange) FetchOrder(ctx context.Context, market *domain.Market, exchangeOrderID string) (*domain.Order, error) {
	if o, ok := m.remote[exchangeOrderID]; ok {
		return o, nil
	}
	return nil, ports.ErrNotFound
}

func (m *mockExchange) FetchCandles(ctx context.Context, market *domain.Market, timeframe domain.Timeframe, since *time.Time, limit int) ([]*domain.Candle, error) {
	return nil, nil
}

func (m *mockExchange) FetchTickers(ctx context.Context) (map[string]ports.Ticker, error) {
	return nil, nil
}

func (m *mockExchange) FetchBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// mockStore implements the order and market repositories for testing
type mockStore struct {
	open    []*domain.Order
	markets map[int64]*domain.Market
	updated []*domain.Order
}

func (m *mockStore) CreateOrder(ctx context.Context, o *domain.Order) (int64, error) { return 0, nil }

func (m *mockStore) UpdateOrder(ctx context.Context, o *domain.Order) error {
	m.updated = append(m.updated, o)
	return nil
}

func (m *mockStore) FindOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	return nil, nil
}

func (m *mockStore) FindRetradeCandidates(ctx context.Context, mode domain.BotMode) ([]*domain.Order, error) {
	return nil, nil
}

func (m *mockStore) FindOpenPositions(ctx context.Context, botID int64) ([]*domain.Order, error) {
	return nil, nil
}

func (m *mockStore) FindOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	return m.open, nil
}

func (m *mockStore) CreateMarket(ctx context.Context, mk *domain.Market) (int64, error) {
	return mk.ID, nil
}

func (m *mockStore) FindMarketByID(ctx context.Context, id int64) (*domain.Market, error) {
	return m.markets[id], nil
}

func (m *mockStore) FindMarketBySymbol(ctx context.Context, base, quote string) (*domain.Market, error) {
	return nil, nil
}

func (m *mockStore) FindActiveMarkets(ctx context.Context) ([]*domain.Market, error) {
	return nil, nil
}

// recordingPass counts strategy invocations.
type recordingPass struct {
	calls int
	err   error
}

func (p *recordingPass) Run(ctx context.Context) error {
	p.calls++
	return p.err
}

// --- fixtures ---

func testConfig() *config.Config {
	return &config.Config{
		CycleInterval: time.Minute,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}
}

func testMarket() *domain.Market {
	return &domain.Market{
		ID:              1,
		Base:            "TRX",
		Quote:           "BNB",
		Exchange:        "binance",
		Active:          true,
		LimitsAmountMin: dec("1"),
		LimitsAmountMax: dec("90000000"),
		LimitsPriceMin:  dec("0.00000001"),
		LimitsPriceMax:  dec("1000"),
	}
}

func openOrder(id int64, exchangeID string) *domain.Order {
	return &domain.Order{
		ID:              id,
		BotID:           5,
		MarketID:        1,
		ExchangeOrderID: exchangeID,
		Status:          domain.StatusOpen,
		Type:            domain.TypeLimit,
		Side:            domain.SideBuy,
		Price:           dec("1"),
		Amount:          dec("100"),
		Filled:          dec("0"),
	}
}

func TestNewTradingServiceValidation(t *testing.T) {
	store := &mockStore{markets: map[int64]*domain.Market{}}
	exchange := &mockExchange{}
	pass := &recordingPass{}

	_, err := NewTradingService(nil, &mockLogger{}, exchange, store, store, pass)
	assert.Error(t, err)

	_, err = NewTradingService(testConfig(), &mockLogger{}, exchange, store, store)
	assert.Error(t, err, "a service without strategy passes has nothing to do")

	cfg := testConfig()
	cfg.CycleInterval = 0
	_, err = NewTradingService(cfg, &mockLogger{}, exchange, store, store, pass)
	assert.Error(t, err)
}

func TestRefreshOpenOrdersUpdatesFilledOrders(t *testing.T) {
	order := openOrder(10, "ex-10")
	store := &mockStore{
		open:    []*domain.Order{order},
		markets: map[int64]*domain.Market{1: testMarket()},
	}
	exchange := &mockExchange{remote: map[string]*domain.Order{
		"ex-10": {Status: domain.StatusClosed, Filled: dec("100")},
	}}

	svc, err := NewTradingService(testConfig(), &mockLogger{}, exchange, store, store, &recordingPass{})
	require.NoError(t, err)

	require.NoError(t, svc.RefreshOpenOrders(context.Background()))

	require.Len(t, store.updated, 1)
	assert.Equal(t, domain.StatusClosed, order.Status)
	assert.True(t, order.Filled.Equal(dec("100")))
}

func TestRefreshOpenOrdersSkipsUnchangedOrders(t *testing.T) {
	order := openOrder(10, "ex-10")
	store := &mockStore{
		open:    []*domain.Order{order},
		markets: map[int64]*domain.Market{1: testMarket()},
	}
	exchange := &mockExchange{remote: map[string]*domain.Order{
		"ex-10": {Status: domain.StatusOpen, Filled: dec("0")},
	}}

	svc, err := NewTradingService(testConfig(), &mockLogger{}, exchange, store, store, &recordingPass{})
	require.NoError(t, err)

	require.NoError(t, svc.RefreshOpenOrders(context.Background()))
	assert.Empty(t, store.updated)
	assert.Equal(t, domain.StatusOpen, order.Status)
}

func TestRefreshOpenOrdersContinuesPastFailures(t *testing.T) {
	broken := openOrder(10, "gone")
	healthy := openOrder(11, "ex-11")
	store := &mockStore{
		open:    []*domain.Order{broken, healthy},
		markets: map[int64]*domain.Market{1: testMarket()},
	}
	exchange := &mockExchange{remote: map[string]*domain.Order{
		"ex-11": {Status: domain.StatusCanceled, Filled: dec("0")},
	}}

	svc, err := NewTradingService(testConfig(), &mockLogger{}, exchange, store, store, &recordingPass{})
	require.NoError(t, err)

	// The missing remote order is logged; the second order still refreshes.
	require.NoError(t, svc.RefreshOpenOrders(context.Background()))
	require.Len(t, store.updated, 1)
	assert.Equal(t, domain.StatusCanceled, healthy.Status)
	assert.Equal(t, domain.StatusOpen, broken.Status)
}

func TestRunCycleRunsEveryPassInOrder(t *testing.T) {
	store := &mockStore{markets: map[int64]*domain.Market{}}
	exchange := &mockExchange{}
	first := &recordingPass{}
	second := &recordingPass{err: assert.AnError}
	third := &recordingPass{}

	svc, err := NewTradingService(testConfig(), &mockLogger{}, exchange, store, store, first, second, third)
	require.NoError(t, err)

	// A failing pass is logged, not fatal; later passes still run.
	svc.runCycle(context.Background())
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)
}
