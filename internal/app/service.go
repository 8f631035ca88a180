package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retradeBot/config"
	"retradeBot/internal/domain"
	"retradeBot/internal/ports"
	"retradeBot/internal/retry"
)

// StrategyRunner is one pass of a trading strategy over its active bots.
// Both strategy services satisfy it.
type StrategyRunner interface {
	Run(ctx context.Context) error
}

// TradingService orchestrates the trading cycle: refresh order statuses from
// the exchange, then run each strategy pass in turn. Passes run sequentially
// so the strategies always observe the statuses the refresh just wrote.
type TradingService struct {
	cfg      *config.Config
	logger   ports.Logger
	exchange ports.ExchangeClient
	orders   ports.OrderRepository
	markets  ports.MarketRepository
	passes   []StrategyRunner
	retryCfg retry.Config
}

// NewTradingService creates a new application service instance.
func NewTradingService(
	cfg *config.Config,
	logger ports.Logger,
	exchange ports.ExchangeClient,
	orders ports.OrderRepository,
	markets ports.MarketRepository,
	passes ...StrategyRunner,
) (*TradingService, error) {
	if cfg == nil || logger == nil || exchange == nil || orders == nil || markets == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}
	if len(passes) == 0 {
		return nil, fmt.Errorf("at least one strategy pass is required")
	}
	if cfg.CycleInterval <= 0 {
		return nil, fmt.Errorf("configuration CycleInterval must be positive")
	}

	return &TradingService{
		cfg:      cfg,
		logger:   logger,
		exchange: exchange,
		orders:   orders,
		markets:  markets,
		passes:   passes,
		retryCfg: retry.Config{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay},
	}, nil
}

// Start begins the trading bot's main loop.
func (s *TradingService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Trading Service...")

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	// Run one cycle immediately so a restart does not wait a full interval.
	s.runCycle(ctx)

	ticker := time.NewTicker(s.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Trading Service stopped.")
			return nil
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle executes one full pass. A failing stage is logged and the cycle
// continues; only context cancellation stops the service.
func (s *TradingService) runCycle(ctx context.Context) {
	started := time.Now()

	if err := s.RefreshOpenOrders(ctx); err != nil {
		s.logger.Error(ctx, err, "order status refresh failed")
	}
	if ctx.Err() != nil {
		return
	}

	for _, pass := range s.passes {
		if err := pass.Run(ctx); err != nil {
			s.logger.Error(ctx, err, "strategy pass failed")
		}
		if ctx.Err() != nil {
			return
		}
	}

	s.logger.Debug(ctx, "cycle finished", map[string]interface{}{"elapsed": time.Since(started).String()})
}

// RefreshOpenOrders reconciles every open order against the exchange. Only a
// refresh moves an order out of the open status, which is what lets the
// retrade queries rely on status=closed rows being truly filled.
func (s *TradingService) RefreshOpenOrders(ctx context.Context) error {
	open, err := s.orders.FindOrdersByStatus(ctx, domain.StatusOpen)
	if err != nil {
		return fmt.Errorf("failed to load open orders: %w", err)
	}

	for _, order := range open {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.refreshOrder(ctx, order); err != nil {
			s.logger.Error(ctx, err, "failed to refresh order", map[string]interface{}{"orderID": order.ID})
		}
	}
	return nil
}

func (s *TradingService) refreshOrder(ctx context.Context, order *domain.Order) error {
	market, err := s.markets.FindMarketByID(ctx, order.MarketID)
	if err != nil {
		return fmt.Errorf("failed to load market %d: %w", order.MarketID, err)
	}
	if market == nil {
		return fmt.Errorf("order %d references unknown market %d", order.ID, order.MarketID)
	}

	var remote *domain.Order
	err = retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		var ferr error
		remote, ferr = s.exchange.FetchOrder(ctx, market, order.ExchangeOrderID)
		return ferr
	})
	if err != nil {
		return fmt.Errorf("failed to fetch order %s: %w", order.ExchangeOrderID, err)
	}

	if remote.Status == order.Status && remote.Filled.Equal(order.Filled) {
		return nil
	}

	order.Status = remote.Status
	order.Filled = remote.Filled
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to persist refreshed order %d: %w", order.ID, err)
	}

	s.logger.Info(ctx, "order status updated", map[string]interface{}{
		"orderID": order.ID, "symbol": market.Symbol(),
		"status": order.Status, "filled": order.Filled.String(),
	})
	return nil
}
