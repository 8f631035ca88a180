// Package pingpong implements the retrade chain strategy: every filled order
// on a bot's pinned market is answered with a counter order on the opposite
// side, selling into the last candle's high and buying into its low. A chain
// terminates when the remaining amount falls below the market minimum.
package pingpong

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"retradeBot/internal/domain"
	"retradeBot/internal/ports"
	"retradeBot/internal/retrade"
	"retradeBot/internal/retry"
)

// Service runs one ping-pong pass over all retradeable orders.
type Service struct {
	logger   ports.Logger
	exchange ports.ExchangeClient
	orders   ports.OrderRepository
	bots     ports.BotRepository
	markets  ports.MarketRepository
	savings  ports.SavingRepository
	errLog   ports.ErrorLogRepository
	retryCfg retry.Config
}

// Deps bundles the collaborators the strategy needs.
type Deps struct {
	Logger   ports.Logger
	Exchange ports.ExchangeClient
	Orders   ports.OrderRepository
	Bots     ports.BotRepository
	Markets  ports.MarketRepository
	Savings  ports.SavingRepository
	ErrLog   ports.ErrorLogRepository
	Retry    retry.Config
}

// New creates the strategy service.
func New(d Deps) (*Service, error) {
	if d.Logger == nil || d.Exchange == nil || d.Orders == nil || d.Bots == nil ||
		d.Markets == nil || d.Savings == nil || d.ErrLog == nil {
		return nil, fmt.Errorf("missing required dependencies for ping-pong strategy")
	}
	if d.Retry.Attempts == 0 {
		d.Retry = retry.DefaultConfig
	}
	return &Service{
		logger:   d.Logger,
		exchange: d.Exchange,
		orders:   d.Orders,
		bots:     d.Bots,
		markets:  d.Markets,
		savings:  d.Savings,
		errLog:   d.ErrLog,
		retryCfg: d.Retry,
	}, nil
}

// Run processes every closed order without a successor exactly once.
// A failure on one order is logged and the pass continues with the next;
// the failed order stays retradeable for the next cycle.
func (s *Service) Run(ctx context.Context) error {
	candidates, err := s.orders.FindRetradeCandidates(ctx, domain.ModePingPong)
	if err != nil {
		return fmt.Errorf("failed to load retrade candidates: %w", err)
	}

	for _, order := range candidates {
		if err := s.processOrder(ctx, order); err != nil {
			s.logger.Error(ctx, err, "retrade attempt failed",
				map[string]interface{}{"orderID": order.ID})
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// processOrder runs the full transition for one order: closed with no
// successor -> chained, or terminated when the remainder is not tradable.
func (s *Service) processOrder(ctx context.Context, order *domain.Order) error {
	// Idempotency guard: re-running a cycle must never double-chain.
	if order.Status != domain.StatusClosed || order.HasSuccessor() {
		return nil
	}

	bot, err := s.bots.FindBotByID(ctx, order.BotID)
	if err != nil {
		return fmt.Errorf("failed to load bot %d: %w", order.BotID, err)
	}
	if bot == nil || bot.MarketID == nil {
		return fmt.Errorf("bot %d: %w: market", order.BotID, ports.ErrMissingStrategyParam)
	}
	if bot.Timeframe == "" {
		return fmt.Errorf("bot %d: %w: timeframe", bot.ID, ports.ErrMissingStrategyParam)
	}

	market, err := s.markets.FindMarketByID(ctx, *bot.MarketID)
	if err != nil || market == nil {
		return fmt.Errorf("failed to load market %d: %w", *bot.MarketID, err)
	}

	candle, err := s.latestCandle(ctx, market, bot.Timeframe)
	if err != nil {
		return fmt.Errorf("failed to fetch latest candle for %s: %w", market.Symbol(), err)
	}

	// Sell into strength, buy into weakness.
	referencePrice := candle.High
	if order.Side == domain.SideSell {
		referencePrice = candle.Low
	}

	amount, err := retrade.Amount(market, order, referencePrice, bot.DefaultFeeRate)
	if err != nil {
		return fmt.Errorf("retrade calculation rejected order %d: %w", order.ID, err)
	}

	if amount.LessThan(market.LimitsAmountMin) {
		return s.terminateChain(ctx, bot, market, order)
	}

	counter, err := s.submitCounter(ctx, market, order, amount, referencePrice)
	if err != nil {
		// Business errors are recorded and the order stays retradeable;
		// anything else bubbles up.
		if kind, ok := classify(err); ok {
			s.logger.Warn(ctx, "counter order rejected by exchange", map[string]interface{}{
				"orderID": order.ID, "kind": string(kind), "error": err.Error(),
			})
			if _, logErr := s.errLog.CreateErrorLog(ctx, &domain.OrderErrorLog{
				OrderID:   order.ID,
				Kind:      kind,
				Message:   err.Error(),
				CreatedAt: time.Now().UTC(),
			}); logErr != nil {
				return fmt.Errorf("failed to record order error: %w", logErr)
			}
			return nil
		}
		return err
	}

	counter.BotID = bot.ID
	counter.MarketID = market.ID
	counterID, err := s.orders.CreateOrder(ctx, counter)
	if err != nil {
		return fmt.Errorf("failed to persist counter order: %w", err)
	}

	// The successor is attached only after a successful submission, so a
	// failed attempt can never corrupt the chain.
	order.NextOrderID = &counterID
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to attach successor to order %d: %w", order.ID, err)
	}

	if err := s.recordRemainder(ctx, bot, market, order, amount); err != nil {
		return err
	}

	s.logger.Info(ctx, "retrade chained", map[string]interface{}{
		"orderID": order.ID, "counterID": counterID,
		"side": string(counter.Side), "amount": amount.String(), "price": referencePrice.String(),
	})
	return nil
}

// latestCandle fetches the most recent candle, retrying transport failures.
func (s *Service) latestCandle(ctx context.Context, market *domain.Market, tf domain.Timeframe) (*domain.Candle, error) {
	var candles []*domain.Candle
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		var ferr error
		candles, ferr = s.exchange.FetchCandles(ctx, market, tf, nil, 1)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("exchange returned no candle: %w", ports.ErrNotFound)
	}
	return candles[len(candles)-1], nil
}

// submitCounter places the opposite-side order, retrying transport failures.
func (s *Service) submitCounter(ctx context.Context, market *domain.Market, order *domain.Order, amount, price decimal.Decimal) (*domain.Order, error) {
	var counter *domain.Order
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		var serr error
		counter, serr = s.exchange.SubmitOrder(ctx, market, order.Side.Opposite(), domain.TypeLimit, amount, price)
		return serr
	})
	return counter, err
}

// terminateChain records the untradable remainder as a saving, deactivates
// the bot and moves the order into its terminal status.
func (s *Service) terminateChain(ctx context.Context, bot *domain.Bot, market *domain.Market, order *domain.Order) error {
	saving := &domain.SavingRecord{
		OrderID:   order.ID,
		BotID:     bot.ID,
		CreatedAt: time.Now().UTC(),
	}
	if order.Side == domain.SideBuy {
		// A buy held base currency; its value is recorded in quote.
		saving.Amount = order.Amount.Mul(order.Price)
		saving.Currency = market.Quote
	} else {
		saving.Amount = order.Amount
		saving.Currency = market.Base
	}
	if _, err := s.savings.CreateSaving(ctx, saving); err != nil {
		return fmt.Errorf("failed to record terminal saving: %w", err)
	}

	bot.Active = false
	if err := s.bots.UpdateBot(ctx, bot); err != nil {
		return fmt.Errorf("failed to deactivate bot %d: %w", bot.ID, err)
	}

	order.Status = domain.StatusNotMinNotional
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to mark order %d terminal: %w", order.ID, err)
	}

	s.logger.Info(ctx, "chain terminated below minimum notional", map[string]interface{}{
		"orderID": order.ID, "botID": bot.ID,
	})
	return nil
}

// recordRemainder books the slice of the parent order the retrade could not
// carry (fees, lot snapping) as a saving, when there is any.
func (s *Service) recordRemainder(ctx context.Context, bot *domain.Bot, market *domain.Market, order *domain.Order, retradeAmount decimal.Decimal) error {
	remainder := order.Amount.Sub(retradeAmount)
	if !remainder.IsPositive() {
		return nil
	}

	saving := &domain.SavingRecord{
		OrderID:   order.ID,
		BotID:     bot.ID,
		CreatedAt: time.Now().UTC(),
	}
	if order.Side == domain.SideBuy {
		saving.Amount = remainder.Mul(order.Price)
		saving.Currency = market.Quote
	} else {
		saving.Amount = remainder
		saving.Currency = market.Base
	}
	if _, err := s.savings.CreateSaving(ctx, saving); err != nil {
		return fmt.Errorf("failed to record retrade remainder: %w", err)
	}
	return nil
}

// classify maps an exchange error onto the error-log taxonomy.
func classify(err error) (domain.OrderErrorKind, bool) {
	switch {
	case errors.Is(err, ports.ErrInsufficientFunds):
		return domain.ErrorKindInsufficientFunds, true
	case errors.Is(err, ports.ErrInvalidOrder):
		return domain.ErrorKindInvalidOrder, true
	default:
		return "", false
	}
}
