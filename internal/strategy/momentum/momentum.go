// Package momentum implements the rising-chart strategy: enter the strongest
// risers quoted in the bot's quote currency, hold while the price climbs and
// exit with a market sell once the price gives back more than the configured
// stop-loss against its running peak. The peak only ever ratchets upward, so
// the stop trails the best price seen while the position was held.
package momentum

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"retradeBot/internal/domain"
	"retradeBot/internal/ports"
	"retradeBot/internal/retry"
)

var hundred = decimal.NewFromInt(100)

// lotShrinkFactor is how many minimum lots are shaved off the attempted
// position when the exchange reports insufficient funds.
var lotShrinkFactor = decimal.NewFromInt(5)

// Service runs one momentum pass over all active momentum bots.
type Service struct {
	logger   ports.Logger
	exchange ports.ExchangeClient
	orders   ports.OrderRepository
	bots     ports.BotRepository
	markets  ports.MarketRepository
	retryCfg retry.Config
}

// Deps bundles the collaborators the strategy needs.
type Deps struct {
	Logger   ports.Logger
	Exchange ports.ExchangeClient
	Orders   ports.OrderRepository
	Bots     ports.BotRepository
	Markets  ports.MarketRepository
	Retry    retry.Config
}

// New creates the strategy service.
func New(d Deps) (*Service, error) {
	if d.Logger == nil || d.Exchange == nil || d.Orders == nil || d.Bots == nil || d.Markets == nil {
		return nil, fmt.Errorf("missing required dependencies for momentum strategy")
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
		retryCfg: d.Retry,
	}, nil
}

// Run processes every active momentum bot once. A misconfigured bot aborts
// its own processing for the cycle but never the whole pass.
func (s *Service) Run(ctx context.Context) error {
	bots, err := s.bots.FindActiveBotsByMode(ctx, domain.ModeMomentum)
	if err != nil {
		return fmt.Errorf("failed to load momentum bots: %w", err)
	}

	for _, bot := range bots {
		if err := s.runBot(ctx, bot); err != nil {
			s.logger.Error(ctx, err, "momentum pass failed for bot",
				map[string]interface{}{"botID": bot.ID})
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (s *Service) runBot(ctx context.Context, bot *domain.Bot) error {
	// Missing strategy parameters are a setup error, not a trading outcome:
	// fail fast instead of silently skipping.
	if bot.StopLoss == nil {
		return fmt.Errorf("bot %d: %w: stop loss", bot.ID, ports.ErrMissingStrategyParam)
	}
	if bot.MinRise == nil {
		return fmt.Errorf("bot %d: %w: min rise", bot.ID, ports.ErrMissingStrategyParam)
	}
	if bot.QuoteCurrency == "" {
		return fmt.Errorf("bot %d: %w: quote currency", bot.ID, ports.ErrMissingStrategyParam)
	}

	var tickers map[string]ports.Ticker
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		var ferr error
		tickers, ferr = s.exchange.FetchTickers(ctx)
		return ferr
	})
	if err != nil {
		return fmt.Errorf("failed to fetch tickers: %w", err)
	}

	held, err := s.exitPass(ctx, bot, tickers)
	if err != nil {
		return err
	}
	return s.entryPass(ctx, bot, tickers, held)
}

// exitPass walks the bot's open positions, selling those that hit the
// trailing stop and ratcheting the peak price on the rest. It returns the set
// of market IDs still held afterwards.
func (s *Service) exitPass(ctx context.Context, bot *domain.Bot, tickers map[string]ports.Ticker) (map[int64]bool, error) {
	positions, err := s.orders.FindOpenPositions(ctx, bot.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open positions: %w", err)
	}

	held := make(map[int64]bool, len(positions))
	for _, position := range positions {
		held[position.MarketID] = true

		market, err := s.markets.FindMarketByID(ctx, position.MarketID)
		if err != nil || market == nil {
			return nil, fmt.Errorf("failed to load market %d: %w", position.MarketID, err)
		}
		if position.LastPriceTick == nil {
			return nil, fmt.Errorf("order %d: %w: last price tick", position.ID, ports.ErrMissingStrategyParam)
		}

		ticker, ok := tickers[market.Symbol()]
		if !ok {
			s.logger.Warn(ctx, "no ticker for held market", map[string]interface{}{"symbol": market.Symbol()})
			continue
		}

		change := ticker.Last.Sub(*position.LastPriceTick).
			DivRound(*position.LastPriceTick, 28).Mul(hundred)

		if change.LessThanOrEqual(*bot.StopLoss) {
			if err := s.closePosition(ctx, bot, market, position, ticker.Ask); err != nil {
				return nil, err
			}
			delete(held, position.MarketID)
			continue
		}

		// Trailing ratchet: the tick only ever moves up while held.
		if ticker.Last.GreaterThan(*position.LastPriceTick) {
			tick := ticker.Last
			position.LastPriceTick = &tick
			if err := s.orders.UpdateOrder(ctx, position); err != nil {
				return nil, fmt.Errorf("failed to ratchet price tick for order %d: %w", position.ID, err)
			}
		}
	}
	return held, nil
}

// closePosition sells the full held amount market-style and chains the sell
// as the position's successor.
func (s *Service) closePosition(ctx context.Context, bot *domain.Bot, market *domain.Market, position *domain.Order, askPrice decimal.Decimal) error {
	var sell *domain.Order
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		var serr error
		sell, serr = s.exchange.SubmitOrder(ctx, market, domain.SideSell, domain.TypeMarket, position.Amount, askPrice)
		return serr
	})
	if err != nil {
		return fmt.Errorf("failed to submit stop-loss sell for order %d: %w", position.ID, err)
	}

	sell.BotID = bot.ID
	sell.MarketID = market.ID
	sellID, err := s.orders.CreateOrder(ctx, sell)
	if err != nil {
		return fmt.Errorf("failed to persist stop-loss sell: %w", err)
	}

	position.NextOrderID = &sellID
	if err := s.orders.UpdateOrder(ctx, position); err != nil {
		return fmt.Errorf("failed to attach stop-loss sell to order %d: %w", position.ID, err)
	}

	s.logger.Info(ctx, "position stopped out", map[string]interface{}{
		"orderID": position.ID, "sellID": sellID, "symbol": market.Symbol(),
	})
	return nil
}

// entryPass scans tickers quoted in the bot's quote currency from the
// strongest riser downward and opens a position in each qualifying market.
// The ranking guarantees that once one ticker falls below the min-rise
// threshold, all remaining ones do too.
func (s *Service) entryPass(ctx context.Context, bot *domain.Bot, tickers map[string]ports.Ticker, held map[int64]bool) error {
	ranked := rankByChange(tickers, bot.QuoteCurrency)

	for _, ticker := range ranked {
		if ticker.Percentage.LessThan(*bot.MinRise) {
			break
		}

		base := baseOf(ticker.Symbol)
		market, err := s.markets.FindMarketBySymbol(ctx, base, bot.QuoteCurrency)
		if err != nil {
			return fmt.Errorf("failed to load market for %s: %w", ticker.Symbol, err)
		}
		if market == nil || !market.Active || held[market.ID] {
			continue
		}

		stop, err := s.openPosition(ctx, bot, market, ticker)
		if err != nil {
			return err
		}
		if stop {
			// The quantized amount fell below the minimum; no smaller
			// position is worth trying on any market.
			break
		}
		held[market.ID] = true
	}
	return nil
}

// openPosition sizes and submits one buy. It returns true when scanning
// should stop entirely because no tradable amount is left.
func (s *Service) openPosition(ctx context.Context, bot *domain.Bot, market *domain.Market, ticker ports.Ticker) (bool, error) {
	var balance decimal.Decimal
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		var ferr error
		balance, ferr = s.exchange.FetchBalance(ctx, bot.QuoteCurrency)
		return ferr
	})
	if err != nil {
		return false, fmt.Errorf("failed to fetch %s balance: %w", bot.QuoteCurrency, err)
	}

	quoteAmount := balance
	if bot.MaxAmount.IsPositive() && quoteAmount.GreaterThan(bot.MaxAmount) {
		quoteAmount = bot.MaxAmount
	}

	amount := market.ClampAndQuantizeAmount(quoteAmount.DivRound(ticker.Ask, 28))
	if amount.LessThan(market.LimitsAmountMin) {
		return true, nil
	}

	// One shrink retry on insufficient funds before moving on to the next
	// ticker: shave off a few lots and try the same market again.
	for attempt := 0; attempt < 2; attempt++ {
		var buy *domain.Order
		err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
			var serr error
			buy, serr = s.exchange.SubmitOrder(ctx, market, domain.SideBuy, domain.TypeLimit, amount, ticker.Ask)
			return serr
		})
		if errors.Is(err, ports.ErrInsufficientFunds) {
			amount = market.ClampAndQuantizeAmount(amount.Sub(market.LimitsAmountMin.Mul(lotShrinkFactor)))
			if amount.LessThan(market.LimitsAmountMin) {
				return false, nil
			}
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to open position on %s: %w", market.Symbol(), err)
		}

		buy.BotID = bot.ID
		buy.MarketID = market.ID
		tick := ticker.Ask
		buy.LastPriceTick = &tick
		if _, err := s.orders.CreateOrder(ctx, buy); err != nil {
			return false, fmt.Errorf("failed to persist entry order: %w", err)
		}

		s.logger.Info(ctx, "position opened", map[string]interface{}{
			"botID": bot.ID, "symbol": market.Symbol(),
			"amount": amount.String(), "price": ticker.Ask.String(),
		})
		return false, nil
	}
	return false, nil
}

// rankByChange filters the snapshot down to markets quoted in quote and sorts
// them by 24h change, strongest first. The sort is stable so equal changes
// keep their natural iteration order.
func rankByChange(tickers map[string]ports.Ticker, quote string) []ports.Ticker {
	symbols := make([]string, 0, len(tickers))
	for symbol := range tickers {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	ranked := make([]ports.Ticker, 0, len(symbols))
	for _, symbol := range symbols {
		if strings.EqualFold(quoteOf(symbol), quote) {
			ranked = append(ranked, tickers[symbol])
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Percentage.GreaterThan(ranked[j].Percentage)
	})
	return ranked
}

func baseOf(symbol string) string {
	if i := strings.Index(symbol, "/"); i >= 0 {
		return symbol[:i]
	}
	return symbol
}

func quoteOf(symbol string) string {
	if i := strings.Index(symbol, "/"); i >= 0 {
		return symbol[i+1:]
	}
	return ""
}
