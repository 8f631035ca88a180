package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"retradeBot/internal/domain"
	"retradeBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"
)

// Client implements the ports.ExchangeClient interface for Binance spot
// trading using the go-binance library.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger
	symbols    map[string]string // concatenated exchange symbol -> slash symbol
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
	// Symbols maps concatenated exchange symbols (e.g. "TRXBNB") to the
	// slash form ("TRX/BNB") used by the core. It is built from the markets
	// table at wiring time; tickers for unknown symbols keep the raw form.
	Symbols map[string]string
}

// New creates a new Binance spot client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
		// Allow creation for public endpoints, but log warning.
		// Authentication errors will occur if private endpoints are called.
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using the global binance.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	symbols := cfg.Symbols
	if symbols == nil {
		symbols = map[string]string{}
	}

	return &Client{
		spotClient: client,
		logger:     cfg.Logger,
		symbols:    symbols,
	}, nil
}

// handleError translates errors from the go-binance library into the
// standardized ports errors so the core's retry and error-log policies apply
// uniformly, regardless of the exchange in use.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	logFields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		logFields["apiErrorCode"] = apiErr.Code
		logFields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1000, -1001, -1016: // UNKNOWN / DISCONNECTED / SERVICE_SHUTTING_DOWN
			mappedErr = ports.ErrExchangeUnavailable
		case -1003: // TOO_MANY_REQUESTS
			mappedErr = ports.ErrExchangeUnavailable
		case -1007, -1021: // TIMEOUT / INVALID_TIMESTAMP (recvWindow)
			mappedErr = ports.ErrTimeout
		case -1013, -1111, -1121, -2013: // filter failure / bad precision / bad symbol / unknown order
			mappedErr = ports.ErrInvalidOrder
		case -2010: // NEW_ORDER_REJECTED: covers both balance and rule rejections
			if strings.Contains(strings.ToLower(apiErr.Message), "insufficient") {
				mappedErr = ports.ErrInsufficientFunds
			} else {
				mappedErr = ports.ErrInvalidOrder
			}
		case -3005, -3041: // asset transfer / balance variants
			mappedErr = ports.ErrInsufficientFunds
		default:
			mappedErr = ports.ErrUnknown
		}

		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), logFields)
		return fmt.Errorf("%s failed: %w: %s", operation, mappedErr, apiErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Error(ctx, err, fmt.Sprintf("%s timed out", operation), logFields)
		return fmt.Errorf("%s failed: %w", operation, ports.ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s failed: %w", operation, ports.ErrContextCanceled)
	}

	// DNS failures, connection resets and 5xx responses without an API body
	// all land here and are retried as the exchange being unreachable.
	c.logger.Error(ctx, err, fmt.Sprintf("%s failed with transport error", operation), logFields)
	return fmt.Errorf("%s failed: %w: %v", operation, ports.ErrExchangeUnavailable, err)
}

// SubmitOrder places a spot order and returns the exchange's view of it.
// The returned order carries no repository identity yet; the caller persists
// it and wires BotID and MarketID.
func (c *Client) SubmitOrder(ctx context.Context, market *domain.Market, side domain.OrderSide, typ domain.OrderType, amount, price decimal.Decimal) (*domain.Order, error) {
	svc := c.spotClient.NewCreateOrderService().
		Symbol(market.ExchangeSymbol()).
		Side(translateSide(side)).
		Quantity(amount.String())

	if typ == domain.TypeMarket {
		svc = svc.Type(binance.OrderTypeMarket)
	} else {
		svc = svc.Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(price.String())
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "SubmitOrder")
	}

	order := &domain.Order{
		MarketID:        market.ID,
		ExchangeOrderID: strconv.FormatInt(resp.OrderID, 10),
		Timestamp:       time.UnixMilli(resp.TransactTime).UTC(),
		Status:          translateStatus(resp.Status),
		Type:            typ,
		Side:            side,
		Price:           price,
		Amount:          amount,
		Filled:          decimal.Zero,
	}
	if resp.ExecutedQuantity != "" {
		if filled, perr := decimal.NewFromString(resp.ExecutedQuantity); perr == nil {
			order.Filled = filled
		}
	}

	c.logger.Info(ctx, "order submitted", map[string]interface{}{
		"symbol": market.Symbol(), "side": side, "type": typ,
		"amount": amount.String(), "price": price.String(),
		"exchangeOrderID": order.ExchangeOrderID,
	})
	return order, nil
}

// FetchOrder retrieves the current state of a previously placed order.
func (c *Client) FetchOrder(ctx context.Context, market *domain.Market, exchangeOrderID string) (*domain.Order, error) {
	id, err := strconv.ParseInt(exchangeOrderID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid exchange order id %q: %w", exchangeOrderID, err)
	}

	resp, err := c.spotClient.NewGetOrderService().
		Symbol(market.ExchangeSymbol()).
		OrderID(id).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "FetchOrder")
	}

	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid order price %q: %w", resp.Price, err)
	}
	amount, err := decimal.NewFromString(resp.OrigQuantity)
	if err != nil {
		return nil, fmt.Errorf("invalid order quantity %q: %w", resp.OrigQuantity, err)
	}
	filled, err := decimal.NewFromString(resp.ExecutedQuantity)
	if err != nil {
		return nil, fmt.Errorf("invalid executed quantity %q: %w", resp.ExecutedQuantity, err)
	}

	return &domain.Order{
		MarketID:        market.ID,
		ExchangeOrderID: exchangeOrderID,
		Timestamp:       time.UnixMilli(resp.Time).UTC(),
		Status:          translateStatus(resp.Status),
		Type:            translateType(resp.Type),
		Side:            translateSideBack(resp.Side),
		Price:           price,
		Amount:          amount,
		Filled:          filled,
	}, nil
}

// FetchCandles retrieves klines for a market, oldest first. A nil since fetches
// the most recent candles up to limit.
func (c *Client) FetchCandles(ctx context.Context, market *domain.Market, timeframe domain.Timeframe, since *time.Time, limit int) ([]*domain.Candle, error) {
	svc := c.spotClient.NewKlinesService().
		Symbol(market.ExchangeSymbol()).
		Interval(string(timeframe))
	if limit > 0 {
		svc = svc.Limit(limit)
	}
	if since != nil {
		svc = svc.StartTime(since.UnixMilli())
	}

	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "FetchCandles")
	}

	candles := make([]*domain.Candle, 0, len(klines))
	for _, k := range klines {
		candle, terr := translateKline(k, market.ID, timeframe)
		if terr != nil {
			return nil, terr
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// FetchTickers retrieves the 24h ticker snapshot for all symbols, keyed by
// slash symbol where the mapping is known.
func (c *Client) FetchTickers(ctx context.Context) (map[string]ports.Ticker, error) {
	stats, err := c.spotClient.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "FetchTickers")
	}

	tickers := make(map[string]ports.Ticker, len(stats))
	for _, s := range stats {
		symbol := s.Symbol
		if mapped, ok := c.symbols[s.Symbol]; ok {
			symbol = mapped
		}

		last, err1 := decimal.NewFromString(s.LastPrice)
		bid, err2 := decimal.NewFromString(s.BidPrice)
		ask, err3 := decimal.NewFromString(s.AskPrice)
		pct, err4 := decimal.NewFromString(s.PriceChangePercent)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			c.logger.Warn(ctx, "skipping ticker with unparsable fields", map[string]interface{}{"symbol": s.Symbol})
			continue
		}

		tickers[symbol] = ports.Ticker{
			Symbol:     symbol,
			Last:       last,
			Bid:        bid,
			Ask:        ask,
			Percentage: pct,
		}
	}
	return tickers, nil
}

// FetchBalance retrieves the free balance for one asset. An asset the account
// has never touched yields zero, not an error.
func (c *Client) FetchBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	account, err := c.spotClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, c.handleError(ctx, err, "FetchBalance")
	}

	for _, b := range account.Balances {
		if strings.EqualFold(b.Asset, currency) {
			free, perr := decimal.NewFromString(b.Free)
			if perr != nil {
				return decimal.Zero, fmt.Errorf("invalid balance %q for %s: %w", b.Free, currency, perr)
			}
			return free, nil
		}
	}
	return decimal.Zero, nil
}

// --- Translation helpers ---

func translateSide(side domain.OrderSide) binance.SideType {
	if side == domain.SideBuy {
		return binance.SideTypeBuy
	}
	return binance.SideTypeSell
}

func translateSideBack(side binance.SideType) domain.OrderSide {
	if side == binance.SideTypeBuy {
		return domain.SideBuy
	}
	return domain.SideSell
}

func translateType(typ binance.OrderType) domain.OrderType {
	if typ == binance.OrderTypeMarket {
		return domain.TypeMarket
	}
	return domain.TypeLimit
}

func translateStatus(status binance.OrderStatusType) domain.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		return domain.StatusOpen
	case binance.OrderStatusTypeFilled:
		return domain.StatusClosed
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypePendingCancel:
		return domain.StatusCanceled
	case binance.OrderStatusTypeExpired:
		return domain.StatusExpired
	case binance.OrderStatusTypeRejected:
		return domain.StatusRejected
	default:
		return domain.StatusOpen
	}
}

func translateKline(k *binance.Kline, marketID int64, timeframe domain.Timeframe) (*domain.Candle, error) {
	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return nil, fmt.Errorf("invalid kline open %q: %w", k.Open, err)
	}
	high, err := decimal.NewFromString(k.High)
	if err != nil {
		return nil, fmt.Errorf("invalid kline high %q: %w", k.High, err)
	}
	low, err := decimal.NewFromString(k.Low)
	if err != nil {
		return nil, fmt.Errorf("invalid kline low %q: %w", k.Low, err)
	}
	cls, err := decimal.NewFromString(k.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid kline close %q: %w", k.Close, err)
	}
	volume, err := decimal.NewFromString(k.Volume)
	if err != nil {
		return nil, fmt.Errorf("invalid kline volume %q: %w", k.Volume, err)
	}

	return &domain.Candle{
		MarketID:  marketID,
		Timeframe: timeframe,
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    volume,
	}, nil
}
