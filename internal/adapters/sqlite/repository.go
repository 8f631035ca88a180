package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retradeBot/internal/domain"
	"retradeBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements every ports repository interface using SQLite.
// Decimal values are stored as TEXT to keep them exact.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/retrade_bot.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS markets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base TEXT NOT NULL,
		quote TEXT NOT NULL,
		exchange TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		precision_amount INTEGER NOT NULL,
		precision_price INTEGER NOT NULL,
		limits_amount_min TEXT NOT NULL,
		limits_amount_max TEXT NOT NULL,
		limits_price_min TEXT NOT NULL,
		limits_price_max TEXT NOT NULL,
		UNIQUE (base, quote, exchange)
	);

	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		market_id INTEGER NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		open TEXT NOT NULL,
		high TEXT NOT NULL,
		low TEXT NOT NULL,
		close TEXT NOT NULL,
		volume TEXT NOT NULL,
		UNIQUE (market_id, timeframe, timestamp)
	);

	CREATE TABLE IF NOT EXISTS bots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account TEXT NOT NULL,
		mode TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created TIMESTAMP NOT NULL,
		default_fee_rate TEXT NOT NULL,
		market_id INTEGER NULL,
		timeframe TEXT NOT NULL DEFAULT '',
		min_profit TEXT NOT NULL DEFAULT '0',
		quote_currency TEXT NOT NULL DEFAULT '',
		max_amount TEXT NOT NULL DEFAULT '0',
		min_rise TEXT NULL,
		stop_loss TEXT NULL
	);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bot_id INTEGER NOT NULL,
		market_id INTEGER NOT NULL,
		exchange_order_id TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		order_type TEXT NOT NULL,
		side TEXT NOT NULL,
		price TEXT NOT NULL,
		amount TEXT NOT NULL,
		filled TEXT NOT NULL DEFAULT '0',
		fee_currency TEXT NOT NULL DEFAULT '',
		fee_cost TEXT NOT NULL DEFAULT '0',
		fee_rate TEXT NULL,
		next_order_id INTEGER NULL,
		last_price_tick TEXT NULL
	);

	CREATE TABLE IF NOT EXISTS savings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		bot_id INTEGER NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS order_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS simulation_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		market_id INTEGER NOT NULL,
		min_profit TEXT NOT NULL,
		window_len INTEGER NOT NULL,
		samples INTEGER NOT NULL,
		roi_min TEXT NOT NULL,
		roi_avg TEXT NOT NULL,
		roi_max TEXT NOT NULL,
		start_at TIMESTAMP NOT NULL,
		end_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_candles_market_tf_ts ON candles (market_id, timeframe, timestamp);
	CREATE INDEX IF NOT EXISTS idx_orders_status_next ON orders (status, next_order_id);
	CREATE INDEX IF NOT EXISTS idx_orders_bot_side ON orders (bot_id, side);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- MarketRepository ---

func (r *Repository) CreateMarket(ctx context.Context, m *domain.Market) (int64, error) {
	const query = `
	INSERT INTO markets (base, quote, exchange, active, precision_amount, precision_price,
		limits_amount_min, limits_amount_max, limits_price_min, limits_price_max)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		m.Base, m.Quote, m.Exchange, m.Active, m.PrecisionAmount, m.PrecisionPrice,
		m.LimitsAmountMin.String(), m.LimitsAmountMax.String(),
		m.LimitsPriceMin.String(), m.LimitsPriceMax.String())
	if err != nil {
		return 0, fmt.Errorf("failed to insert market %s/%s: %w", m.Base, m.Quote, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get market insert ID: %w", err)
	}
	m.ID = id
	return id, nil
}

const marketColumns = `id, base, quote, exchange, active, precision_amount, precision_price,
	limits_amount_min, limits_amount_max, limits_price_min, limits_price_max`

func (r *Repository) FindMarketByID(ctx context.Context, id int64) (*domain.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE id = ?`
	m, err := scanMarket(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *Repository) FindMarketBySymbol(ctx context.Context, base, quote string) (*domain.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE base = ? AND quote = ?`
	m, err := scanMarket(r.db.QueryRowContext(ctx, query, base, quote))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *Repository) FindActiveMarkets(ctx context.Context) ([]*domain.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE active = 1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active markets: %w", err)
	}
	defer rows.Close()

	var markets []*domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// --- OrderRepository ---

func (r *Repository) CreateOrder(ctx context.Context, o *domain.Order) (int64, error) {
	const query = `
	INSERT INTO orders (bot_id, market_id, exchange_order_id, timestamp, status, order_type, side,
		price, amount, filled, fee_currency, fee_cost, fee_rate, next_order_id, last_price_tick)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		o.BotID, o.MarketID, o.ExchangeOrderID, o.Timestamp, o.Status, o.Type, o.Side,
		o.Price.String(), o.Amount.String(), o.Filled.String(),
		o.FeeCurrency, o.FeeCost.String(),
		decimalPtrToNull(o.FeeRate), int64PtrToNull(o.NextOrderID), decimalPtrToNull(o.LastPriceTick))
	if err != nil {
		return 0, fmt.Errorf("failed to insert order %s: %w", o.ExchangeOrderID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get order insert ID: %w", err)
	}
	o.ID = id
	return id, nil
}

func (r *Repository) UpdateOrder(ctx context.Context, o *domain.Order) error {
	const query = `
	UPDATE orders SET status = ?, filled = ?, fee_currency = ?, fee_cost = ?, fee_rate = ?,
		next_order_id = ?, last_price_tick = ?
	WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		o.Status, o.Filled.String(), o.FeeCurrency, o.FeeCost.String(),
		decimalPtrToNull(o.FeeRate), int64PtrToNull(o.NextOrderID), decimalPtrToNull(o.LastPriceTick),
		o.ID)
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", o.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of order %d: %w", o.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("order %d: %w", o.ID, ports.ErrNotFound)
	}
	return nil
}

const orderColumns = `id, bot_id, market_id, exchange_order_id, timestamp, status, order_type, side,
	price, amount, filled, fee_currency, fee_cost, fee_rate, next_order_id, last_price_tick`

func (r *Repository) FindOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// FindRetradeCandidates returns closed orders without a successor owned by
// active bots of the given mode.
func (r *Repository) FindRetradeCandidates(ctx context.Context, mode domain.BotMode) ([]*domain.Order, error) {
	query := `
	SELECT ` + prefixColumns("o", orderColumns) + `
	FROM orders o
	JOIN bots b ON b.id = o.bot_id
	WHERE o.status = ? AND o.next_order_id IS NULL AND b.mode = ? AND b.active = 1
	ORDER BY o.id`
	return r.queryOrders(ctx, query, domain.StatusClosed, mode)
}

// FindOpenPositions returns a bot's held positions: closed buys without a successor.
func (r *Repository) FindOpenPositions(ctx context.Context, botID int64) ([]*domain.Order, error) {
	query := `
	SELECT ` + orderColumns + `
	FROM orders
	WHERE bot_id = ? AND side = ? AND status = ? AND next_order_id IS NULL
	ORDER BY id`
	return r.queryOrders(ctx, query, botID, domain.SideBuy, domain.StatusClosed)
}

func (r *Repository) FindOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = ? ORDER BY id`
	return r.queryOrders(ctx, query, status)
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// --- BotRepository ---

func (r *Repository) CreateBot(ctx context.Context, b *domain.Bot) (int64, error) {
	const query = `
	INSERT INTO bots (account, mode, active, created, default_fee_rate, market_id, timeframe,
		min_profit, quote_currency, max_amount, min_rise, stop_loss)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		b.Account, b.Mode, b.Active, b.Created, b.DefaultFeeRate.String(),
		int64PtrToNull(b.MarketID), string(b.Timeframe), b.MinProfit.String(),
		b.QuoteCurrency, b.MaxAmount.String(),
		decimalPtrToNull(b.MinRise), decimalPtrToNull(b.StopLoss))
	if err != nil {
		return 0, fmt.Errorf("failed to insert bot for account %s: %w", b.Account, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get bot insert ID: %w", err)
	}
	b.ID = id
	return id, nil
}

func (r *Repository) UpdateBot(ctx context.Context, b *domain.Bot) error {
	const query = `
	UPDATE bots SET active = ?, default_fee_rate = ?, market_id = ?, timeframe = ?,
		min_profit = ?, quote_currency = ?, max_amount = ?, min_rise = ?, stop_loss = ?
	WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		b.Active, b.DefaultFeeRate.String(), int64PtrToNull(b.MarketID), string(b.Timeframe),
		b.MinProfit.String(), b.QuoteCurrency, b.MaxAmount.String(),
		decimalPtrToNull(b.MinRise), decimalPtrToNull(b.StopLoss), b.ID)
	if err != nil {
		return fmt.Errorf("failed to update bot %d: %w", b.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of bot %d: %w", b.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("bot %d: %w", b.ID, ports.ErrNotFound)
	}
	return nil
}

const botColumns = `id, account, mode, active, created, default_fee_rate, market_id, timeframe,
	min_profit, quote_currency, max_amount, min_rise, stop_loss`

func (r *Repository) FindBotByID(ctx context.Context, id int64) (*domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = ?`
	b, err := scanBot(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *Repository) FindActiveBotsByMode(ctx context.Context, mode domain.BotMode) ([]*domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE active = 1 AND mode = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to query active bots: %w", err)
	}
	defer rows.Close()

	var bots []*domain.Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, b)
	}
	return bots, rows.Err()
}

// --- CandleRepository ---

// InsertCandles writes a batch in one transaction. Duplicate timestamps
// within a (market, timeframe) partition are ignored, keeping candles
// immutable once written.
func (r *Repository) InsertCandles(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin candle batch: %w", err)
	}
	defer tx.Rollback()

	const query = `
	INSERT OR IGNORE INTO candles (market_id, timeframe, timestamp, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare candle insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.MarketID, c.Timeframe, c.Timestamp,
			c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(), c.Volume.String()); err != nil {
			return fmt.Errorf("failed to insert candle at %s: %w", c.Timestamp, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit candle batch: %w", err)
	}
	return nil
}

const candleColumns = `id, market_id, timeframe, timestamp, open, high, low, close, volume`

func (r *Repository) LastCandle(ctx context.Context, marketID int64, timeframe domain.Timeframe) (*domain.Candle, error) {
	query := `SELECT ` + candleColumns + ` FROM candles
	WHERE market_id = ? AND timeframe = ? ORDER BY timestamp DESC LIMIT 1`
	c, err := scanCandle(r.db.QueryRowContext(ctx, query, marketID, timeframe))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *Repository) FindCandles(ctx context.Context, marketID int64, timeframe domain.Timeframe) ([]*domain.Candle, error) {
	query := `SELECT ` + candleColumns + ` FROM candles
	WHERE market_id = ? AND timeframe = ? ORDER BY timestamp ASC`
	rows, err := r.db.QueryContext(ctx, query, marketID, timeframe)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []*domain.Candle
	for rows.Next() {
		c, err := scanCandle(rows)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// --- SavingRepository ---

func (r *Repository) CreateSaving(ctx context.Context, s *domain.SavingRecord) (int64, error) {
	const query = `
	INSERT INTO savings (order_id, bot_id, amount, currency, created_at)
	VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		s.OrderID, s.BotID, s.Amount.String(), s.Currency, s.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert saving for order %d: %w", s.OrderID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get saving insert ID: %w", err)
	}
	s.ID = id
	return id, nil
}

// --- ErrorLogRepository ---

func (r *Repository) CreateErrorLog(ctx context.Context, e *domain.OrderErrorLog) (int64, error) {
	const query = `
	INSERT INTO order_errors (order_id, kind, message, created_at)
	VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, e.OrderID, e.Kind, e.Message, e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert error log for order %d: %w", e.OrderID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get error log insert ID: %w", err)
	}
	e.ID = id
	return id, nil
}

// --- SimulationRepository ---

func (r *Repository) CreateSimulationResult(ctx context.Context, res *domain.SimulationResult) (int64, error) {
	const query = `
	INSERT INTO simulation_results (market_id, min_profit, window_len, samples,
		roi_min, roi_avg, roi_max, start_at, end_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		res.MarketID, res.MinProfit.String(), res.WindowLen, res.Samples,
		res.ROIMin.String(), res.ROIAvg.String(), res.ROIMax.String(),
		res.StartAt, res.EndAt, res.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert simulation result: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get simulation insert ID: %w", err)
	}
	res.ID = id
	return id, nil
}

func (r *Repository) FindSimulationResultsSince(ctx context.Context, since time.Time) ([]*domain.SimulationResult, error) {
	const query = `
	SELECT id, market_id, min_profit, window_len, samples,
		roi_min, roi_avg, roi_max, start_at, end_at, created_at
	FROM simulation_results
	WHERE created_at >= ?
	ORDER BY market_id, min_profit, window_len`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query simulation results: %w", err)
	}
	defer rows.Close()

	var results []*domain.SimulationResult
	for rows.Next() {
		var res domain.SimulationResult
		var minProfit, roiMin, roiAvg, roiMax string
		err := rows.Scan(&res.ID, &res.MarketID, &minProfit, &res.WindowLen, &res.Samples,
			&roiMin, &roiAvg, &roiMax, &res.StartAt, &res.EndAt, &res.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan simulation result row: %w", err)
		}
		if res.MinProfit, err = decimal.NewFromString(minProfit); err != nil {
			return nil, fmt.Errorf("invalid min_profit %q: %w", minProfit, err)
		}
		if res.ROIMin, err = decimal.NewFromString(roiMin); err != nil {
			return nil, fmt.Errorf("invalid roi_min %q: %w", roiMin, err)
		}
		if res.ROIAvg, err = decimal.NewFromString(roiAvg); err != nil {
			return nil, fmt.Errorf("invalid roi_avg %q: %w", roiAvg, err)
		}
		if res.ROIMax, err = decimal.NewFromString(roiMax); err != nil {
			return nil, fmt.Errorf("invalid roi_max %q: %w", roiMax, err)
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}

// --- scan helpers ---

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMarket(s scanner) (*domain.Market, error) {
	var m domain.Market
	var amountMin, amountMax, priceMin, priceMax string
	err := s.Scan(&m.ID, &m.Base, &m.Quote, &m.Exchange, &m.Active,
		&m.PrecisionAmount, &m.PrecisionPrice, &amountMin, &amountMax, &priceMin, &priceMax)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan market row: %w", err)
	}
	if m.LimitsAmountMin, err = decimal.NewFromString(amountMin); err != nil {
		return nil, fmt.Errorf("invalid limits_amount_min %q: %w", amountMin, err)
	}
	if m.LimitsAmountMax, err = decimal.NewFromString(amountMax); err != nil {
		return nil, fmt.Errorf("invalid limits_amount_max %q: %w", amountMax, err)
	}
	if m.LimitsPriceMin, err = decimal.NewFromString(priceMin); err != nil {
		return nil, fmt.Errorf("invalid limits_price_min %q: %w", priceMin, err)
	}
	if m.LimitsPriceMax, err = decimal.NewFromString(priceMax); err != nil {
		return nil, fmt.Errorf("invalid limits_price_max %q: %w", priceMax, err)
	}
	return &m, nil
}

func scanOrder(s scanner) (*domain.Order, error) {
	var o domain.Order
	var price, amount, filled, feeCost string
	var feeRate, lastTick sql.NullString
	var nextID sql.NullInt64
	err := s.Scan(&o.ID, &o.BotID, &o.MarketID, &o.ExchangeOrderID, &o.Timestamp,
		&o.Status, &o.Type, &o.Side, &price, &amount, &filled,
		&o.FeeCurrency, &feeCost, &feeRate, &nextID, &lastTick)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan order row: %w", err)
	}
	if o.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid order price %q: %w", price, err)
	}
	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid order amount %q: %w", amount, err)
	}
	if o.Filled, err = decimal.NewFromString(filled); err != nil {
		return nil, fmt.Errorf("invalid order filled %q: %w", filled, err)
	}
	if o.FeeCost, err = decimal.NewFromString(feeCost); err != nil {
		return nil, fmt.Errorf("invalid order fee cost %q: %w", feeCost, err)
	}
	if o.FeeRate, err = nullToDecimalPtr(feeRate); err != nil {
		return nil, fmt.Errorf("invalid order fee rate: %w", err)
	}
	if o.LastPriceTick, err = nullToDecimalPtr(lastTick); err != nil {
		return nil, fmt.Errorf("invalid order last price tick: %w", err)
	}
	if nextID.Valid {
		o.NextOrderID = &nextID.Int64
	}
	return &o, nil
}

func scanBot(s scanner) (*domain.Bot, error) {
	var b domain.Bot
	var defaultFee, minProfit, maxAmount, timeframe string
	var minRise, stopLoss sql.NullString
	var marketID sql.NullInt64
	err := s.Scan(&b.ID, &b.Account, &b.Mode, &b.Active, &b.Created, &defaultFee,
		&marketID, &timeframe, &minProfit, &b.QuoteCurrency, &maxAmount, &minRise, &stopLoss)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan bot row: %w", err)
	}
	b.Timeframe = domain.Timeframe(timeframe)
	if b.DefaultFeeRate, err = decimal.NewFromString(defaultFee); err != nil {
		return nil, fmt.Errorf("invalid bot default fee rate %q: %w", defaultFee, err)
	}
	if b.MinProfit, err = decimal.NewFromString(minProfit); err != nil {
		return nil, fmt.Errorf("invalid bot min profit %q: %w", minProfit, err)
	}
	if b.MaxAmount, err = decimal.NewFromString(maxAmount); err != nil {
		return nil, fmt.Errorf("invalid bot max amount %q: %w", maxAmount, err)
	}
	if b.MinRise, err = nullToDecimalPtr(minRise); err != nil {
		return nil, fmt.Errorf("invalid bot min rise: %w", err)
	}
	if b.StopLoss, err = nullToDecimalPtr(stopLoss); err != nil {
		return nil, fmt.Errorf("invalid bot stop loss: %w", err)
	}
	if marketID.Valid {
		b.MarketID = &marketID.Int64
	}
	return &b, nil
}

func scanCandle(s scanner) (*domain.Candle, error) {
	var c domain.Candle
	var open, high, low, cls, volume string
	err := s.Scan(&c.ID, &c.MarketID, &c.Timeframe, &c.Timestamp, &open, &high, &low, &cls, &volume)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan candle row: %w", err)
	}
	if c.Open, err = decimal.NewFromString(open); err != nil {
		return nil, fmt.Errorf("invalid candle open %q: %w", open, err)
	}
	if c.High, err = decimal.NewFromString(high); err != nil {
		return nil, fmt.Errorf("invalid candle high %q: %w", high, err)
	}
	if c.Low, err = decimal.NewFromString(low); err != nil {
		return nil, fmt.Errorf("invalid candle low %q: %w", low, err)
	}
	if c.Close, err = decimal.NewFromString(cls); err != nil {
		return nil, fmt.Errorf("invalid candle close %q: %w", cls, err)
	}
	if c.Volume, err = decimal.NewFromString(volume); err != nil {
		return nil, fmt.Errorf("invalid candle volume %q: %w", volume, err)
	}
	return &c, nil
}

func decimalPtrToNull(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullToDecimalPtr(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func int64PtrToNull(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// prefixColumns qualifies a column list with a table alias for joins.
func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
