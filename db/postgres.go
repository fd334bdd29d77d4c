package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"rugsServer/config"
	"rugsServer/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool
)

// RoundArchive is the persisted form of a finished round.
type RoundArchive struct {
	RoundID         string      `json:"roundId"`
	ServerSeed      string      `json:"serverSeed"`
	SeedHash        string      `json:"seedHash"`
	CrashMultiplier float64     `json:"crashMultiplier"`
	Ticks           []game.Tick `json:"ticks"`
	TotalTicks      int         `json:"totalTicks"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// ChatRecord is one relayed chat line.
type ChatRecord struct {
	PlayerID  string    `json:"playerId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// InitPostgres initializes the PostgreSQL connection pool.
func InitPostgres() error {
	log.Println("🔌 Connecting to PostgreSQL...")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = config.MaxOpenConns
	poolConfig.MinConns = config.MinIdleConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	PostgresPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := PostgresPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ PostgreSQL connected successfully")

	if err := InitSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool.
func ClosePostgres() {
	if PostgresPool != nil {
		log.Println("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
	}
}

// InitSchema creates the database tables if they don't exist.
func InitSchema(ctx context.Context) error {
	log.Println("📋 Initializing database schema...")

	roundsSchema := `
	CREATE TABLE IF NOT EXISTS crash_rounds (
		id SERIAL PRIMARY KEY,
		round_id TEXT NOT NULL UNIQUE,
		server_seed TEXT NOT NULL,
		seed_hash TEXT NOT NULL,
		crash_multiplier DOUBLE PRECISION NOT NULL,
		ticks JSONB NOT NULL,
		total_ticks INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_crash_rounds_round_id ON crash_rounds(round_id);
	CREATE INDEX IF NOT EXISTS idx_crash_rounds_created_at ON crash_rounds(created_at DESC);
	`

	if _, err := PostgresPool.Exec(ctx, roundsSchema); err != nil {
		return fmt.Errorf("failed to create crash_rounds table: %w", err)
	}

	tradesSchema := `
	CREATE TABLE IF NOT EXISTS crash_trades (
		id SERIAL PRIMARY KEY,
		trade_id TEXT NOT NULL UNIQUE,
		round_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		buy_price DOUBLE PRECISION NOT NULL,
		buy_amount DOUBLE PRECISION NOT NULL,
		sell_price DOUBLE PRECISION,
		pnl_percent DOUBLE PRECISION,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		closed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_crash_trades_round_id ON crash_trades(round_id);
	CREATE INDEX IF NOT EXISTS idx_crash_trades_player ON crash_trades(player_id);
	CREATE INDEX IF NOT EXISTS idx_crash_trades_status ON crash_trades(status);
	`

	if _, err := PostgresPool.Exec(ctx, tradesSchema); err != nil {
		return fmt.Errorf("failed to create crash_trades table: %w", err)
	}

	chatSchema := `
	CREATE TABLE IF NOT EXISTS chat_history (
		id SERIAL PRIMARY KEY,
		player_id TEXT NOT NULL,
		message TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_chat_history_timestamp ON chat_history(timestamp DESC);
	`

	if _, err := PostgresPool.Exec(ctx, chatSchema); err != nil {
		return fmt.Errorf("failed to create chat_history table: %w", err)
	}

	walletPnLSchema := `
	CREATE TABLE IF NOT EXISTS wallet_pnl (
		wallet_address TEXT PRIMARY KEY,
		amount DOUBLE PRECISION NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_pnl_amount ON wallet_pnl(amount DESC);
	`

	if _, err := PostgresPool.Exec(ctx, walletPnLSchema); err != nil {
		return fmt.Errorf("failed to create wallet_pnl table: %w", err)
	}

	log.Println("✅ Database schema initialized")
	return nil
}

/* =========================
   ROUND ARCHIVE
========================= */

// StoreRound archives a finished round.
func StoreRound(ctx context.Context, rec *RoundArchive) error {
	if PostgresPool == nil {
		log.Println("⚠️  PostgreSQL not initialized, skipping round archive")
		return nil
	}

	ticksJSON, err := json.Marshal(rec.Ticks)
	if err != nil {
		return fmt.Errorf("failed to marshal ticks: %w", err)
	}

	query := `
	INSERT INTO crash_rounds (round_id, server_seed, seed_hash, crash_multiplier, ticks, total_ticks, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (round_id) DO NOTHING
	`

	_, err = PostgresPool.Exec(ctx, query,
		rec.RoundID, rec.ServerSeed, rec.SeedHash, rec.CrashMultiplier,
		ticksJSON, rec.TotalTicks, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store round: %w", err)
	}

	return nil
}

// GetRound retrieves one archived round by id.
func GetRound(ctx context.Context, roundID string) (*RoundArchive, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("postgres not initialized")
	}

	query := `
	SELECT round_id, server_seed, seed_hash, crash_multiplier, ticks, total_ticks, created_at
	FROM crash_rounds WHERE round_id = $1
	`

	var rec RoundArchive
	var ticksJSON []byte
	err := PostgresPool.QueryRow(ctx, query, roundID).Scan(
		&rec.RoundID, &rec.ServerSeed, &rec.SeedHash, &rec.CrashMultiplier,
		&ticksJSON, &rec.TotalTicks, &rec.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	if err := json.Unmarshal(ticksJSON, &rec.Ticks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticks: %w", err)
	}

	return &rec, nil
}

// GetRecentRounds retrieves the latest archived rounds, newest first.
func GetRecentRounds(ctx context.Context, limit int) ([]*RoundArchive, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("postgres not initialized")
	}

	query := `
	SELECT round_id, server_seed, seed_hash, crash_multiplier, ticks, total_ticks, created_at
	FROM crash_rounds ORDER BY created_at DESC LIMIT $1
	`

	rows, err := PostgresPool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent rounds: %w", err)
	}
	defer rows.Close()

	var records []*RoundArchive
	for rows.Next() {
		var rec RoundArchive
		var ticksJSON []byte
		if err := rows.Scan(&rec.RoundID, &rec.ServerSeed, &rec.SeedHash, &rec.CrashMultiplier,
			&ticksJSON, &rec.TotalTicks, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		if err := json.Unmarshal(ticksJSON, &rec.Ticks); err != nil {
			log.Printf("⚠️  Failed to unmarshal ticks for round %s: %v", rec.RoundID, err)
			continue
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

/* =========================
   TRADE RECORDS
========================= */

// StoreTrade records a freshly opened trade.
func StoreTrade(ctx context.Context, roundID string, t game.Trade) error {
	if PostgresPool == nil {
		return nil
	}

	query := `
	INSERT INTO crash_trades (trade_id, round_id, player_id, buy_price, buy_amount, status)
	VALUES ($1, $2, $3, $4, $5, 'open')
	ON CONFLICT (trade_id) DO NOTHING
	`

	if _, err := PostgresPool.Exec(ctx, query,
		t.TradeID, roundID, t.PlayerID, t.BuyPrice, t.BuyAmount); err != nil {
		return fmt.Errorf("failed to store trade: %w", err)
	}
	return nil
}

// CloseTrade records a settled sell. Idempotent: a retried close of an
// already-closed trade changes nothing.
func CloseTrade(ctx context.Context, roundID string, t game.Trade) error {
	if PostgresPool == nil {
		return nil
	}
	if t.SellPrice == nil || t.PnlPercent == nil {
		return fmt.Errorf("trade %s is not closed", t.TradeID)
	}

	query := `
	UPDATE crash_trades
	SET sell_price = $1, pnl_percent = $2, status = 'closed', closed_at = NOW()
	WHERE trade_id = $3 AND status = 'open'
	`

	if _, err := PostgresPool.Exec(ctx, query, *t.SellPrice, *t.PnlPercent, t.TradeID); err != nil {
		return fmt.Errorf("failed to close trade: %w", err)
	}
	return nil
}

// MarkTradesLost flags every still-open trade of a rugged round.
func MarkTradesLost(ctx context.Context, roundID string) error {
	if PostgresPool == nil {
		return nil
	}

	query := `
	UPDATE crash_trades SET status = 'lost', closed_at = NOW()
	WHERE round_id = $1 AND status = 'open'
	`

	if _, err := PostgresPool.Exec(ctx, query, roundID); err != nil {
		return fmt.Errorf("failed to mark trades lost: %w", err)
	}
	return nil
}

/* =========================
   WALLET PNL
========================= */

// WalletPnLRecord is one leaderboard row.
type WalletPnLRecord struct {
	WalletAddress string  `json:"walletAddress"`
	Amount        float64 `json:"amount"`
	Rank          int     `json:"rank"`
}

// SubtractWalletPnL debits a wallet when a buy is recorded.
func SubtractWalletPnL(ctx context.Context, walletAddress string, amount float64) error {
	if PostgresPool == nil {
		return nil
	}

	query := `
	INSERT INTO wallet_pnl (wallet_address, amount) VALUES ($1, -$2)
	ON CONFLICT (wallet_address) DO UPDATE SET amount = wallet_pnl.amount - $2
	`

	if _, err := PostgresPool.Exec(ctx, query, walletAddress, amount); err != nil {
		return fmt.Errorf("failed to subtract wallet pnl: %w", err)
	}
	return nil
}

// AddWalletPnL credits a wallet when a sell pays out.
func AddWalletPnL(ctx context.Context, walletAddress string, amount float64) error {
	if PostgresPool == nil {
		return nil
	}

	query := `
	INSERT INTO wallet_pnl (wallet_address, amount) VALUES ($1, $2)
	ON CONFLICT (wallet_address) DO UPDATE SET amount = wallet_pnl.amount + $2
	`

	if _, err := PostgresPool.Exec(ctx, query, walletAddress, amount); err != nil {
		return fmt.Errorf("failed to add wallet pnl: %w", err)
	}
	return nil
}

// GetWalletPnLLeaderboard returns the top wallets by PnL.
func GetWalletPnLLeaderboard(ctx context.Context, limit int) ([]*WalletPnLRecord, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("postgres not initialized")
	}

	query := `
	SELECT wallet_address, amount,
	       RANK() OVER (ORDER BY amount DESC) AS rank
	FROM wallet_pnl ORDER BY amount DESC LIMIT $1
	`

	rows, err := PostgresPool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var records []*WalletPnLRecord
	for rows.Next() {
		var rec WalletPnLRecord
		if err := rows.Scan(&rec.WalletAddress, &rec.Amount, &rec.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// GetWalletPnLRank returns one wallet's row with its rank, nil if absent.
func GetWalletPnLRank(ctx context.Context, walletAddress string) (*WalletPnLRecord, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("postgres not initialized")
	}

	query := `
	SELECT wallet_address, amount, rank FROM (
		SELECT wallet_address, amount,
		       RANK() OVER (ORDER BY amount DESC) AS rank
		FROM wallet_pnl
	) ranked WHERE wallet_address = $1
	`

	var rec WalletPnLRecord
	err := PostgresPool.QueryRow(ctx, query, walletAddress).Scan(
		&rec.WalletAddress, &rec.Amount, &rec.Rank)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet pnl: %w", err)
	}

	return &rec, nil
}

/* =========================
   CHAT HISTORY
========================= */

// StoreChatMessage persists one relayed chat line.
func StoreChatMessage(ctx context.Context, rec *ChatRecord) error {
	if PostgresPool == nil {
		return nil
	}

	query := `INSERT INTO chat_history (player_id, message, timestamp) VALUES ($1, $2, $3)`

	if _, err := PostgresPool.Exec(ctx, query, rec.PlayerID, rec.Message, rec.Timestamp); err != nil {
		return fmt.Errorf("failed to store chat message: %w", err)
	}
	return nil
}

// GetRecentChatMessages returns the latest chat lines, oldest first.
func GetRecentChatMessages(ctx context.Context, limit int) ([]*ChatRecord, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("postgres not initialized")
	}

	query := `
	SELECT player_id, message, timestamp FROM (
		SELECT player_id, message, timestamp
		FROM chat_history ORDER BY timestamp DESC LIMIT $1
	) recent ORDER BY timestamp ASC
	`

	rows, err := PostgresPool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var records []*ChatRecord
	for rows.Next() {
		var rec ChatRecord
		if err := rows.Scan(&rec.PlayerID, &rec.Message, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheckPostgres pings the pool.
func HealthCheckPostgres(ctx context.Context) error {
	if PostgresPool == nil {
		return fmt.Errorf("postgres not initialized")
	}
	return PostgresPool.Ping(ctx)
}
