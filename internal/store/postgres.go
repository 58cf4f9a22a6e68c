package store

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hulopredict/market-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision;
// the shopspring codec is registered on every connection so NUMERIC scans
// directly into decimal.Decimal.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPool creates a pgx pool for dbURL with the shopspring decimal codec
// registered on each connection.
func NewPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InitSchema creates the engine's tables if they do not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS competitors (
			name       TEXT PRIMARY KEY,
			color      TEXT NOT NULL,
			percent    INTEGER NOT NULL,
			score      INTEGER NOT NULL DEFAULT 0,
			holes      INTEGER NOT NULL DEFAULT 18,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			participant_id TEXT PRIMARY KEY,
			cash           NUMERIC NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			participant_id TEXT NOT NULL,
			competitor     TEXT NOT NULL,
			yes_shares     NUMERIC NOT NULL DEFAULT 0,
			no_shares      NUMERIC NOT NULL DEFAULT 0,
			avg_yes_price  NUMERIC NOT NULL DEFAULT 0,
			avg_no_price   NUMERIC NOT NULL DEFAULT 0,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (participant_id, competitor)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id             TEXT PRIMARY KEY,
			participant_id TEXT NOT NULL,
			competitor     TEXT NOT NULL,
			side           TEXT NOT NULL,
			shares         NUMERIC NOT NULL,
			price          NUMERIC NOT NULL,
			amount         NUMERIC NOT NULL,
			timestamp      TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id         BIGSERIAL PRIMARY KEY,
			competitor TEXT NOT NULL,
			percent    INTEGER NOT NULL,
			timestamp  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_competitor
			ON price_history (competitor, id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_timestamp
			ON trades (timestamp DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) LoadCompetitors(ctx context.Context) ([]model.Competitor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, color, percent, score, holes, updated_at
		 FROM competitors ORDER BY percent DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var competitors []model.Competitor
	for rows.Next() {
		var c model.Competitor
		if err := rows.Scan(&c.Name, &c.Color, &c.Percent, &c.Score, &c.Holes, &c.UpdatedAt); err != nil {
			return nil, err
		}
		competitors = append(competitors, c)
	}
	return competitors, rows.Err()
}

func (s *PostgresStore) SeedCompetitors(ctx context.Context, competitors []model.Competitor) error {
	for _, c := range competitors {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO competitors (name, color, percent, score, holes, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (name) DO NOTHING`,
			c.Name, c.Color, c.Percent, c.Score, c.Holes, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("seed competitor %s: %w", c.Name, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveCompetitorPercent(ctx context.Context, name string, percent int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE competitors SET percent = $2, updated_at = now() WHERE name = $1`,
		name, percent)
	return err
}

func (s *PostgresStore) LoadPriceHistory(ctx context.Context, name string, limit int) ([]int, error) {
	// Newest rows first, then reversed so callers get oldest first.
	rows, err := s.pool.Query(ctx,
		`SELECT percent FROM price_history
		 WHERE competitor = $1 ORDER BY id DESC LIMIT $2`,
		name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newestFirst []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]int, len(newestFirst))
	for i, p := range newestFirst {
		out[len(newestFirst)-1-i] = p
	}
	return out, nil
}

func (s *PostgresStore) AppendPriceHistory(ctx context.Context, name string, percent int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO price_history (competitor, percent) VALUES ($1, $2)`,
		name, percent)
	return err
}

func (s *PostgresStore) LoadOrCreateParticipant(ctx context.Context, id string, initialCash decimal.Decimal) (model.Participant, error) {
	var p model.Participant

	err := s.pool.QueryRow(ctx,
		`INSERT INTO participants (participant_id, cash)
		 VALUES ($1, $2)
		 ON CONFLICT (participant_id) DO UPDATE SET participant_id = EXCLUDED.participant_id
		 RETURNING participant_id, cash, created_at`,
		id, initialCash).
		Scan(&p.ID, &p.Cash, &p.CreatedAt)
	if err != nil {
		return model.Participant{}, fmt.Errorf("load or create participant %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) SaveParticipantCash(ctx context.Context, id string, cash decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE participants SET cash = $2 WHERE participant_id = $1`,
		id, cash)
	return err
}

func (s *PostgresStore) LoadPosition(ctx context.Context, participantID, competitor string) (*model.Position, error) {
	var pos model.Position
	err := s.pool.QueryRow(ctx,
		`SELECT participant_id, competitor, yes_shares, no_shares,
		        avg_yes_price, avg_no_price, updated_at
		 FROM positions WHERE participant_id = $1 AND competitor = $2`,
		participantID, competitor).
		Scan(&pos.ParticipantID, &pos.Competitor, &pos.YesShares, &pos.NoShares,
			&pos.AvgYesPrice, &pos.AvgNoPrice, &pos.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load position %s/%s: %w", participantID, competitor, err)
	}
	return &pos, nil
}

func (s *PostgresStore) SavePosition(ctx context.Context, pos *model.Position) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO positions (participant_id, competitor, yes_shares, no_shares,
		                        avg_yes_price, avg_no_price, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (participant_id, competitor)
		 DO UPDATE SET yes_shares = EXCLUDED.yes_shares,
		               no_shares = EXCLUDED.no_shares,
		               avg_yes_price = EXCLUDED.avg_yes_price,
		               avg_no_price = EXCLUDED.avg_no_price,
		               updated_at = now()`,
		pos.ParticipantID, pos.Competitor, pos.YesShares, pos.NoShares,
		pos.AvgYesPrice, pos.AvgNoPrice)
	return err
}

func (s *PostgresStore) AppendTrade(ctx context.Context, t *model.Trade) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (id, participant_id, competitor, side, shares, price, amount, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.ParticipantID, t.Competitor, t.Side, t.Shares, t.Price, t.Amount, t.Timestamp)
	return err
}

func (s *PostgresStore) ListRecentTrades(ctx context.Context, limit int) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, participant_id, competitor, side, shares, price, amount, timestamp
		 FROM trades ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		if err := rows.Scan(&t.ID, &t.ParticipantID, &t.Competitor, &t.Side,
			&t.Shares, &t.Price, &t.Amount, &t.Timestamp); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) TotalTradedVolume(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM trades`).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
