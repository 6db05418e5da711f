package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// PostgresSchema creates the results tables
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS result_sessions (
		kind         TEXT        NOT NULL,
		session_date TEXT        NOT NULL,
		saved_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (kind, session_date)
	)`,
	`CREATE TABLE IF NOT EXISTS rankings (
		session_date  TEXT             NOT NULL,
		ticker        TEXT             NOT NULL,
		rank          INTEGER          NOT NULL,
		rs            DOUBLE PRECISION NOT NULL,
		percentile    INTEGER          NOT NULL,
		rs_1m         DOUBLE PRECISION NOT NULL DEFAULT 0,
		rs_3m         DOUBLE PRECISION NOT NULL DEFAULT 0,
		rs_6m         DOUBLE PRECISION NOT NULL DEFAULT 0,
		percentile_1m INTEGER          NOT NULL DEFAULT 0,
		percentile_3m INTEGER          NOT NULL DEFAULT 0,
		percentile_6m INTEGER          NOT NULL DEFAULT 0,
		PRIMARY KEY (session_date, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS screens (
		session_date TEXT             NOT NULL,
		ticker       TEXT             NOT NULL,
		rank         INTEGER          NOT NULL,
		rs           DOUBLE PRECISION NOT NULL,
		percentile   INTEGER          NOT NULL,
		passed       BOOLEAN          NOT NULL,
		failed_gate  TEXT             NOT NULL DEFAULT '',
		score_detail JSONB            NOT NULL DEFAULT '{}',
		signals      JSONB            NOT NULL DEFAULT '{}',
		PRIMARY KEY (session_date, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		session_date  TEXT             NOT NULL,
		ticker        TEXT             NOT NULL,
		entry_date    TEXT             NOT NULL,
		entry_ts      BIGINT           NOT NULL,
		entry_price   DOUBLE PRECISION NOT NULL,
		exit_date     TEXT             NOT NULL,
		exit_ts       BIGINT           NOT NULL,
		exit_price    DOUBLE PRECISION NOT NULL,
		return_pct    DOUBLE PRECISION NOT NULL,
		held_sessions INTEGER          NOT NULL,
		max_close     DOUBLE PRECISION NOT NULL DEFAULT 0,
		min_close     DOUBLE PRECISION NOT NULL DEFAULT 0,
		exit_reason   TEXT             NOT NULL,
		PRIMARY KEY (session_date, ticker)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_entry ON trades(entry_date)`,
}

// PostgresStore persists results in Postgres through pgxpool
// ⭐ SSOT: 결과 테이블 SQL은 여기서만 (postgres)
type PostgresStore struct {
	pool   *pgxpool.Pool
	loc    *time.Location
	logger *logger.Logger
}

// NewPostgresStore creates a store over an existing pool, run PostgresSchema first
func NewPostgresStore(pool *pgxpool.Pool, loc *time.Location, log *logger.Logger) *PostgresStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresStore{
		pool:   pool,
		loc:    loc,
		logger: log.WithField("module", "results_repository"),
	}
}

func (s *PostgresStore) saved(ctx context.Context, kind string, session time.Time) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM result_sessions WHERE kind = $1 AND session_date = $2`,
		kind, formatDate(session)).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// replace clears and rewrites one session's rows in a single transaction
func (s *PostgresStore) replace(ctx context.Context, kind, table string, session time.Time, batch *pgx.Batch) error {
	key := formatDate(session)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE session_date = $1`, key); err != nil {
		return fmt.Errorf("clear %s %s: %w", table, key, err)
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert %s %s: %w", table, key, err)
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO result_sessions (kind, session_date, saved_at) VALUES ($1, $2, now())
		ON CONFLICT (kind, session_date) DO UPDATE SET saved_at = EXCLUDED.saved_at`, kind, key); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LoadRanking reads the ranking table of a session
func (s *PostgresStore) LoadRanking(ctx context.Context, session time.Time) (*contracts.RankingTable, error) {
	ok, err := s.saved(ctx, kindRanking, session)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, contracts.ErrNotFound
	}

	query := `
		SELECT ticker, rank, rs, percentile, rs_1m, rs_3m, rs_6m, percentile_1m, percentile_3m, percentile_6m
		FROM rankings
		WHERE session_date = $1
		ORDER BY rank
	`
	rows, err := s.pool.Query(ctx, query, formatDate(session))
	if err != nil {
		return nil, fmt.Errorf("query rankings: %w", err)
	}
	defer rows.Close()

	table := &contracts.RankingTable{SessionDate: session}
	for rows.Next() {
		var r contracts.RankedTicker
		if err := rows.Scan(&r.Ticker, &r.Rank, &r.RS, &r.Percentile, &r.RS1M, &r.RS3M, &r.RS6M,
			&r.Percentile1M, &r.Percentile3M, &r.Percentile6M); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		table.Rows = append(table.Rows, r)
	}
	return table, rows.Err()
}

// SaveRanking replaces the ranking table of a session
func (s *PostgresStore) SaveRanking(ctx context.Context, table *contracts.RankingTable) error {
	key := formatDate(table.SessionDate)
	batch := &pgx.Batch{}
	for _, r := range table.Rows {
		batch.Queue(`
			INSERT INTO rankings (session_date, ticker, rank, rs, percentile, rs_1m, rs_3m, rs_6m, percentile_1m, percentile_3m, percentile_6m)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			key, r.Ticker, r.Rank, r.RS, r.Percentile, r.RS1M, r.RS3M, r.RS6M, r.Percentile1M, r.Percentile3M, r.Percentile6M)
	}
	return s.replace(ctx, kindRanking, "rankings", table.SessionDate, batch)
}

// LoadScreen reads the screen of a session ordered by ticker
func (s *PostgresStore) LoadScreen(ctx context.Context, session time.Time) ([]contracts.ScreenResult, error) {
	ok, err := s.saved(ctx, kindScreen, session)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, contracts.ErrNotFound
	}

	query := `
		SELECT ticker, rank, rs, percentile, passed, failed_gate, score_detail::text, signals::text
		FROM screens
		WHERE session_date = $1
		ORDER BY ticker
	`
	rows, err := s.pool.Query(ctx, query, formatDate(session))
	if err != nil {
		return nil, fmt.Errorf("query screens: %w", err)
	}
	defer rows.Close()

	out := []contracts.ScreenResult{}
	for rows.Next() {
		r := contracts.ScreenResult{Date: session}
		var scores, signals string
		if err := rows.Scan(&r.Ticker, &r.Rank, &r.RS, &r.Percentile, &r.Passed, &r.FailedGate, &scores, &signals); err != nil {
			return nil, fmt.Errorf("scan screen: %w", err)
		}
		if r.ScoreDetail, err = decodeMap(scores); err != nil {
			return nil, err
		}
		if r.Signals, err = decodeMap(signals); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveScreen replaces the screen of a session
func (s *PostgresStore) SaveScreen(ctx context.Context, session time.Time, results []contracts.ScreenResult) error {
	key := formatDate(session)
	batch := &pgx.Batch{}
	for _, r := range results {
		scores, err := encodeMap(r.ScoreDetail)
		if err != nil {
			return err
		}
		signals, err := encodeMap(r.Signals)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO screens (session_date, ticker, rank, rs, percentile, passed, failed_gate, score_detail, signals)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb)`,
			key, r.Ticker, r.Rank, r.RS, r.Percentile, r.Passed, r.FailedGate, scores, signals)
	}
	return s.replace(ctx, kindScreen, "screens", session, batch)
}

// SaveTrades replaces the trades of a session
func (s *PostgresStore) SaveTrades(ctx context.Context, session time.Time, trades []contracts.Trade) error {
	key := formatDate(session)
	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(`
			INSERT INTO trades (session_date, ticker, entry_date, entry_ts, entry_price, exit_date, exit_ts, exit_price,
				return_pct, held_sessions, max_close, min_close, exit_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			key, t.Ticker, formatDate(t.EntryDate), t.EntryTimestamp, t.EntryPrice,
			formatDate(t.ExitDate), t.ExitTimestamp, t.ExitPrice,
			t.ReturnPct, t.HeldSessions, t.MaxClose, t.MinClose, string(t.ExitReason))
	}
	return s.replace(ctx, kindTrades, "trades", session, batch)
}

// LoadTrades reads trades with a session date in [from, to]
func (s *PostgresStore) LoadTrades(ctx context.Context, from, to time.Time) ([]contracts.Trade, error) {
	query := `
		SELECT session_date, ticker, entry_date, entry_ts, entry_price, exit_date, exit_ts, exit_price,
			return_pct, held_sessions, max_close, min_close, exit_reason
		FROM trades
		WHERE session_date >= $1 AND session_date <= $2
		ORDER BY session_date, ticker
	`
	rows, err := s.pool.Query(ctx, query, formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []contracts.Trade
	for rows.Next() {
		t, err := scanTrade(rows, s.loc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close is a no-op, the pool belongs to pkg/database
func (s *PostgresStore) Close() error {
	return nil
}
