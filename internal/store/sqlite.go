package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// Result kinds recorded in result_sessions
const (
	kindRanking = "ranking"
	kindScreen  = "screen"
	kindTrades  = "trades"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS result_sessions (
		kind         TEXT    NOT NULL,
		session_date TEXT    NOT NULL,
		saved_at     INTEGER NOT NULL,
		PRIMARY KEY (kind, session_date)
	)`,
	`CREATE TABLE IF NOT EXISTS rankings (
		session_date  TEXT    NOT NULL,
		ticker        TEXT    NOT NULL,
		rank          INTEGER NOT NULL,
		rs            REAL    NOT NULL,
		percentile    INTEGER NOT NULL,
		rs_1m         REAL,
		rs_3m         REAL,
		rs_6m         REAL,
		percentile_1m INTEGER,
		percentile_3m INTEGER,
		percentile_6m INTEGER,
		PRIMARY KEY (session_date, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS screens (
		session_date TEXT    NOT NULL,
		ticker       TEXT    NOT NULL,
		rank         INTEGER,
		rs           REAL,
		percentile   INTEGER,
		passed       INTEGER NOT NULL,
		failed_gate  TEXT,
		score_detail TEXT,
		signals      TEXT,
		PRIMARY KEY (session_date, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		session_date  TEXT    NOT NULL,
		ticker        TEXT    NOT NULL,
		entry_date    TEXT    NOT NULL,
		entry_ts      INTEGER NOT NULL,
		entry_price   REAL    NOT NULL,
		exit_date     TEXT    NOT NULL,
		exit_ts       INTEGER NOT NULL,
		exit_price    REAL    NOT NULL,
		return_pct    REAL    NOT NULL,
		held_sessions INTEGER NOT NULL,
		max_close     REAL,
		min_close     REAL,
		exit_reason   TEXT    NOT NULL,
		PRIMARY KEY (session_date, ticker)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_entry ON trades(entry_date)`,
}

// SQLiteStore persists results to a local SQLite database
type SQLiteStore struct {
	db     *sql.DB
	loc    *time.Location
	mu     sync.Mutex
	logger *logger.Logger
}

// NewSQLiteStore opens (or creates) the database and runs migrations
func NewSQLiteStore(path string, loc *time.Location, log *logger.Logger) (*SQLiteStore, error) {
	if loc == nil {
		loc = time.UTC
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	log.WithField("path", path).Info("SQLite results store opened")
	return &SQLiteStore{db: db, loc: loc, logger: log}, nil
}

func (s *SQLiteStore) saved(ctx context.Context, kind string, session time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM result_sessions WHERE kind = ? AND session_date = ?`,
		kind, formatDate(session)).Scan(&n)
	return n > 0, err
}

// replace runs fn inside a transaction after clearing the session rows of table
func (s *SQLiteStore) replace(ctx context.Context, kind, table string, session time.Time, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	key := formatDate(session)
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_date = ?`, key); err != nil {
		return fmt.Errorf("clear %s %s: %w", table, key, err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO result_sessions (kind, session_date, saved_at) VALUES (?, ?, ?)`,
		kind, key, time.Now().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadRanking reads the ranking table of a session
func (s *SQLiteStore) LoadRanking(ctx context.Context, session time.Time) (*contracts.RankingTable, error) {
	ok, err := s.saved(ctx, kindRanking, session)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, contracts.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, rank, rs, percentile, rs_1m, rs_3m, rs_6m, percentile_1m, percentile_3m, percentile_6m
		FROM rankings WHERE session_date = ? ORDER BY rank`, formatDate(session))
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
func (s *SQLiteStore) SaveRanking(ctx context.Context, table *contracts.RankingTable) error {
	return s.replace(ctx, kindRanking, "rankings", table.SessionDate, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO rankings (session_date, ticker, rank, rs, percentile, rs_1m, rs_3m, rs_6m, percentile_1m, percentile_3m, percentile_6m)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		key := formatDate(table.SessionDate)
		for _, r := range table.Rows {
			if _, err := stmt.ExecContext(ctx, key, r.Ticker, r.Rank, r.RS, r.Percentile, r.RS1M, r.RS3M, r.RS6M,
				r.Percentile1M, r.Percentile3M, r.Percentile6M); err != nil {
				return fmt.Errorf("insert ranking %s: %w", r.Ticker, err)
			}
		}
		return nil
	})
}

// LoadScreen reads the screen of a session ordered by ticker
func (s *SQLiteStore) LoadScreen(ctx context.Context, session time.Time) ([]contracts.ScreenResult, error) {
	ok, err := s.saved(ctx, kindScreen, session)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, contracts.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, rank, rs, percentile, passed, failed_gate, score_detail, signals
		FROM screens WHERE session_date = ? ORDER BY ticker`, formatDate(session))
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
func (s *SQLiteStore) SaveScreen(ctx context.Context, session time.Time, results []contracts.ScreenResult) error {
	return s.replace(ctx, kindScreen, "screens", session, func(tx *sql.Tx) error {
		key := formatDate(session)
		for _, r := range results {
			scores, err := encodeMap(r.ScoreDetail)
			if err != nil {
				return err
			}
			signals, err := encodeMap(r.Signals)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO screens (session_date, ticker, rank, rs, percentile, passed, failed_gate, score_detail, signals)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				key, r.Ticker, r.Rank, r.RS, r.Percentile, r.Passed, r.FailedGate, scores, signals); err != nil {
				return fmt.Errorf("insert screen %s: %w", r.Ticker, err)
			}
		}
		return nil
	})
}

// SaveTrades replaces the trades of a session
func (s *SQLiteStore) SaveTrades(ctx context.Context, session time.Time, trades []contracts.Trade) error {
	return s.replace(ctx, kindTrades, "trades", session, func(tx *sql.Tx) error {
		key := formatDate(session)
		for _, t := range trades {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO trades (session_date, ticker, entry_date, entry_ts, entry_price, exit_date, exit_ts, exit_price,
					return_pct, held_sessions, max_close, min_close, exit_reason)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				key, t.Ticker, formatDate(t.EntryDate), t.EntryTimestamp, t.EntryPrice,
				formatDate(t.ExitDate), t.ExitTimestamp, t.ExitPrice,
				t.ReturnPct, t.HeldSessions, t.MaxClose, t.MinClose, string(t.ExitReason)); err != nil {
				return fmt.Errorf("insert trade %s: %w", t.Ticker, err)
			}
		}
		return nil
	})
}

// LoadTrades reads trades with a session date in [from, to]
func (s *SQLiteStore) LoadTrades(ctx context.Context, from, to time.Time) ([]contracts.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_date, ticker, entry_date, entry_ts, entry_price, exit_date, exit_ts, exit_price,
			return_pct, held_sessions, max_close, min_close, exit_reason
		FROM trades WHERE session_date >= ? AND session_date <= ?
		ORDER BY session_date, ticker`, formatDate(from), formatDate(to))
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

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner, loc *time.Location) (contracts.Trade, error) {
	var t contracts.Trade
	var session, entry, exit, reason string
	if err := row.Scan(&session, &t.Ticker, &entry, &t.EntryTimestamp, &t.EntryPrice, &exit, &t.ExitTimestamp, &t.ExitPrice,
		&t.ReturnPct, &t.HeldSessions, &t.MaxClose, &t.MinClose, &reason); err != nil {
		return t, fmt.Errorf("scan trade: %w", err)
	}
	t.ExitReason = contracts.ExitReason(reason)

	var err error
	if t.SessionDate, err = parseDate(session, loc); err != nil {
		return t, err
	}
	if t.EntryDate, err = parseDate(entry, loc); err != nil {
		return t, err
	}
	if t.ExitDate, err = parseDate(exit, loc); err != nil {
		return t, err
	}
	return t, nil
}
