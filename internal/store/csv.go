package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
)

// File name prefixes of the directory layout
const (
	RankingPrefix = "rs_stocks_"
	ScreenPrefix  = "screen_results_"
	TradesPrefix  = "trades_"
)

// CSVStore keeps one CSV file per session and result kind
type CSVStore struct {
	dir string
	loc *time.Location
	mu  sync.Mutex
}

// NewCSVStore creates the directory if needed
func NewCSVStore(dir string, loc *time.Location) (*CSVStore, error) {
	if loc == nil {
		loc = time.UTC
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &CSVStore{dir: dir, loc: loc}, nil
}

func (s *CSVStore) path(prefix string, session time.Time) string {
	return filepath.Join(s.dir, prefix+formatDate(session)+".csv")
}

// LoadRanking reads rs_stocks_{date}.csv
func (s *CSVStore) LoadRanking(_ context.Context, session time.Time) (*contracts.RankingTable, error) {
	header, records, err := s.read(s.path(RankingPrefix, session))
	if err != nil {
		return nil, err
	}

	col := headerIndex(header)
	table := &contracts.RankingTable{SessionDate: session, Rows: make([]contracts.RankedTicker, 0, len(records))}
	for i, rec := range records {
		r, err := parseRankingRecord(col, rec)
		if err != nil {
			return nil, fmt.Errorf("ranking %s row %d: %w", formatDate(session), i+1, err)
		}
		table.Rows = append(table.Rows, r)
	}
	sort.SliceStable(table.Rows, func(i, j int) bool { return table.Rows[i].Rank < table.Rows[j].Rank })
	return table, nil
}

// SaveRanking writes rs_stocks_{date}.csv
func (s *CSVStore) SaveRanking(_ context.Context, table *contracts.RankingTable) error {
	records := make([][]string, len(table.Rows))
	for i, r := range table.Rows {
		records[i] = rankingRecord(r)
	}
	return s.write(s.path(RankingPrefix, table.SessionDate), rankingHeader, records)
}

// LoadScreen reads screen_results_{date}.csv
func (s *CSVStore) LoadScreen(_ context.Context, session time.Time) ([]contracts.ScreenResult, error) {
	header, records, err := s.read(s.path(ScreenPrefix, session))
	if err != nil {
		return nil, err
	}

	col := headerIndex(header)
	out := make([]contracts.ScreenResult, 0, len(records))
	for i, rec := range records {
		r, err := parseScreenRecord(col, rec, s.loc)
		if err != nil {
			return nil, fmt.Errorf("screen %s row %d: %w", formatDate(session), i+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// SaveScreen writes screen_results_{date}.csv, an empty screen still writes the header
func (s *CSVStore) SaveScreen(_ context.Context, session time.Time, results []contracts.ScreenResult) error {
	records := make([][]string, 0, len(results))
	for _, r := range results {
		rec, err := screenRecord(r)
		if err != nil {
			return fmt.Errorf("encode screen %s: %w", r.Ticker, err)
		}
		records = append(records, rec)
	}
	return s.write(s.path(ScreenPrefix, session), screenHeader, records)
}

// SaveTrades writes trades_{date}.csv
func (s *CSVStore) SaveTrades(_ context.Context, session time.Time, trades []contracts.Trade) error {
	records := make([][]string, len(trades))
	for i, t := range trades {
		records[i] = tradeRecord(t)
	}
	return s.write(s.path(TradesPrefix, session), tradeHeader, records)
}

// LoadTrades reads every trades file with a session date in [from, to]
func (s *CSVStore) LoadTrades(_ context.Context, from, to time.Time) ([]contracts.Trade, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, TradesPrefix+"*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	lo, hi := formatDate(from), formatDate(to)
	var out []contracts.Trade
	for _, p := range paths {
		key := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), TradesPrefix), ".csv")
		if _, err := parseDate(key, s.loc); err != nil || key < lo || key > hi {
			continue
		}

		header, records, err := s.read(p)
		if err != nil {
			return nil, err
		}
		col := headerIndex(header)
		for i, rec := range records {
			t, err := parseTradeRecord(col, rec, s.loc)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", filepath.Base(p), i+1, err)
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// Sessions lists stored session dates of one kind, ascending
func (s *CSVStore) Sessions(prefix string) ([]time.Time, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, prefix+"*.csv"))
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(paths))
	for _, p := range paths {
		key := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), prefix), ".csv")
		if d, err := parseDate(key, s.loc); err == nil {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Close is a no-op
func (s *CSVStore) Close() error {
	return nil
}

func (s *CSVStore) read(path string) ([]string, [][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%s: missing header", filepath.Base(path))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return header, records, nil
}

// write replaces the file atomically so a reader never sees a partial session
func (s *CSVStore) write(path string, header []string, records [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
