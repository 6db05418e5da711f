package contracts

import (
	"context"
	"time"
)

// ArchiveLoader materialises the price archive from storage (S0)
// ⭐ SSOT: S0 아카이브 로더 인터페이스
type ArchiveLoader interface {
	Load(ctx context.Context) (*PriceArchive, error)
}

// Ranker ranks a point-in-time snapshot by relative strength (S1)
// ⭐ SSOT: S1 랭킹 인터페이스
type Ranker interface {
	Rank(ctx context.Context, snapshot *Snapshot) (*RankingTable, error)
}

// Screener evaluates ranked candidates against the gate set (S3)
// ⭐ SSOT: S3 스크리닝 인터페이스
type Screener interface {
	Screen(ctx context.Context, snapshot *Snapshot, table *RankingTable) ([]ScreenResult, error)
}

// ExitSimulator replays a trade over the full candle history (S4)
// ⭐ SSOT: S4 청산 시뮬레이션 인터페이스
type ExitSimulator interface {
	Simulate(series *TickerSeries, entry int64) Trade
}

// FundamentalsProvider fetches fundamentals from an external source
type FundamentalsProvider interface {
	Fetch(ctx context.Context, ticker string) (Fundamentals, error)
}

// FundamentalsSource serves fundamentals without blocking the ranked-ticker loop
type FundamentalsSource interface {
	Lookup(ctx context.Context, ticker string) Fundamentals
}

// ResultsStore persists per-session outputs keyed by session date
// ⭐ SSOT: 결과 저장소 인터페이스 (csv / sqlite / postgres)
type ResultsStore interface {
	LoadRanking(ctx context.Context, session time.Time) (*RankingTable, error) // ErrNotFound if absent
	SaveRanking(ctx context.Context, table *RankingTable) error
	LoadScreen(ctx context.Context, session time.Time) ([]ScreenResult, error) // ErrNotFound if absent
	SaveScreen(ctx context.Context, session time.Time, results []ScreenResult) error
	SaveTrades(ctx context.Context, session time.Time, trades []Trade) error
	LoadTrades(ctx context.Context, from, to time.Time) ([]Trade, error)
	Close() error
}
