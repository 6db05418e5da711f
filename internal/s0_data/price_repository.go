package s0_data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// PriceSchema creates the daily price table
const PriceSchema = `
CREATE TABLE IF NOT EXISTS daily_prices (
	ticker     TEXT             NOT NULL,
	ts         BIGINT           NOT NULL,
	open       DOUBLE PRECISION NOT NULL,
	high       DOUBLE PRECISION NOT NULL,
	low        DOUBLE PRECISION NOT NULL,
	close      DOUBLE PRECISION NOT NULL,
	volume     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (ticker, ts)
)`

// PriceRepository loads and stores the archive in Postgres
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool   *pgxpool.Pool
	opts   LoaderOptions
	logger *logger.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool, opts LoaderOptions, log *logger.Logger) *PriceRepository {
	return &PriceRepository{
		pool:   pool,
		opts:   opts,
		logger: log.WithField("module", "price_repository"),
	}
}

// Load reads the whole price table into an archive
func (r *PriceRepository) Load(ctx context.Context) (*contracts.PriceArchive, error) {
	query := `
		SELECT ticker, ts, open, high, low, close, volume
		FROM daily_prices
		ORDER BY ticker, ts
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]contracts.Candle)
	for rows.Next() {
		var ticker string
		var c contracts.Candle
		if err := rows.Scan(&ticker, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		grouped[ticker] = append(grouped[ticker], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prices: %w", err)
	}

	archive := contracts.NewPriceArchive(NormalizeTicker(r.opts.Benchmark), NormalizeTicker(r.opts.VolatilityIndex))
	for ticker, candles := range grouped {
		s, err := buildSeries(NormalizeTicker(ticker), candles)
		if err != nil {
			r.logger.WithError(err).WithField("ticker", ticker).Warn("Corrupt series skipped")
			continue
		}
		archive.Series[s.Ticker] = s
	}

	return finish(ctx, archive, r.logger)
}

// SaveSeries upserts one ticker's candles in a single batch
func (r *PriceRepository) SaveSeries(ctx context.Context, series *contracts.TickerSeries) error {
	if series.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO daily_prices (ticker, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, ts) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, c := range series.Candles {
		batch.Queue(query, series.Ticker, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range series.Candles {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert %s: %w", series.Ticker, err)
		}
	}
	return nil
}

// SaveArchive upserts every series of the archive
func (r *PriceRepository) SaveArchive(ctx context.Context, archive *contracts.PriceArchive) error {
	for _, ticker := range archive.Tickers() {
		if err := r.SaveSeries(ctx, archive.Series[ticker]); err != nil {
			return err
		}
	}
	r.logger.WithField("tickers", len(archive.Series)).Info("Archive saved to postgres")
	return nil
}
