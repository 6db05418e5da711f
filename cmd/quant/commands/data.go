package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/s0_data"
	"github.com/wonny/aegis-rs/pkg/database"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "가격 아카이브 관리",
	Long: `가격 아카이브 상태를 확인하거나 다른 저장소로 옮깁니다.

Subcommands:
  check   - 아카이브 커버리지 확인 (벤치마크, 최신 세션 비율)
  import  - 아카이브를 Postgres daily_prices 또는 샤드 디렉터리로 저장

Example:
  go run ./cmd/quant data check --min-coverage 0.9
  ARCHIVE_FORMAT=dbn go run ./cmd/quant data import --target postgres
  ARCHIVE_FORMAT=dbn go run ./cmd/quant data import --target shards --out data/price_history`,
}

var (
	dataCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "아카이브 품질 확인",
		RunE:  runDataCheck,
	}

	dataImportCmd = &cobra.Command{
		Use:   "import",
		Short: "아카이브 저장",
		RunE:  runDataImport,
	}

	dataMinCoverage float64
	dataJSON        bool
	dataTarget      string
	dataOut         string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataCheckCmd)
	dataCmd.AddCommand(dataImportCmd)

	dataCheckCmd.Flags().Float64Var(&dataMinCoverage, "min-coverage", 0.9, "최신 세션 캔들 보유 비율 하한")
	dataCheckCmd.Flags().BoolVar(&dataJSON, "json", false, "JSON 출력")

	dataImportCmd.Flags().StringVar(&dataTarget, "target", "postgres", "저장 대상 (postgres|shards)")
	dataImportCmd.Flags().StringVar(&dataOut, "out", "", "샤드 디렉터리 (--target shards)")
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	archive, err := a.loadArchive(ctx)
	if err != nil {
		return err
	}

	rep, err := s0_data.CheckQuality(archive, a.strategy.Ranking.MinHistory, dataMinCoverage, a.loc)
	if err != nil {
		return fmt.Errorf("check quality: %w", err)
	}

	if dataJSON {
		return writeOutput("", func(w io.Writer) error { return writeJSON(w, rep) })
	}

	PrintRunHeader(RunMetadata{
		Title: "Price Archive Check",
		Extra: map[string]string{"Format": a.cfg.Archive.Format, "Source": a.cfg.Archive.Dir},
	})
	PrintKeyValue("Tickers", fmt.Sprintf("%d", rep.Tickers), 14)
	PrintKeyValue("Candles", fmt.Sprintf("%d", rep.Candles), 14)
	PrintKeyValue("Calendar", rep.CalendarTicker, 14)
	PrintKeyValue("Sessions", fmt.Sprintf("%s ~ %s", rep.FirstSession.Format(dayLayout), rep.LastSession.Format(dayLayout)), 14)
	PrintKeyValue("Rankable", fmt.Sprintf("%d (>= %d candles)", rep.RankableCount, a.strategy.Ranking.MinHistory), 14)
	PrintKeyValue("Stale", fmt.Sprintf("%d", rep.StaleCount), 14)
	PrintKeyValue("Coverage", fmt.Sprintf("%.1f%%", rep.Coverage*100), 14)
	PrintKeyValue("Benchmark", fmt.Sprintf("%s (%t)", archive.Benchmark, rep.HasBenchmark), 14)
	PrintKeyValue("Vol Index", fmt.Sprintf("%s (%t)", archive.VolatilityIndex, rep.HasVolIndex), 14)
	fmt.Println()

	if !rep.Passed {
		PrintError("Archive check failed")
		return fmt.Errorf("archive coverage %.3f below %.3f or benchmark missing", rep.Coverage, dataMinCoverage)
	}
	PrintSuccess("Archive check passed")
	return nil
}

func runDataImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	archive, err := a.loadArchive(ctx)
	if err != nil {
		return err
	}

	switch dataTarget {
	case "shards":
		if dataOut == "" {
			return fmt.Errorf("--out is required for --target shards")
		}
		if err := s0_data.WriteShards(dataOut, archive); err != nil {
			return fmt.Errorf("write shards: %w", err)
		}
	case "postgres":
		if err := importPostgres(cmd, a, archive); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown import target %q", dataTarget)
	}

	PrintSuccess(fmt.Sprintf("Imported %d tickers (%d candles) to %s", len(archive.Series), archive.CandleCount(), dataTarget))
	return nil
}

func importPostgres(cmd *cobra.Command, a *app, archive *contracts.PriceArchive) error {
	ctx := cmd.Context()

	db := a.db
	if db == nil {
		var err error
		if db, err = database.New(ctx, a.cfg); err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
	}
	if err := db.Migrate(ctx, s0_data.PriceSchema); err != nil {
		return err
	}

	repo := s0_data.NewPriceRepository(db.Pool, s0_data.LoaderOptions{
		Benchmark:       a.cfg.Archive.Benchmark,
		VolatilityIndex: a.cfg.Archive.VolatilityIndex,
	}, a.log)
	return repo.SaveArchive(ctx, archive)
}
