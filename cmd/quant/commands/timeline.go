package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rs/internal/backtest"
	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/report"
)

// timelineCmd represents the timeline command
var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "포트폴리오 타임라인 재계산",
	Long: `결과 저장소의 거래로 포트폴리오 원장을 다시 계산합니다.

Example:
  go run ./cmd/quant timeline --from 2023-01-01 --to 2023-12-31
  go run ./cmd/quant timeline --format json --out timeline.json --initial-cash 10000`,
	RunE: runTimeline,
}

var (
	timelineFrom        string
	timelineTo          string
	timelineFormat      string
	timelineOut         string
	timelineInitialCash float64
)

func init() {
	rootCmd.AddCommand(timelineCmd)

	timelineCmd.Flags().StringVar(&timelineFrom, "from", "", "시작 세션 (YYYY-MM-DD, 기본: 전체)")
	timelineCmd.Flags().StringVar(&timelineTo, "to", "", "종료 세션 (YYYY-MM-DD, 기본: 전체)")
	timelineCmd.Flags().StringVar(&timelineFormat, "format", "csv", "출력 형식 (csv|json)")
	timelineCmd.Flags().StringVar(&timelineOut, "out", report.TimelineFile, "출력 경로 (- = stdout)")
	timelineCmd.Flags().Float64Var(&timelineInitialCash, "initial-cash", 0, "초기 현금 (기본: 전략 설정)")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{results: true})
	if err != nil {
		return err
	}
	defer a.close()

	from, err := a.parseDay(timelineFrom, time.Time{})
	if err != nil {
		return err
	}
	to, err := a.parseDay(timelineTo, time.Date(9999, 12, 31, 0, 0, 0, 0, a.loc))
	if err != nil {
		return err
	}

	trades, err := a.store.LoadTrades(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}

	lc := a.strategy.Backtest.LedgerConfig
	if timelineInitialCash > 0 {
		lc.InitialCash = timelineInitialCash
	}
	summary, err := backtest.NewLedger(lc, a.log).Run(trades)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	var write func(io.Writer, *contracts.LedgerSummary) error
	switch timelineFormat {
	case "csv":
		write = report.WriteTimelineCSV
	case "json":
		write = report.WriteTimelineJSON
	default:
		return fmt.Errorf("unknown format %q", timelineFormat)
	}

	if err := writeOutput(timelineOut, func(w io.Writer) error { return write(w, summary) }); err != nil {
		return err
	}

	if timelineOut != "-" {
		PrintSuccess(fmt.Sprintf("%d events written to %s", len(summary.Events), timelineOut))
		PrintKeyValue("Performance", report.Performance(summary), 12)
	}
	return nil
}
