package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rs/internal/report"
)

// rsratingCmd represents the rsrating command
var rsratingCmd = &cobra.Command{
	Use:   "rsrating",
	Short: "TradingView RS 레이팅 시드 생성",
	Long: `퍼센타일 필터 없이 전체 랭킹을 계산하고
TradingView pine seed 형식(RSRATING.csv)으로 출력합니다.

Example:
  go run ./cmd/quant rsrating --date 2024-03-15 --out RSRATING.csv`,
	RunE: runRSRating,
}

var (
	rsratingDate string
	rsratingOut  string
)

func init() {
	rootCmd.AddCommand(rsratingCmd)

	rsratingCmd.Flags().StringVar(&rsratingDate, "date", "", "기준 날짜 (YYYY-MM-DD, 기본: 오늘)")
	rsratingCmd.Flags().StringVar(&rsratingOut, "out", report.RatingFile, "출력 경로 (- = stdout)")
}

func runRSRating(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	requested, err := a.parseDay(rsratingDate, time.Now().In(a.loc))
	if err != nil {
		return err
	}

	archive, err := a.loadArchive(ctx)
	if err != nil {
		return err
	}

	// 레이팅은 전체 퍼센타일 분포가 필요
	rc := a.strategy.Ranking.Config
	rc.MinPercentile = 0
	table, _, err := a.rankAt(ctx, archive, requested, rc, false)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}

	if err := writeOutput(rsratingOut, func(w io.Writer) error {
		return report.WriteTradingViewRating(w, table, requested)
	}); err != nil {
		return err
	}

	if rsratingOut != "-" {
		PrintSuccess(fmt.Sprintf("RS rating for %s written to %s", table.SessionDate.Format(dayLayout), rsratingOut))
	}
	return nil
}
