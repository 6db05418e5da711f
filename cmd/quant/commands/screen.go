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

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "게이트 스크리닝 실행",
	Long: `지정한 날짜에 가장 가까운 세션을 랭킹하고 게이트 스크리닝을 실행합니다.
통과 종목은 스크리닝 시트(CSV)로 출력합니다.

Example:
  go run ./cmd/quant screen --date 2024-03-15
  go run ./cmd/quant screen --date 2024-03-15 --out screen_results.csv --rescreen`,
	RunE: runScreen,
}

var (
	screenDate     string
	screenOut      string
	screenRescreen bool
	screenExits    bool
)

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringVar(&screenDate, "date", "", "기준 날짜 (YYYY-MM-DD, 기본: 오늘)")
	screenCmd.Flags().StringVar(&screenOut, "out", "", "스크리닝 시트 CSV 경로 (기본: 표 출력)")
	screenCmd.Flags().BoolVar(&screenRescreen, "rescreen", false, "저장된 스크리닝 결과 무시")
	screenCmd.Flags().BoolVar(&screenExits, "simulate-exits", false, "통과 종목 청산 시뮬레이션")
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{results: true, fundamentals: true})
	if err != nil {
		return err
	}
	defer a.close()

	requested, err := a.parseDay(screenDate, time.Now().In(a.loc))
	if err != nil {
		return err
	}

	archive, err := a.loadArchive(ctx)
	if err != nil {
		return err
	}
	engine, err := a.newEngine(archive)
	if err != nil {
		return err
	}

	sr, err := engine.RunSession(ctx, requested, backtest.RunConfig{
		Rescreen:      screenRescreen,
		SimulateExits: screenExits,
	})
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}

	rows := report.BuildSheet(ctx, sr.Screen, a.fundamentalsSource(), report.DefaultSheetOptions(), a.loc)

	if screenOut != "" {
		if err := writeOutput(screenOut, func(w io.Writer) error {
			return report.WriteScreenSheet(w, rows)
		}); err != nil {
			return err
		}
		PrintSuccess(fmt.Sprintf("%d passed tickers written to %s", len(rows), screenOut))
		return nil
	}

	PrintRunHeader(RunMetadata{
		Title:    "Gate Screen",
		Strategy: a.strategy.Meta.StrategyID,
		Extra: map[string]string{
			"Session": sr.SessionDate.Format(dayLayout),
			"Ranking": sr.RankingSource,
			"Ranked":  fmt.Sprintf("%d", sr.Ranked),
			"Passed":  fmt.Sprintf("%d", len(rows)),
		},
	})

	widths := []int{8, 10, 10, 8, 8, 10, 9, 9}
	PrintTableHeader([]string{"Ticker", "Mkt Cap", "Close", "SMA20", "SMA200", "Date", "Price Δ", "Vol Δ"}, widths)
	for _, row := range rows {
		PrintTableRow(row.Record(), widths)
	}

	if screenExits {
		printTrades(sr.Trades)
	}
	return nil
}

func printTrades(trades []contracts.Trade) {
	if len(trades) == 0 {
		return
	}
	fmt.Println()
	widths := []int{8, 12, 9, 12, 9, 8, 12}
	PrintTableHeader([]string{"Ticker", "Entry", "Price", "Exit", "Price", "Return", "Reason"}, widths)
	for _, t := range trades {
		PrintTableRow([]string{
			t.Ticker,
			t.EntryDate.Format(dayLayout),
			fmt.Sprintf("%.2f", t.EntryPrice),
			t.ExitDate.Format(dayLayout),
			fmt.Sprintf("%.2f", t.ExitPrice),
			fmt.Sprintf("%+.2f%%", t.ReturnPct),
			string(t.ExitReason),
		}, widths)
	}
}
