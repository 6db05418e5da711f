package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rs/internal/backtest"
	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/report"
	"github.com/wonny/aegis-rs/internal/risk"
	"github.com/wonny/aegis-rs/internal/s0_data"
	"github.com/wonny/aegis-rs/internal/strategyconfig"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "워크포워드 백테스트",
	Long: `과거 세션을 순서대로 진행하며 랭킹, 스크리닝, 청산 시뮬레이션을 실행합니다.

백테스트는 다음을 산출합니다:
- 세션별 랭킹/스크리닝 결과 (결과 저장소)
- 청산 규칙별 거래
- 포트폴리오 원장 타임라인과 성과

Example:
  go run ./cmd/quant backtest run --from 2023-01-01 --to 2023-12-31
  go run ./cmd/quant backtest run --from 2020-01-01 --stride 1month --simulate-exits`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `지정된 기간 동안 워크포워드 백테스트를 실행합니다.

Flags:
  --from            시작 날짜 (YYYY-MM-DD)
  --to              종료 날짜 (YYYY-MM-DD, 기본: 아카이브 마지막 세션)
  --stride          진행 간격 (1day, 1week, 1month, 기본: 전략 설정)
  --simulate-exits  청산 시뮬레이션
  --rescreen        저장된 스크리닝 결과 무시
  --timeline-out    타임라인 CSV 경로
  --manifest-out    실행 매니페스트 JSON 경로
  --monte-carlo     거래 리스크 부트스트랩 횟수

Example:
  go run ./cmd/quant backtest run --from 2023-01-01 --to 2023-12-31
  go run ./cmd/quant backtest run --from 2020-01-01 --stride 1month --simulate-exits --timeline-out timeline.csv`,
		RunE: runBacktest,
	}

	// Flags
	backtestFrom          string
	backtestTo            string
	backtestStride        string
	backtestSimulateExits bool
	backtestRescreen      bool
	backtestTimelineOut   string
	backtestManifestOut   string
	backtestMonteCarlo    int
	backtestSeed          int64
	backtestFetchFunds    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	// Flags
	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "시작 날짜 (YYYY-MM-DD, 필수)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "종료 날짜 (YYYY-MM-DD)")
	backtestRunCmd.Flags().StringVar(&backtestStride, "stride", "", "진행 간격 (1day|1week|1month)")
	backtestRunCmd.Flags().BoolVar(&backtestSimulateExits, "simulate-exits", false, "청산 시뮬레이션 (기본: 전략 설정)")
	backtestRunCmd.Flags().BoolVar(&backtestRescreen, "rescreen", false, "저장된 스크리닝 결과 무시")
	backtestRunCmd.Flags().StringVar(&backtestTimelineOut, "timeline-out", "", "타임라인 CSV 경로")
	backtestRunCmd.Flags().StringVar(&backtestManifestOut, "manifest-out", "", "실행 매니페스트 JSON 경로")

	backtestRunCmd.Flags().IntVar(&backtestMonteCarlo, "monte-carlo", 0, "거래 순서 부트스트랩 횟수 (0 = 생략)")
	backtestRunCmd.Flags().Int64Var(&backtestSeed, "seed", 0, "부트스트랩 시드 (0 = 시간)")
	backtestRunCmd.Flags().BoolVar(&backtestFetchFunds, "fetch-fundamentals", false, "캐시 미스 시 펀더멘털 외부 조회 (기본: fundamentals prefetch 캐시만 사용)")

	backtestRunCmd.MarkFlagRequired("from")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{results: true, fundamentals: true, cachedFundamentals: !backtestFetchFunds})
	if err != nil {
		return err
	}
	defer a.close()

	// 1. Resolve run config
	stride, err := a.strategy.Backtest.StrideValue()
	if err != nil {
		return err
	}
	if backtestStride != "" {
		if stride, err = backtest.ParseStride(backtestStride); err != nil {
			return err
		}
	}

	start, err := a.parseDay(backtestFrom, time.Time{})
	if err != nil {
		return err
	}

	// 2. Load archive and build engine
	archive, err := a.loadArchive(ctx)
	if err != nil {
		return err
	}
	engine, err := a.newEngine(archive)
	if err != nil {
		return err
	}

	lastSession := s0_data.SessionDate(engine.Calendar().Last(), a.loc)
	end, err := a.parseDay(backtestTo, lastSession)
	if err != nil {
		return err
	}

	runCfg := backtest.RunConfig{
		Start:         start,
		End:           end,
		Stride:        stride,
		SimulateExits: backtestSimulateExits || a.strategy.Backtest.SimulateExits,
		Rescreen:      backtestRescreen,
	}

	PrintRunHeader(RunMetadata{
		Title:    "Walk-Forward Backtest",
		Strategy: a.strategy.Meta.StrategyID,
		Period:   &Period{StartDate: start.Format(dayLayout), EndDate: end.Format(dayLayout)},
		Extra: map[string]string{
			"Stride": stride.String(),
			"Exits":  fmt.Sprintf("%t", runCfg.SimulateExits),
		},
	})

	// 3. Run
	result, err := engine.Run(ctx, runCfg)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}
	printRunResult(result)

	// 4. Ledger
	if runCfg.SimulateExits {
		summary, err := backtest.NewLedger(a.strategy.Backtest.LedgerConfig, a.log).Run(result.Trades)
		if err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
		printLedgerSummary(summary)

		if backtestMonteCarlo > 0 && len(result.Trades) > 0 {
			mc := risk.DefaultMonteCarloConfig()
			mc.NumSimulations = backtestMonteCarlo
			mc.Seed = backtestSeed
			mc.PositionFraction = 1 / float64(maxOpen(summary))
			rep, err := risk.Analyze(ctx, result.Trades, mc)
			if err != nil {
				return fmt.Errorf("risk: %w", err)
			}
			printRiskReport(rep)
		}

		if backtestTimelineOut != "" {
			if err := writeOutput(backtestTimelineOut, func(w io.Writer) error {
				return report.WriteTimelineCSV(w, summary)
			}); err != nil {
				return err
			}
			PrintSuccess("Timeline written to " + backtestTimelineOut)
		}
	}

	// 5. Manifest
	if backtestManifestOut != "" {
		manifest, err := strategyconfig.NewRunManifest(a.strategy, a.yaml, result.RunID.String(), a.cfg.Archive.Dir)
		if err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
		if err := writeOutput(backtestManifestOut, func(w io.Writer) error {
			return writeJSON(w, manifest)
		}); err != nil {
			return err
		}
	}

	return nil
}

func printRunResult(result *backtest.RunResult) {
	fmt.Println()
	fmt.Println("📊 Summary")
	PrintKeyValue("Run ID", result.RunID.String(), 12)
	PrintKeyValue("Processed", fmt.Sprintf("%d sessions", result.Processed), 12)
	PrintKeyValue("Skipped", fmt.Sprintf("%d (same session)", result.Skipped), 12)
	PrintKeyValue("Failed", fmt.Sprintf("%d", result.Failed), 12)
	PrintKeyValue("Trades", fmt.Sprintf("%d", len(result.Trades)), 12)
	PrintKeyValue("Duration", fmt.Sprintf("%.2fs", result.Duration.Seconds()), 12)

	if len(result.Sessions) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("📅 Sessions (last 10)")
	widths := []int{12, 8, 8, 8, 8}
	PrintTableHeader([]string{"Session", "Source", "Ranked", "Passed", "Trades"}, widths)
	from := len(result.Sessions) - 10
	if from < 0 {
		from = 0
	}
	for _, s := range result.Sessions[from:] {
		PrintTableRow([]string{
			s.SessionDate.Format(dayLayout),
			s.RankingSource,
			fmt.Sprintf("%d", s.Ranked),
			fmt.Sprintf("%d", len(s.Screen)),
			fmt.Sprintf("%d", len(s.Trades)),
		}, widths)
	}
}

func printLedgerSummary(summary *contracts.LedgerSummary) {
	fmt.Println()
	fmt.Println("💰 Performance")
	PrintKeyValue("Initial Cash", fmt.Sprintf("%.2f", summary.InitialCash), 14)
	PrintKeyValue("Final Cash", fmt.Sprintf("%.2f", summary.FinalCash), 14)
	PrintKeyValue("Performance", report.Performance(summary), 14)
	PrintKeyValue("CAGR", fmt.Sprintf("%+.2f%%", summary.CAGR*100), 14)
	PrintKeyValue("Max Drawdown", fmt.Sprintf("%.2f%%", summary.MaxDrawdown*100), 14)
	PrintKeyValue("Win Rate", fmt.Sprintf("%.1f%%", summary.WinRate*100), 14)
	PrintKeyValue("Avg Win", fmt.Sprintf("%+.2f%%", summary.AvgWinPct), 14)
	PrintKeyValue("Avg Loss", fmt.Sprintf("%+.2f%%", summary.AvgLossPct), 14)
	PrintKeyValue("Return StdDev", fmt.Sprintf("%.2f%%", summary.ReturnStdDev), 14)
	fmt.Println()
}

// maxOpen returns the peak number of simultaneously held positions, at least 1
func maxOpen(summary *contracts.LedgerSummary) int {
	peak := 1
	for _, ev := range summary.Events {
		if ev.HoldingCount > peak {
			peak = ev.HoldingCount
		}
	}
	return peak
}

func printRiskReport(rep *risk.TradeRiskReport) {
	fmt.Println("🎲 Trade Risk")
	PrintKeyValue("Mean Return", fmt.Sprintf("%+.2f%%", rep.MeanReturn), 14)
	PrintKeyValue("StdDev", fmt.Sprintf("%.2f%%", rep.StdDev), 14)
	for _, v := range rep.VaR {
		PrintKeyValue(fmt.Sprintf("VaR %.0f%%", v.Confidence*100), fmt.Sprintf("%.2f%% (CVaR %.2f%%)", v.VaR, v.CVaR), 14)
	}
	if !rep.Simulated {
		PrintInfo(fmt.Sprintf("%d trades < %d, bootstrap skipped", rep.Trades, rep.Config.MinSamples))
		return
	}
	PrintKeyValue("Final P5/50/95", fmt.Sprintf("%+.2f%% / %+.2f%% / %+.2f%%", rep.FinalReturn.P5, rep.FinalReturn.P50, rep.FinalReturn.P95), 14)
	PrintKeyValue("MDD P50/95", fmt.Sprintf("%.2f%% / %.2f%%", rep.MaxDrawdown.P50, rep.MaxDrawdown.P95), 14)
	PrintKeyValue("P(loss)", fmt.Sprintf("%.1f%%", rep.LossProb*100), 14)
	fmt.Println()
}
