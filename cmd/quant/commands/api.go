package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rs/internal/api"
	"github.com/wonny/aegis-rs/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `저장된 결과를 조회하는 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics (METRICS_ENABLED)
  GET  /api/rankings/{date}     - RS 랭킹 (?format=tradingview)
  GET  /api/screens/{date}      - 스크리닝 결과 (?format=csv)
  GET  /api/trades              - 거래 (?from=&to=)
  GET  /api/timeline            - 포트폴리오 타임라인 (?initial_cash=&format=csv)
  GET  /api/jobs                - 스케줄러 작업 통계 (--with-scheduler)

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "스케줄러를 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{results: true, fundamentals: apiWithScheduler})
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	deps := api.RouterDeps{
		Results: handlers.NewResultsHandler(a.store, a.strategy.Backtest.LedgerConfig, a.loc, a.log),
		Metrics: a.metricsHandler(),
	}

	if apiWithScheduler {
		sched, err := buildScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		deps.Jobs = handlers.NewJobsHandler(sched)
	}

	server := api.New(a.cfg, a.log, api.NewRouter(deps, a.log))

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
