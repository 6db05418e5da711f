package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rs/internal/scheduler"
	"github.com/wonny/aegis-rs/internal/scheduler/jobs"
)

// scheduleOff disables a cron entry
const scheduleOff = "off"

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "스케줄러 관리",
	Long: `일일 스크리닝 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행 (동기)
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/quant schedule start
  go run ./cmd/quant schedule list
  go run ./cmd/quant schedule run daily_screen`,
}

var (
	scheduleStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- daily_screen: SCHEDULE_DAILY_CRON (장 마감 후 최근 세션 랭킹/스크리닝)
- fundamentals_refresh: SCHEDULE_FUNDAMENTALS_CRON ("off" 이면 제외)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	scheduleListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	scheduleRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	scheduleStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)
	scheduleCmd.AddCommand(scheduleStatusCmd)
}

// buildScheduler registers the daily screen and fundamentals jobs
func buildScheduler(a *app) (*scheduler.Scheduler, error) {
	sc := a.cfg.Schedule

	opts := scheduler.DefaultOptions()
	opts.MaxRetries = sc.MaxRetries
	opts.RetryDelay = sc.RetryDelay
	opts.Location = a.loc
	sched := scheduler.New(opts, a.log)

	simulateExits := a.strategy.Backtest.SimulateExits
	walker := func(ctx context.Context) (jobs.Walker, error) {
		// 매 실행마다 아카이브를 새로 읽음 (장 마감 후 갱신분 반영)
		archive, err := a.loadArchive(ctx)
		if err != nil {
			return nil, err
		}
		return a.newEngine(archive)
	}
	if err := sched.AddJob(jobs.NewDailyScreenJob(walker, sc.DailyCron, sc.LookbackDays, simulateExits, a.log)); err != nil {
		return nil, err
	}

	if sc.FundamentalsCron != scheduleOff && a.funds != nil {
		tickers := func(ctx context.Context) ([]string, error) {
			archive, err := a.loadArchive(ctx)
			if err != nil {
				return nil, err
			}
			return archive.Tickers(), nil
		}
		job := jobs.NewFundamentalsJob(a.funds, tickers, sc.FundamentalsCron, a.cfg.Archive.Workers, a.log)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{results: true, fundamentals: true})
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	PrintSuccess("Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{results: true, fundamentals: true})
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// 다음 실행 시각 계산을 위해 cron 엔진만 기동
	sched.Start()
	defer sched.Stop()

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	widths := []int{22, 18, 20}
	PrintTableHeader([]string{"Job", "Schedule", "Next Run"}, widths)
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		next := "-"
		if t, err := sched.NextRun(name); err == nil && !t.IsZero() {
			next = t.Format("2006-01-02 15:04:05")
		}
		PrintTableRow([]string{name, stats[name].Schedule, next}, widths)
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(cmd.Context(), appOptions{results: true, fundamentals: true})
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)

	result, err := sched.RunNow(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Printf("Attempts: %d, Duration: %.2fs\n", result.Attempts, result.Duration.Seconds())
	if !result.Success {
		PrintError(fmt.Sprintf("Job %s failed: %v", jobName, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("Job %s completed", jobName))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{results: true, fundamentals: true})
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}

		if stat.LastSuccess != nil {
			fmt.Printf("   Last Success: %s\n", stat.LastSuccess.Format("2006-01-02 15:04:05"))
		}

		if stat.LastFailure != nil {
			fmt.Printf("   Last Failure: %s\n", stat.LastFailure.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	if len(stats) > 0 {
		PrintInfo("이력은 프로세스 단위로 유지됨: 실행 중인 데몬은 GET /api/jobs 로 조회")
	}
	return nil
}
