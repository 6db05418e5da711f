package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rs/pkg/config"
	"github.com/wonny/aegis-rs/pkg/database"
	"github.com/wonny/aegis-rs/pkg/redis"
)

// infraCmd represents the infra command
var infraCmd = &cobra.Command{
	Use:   "infra",
	Short: "PostgreSQL / Redis 연결 테스트",
	Long: `설정된 인프라 연결을 테스트하고 풀 통계를 표시합니다.

이 명령어는:
- DATABASE_URL 이 있으면 Ping과 Health Check 실행
- REDIS_ENABLED 이면 Redis Ping 실행

Example:
  go run ./cmd/quant infra`,
	RunE: runInfraCheck,
}

func init() {
	rootCmd.AddCommand(infraCmd)
}

func runInfraCheck(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n\n", cfg.Env)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	// 2. Database
	if cfg.Database.URL == "" {
		PrintInfo("DATABASE_URL not set, skipping PostgreSQL")
	} else if err := checkDatabase(ctx, cfg); err != nil {
		return err
	}

	// 3. Redis
	if !cfg.Redis.Enabled {
		PrintInfo("REDIS_ENABLED=false, skipping Redis")
	} else if err := checkRedis(ctx, cfg); err != nil {
		return err
	}

	fmt.Println("\n✅ All checks passed!")
	return nil
}

func checkDatabase(ctx context.Context, cfg *config.Config) error {
	fmt.Printf("Connecting to %s...\n", maskPassword(cfg.Database.URL))
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	PrintSuccess("PostgreSQL healthy")
	PrintKeyValue("Response Time", status.ResponseTime.String(), 16)
	PrintKeyValue("Max Conns", fmt.Sprintf("%d", status.MaxConns), 16)
	PrintKeyValue("Total Conns", fmt.Sprintf("%d", status.TotalConns), 16)
	PrintKeyValue("Acquired Conns", fmt.Sprintf("%d", status.AcquiredConns), 16)
	PrintKeyValue("Idle Conns", fmt.Sprintf("%d", status.IdleConns), 16)
	fmt.Println()
	return nil
}

func checkRedis(ctx context.Context, cfg *config.Config) error {
	fmt.Printf("Connecting to redis %s:%s...\n", cfg.Redis.Host, cfg.Redis.Port)
	client, err := redis.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to redis: %w", err)
	}
	defer client.Close()

	start := time.Now()
	if err := client.Redis().Ping(ctx).Err(); err != nil {
		return fmt.Errorf("❌ Redis ping failed: %w", err)
	}
	PrintSuccess(fmt.Sprintf("Redis healthy (%v)", time.Since(start)))
	return nil
}

// maskPassword masks the password in the database URL for display
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
