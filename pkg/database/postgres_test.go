package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/aegis-rs/pkg/config"
)

func integrationConfig(t *testing.T) *config.Config {
	t.Helper()
	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func TestNewAndHealthCheck(t *testing.T) {
	cfg := integrationConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}
	if status.MaxConns == 0 {
		t.Error("Expected MaxConns to be greater than 0")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	cfg := integrationConfig(t)
	ctx := context.Background()

	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	stmt := `CREATE TABLE IF NOT EXISTS migrate_check (id INT PRIMARY KEY)`
	for i := 0; i < 2; i++ {
		if err := db.Migrate(ctx, stmt); err != nil {
			t.Fatalf("Migrate run %d failed: %v", i+1, err)
		}
	}
	_, _ = db.Pool.Exec(ctx, `DROP TABLE IF EXISTS migrate_check`)
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             "invalid://url",
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}

	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected error with invalid database URL, got nil")
	}
}

func TestCloseNil(t *testing.T) {
	var db *DB
	// Close on nil must not panic
	db.Close()
}
