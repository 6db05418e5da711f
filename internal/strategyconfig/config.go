package strategyconfig

import (
	"time"

	"github.com/wonny/aegis-rs/internal/backtest"
	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/s1_ranking"
	"github.com/wonny/aegis-rs/internal/selection"
)

// Config는 RS 모멘텀 전략의 전체 설정
type Config struct {
	Meta      Meta                      `yaml:"meta" json:"meta"`
	Ranking   Ranking                   `yaml:"ranking" json:"ranking"`
	Screening selection.Config          `yaml:"screening" json:"screening"`
	Exit      contracts.ExitRulesConfig `yaml:"exit" json:"exit"`
	Backtest  Backtest                  `yaml:"backtest" json:"backtest"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID  string `yaml:"strategy_id" json:"strategy_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Ranking S1: RS 랭킹과 날짜 키 캐시
type Ranking struct {
	s1_ranking.Config `yaml:",inline"`
	CacheLookbackDays int `yaml:"cache_lookback_days" json:"cache_lookback_days"`
}

// Backtest walk-forward와 원장 설정
type Backtest struct {
	Stride                string `yaml:"stride" json:"stride"` // "1day", "1week", "1month"
	SimulateExits         bool   `yaml:"simulate_exits" json:"simulate_exits"`
	backtest.LedgerConfig `yaml:",inline"`
}

// StrideValue parses the configured stride, daily when unset
func (b Backtest) StrideValue() (backtest.Stride, error) {
	if b.Stride == "" {
		return backtest.DailyStride, nil
	}
	return backtest.ParseStride(b.Stride)
}

// Default returns the original screener behaviour as a rule set
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "rs_momentum_default",
			Version:    "1",
		},
		Ranking: Ranking{
			Config:            s1_ranking.DefaultConfig(),
			CacheLookbackDays: s1_ranking.DefaultLookbackDays,
		},
		Screening: selection.DefaultConfig(),
		Exit:      *contracts.DefaultExitRulesConfig(),
		Backtest: Backtest{
			Stride:        "1month",
			SimulateExits: true,
			LedgerConfig:  backtest.DefaultLedgerConfig(),
		},
	}
}

// RunManifest 실행 재현성 기록 (설정 해시 + 실행 ID)
type RunManifest struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml,omitempty"`
	StrategyID string    `json:"strategy_id"`
	Version    string    `json:"version"`
	RunID      string    `json:"run_id"`
	ArchiveID  string    `json:"archive_id"` // 아카이브 디렉터리/DSN
	CreatedAt  time.Time `json:"created_at"`
}
