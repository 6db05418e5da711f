package strategyconfig

import (
	"fmt"
	"strings"

	"github.com/wonny/aegis-rs/internal/selection"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Ranking ===
	r := cfg.Ranking
	if r.MinHistory < 2 {
		return ValidationError{"ranking.min_history", "must be >= 2"}
	}
	if r.MaxRS <= 0 {
		return ValidationError{"ranking.max_rs", "must be > 0"}
	}
	if r.Buckets < 2 {
		return ValidationError{"ranking.buckets", "must be >= 2"}
	}
	if r.MinPercentile < 0 || r.MinPercentile >= r.Buckets {
		return ValidationError{"ranking.min_percentile", fmt.Sprintf("must be in [0, %d)", r.Buckets)}
	}
	if r.MonthSessions <= 0 {
		return ValidationError{"ranking.month_sessions", "must be > 0"}
	}
	if r.CacheLookbackDays < 0 {
		return ValidationError{"ranking.cache_lookback_days", "must be >= 0"}
	}

	// === Screening ===
	s := cfg.Screening
	if s.CandidateFraction <= 0 || s.CandidateFraction > 1 {
		return ValidationError{"screening.candidate_fraction", "must be in (0, 1]"}
	}
	names := make(map[string]bool, len(s.Gates))
	for i, g := range s.Gates {
		field := fmt.Sprintf("screening.gates[%d]", i)
		if !selection.IsKnownType(g.Type) {
			return ValidationError{field + ".type", fmt.Sprintf("unknown gate type %q (known: %s)", g.Type, strings.Join(selection.KnownTypes(), ", "))}
		}
		name := g.Name
		if name == "" {
			name = g.Type
		}
		if names[name] {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate gate %q", name)}
		}
		names[name] = true
	}
	// 파라미터 범위는 생성자가 검증
	if _, err := selection.BuildGates(s.Gates); err != nil {
		return ValidationError{"screening.gates", err.Error()}
	}

	// === Exit ===
	e := cfg.Exit
	if e.StopGain < 0 {
		return ValidationError{"exit.stop_gain", "must be >= 0"}
	}
	if e.StopLoss < 0 || e.StopLoss >= 1 {
		return ValidationError{"exit.stop_loss", "must be in [0, 1)"}
	}
	if e.TrailingStop < 0 || e.TrailingStop >= 1 {
		return ValidationError{"exit.trailing_stop", "must be in [0, 1)"}
	}
	if e.MAExitPeriod < 0 {
		return ValidationError{"exit.ma_exit_period", "must be >= 0"}
	}
	if e.MaxHoldingSessions < 0 {
		return ValidationError{"exit.max_holding_sessions", "must be >= 0"}
	}

	// === Backtest ===
	if _, err := cfg.Backtest.StrideValue(); err != nil {
		return ValidationError{"backtest.stride", err.Error()}
	}
	if cfg.Backtest.InitialCash <= 0 {
		return ValidationError{"backtest.initial_cash", "must be > 0"}
	}
	if cfg.Backtest.MinPosition < 0 || cfg.Backtest.MinPosition >= cfg.Backtest.InitialCash {
		return ValidationError{"backtest.min_position", "must be in [0, initial_cash)"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	enabled := 0
	for _, g := range cfg.Screening.Gates {
		if g.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_GATES",
			Message: "활성 게이트 없음: 상위 후보 전체가 통과",
		})
	}

	e := cfg.Exit
	if e.StopGain == 0 && e.StopLoss == 0 && e.TrailingStop == 0 && e.MAExitPeriod == 0 && e.MaxHoldingSessions == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_EXIT_RULES",
			Message: "청산 규칙 없음: 모든 거래가 데이터 끝까지 보유",
		})
	}

	if cfg.Ranking.CacheLookbackDays > 31 {
		warnings = append(warnings, Warning{
			Code:    "WIDE_CACHE_LOOKBACK",
			Message: "캐시 lookback > 31일: 오래된 랭킹 재사용 가능성",
		})
	}

	if cfg.Ranking.MinHistory < 4*63 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_HISTORY",
			Message: "min_history < 252: 1년 미만 이력은 오래된 분기가 짧게 계산됨",
		})
	}

	return warnings
}
