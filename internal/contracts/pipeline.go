package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 메트릭, 저장 row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4 → S5
//   Archive  Ranking  Signals  Screening  Exits  Ledger

// Stage represents a pipeline stage
type Stage string

const (
	// StageArchive S0: 가격 아카이브와 시점 스냅샷
	// 책임: 샤드 로드, 스냅샷 절단, 거래일 매핑
	// 위치: internal/s0_data/
	StageArchive Stage = "S0_ARCHIVE"

	// StageRanking S1: RS 모멘텀 랭킹
	// 책임: strength / relative strength, 백분위, 날짜 키 캐시
	// 위치: internal/s1_ranking/
	StageRanking Stage = "S1_RANKING"

	// StageSignals S2: 스크리닝 시그널 계산
	// 책임: SMA, 비율, 돌파 경과일, 거래량, 변동성
	// 위치: internal/s2_signals/
	StageSignals Stage = "S2_SIGNALS"

	// StageScreening S3: 게이트 기반 스크리닝
	// 책임: 선언형 게이트 평가, 펀더멘털/시장 국면 필터
	// 위치: internal/selection/
	StageScreening Stage = "S3_SCREENING"

	// StageExits S4: 청산 시뮬레이션
	// 책임: 익절/손절/트레일링 상태 머신
	// 위치: internal/backtest/exit_simulator.go
	StageExits Stage = "S4_EXITS"

	// StageLedger S5: 포트폴리오 원장
	// 책임: 균등 배분, 현금 보존, 타임라인
	// 위치: internal/backtest/ledger.go
	StageLedger Stage = "S5_LEDGER"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageArchive:
		return "S0"
	case StageRanking:
		return "S1"
	case StageSignals:
		return "S2"
	case StageScreening:
		return "S3"
	case StageExits:
		return "S4"
	case StageLedger:
		return "S5"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageArchive:
		return "가격 아카이브/스냅샷"
	case StageRanking:
		return "RS 랭킹"
	case StageSignals:
		return "시그널 계산"
	case StageScreening:
		return "게이트 스크리닝"
	case StageExits:
		return "청산 시뮬레이션"
	case StageLedger:
		return "포트폴리오 원장"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageArchive,
		StageRanking,
		StageSignals,
		StageScreening,
		StageExits,
		StageLedger,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// StageResult represents the result of a pipeline stage execution for one session
type StageResult struct {
	Stage       Stage                  `json:"stage"`
	Success     bool                   `json:"success"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	Duration    int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
