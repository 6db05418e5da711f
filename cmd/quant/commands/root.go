package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyPath string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "aegis-rs - RS 모멘텀 스크리너 & 워크포워드 백테스터",
	Long: `aegis-rs Unified CLI

가격 아카이브에서 RS 모멘텀 랭킹을 만들고,
게이트 스크리닝, 청산 시뮬레이션, 포트폴리오 원장까지.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant rank --date 2024-03-15
  go run ./cmd/quant screen --date 2024-03-15 --out screen.csv
  go run ./cmd/quant backtest run --from 2023-01-01 --to 2023-12-31 --simulate-exits
  go run ./cmd/quant schedule start
  go run ./cmd/quant api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyPath, "strategy", "", "strategy YAML (default STRATEGY_PATH or built-in rules)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
