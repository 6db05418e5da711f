package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rs/internal/selection"
	"github.com/wonny/aegis-rs/internal/strategyconfig"
)

// strategyCmd represents the strategy command
var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "전략 규칙 파일 관리",
	Long: `전략 YAML(랭킹, 게이트, 청산, 원장 설정)을 검증하거나 출력합니다.

Example:
  go run ./cmd/quant strategy validate --strategy strategies/default.yaml
  go run ./cmd/quant strategy show`,
}

var (
	strategyValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "규칙 파일 검증",
		RunE:  runStrategyValidate,
	}

	strategyShowCmd = &cobra.Command{
		Use:   "show",
		Short: "적용될 규칙을 JSON으로 출력",
		RunE:  runStrategyShow,
	}
)

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyValidateCmd)
	strategyCmd.AddCommand(strategyShowCmd)
}

func runStrategyValidate(cmd *cobra.Command, args []string) error {
	var (
		cfg *strategyconfig.Config
		err error
	)
	if strategyPath == "" {
		cfg = strategyconfig.Default()
		PrintInfo("--strategy not set, validating built-in rules")
	} else if cfg, _, err = strategyconfig.Load(strategyPath); err != nil {
		PrintError(err.Error())
		return err
	}

	if err := strategyconfig.Validate(cfg); err != nil {
		PrintError(err.Error())
		return err
	}

	for _, w := range strategyconfig.Warn(cfg) {
		fmt.Printf("⚠️  [%s] %s\n", w.Code, w.Message)
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s v%s is valid", cfg.Meta.StrategyID, cfg.Meta.Version))
	PrintKeyValue("Config Hash", hash, 12)
	PrintKeyValue("Gates", fmt.Sprintf("%d", len(cfg.Screening.Gates)), 12)
	PrintKeyValue("Gate Types", strings.Join(selection.KnownTypes(), ", "), 12)
	return nil
}

func runStrategyShow(cmd *cobra.Command, args []string) error {
	cfg := strategyconfig.Default()
	if strategyPath != "" {
		var err error
		if cfg, _, err = strategyconfig.Load(strategyPath); err != nil {
			return err
		}
	}
	return writeOutput("", func(w io.Writer) error { return writeJSON(w, cfg) })
}
