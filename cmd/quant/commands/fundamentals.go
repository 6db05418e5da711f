package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rs/internal/s0_data"
)

// fundamentalsCmd represents the fundamentals command
var fundamentalsCmd = &cobra.Command{
	Use:   "fundamentals",
	Short: "펀더멘털 캐시 관리",
	Long: `시가총액/베타/섹터 캐시를 미리 채우거나 조회합니다.

Subcommands:
  prefetch  - 아카이브 전체(또는 --tickers) 캐시 워밍
  show      - 종목별 캐시 값 조회

Example:
  go run ./cmd/quant fundamentals prefetch --workers 4
  go run ./cmd/quant fundamentals show AAPL MSFT`,
}

var (
	fundamentalsPrefetchCmd = &cobra.Command{
		Use:   "prefetch",
		Short: "캐시 워밍",
		RunE:  runFundamentalsPrefetch,
	}

	fundamentalsShowCmd = &cobra.Command{
		Use:   "show [ticker...]",
		Short: "캐시 값 조회",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runFundamentalsShow,
	}

	fundamentalsTickers string
	fundamentalsWorkers int
)

func init() {
	rootCmd.AddCommand(fundamentalsCmd)
	fundamentalsCmd.AddCommand(fundamentalsPrefetchCmd)
	fundamentalsCmd.AddCommand(fundamentalsShowCmd)

	fundamentalsPrefetchCmd.Flags().StringVar(&fundamentalsTickers, "tickers", "", "쉼표로 구분한 종목 (기본: 아카이브 전체)")
	fundamentalsPrefetchCmd.Flags().IntVar(&fundamentalsWorkers, "workers", 4, "동시 조회 수")
}

func runFundamentalsPrefetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{fundamentals: true})
	if err != nil {
		return err
	}
	defer a.close()

	var tickers []string
	if fundamentalsTickers != "" {
		for _, t := range strings.Split(fundamentalsTickers, ",") {
			if t = s0_data.NormalizeTicker(t); t != "" {
				tickers = append(tickers, t)
			}
		}
	} else {
		archive, err := a.loadArchive(ctx)
		if err != nil {
			return err
		}
		tickers = archive.Tickers()
	}

	rep, err := a.funds.Prefetch(ctx, tickers, fundamentalsWorkers)
	if err != nil {
		return fmt.Errorf("prefetch: %w", err)
	}

	PrintSuccess("Fundamentals prefetch completed")
	PrintKeyValue("Requested", fmt.Sprintf("%d", rep.Requested), 10)
	PrintKeyValue("Cached", fmt.Sprintf("%d", rep.Cached), 10)
	PrintKeyValue("Fetched", fmt.Sprintf("%d", rep.Fetched), 10)
	PrintKeyValue("Failed", fmt.Sprintf("%d", rep.Failed), 10)
	return nil
}

func runFundamentalsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{fundamentals: true})
	if err != nil {
		return err
	}
	defer a.close()

	widths := []int{8, 12, 6, 22, 30, 20}
	PrintTableHeader([]string{"Ticker", "Mkt Cap", "Beta", "Sector", "Industry", "Fetched"}, widths)
	for _, ticker := range args {
		f := a.funds.Lookup(ctx, s0_data.NormalizeTicker(ticker))
		if !f.Known {
			PrintTableRow([]string{f.Ticker, "unknown", "", "", "", ""}, widths)
			continue
		}
		PrintTableRow([]string{
			f.Ticker,
			fmt.Sprintf("%.2fB", f.MarketCap/1e9),
			fmt.Sprintf("%.2f", f.Beta),
			f.Sector,
			f.Industry,
			f.FetchedAt.Format("2006-01-02 15:04"),
		}, widths)
	}
	return nil
}
