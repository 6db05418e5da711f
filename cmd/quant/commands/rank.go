package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rs/internal/contracts"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "RS 모멘텀 랭킹 조회",
	Long: `지정한 날짜에 가장 가까운 세션의 RS 랭킹을 계산합니다.
결과 저장소에 같은 세션 랭킹이 있으면 재사용합니다.

Example:
  go run ./cmd/quant rank --date 2024-03-15
  go run ./cmd/quant rank --date 2024-03-15 --top 50 --json`,
	RunE: runRank,
}

var (
	rankDate string
	rankTop  int
	rankJSON bool
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVar(&rankDate, "date", "", "기준 날짜 (YYYY-MM-DD, 기본: 오늘)")
	rankCmd.Flags().IntVar(&rankTop, "top", 20, "출력할 상위 종목 수 (0 = 전체)")
	rankCmd.Flags().BoolVar(&rankJSON, "json", false, "JSON 출력")
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{results: true})
	if err != nil {
		return err
	}
	defer a.close()

	requested, err := a.parseDay(rankDate, time.Now().In(a.loc))
	if err != nil {
		return err
	}

	archive, err := a.loadArchive(ctx)
	if err != nil {
		return err
	}

	table, source, err := a.rankAt(ctx, archive, requested, a.strategy.Ranking.Config, true)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}

	if rankJSON {
		return writeOutput("", func(w io.Writer) error { return writeJSON(w, table) })
	}

	PrintRunHeader(RunMetadata{
		Title:    "RS Momentum Ranking",
		Strategy: a.strategy.Meta.StrategyID,
		Extra: map[string]string{
			"Session": table.SessionDate.Format(dayLayout),
			"Source":  source,
			"Ranked":  fmt.Sprintf("%d", len(table.Rows)),
		},
	})
	printRanking(table, rankTop)
	return nil
}

func printRanking(table *contracts.RankingTable, top int) {
	rows := table.Rows
	if top > 0 && top < len(rows) {
		rows = rows[:top]
	}

	widths := []int{5, 8, 8, 4, 8, 8, 8}
	PrintTableHeader([]string{"Rank", "Ticker", "RS", "Pct", "RS 1M", "RS 3M", "RS 6M"}, widths)
	for _, r := range rows {
		PrintTableRow([]string{
			fmt.Sprintf("%d", r.Rank),
			r.Ticker,
			fmt.Sprintf("%.2f", r.RS),
			fmt.Sprintf("%d", r.Percentile),
			fmt.Sprintf("%.2f", r.RS1M),
			fmt.Sprintf("%.2f", r.RS3M),
			fmt.Sprintf("%.2f", r.RS6M),
		}, widths)
	}
}
