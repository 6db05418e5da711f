package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
)

// RatingFile is the TradingView import file name
const RatingFile = "RSRATING.csv"

// RatingPercentiles are the buckets exported to TradingView
var RatingPercentiles = []int{98, 89, 69, 49, 29, 9, 1}

// linesPerPercentile는 퍼센타일 하나당 생성하는 일봉 수
const linesPerPercentile = 5

// TradingViewRating builds the pseudo price series TradingView reads as an RS rating scale
// Each percentile contributes five daily lines carrying the first RS found in
// that bucket. Dates count back from the day before asOf and continue across
// percentiles, and the whole block is emitted oldest first. Percentiles absent
// from the table are skipped without consuming dates.
func TradingViewRating(table *contracts.RankingTable, asOf time.Time) string {
	first := firstRSByPercentile(table)

	percentiles := append([]int(nil), RatingPercentiles...)
	sort.Ints(percentiles)

	yesterday := asOf.AddDate(0, 0, -1)
	lines := make([]string, 0, len(percentiles)*linesPerPercentile)
	days := 0
	for _, p := range percentiles {
		rs, ok := first[p]
		if !ok {
			continue
		}
		for i := 0; i < linesPerPercentile; i++ {
			date := yesterday.AddDate(0, 0, -days)
			lines = append(lines, fmt.Sprintf("%sT,0,1000,0,%s,0", date.Format("20060102"), formatRS(rs)))
			days++
		}
	}

	var b strings.Builder
	for i := len(lines) - 1; i >= 0; i-- {
		b.WriteString(lines[i])
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteTradingViewRating writes the rating block to w
func WriteTradingViewRating(w io.Writer, table *contracts.RankingTable, asOf time.Time) error {
	if _, err := io.WriteString(w, TradingViewRating(table, asOf)); err != nil {
		return fmt.Errorf("write rating: %w", err)
	}
	return nil
}

// firstRSByPercentile returns the RS of the best ranked row in each percentile
func firstRSByPercentile(table *contracts.RankingTable) map[int]float64 {
	first := make(map[int]float64)
	if table == nil {
		return first
	}
	for _, r := range table.Rows {
		if _, ok := first[r.Percentile]; !ok {
			first[r.Percentile] = r.RS
		}
	}
	return first
}

// formatRS prints whole numbers with a trailing ".0"
func formatRS(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
