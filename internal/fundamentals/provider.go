package fundamentals

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/httputil"
)

// QuoteProvider scrapes label/value cells from an HTML quote page
// ⭐ SSOT: 외부 펀더멘털 페이지 호출은 여기서만
type QuoteProvider struct {
	client  *httputil.Client
	baseURL string
}

// NewQuoteProvider creates a provider for pages at {baseURL}/{TICKER}
func NewQuoteProvider(client *httputil.Client, baseURL string) *QuoteProvider {
	return &QuoteProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Fetch downloads and parses one ticker's quote page
func (p *QuoteProvider) Fetch(ctx context.Context, ticker string) (contracts.Fundamentals, error) {
	u := fmt.Sprintf("%s/%s", p.baseURL, url.PathEscape(ticker))

	body, err := p.client.GetBody(ctx, u)
	if err != nil {
		return contracts.Fundamentals{}, fmt.Errorf("fetch %s: %w", ticker, err)
	}

	f, err := parseQuotePage(body)
	if err != nil {
		return contracts.Fundamentals{}, fmt.Errorf("parse %s: %w", ticker, err)
	}
	f.Ticker = ticker
	f.FetchedAt = time.Now().UTC()
	return f, nil
}

// parseQuotePage reads "Market Cap", "Beta", "Sector" and "Industry" cells
// 라벨 셀 바로 다음 셀이 값 (td/td, th/td, dt/dd)
func parseQuotePage(body []byte) (contracts.Fundamentals, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return contracts.Fundamentals{}, err
	}

	values := make(map[string]string)
	doc.Find("td, th, dt").Each(func(_ int, cell *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(cell.Text()))
		value := strings.TrimSpace(cell.Next().Text())
		if value == "" {
			return
		}
		for _, key := range []string{"market cap", "beta", "sector", "industry"} {
			if strings.HasPrefix(label, key) {
				if _, seen := values[key]; !seen {
					values[key] = value
				}
			}
		}
	})

	raw, ok := values["market cap"]
	if !ok {
		return contracts.Fundamentals{}, fmt.Errorf("%w: market cap not on page", contracts.ErrUnknownFundamentals)
	}
	marketCap, err := ParseAbbreviated(raw)
	if err != nil {
		return contracts.Fundamentals{}, fmt.Errorf("%w: market cap %q", contracts.ErrUnknownFundamentals, raw)
	}

	f := contracts.Fundamentals{
		MarketCap: marketCap,
		Sector:    values["sector"],
		Industry:  values["industry"],
		Known:     true,
	}
	if b, err := strconv.ParseFloat(strings.TrimSpace(values["beta"]), 64); err == nil {
		f.Beta = b
	}
	return f, nil
}

// ParseAbbreviated parses "2.5T", "512.3B", "85M", "12K" or "1,234,567"
func ParseAbbreviated(raw string) (float64, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "N/A" || s == "--" {
		return 0, fmt.Errorf("empty value %q", raw)
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'T':
		mult = 1e12
	case 'B':
		mult = 1e9
	case 'M':
		mult = 1e6
	case 'K':
		mult = 1e3
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	return v * mult, nil
}
