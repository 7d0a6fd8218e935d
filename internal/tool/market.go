package tool

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// YahooChartEndpoint serves chart metadata per symbol.
const YahooChartEndpoint = "https://query1.finance.yahoo.com/v8/finance/chart/"

const maxTickers = 3

var tickerPattern = regexp.MustCompile(`\$?\b[A-Z]{1,5}(?:\.[A-Z]{1,2})?\b`)

// Upper-case words that look like tickers in prose.
var notTickers = map[string]bool{
	"A": true, "I": true, "AI": true, "AND": true, "OR": true, "THE": true, "FOR": true,
	"CEO": true, "CFO": true, "ETF": true, "IPO": true, "USD": true, "EUR": true,
	"GDP": true, "EPS": true, "PE": true, "US": true, "USA": true, "EU": true, "UK": true,
	"Q": true, "YOY": true, "ESG": true, "API": true, "SEC": true, "NYSE": true,
}

// ExtractTickers returns up to three distinct ticker symbols in text, in order.
func ExtractTickers(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range tickerPattern.FindAllString(text, -1) {
		sym := strings.TrimPrefix(m, "$")
		if notTickers[sym] || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
		if len(out) == maxTickers {
			break
		}
	}
	return out
}

// MarketQuote fetches the latest quote for tickers found in the input.
type MarketQuote struct {
	endpoint string
	client   *http.Client
}

// NewMarketQuote creates a MarketQuote. An empty endpoint uses YahooChartEndpoint.
func NewMarketQuote(endpoint string) *MarketQuote {
	if endpoint == "" {
		endpoint = YahooChartEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &MarketQuote{endpoint: endpoint, client: defaultHTTPClient()}
}

func (m *MarketQuote) Name() string { return "market_quote" }

func (m *MarketQuote) Description() string {
	return "Looks up price, daily change and 52-week range for ticker symbols (Yahoo Finance)."
}

func (m *MarketQuote) Invoke(ctx context.Context, in Input) (string, error) {
	tickers := ExtractTickers(in.Query)
	if len(tickers) == 0 {
		return "No ticker symbols found in the request.", nil
	}

	var lines []string
	for _, sym := range tickers {
		line, err := m.quote(ctx, sym)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s: quote unavailable (%v)", sym, err))
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (m *MarketQuote) quote(ctx context.Context, sym string) (string, error) {
	body, err := getJSON(ctx, m.client, m.endpoint+url.PathEscape(sym)+"?range=5d&interval=1d")
	if err != nil {
		return "", err
	}
	if msg := gjson.GetBytes(body, "chart.error.description").String(); msg != "" {
		return "", fmt.Errorf("%s", msg)
	}

	meta := gjson.GetBytes(body, "chart.result.0.meta")
	if !meta.Exists() {
		return "", fmt.Errorf("no chart data")
	}
	price := meta.Get("regularMarketPrice").Float()
	prev := meta.Get("chartPreviousClose").Float()
	currency := meta.Get("currency").String()

	line := fmt.Sprintf("%s: %.2f %s", meta.Get("symbol").String(), price, currency)
	if prev > 0 {
		line += fmt.Sprintf(" (%+.2f%% vs previous close %.2f)", (price-prev)/prev*100, prev)
	}
	if lo, hi := meta.Get("fiftyTwoWeekLow"), meta.Get("fiftyTwoWeekHigh"); lo.Exists() && hi.Exists() {
		line += fmt.Sprintf(", 52w range %.2f-%.2f", lo.Float(), hi.Float())
	}
	return line, nil
}
