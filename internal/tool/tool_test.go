package tool

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/contextflow/internal/memory"
)

func TestRegistry_LookupAndSelect(t *testing.T) {
	reg := NewRegistry(NewWebSearch("", 0), NewMarketQuote(""))

	tl, ok := reg.Lookup("web_search")
	require.True(t, ok)
	assert.Equal(t, "web_search", tl.Name())

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)

	tools, err := reg.Select("market_quote", "web_search")
	require.NoError(t, err)
	assert.Equal(t, "market_quote", tools[0].Name())

	_, err = reg.Select("web_search", "nope")
	assert.ErrorContains(t, err, `unknown tool "nope"`)

	assert.Equal(t, []string{"market_quote", "web_search"}, reg.Names())
}

const ddgResponse = `{
	"Heading": "Copyright law",
	"AbstractText": "Copyright is a type of intellectual property.",
	"AbstractURL": "https://en.wikipedia.org/wiki/Copyright",
	"Answer": "",
	"RelatedTopics": [
		{"Text": "Fair use - a doctrine", "FirstURL": "https://duckduckgo.com/Fair_use"},
		{"Name": "Related", "Topics": [
			{"Text": "Berne Convention", "FirstURL": "https://duckduckgo.com/Berne"},
			{"Text": "DMCA", "FirstURL": "https://duckduckgo.com/DMCA"}
		]},
		{"Text": "Public domain", "FirstURL": "https://duckduckgo.com/Public_domain"}
	]
}`

func TestWebSearch_Invoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "copyright AI", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(ddgResponse))
	}))
	defer srv.Close()

	out, err := NewWebSearch(srv.URL, 3).Invoke(context.Background(), Input{Query: "copyright AI"})
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "# Copyright law", lines[0])
	assert.Equal(t, "Copyright is a type of intellectual property. (https://en.wikipedia.org/wiki/Copyright)", lines[1])
	assert.Equal(t, []string{
		"- Fair use - a doctrine (https://duckduckgo.com/Fair_use)",
		"- Berne Convention (https://duckduckgo.com/Berne)",
		"- DMCA (https://duckduckgo.com/DMCA)",
	}, lines[2:])
}

func TestWebSearch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ws := NewWebSearch(srv.URL, 0)
	_, err := ws.Invoke(context.Background(), Input{Query: "x"})
	assert.ErrorContains(t, err, "unexpected status 502")

	_, err = ws.Invoke(context.Background(), Input{Query: "  "})
	assert.Error(t, err)
}

func TestWebSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Heading": "", "AbstractText": "", "RelatedTopics": []}`))
	}))
	defer srv.Close()

	out, err := NewWebSearch(srv.URL, 0).Invoke(context.Background(), Input{Query: "zzzz"})
	require.NoError(t, err)
	assert.Equal(t, "No web results for zzzz.", out)
}

func TestExtractTickers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Should I buy AAPL or $NVDA given the CEO news?", []string{"AAPL", "NVDA"}},
		{"Compare MSFT, GOOG, AMZN and META", []string{"MSFT", "GOOG", "AMZN"}},
		{"BRK.B valuation", []string{"BRK.B"}},
		{"what about apple stock", nil},
		{"TSLA TSLA", []string{"TSLA"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTickers(tt.in))
		})
	}
}

func TestMarketQuote_Invoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/AAPL":
			_, _ = w.Write([]byte(`{"chart": {"result": [{"meta": {
				"symbol": "AAPL", "currency": "USD", "regularMarketPrice": 110,
				"chartPreviousClose": 100, "fiftyTwoWeekLow": 80.5, "fiftyTwoWeekHigh": 120
			}}], "error": null}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`))
		}
	}))
	defer srv.Close()

	out, err := NewMarketQuote(srv.URL).Invoke(context.Background(), Input{Query: "AAPL vs ZZZZ"})
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "AAPL: 110.00 USD (+10.00% vs previous close 100.00), 52w range 80.50-120.00", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ZZZZ: quote unavailable"))

	out, err = NewMarketQuote(srv.URL).Invoke(context.Background(), Input{Query: "no symbols here"})
	require.NoError(t, err)
	assert.Equal(t, "No ticker symbols found in the request.", out)
}

type fakeRecaller struct {
	filter  memory.Filter
	limit   int
	records []memory.ScoredRecord
	err     error
}

func (f *fakeRecaller) RecallKnowledge(_ context.Context, _ string, limit int, filter memory.Filter) ([]memory.ScoredRecord, error) {
	f.limit, f.filter = limit, filter
	return f.records, f.err
}

func TestKnowledgeSearch_ScopesToUser(t *testing.T) {
	rec := &fakeRecaller{records: []memory.ScoredRecord{
		{Record: memory.Record{ID: "1", Text: "NVDA beta is high"}, Score: 0.0328},
	}}
	out, err := NewKnowledgeSearch(rec, 3).Invoke(context.Background(), Input{Query: "beta", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "1. [0.0328] NVDA beta is high", out)
	assert.Equal(t, memory.Filter{"user_id": "u1"}, rec.filter)
	assert.Equal(t, 3, rec.limit)
}

func TestKnowledgeSearch_EmptyAndError(t *testing.T) {
	out, err := NewKnowledgeSearch(&fakeRecaller{}, 0).Invoke(context.Background(), Input{Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, "No stored knowledge matched.", out)

	failing := &fakeRecaller{err: memory.ErrQuery}
	_, err = NewKnowledgeSearch(failing, 0).Invoke(context.Background(), Input{Query: "x"})
	assert.True(t, errors.Is(err, memory.ErrQuery))
	assert.Equal(t, memory.DefaultLimit, failing.limit)
}
