package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// DuckDuckGoEndpoint is the instant-answer API.
const DuckDuckGoEndpoint = "https://api.duckduckgo.com/"

// WebSearch queries the DuckDuckGo instant-answer API.
type WebSearch struct {
	endpoint   string
	client     *http.Client
	maxResults int
}

// NewWebSearch creates a WebSearch. An empty endpoint uses DuckDuckGoEndpoint.
func NewWebSearch(endpoint string, maxResults int) *WebSearch {
	if endpoint == "" {
		endpoint = DuckDuckGoEndpoint
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebSearch{endpoint: endpoint, client: defaultHTTPClient(), maxResults: maxResults}
}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Description() string {
	return "Searches the web (DuckDuckGo) and returns an abstract plus related topics."
}

func (w *WebSearch) Invoke(ctx context.Context, in Input) (string, error) {
	q := strings.TrimSpace(in.Query)
	if q == "" {
		return "", fmt.Errorf("web search: empty query")
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	body, err := getJSON(ctx, w.client, w.endpoint+"?"+params.Encode())
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}

	var lines []string
	if heading := gjson.GetBytes(body, "Heading").String(); heading != "" {
		lines = append(lines, "# "+heading)
	}
	if abstract := gjson.GetBytes(body, "AbstractText").String(); abstract != "" {
		src := gjson.GetBytes(body, "AbstractURL").String()
		lines = append(lines, abstract+sourceSuffix(src))
	}
	if answer := gjson.GetBytes(body, "Answer").String(); answer != "" {
		lines = append(lines, "Answer: "+answer)
	}

	// Related topics are either flat entries or named groups of entries.
	n := 0
	add := func(topic gjson.Result) bool {
		text := topic.Get("Text").String()
		if text == "" {
			return true
		}
		lines = append(lines, "- "+text+sourceSuffix(topic.Get("FirstURL").String()))
		n++
		return n < w.maxResults
	}
	gjson.GetBytes(body, "RelatedTopics").ForEach(func(_, topic gjson.Result) bool {
		if group := topic.Get("Topics"); group.Exists() {
			cont := true
			group.ForEach(func(_, sub gjson.Result) bool {
				cont = add(sub)
				return cont
			})
			return cont
		}
		return add(topic)
	})

	if len(lines) == 0 {
		return "No web results for " + q + ".", nil
	}
	return strings.Join(lines, "\n"), nil
}

func sourceSuffix(src string) string {
	if src == "" {
		return ""
	}
	return " (" + src + ")"
}

func getJSON(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response")
	}
	return body, nil
}
