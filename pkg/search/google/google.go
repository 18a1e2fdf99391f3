// Package google queries the Google Custom Search JSON API and formats the
// results as grounding context for chat prompts.
package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/upstream"
)

const (
	Name = "google_search"

	DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"
	DefaultResults = 5

	// maxResults is the API's per-request cap.
	maxResults = 10
)

type Options struct {
	APIKey   string
	EngineID string
	BaseURL  string
	Results  int

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Result is one search hit.
type Result struct {
	Title   string
	Link    string
	Snippet string
}

// Client runs searches.
type Client struct {
	opts   Options
	client *upstream.Client
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Results <= 0 {
		opts.Results = DefaultResults
	}
	opts.Results = min(opts.Results, maxResults)
	return &Client{opts: opts, client: upstream.New(Name, opts.HTTPClient, opts.Logger)}
}

type searchResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		HTMLSnippet string `json:"htmlSnippet"`
	} `json:"items"`
}

// Search returns up to the configured number of results for query.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if c.opts.APIKey == "" || c.opts.EngineID == "" {
		return nil, llm.NewConfigError(Name, "GOOGLE_API_KEY and search.engine_id are required")
	}

	params := url.Values{}
	params.Set("cx", c.opts.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(c.opts.Results))

	resp, err := c.client.Get(ctx, c.opts.BaseURL+"?"+params.Encode(),
		map[string]string{"X-Goog-Api-Key": c.opts.APIKey})
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := c.client.DecodeJSON(resp, &parsed); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		snippet := item.Snippet
		if item.HTMLSnippet != "" {
			if md, err := htmltomarkdown.ConvertString(item.HTMLSnippet); err == nil {
				snippet = md
			}
		}
		results = append(results, Result{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: strings.Join(strings.Fields(snippet), " "),
		})
	}
	return results, nil
}

// Ground runs a search and renders the hits as a numbered list suitable
// for appending to a system prompt. No hits yields an empty string.
func (c *Client) Ground(ctx context.Context, query string) (string, error) {
	results, err := c.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return Format(results), nil
}

// Format renders results as prompt context.
func Format(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Web search results (cite them when relevant):\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s <%s>\n   %s\n", i+1, r.Title, r.Link, r.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}
