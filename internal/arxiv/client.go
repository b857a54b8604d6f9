// Package arxiv queries the arXiv Atom feed API.
package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public export API endpoint
const DefaultBaseURL = "http://export.arxiv.org/api/query"

// Paper is one search hit
type Paper struct {
	ID         string
	Title      string
	Authors    []string
	Published  time.Time
	PDFURL     string
	Summary    string
	Categories []string
}

// Searcher is the search capability consumed by the arXiv tool
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Paper, error)
}

// Client implements Searcher over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search returns up to maxResults papers for the query, in relevance order
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if maxResults <= 0 {
		return nil, fmt.Errorf("max_results must be > 0 (got %d)", maxResults)
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build arXiv request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("arXiv returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	papers, err := ParseFeed(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(papers) > maxResults {
		papers = papers[:maxResults]
	}
	return papers, nil
}
