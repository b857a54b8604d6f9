// Package builtin holds the tools served by the tool-hosting process.
package builtin

import (
	"context"
	"fmt"
	"math"
	"strings"

	"arxivagent/internal/arxiv"
	"arxivagent/internal/tool"
)

const (
	// SearchToolName is the name the model uses to request paper lookups
	SearchToolName = "search_arxiv_papers"

	// MaxSearchResults caps max_results regardless of what the model asks for
	MaxSearchResults = 50
)

// SearchTool searches arXiv and renders the hits as markdown
type SearchTool struct {
	searcher       arxiv.Searcher
	defaultResults int
}

// NewSearchTool creates the search tool. defaultResults is used when the
// model omits max_results.
func NewSearchTool(searcher arxiv.Searcher, defaultResults int) *SearchTool {
	if defaultResults <= 0 {
		defaultResults = 3
	}
	if defaultResults > MaxSearchResults {
		defaultResults = MaxSearchResults
	}
	return &SearchTool{searcher: searcher, defaultResults: defaultResults}
}

func (t *SearchTool) Descriptor() tool.Descriptor {
	minimum := 1.0
	return tool.Descriptor{
		Name:        SearchToolName,
		Description: "Search for scientific papers on arXiv. Returns a formatted list of the most relevant papers.",
		Params: []tool.Param{
			{
				Name:        "query",
				Type:        tool.TypeString,
				Description: "The query (keywords, authors, category, etc.)",
				Required:    true,
			},
			{
				Name:        "max_results",
				Type:        tool.TypeInteger,
				Description: fmt.Sprintf("Maximum number of results to return (default: %d, at most %d)", t.defaultResults, MaxSearchResults),
				Default:     t.defaultResults,
				Minimum:     &minimum,
			},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return "", tool.Errorf(tool.KindMissingArgument, "Missing required parameter: query")
	}

	maxResults, err := intArg(args, "max_results", t.defaultResults, MaxSearchResults)
	if err != nil {
		return "", err
	}
	if maxResults <= 0 {
		return "", tool.Errorf(tool.KindInvalidArgument, "max_results must be > 0 (got %d)", maxResults)
	}

	papers, err := t.searcher.Search(ctx, query, maxResults)
	if err != nil {
		return "", fmt.Errorf("error when searching for papers: %w", err)
	}

	return FormatPapers(query, papers), nil
}

// FormatPapers renders search hits as a numbered markdown list
func FormatPapers(query string, papers []arxiv.Paper) string {
	if len(papers) == 0 {
		return fmt.Sprintf("No papers found for '%s'.", query)
	}

	entries := make([]string, 0, len(papers))
	for i, p := range papers {
		var b strings.Builder
		fmt.Fprintf(&b, "### %d. %s\n", i+1, p.Title)
		fmt.Fprintf(&b, "**Authors:** %s\n", strings.Join(p.Authors, ", "))
		fmt.Fprintf(&b, "**Publication date:** %s\n", formatDate(p))
		fmt.Fprintf(&b, "**Link:** %s\n", p.PDFURL)
		fmt.Fprintf(&b, "**Abstract:** %s\n", p.Summary)
		entries = append(entries, b.String())
	}

	return fmt.Sprintf("# Search results for: '%s'\n\n", query) + strings.Join(entries, "\n\n")
}

func formatDate(p arxiv.Paper) string {
	if p.Published.IsZero() {
		return "unknown"
	}
	return p.Published.UTC().Format("2006-01-02")
}

// intArg reads an integer argument that may arrive as a Go int or as a
// JSON number. Values above limit are clamped before conversion so huge
// JSON numbers cannot overflow int.
func intArg(args map[string]any, name string, fallback, limit int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return min(n, limit), nil
	case int64:
		return int(min(n, int64(limit))), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, tool.Errorf(tool.KindInvalidArgument, "%s must be an integer (got %v)", name, n)
		}
		if n > float64(limit) {
			return limit, nil
		}
		if n <= 0 {
			return 0, tool.Errorf(tool.KindInvalidArgument, "%s must be > 0 (got %v)", name, n)
		}
		return int(n), nil
	default:
		return 0, tool.Errorf(tool.KindInvalidArgument, "%s must be an integer (got %T)", name, v)
	}
}
