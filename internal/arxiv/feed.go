package arxiv

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []atomAuthor   `xml:"author"`
	Links      []atomLink     `xml:"link"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// ParseFeed decodes an arXiv Atom response. arXiv reports query errors as a
// single entry whose id points at the API error documentation; those are
// returned as errors.
func ParseFeed(r io.Reader) ([]Paper, error) {
	var feed atomFeed
	if err := xml.NewDecoder(r).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to parse arXiv feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if strings.Contains(e.ID, "/api/errors") {
			return nil, fmt.Errorf("arXiv query error: %s", collapse(e.Summary))
		}
		papers = append(papers, e.paper())
	}
	return papers, nil
}

func (e atomEntry) paper() Paper {
	p := Paper{
		ID:      strings.TrimSpace(e.ID),
		Title:   collapse(e.Title),
		Summary: collapse(e.Summary),
	}

	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		p.Published = t
	}

	for _, a := range e.Authors {
		if name := collapse(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}

	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	if p.PDFURL == "" && strings.Contains(p.ID, "/abs/") {
		p.PDFURL = strings.Replace(p.ID, "/abs/", "/pdf/", 1)
	}

	for _, c := range e.Categories {
		if c.Term != "" {
			p.Categories = append(p.Categories, c.Term)
		}
	}

	return p
}

// collapse folds the hard-wrapped whitespace arXiv puts in titles and abstracts
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
