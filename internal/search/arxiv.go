package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gosuda/litrev/internal/domain"
)

const arxivAPIURL = "https://export.arxiv.org/api/query"

// Arxiv searches the arXiv Atom API, sorted by relevance.
type Arxiv struct {
	baseURL string
	client  *http.Client
}

// NewArxiv creates an arXiv provider with the given request timeout.
func NewArxiv(timeout time.Duration) *Arxiv {
	return NewArxivWithBaseURL(arxivAPIURL, timeout)
}

// NewArxivWithBaseURL creates an arXiv provider against a custom endpoint.
// Used by tests to point at a local server.
func NewArxivWithBaseURL(baseURL string, timeout time.Duration) *Arxiv {
	return &Arxiv{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *Arxiv) Name() string { return "arxiv" }

// atomFeed mirrors the subset of the arXiv Atom response we consume.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

// Search queries arXiv and maps Atom entries to papers.
func (a *Arxiv) Search(ctx context.Context, query string, maxResults int) ([]domain.Paper, error) {
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search.Arxiv.Search: build request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search.Arxiv.Search: %w: %w", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search.Arxiv.Search: %w: status %d", ErrProviderFailed, resp.StatusCode)
	}

	var feed atomFeed
	if decodeErr := xml.NewDecoder(resp.Body).Decode(&feed); decodeErr != nil {
		return nil, fmt.Errorf("search.Arxiv.Search: decode feed: %w: %w", ErrProviderFailed, decodeErr)
	}

	results := make([]domain.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		results = append(results, entryToPaper(entry))
	}

	return results, nil
}

func entryToPaper(entry atomEntry) domain.Paper {
	authors := make([]string, 0, len(entry.Authors))
	for _, author := range entry.Authors {
		authors = append(authors, author.Name)
	}

	// Prefer the explicit pdf link; fall back to the first link.
	var pdfURL string
	for _, link := range entry.Links {
		if link.Title == "pdf" {
			pdfURL = link.Href
			break
		}
	}
	if pdfURL == "" && len(entry.Links) > 0 {
		pdfURL = entry.Links[0].Href
	}

	published := entry.Published
	if len(published) >= 10 {
		published = published[:10] // 2024-01-15T00:00:00Z -> 2024-01-15
	}

	return domain.Paper{
		Title:     strings.Join(strings.Fields(entry.Title), " "),
		Authors:   authors,
		Published: published,
		Summary:   strings.TrimSpace(entry.Summary),
		PDFURL:    pdfURL,
	}
}
