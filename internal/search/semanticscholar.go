package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gosuda/litrev/internal/domain"
)

const semanticScholarAPIURL = "https://api.semanticscholar.org/graph/v1/paper/search"

// fields requested from the Graph API per result.
const semanticScholarFields = "paperId,title,authors,year,abstract,openAccessPdf"

// SemanticScholar searches the Semantic Scholar Graph API. Complements
// arXiv with peer-reviewed venue coverage. Works without an API key but
// is heavily rate limited in that mode.
type SemanticScholar struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSemanticScholar creates a Semantic Scholar provider. apiKey may be empty.
func NewSemanticScholar(apiKey string, timeout time.Duration) *SemanticScholar {
	return NewSemanticScholarWithBaseURL(semanticScholarAPIURL, apiKey, timeout)
}

// NewSemanticScholarWithBaseURL creates a provider against a custom
// endpoint. Used by tests to point at a local server.
func NewSemanticScholarWithBaseURL(baseURL, apiKey string, timeout time.Duration) *SemanticScholar {
	return &SemanticScholar{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *SemanticScholar) Name() string { return "semantic_scholar" }

type semanticScholarResponse struct {
	Data []semanticScholarPaper `json:"data"`
}

type semanticScholarPaper struct {
	PaperID  string `json:"paperId"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Year     int    `json:"year"`
	Authors  []struct {
		Name string `json:"name"`
	} `json:"authors"`
	OpenAccessPdf *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

// Search queries the Graph API and maps results to papers.
func (s *SemanticScholar) Search(ctx context.Context, query string, maxResults int) ([]domain.Paper, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("fields", semanticScholarFields)
	params.Set("limit", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search.SemanticScholar.Search: build request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search.SemanticScholar.Search: %w: %w", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search.SemanticScholar.Search: %w: status %d", ErrProviderFailed, resp.StatusCode)
	}

	var payload semanticScholarResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil {
		return nil, fmt.Errorf("search.SemanticScholar.Search: decode response: %w: %w", ErrProviderFailed, decodeErr)
	}

	results := make([]domain.Paper, 0, len(payload.Data))
	for _, item := range payload.Data {
		results = append(results, s.itemToPaper(item))
	}

	return results, nil
}

func (s *SemanticScholar) itemToPaper(item semanticScholarPaper) domain.Paper {
	authors := make([]string, 0, len(item.Authors))
	for _, author := range item.Authors {
		authors = append(authors, author.Name)
	}

	pdfURL := ""
	if item.OpenAccessPdf != nil {
		pdfURL = item.OpenAccessPdf.URL
	}
	if pdfURL == "" {
		pdfURL = "https://www.semanticscholar.org/paper/" + item.PaperID
	}

	published := "Unknown"
	if item.Year > 0 {
		published = fmt.Sprintf("%d-01-01", item.Year)
	}

	summary := item.Abstract
	if summary == "" {
		summary = "No abstract available."
	}

	return domain.Paper{
		Title:     item.Title,
		Authors:   authors,
		Published: published,
		Summary:   summary,
		PDFURL:    pdfURL,
	}
}
