// Package lookup resolves free-text medicine names against the openFDA drug
// label API so entries can be created with verified naming instead of typos.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mediflow/mediflow/internal/model"
)

const (
	DefaultBaseURL = "https://api.fda.gov/drug"
	maxResults     = 5
)

var ErrNoMatches = errors.New("lookup: no matches")

// Match is one candidate returned by a name search, ranked by Confidence in
// [0, 1].
type Match struct {
	BrandName    string
	GenericName  string
	Manufacturer string
	ProductNDC   string
	Route        string
	Confidence   float64
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type labelResponse struct {
	Results []struct {
		OpenFDA struct {
			BrandName        []string `json:"brand_name"`
			GenericName      []string `json:"generic_name"`
			ManufacturerName []string `json:"manufacturer_name"`
			ProductNDC       []string `json:"product_ndc"`
			Route            []string `json:"route"`
		} `json:"openfda"`
	} `json:"results"`
}

// Search queries drug labels by brand name and falls back to generic name
// when the brand search finds nothing. Results are capped at five and ranked
// by how closely the candidate's name matches the query.
func (c *Client) Search(ctx context.Context, name string) ([]Match, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("lookup: empty search term")
	}

	matches, err := c.searchField(ctx, "openfda.brand_name", name)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		matches, err = c.searchField(ctx, "openfda.generic_name", name)
		if err != nil {
			return nil, err
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatches, name)
	}
	return matches, nil
}

func (c *Client) searchField(ctx context.Context, field, name string) ([]Match, error) {
	query := url.Values{}
	query.Set("search", fmt.Sprintf(`%s:%q`, field, name))
	query.Set("limit", fmt.Sprintf("%d", maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/label.json?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("lookup: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup: query openfda: %w", err)
	}
	defer resp.Body.Close()

	// openFDA answers an empty search with 404 rather than an empty result
	// list.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup: openfda status %d", resp.StatusCode)
	}

	var payload labelResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("lookup: decode response: %w", err)
	}

	matches := make([]Match, 0, len(payload.Results))
	for _, result := range payload.Results {
		m := Match{
			BrandName:    first(result.OpenFDA.BrandName),
			GenericName:  first(result.OpenFDA.GenericName),
			Manufacturer: first(result.OpenFDA.ManufacturerName),
			ProductNDC:   first(result.OpenFDA.ProductNDC),
			Route:        first(result.OpenFDA.Route),
		}
		if m.BrandName == "" && m.GenericName == "" {
			continue
		}
		m.Confidence = confidence(name, m)
		matches = append(matches, m)
	}
	// Results arrive in openFDA relevance order; a strict name match should
	// still win over a looser one earlier in the list.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Confidence > matches[j-1].Confidence; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// confidence scores how well a candidate's naming matches the query: exact
// brand or generic match scores 1.0, a prefix 0.8, a substring 0.6, anything
// else 0.3 (it matched the search index on some other field variant).
func confidence(query string, m Match) float64 {
	q := strings.ToLower(query)
	score := 0.3
	for _, candidate := range []string{m.BrandName, m.GenericName} {
		c := strings.ToLower(candidate)
		switch {
		case c == "":
		case c == q:
			return 1.0
		case strings.HasPrefix(c, q) && score < 0.8:
			score = 0.8
		case strings.Contains(c, q) && score < 0.6:
			score = 0.6
		}
	}
	return score
}

// ToMedicine converts a match into a medicine record owned by the user,
// tagged with its openFDA provenance.
func (m Match) ToMedicine(userID string, now time.Time) model.Medicine {
	name := m.BrandName
	if name == "" {
		name = m.GenericName
	}
	return model.Medicine{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		GenericName:  m.GenericName,
		BrandName:    m.BrandName,
		Manufacturer: m.Manufacturer,
		Source:       model.SourceOpenFDA,
		SourceRef:    m.ProductNDC,
		Active:       true,
		CreatedAt:    now,
	}
}
