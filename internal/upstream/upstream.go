package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
)

var (
	ErrUnavailable = errors.New("upstream review source unavailable")
	ErrAuth        = errors.New("upstream review source rejected credentials")
	ErrEmpty       = errors.New("upstream review source returned no reviews")
	ErrNotFound    = errors.New("upstream place not found")
)

type SortOrder string

const (
	SortRelevant SortOrder = "relevant"
	SortNewest   SortOrder = "newest"
	SortHighest  SortOrder = "highest"
	SortLowest   SortOrder = "lowest"
)

// Query identifies the place to fetch reviews for.
type Query struct {
	PlaceID   string
	Language  string
	Sort      SortOrder
	PageToken string
}

// Review is the provider-independent review record. UnixTime is 0 when the provider
// only knows a relative date.
type Review struct {
	AuthorName   string
	Rating       int
	Text         string
	UnixTime     int64
	RelativeDate string
	PhotoURL     string
}

type Result struct {
	Reviews       []Review
	Rating        float64
	HasRating     bool
	TotalCount    int
	NextPageToken string
	ResponseSize  int
	Raw           []byte
}

// Provider fetches reviews from one upstream API.
type Provider interface {
	Name() string
	FetchReviews(ctx context.Context, q Query) (*Result, error)
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("review provider %s is not registered", name)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// get performs a GET and maps transport failures onto the error taxonomy.
func get(ctx context.Context, client *http.Client, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return body, nil
}
