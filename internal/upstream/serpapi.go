package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const SerpProviderName = "serpapi"

// SerpProvider reads reviews from a SerpApi compatible google_maps_reviews search.
type SerpProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewSerpProvider(apiKey, baseURL string, timeout time.Duration) *SerpProvider {
	return &SerpProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Provider = (*SerpProvider)(nil)

type serpResponse struct {
	Error          string `json:"error"`
	SearchMetadata struct {
		Status string `json:"status"`
	} `json:"search_metadata"`
	PlaceInfo struct {
		Rating  *float64 `json:"rating"`
		Reviews int      `json:"reviews"`
	} `json:"place_info"`
	Reviews    []serpReview `json:"reviews"`
	Pagination struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"serpapi_pagination"`
}

type serpReview struct {
	User struct {
		Name      string `json:"name"`
		Thumbnail string `json:"thumbnail"`
	} `json:"user"`
	Rating  float64 `json:"rating"`
	Snippet string  `json:"snippet"`
	Date    string  `json:"date"`
	ISODate string  `json:"iso_date"`
}

func (p *SerpProvider) Name() string {
	return SerpProviderName
}

func (p *SerpProvider) FetchReviews(ctx context.Context, q Query) (*Result, error) {
	if q.PlaceID == "" {
		return nil, fmt.Errorf("%w: empty place id", ErrNotFound)
	}

	params := url.Values{}
	params.Set("engine", "google_maps_reviews")
	params.Set("place_id", q.PlaceID)
	params.Set("api_key", p.apiKey)
	if q.Language != "" {
		params.Set("hl", q.Language)
	}
	params.Set("sort_by", serpSort(q.Sort))
	if q.PageToken != "" {
		params.Set("next_page_token", q.PageToken)
	}

	body, err := get(ctx, p.httpClient, p.baseURL+"/search.json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload serpResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode maps reviews: %v", ErrUnavailable, err)
	}

	if payload.Error != "" {
		return nil, classifySerpError(payload.Error)
	}
	if len(payload.Reviews) == 0 {
		return nil, ErrEmpty
	}

	result := &Result{
		Reviews:       make([]Review, 0, len(payload.Reviews)),
		TotalCount:    payload.PlaceInfo.Reviews,
		NextPageToken: payload.Pagination.NextPageToken,
		ResponseSize:  len(body),
		Raw:           body,
	}
	if payload.PlaceInfo.Rating != nil {
		result.Rating = *payload.PlaceInfo.Rating
		result.HasRating = true
	}
	for _, r := range payload.Reviews {
		review := Review{
			AuthorName:   r.User.Name,
			Rating:       int(r.Rating + 0.5),
			Text:         r.Snippet,
			RelativeDate: r.Date,
			PhotoURL:     r.User.Thumbnail,
		}
		if ts, err := time.Parse(time.RFC3339, r.ISODate); err == nil {
			review.UnixTime = ts.Unix()
		}
		result.Reviews = append(result.Reviews, review)
	}
	return result, nil
}

func serpSort(s SortOrder) string {
	switch s {
	case SortNewest:
		return "newestFirst"
	case SortHighest:
		return "ratingHigh"
	case SortLowest:
		return "ratingLow"
	default:
		return "qualityScore"
	}
}

func classifySerpError(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "api key"), strings.Contains(lower, "api_key"):
		return fmt.Errorf("%w: %s", ErrAuth, msg)
	case strings.Contains(lower, "hasn't returned any results"):
		return ErrEmpty
	case strings.Contains(lower, "place_id"), strings.Contains(lower, "not found"):
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	default:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}
}
