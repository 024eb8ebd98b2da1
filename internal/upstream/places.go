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

const PlacesProviderName = "google_places"

// PlacesProvider reads reviews from the Google Place Details endpoint.
type PlacesProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewPlacesProvider(apiKey, baseURL string, timeout time.Duration) *PlacesProvider {
	return &PlacesProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Provider = (*PlacesProvider)(nil)

type placeDetailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Rating           *float64      `json:"rating"`
		UserRatingsTotal int           `json:"user_ratings_total"`
		Reviews          []placeReview `json:"reviews"`
	} `json:"result"`
}

type placeReview struct {
	AuthorName              string `json:"author_name"`
	Rating                  int    `json:"rating"`
	Text                    string `json:"text"`
	Time                    int64  `json:"time"`
	ProfilePhotoURL         string `json:"profile_photo_url"`
	RelativeTimeDescription string `json:"relative_time_description"`
}

func (p *PlacesProvider) Name() string {
	return PlacesProviderName
}

func (p *PlacesProvider) FetchReviews(ctx context.Context, q Query) (*Result, error) {
	if q.PlaceID == "" {
		return nil, fmt.Errorf("%w: empty place id", ErrNotFound)
	}

	params := url.Values{}
	params.Set("place_id", q.PlaceID)
	params.Set("fields", "reviews,rating,user_ratings_total")
	params.Set("key", p.apiKey)
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	params.Set("reviews_sort", placesSort(q.Sort))

	body, err := get(ctx, p.httpClient, p.baseURL+"/maps/api/place/details/json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload placeDetailsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode place details: %v", ErrUnavailable, err)
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, ErrEmpty
	case "NOT_FOUND", "INVALID_REQUEST":
		return nil, fmt.Errorf("%w: %s", ErrNotFound, payload.Status)
	case "REQUEST_DENIED":
		return nil, fmt.Errorf("%w: %s", ErrAuth, payload.ErrorMessage)
	default:
		return nil, fmt.Errorf("%w: status %s %s", ErrUnavailable, payload.Status, payload.ErrorMessage)
	}

	if len(payload.Result.Reviews) == 0 {
		return nil, ErrEmpty
	}

	result := &Result{
		Reviews:      make([]Review, 0, len(payload.Result.Reviews)),
		TotalCount:   payload.Result.UserRatingsTotal,
		ResponseSize: len(body),
		Raw:          body,
	}
	if payload.Result.Rating != nil {
		result.Rating = *payload.Result.Rating
		result.HasRating = true
	}
	for _, r := range payload.Result.Reviews {
		result.Reviews = append(result.Reviews, Review{
			AuthorName:   r.AuthorName,
			Rating:       r.Rating,
			Text:         r.Text,
			UnixTime:     r.Time,
			RelativeDate: r.RelativeTimeDescription,
			PhotoURL:     r.ProfilePhotoURL,
		})
	}
	return result, nil
}

// Place Details only knows two orderings.
func placesSort(s SortOrder) string {
	if s == SortNewest {
		return "newest"
	}
	return "most_relevant"
}
