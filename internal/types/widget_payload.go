package types

// AggregateRatingSnapshot is the overall rating shown in the widget header. It is computed per request
// and never stored.
type AggregateRatingSnapshot struct {
	OverallRating float64 `json:"overall_rating"`
	TotalCount    int     `json:"total_count"`
}

type ReviewView struct {
	Author      string `json:"author"`
	Rating      int    `json:"rating"`
	Text        string `json:"text"`
	PhotoURL    string `json:"photo_url"`
	DisplayDate string `json:"display_date"`
	Hidden      bool   `json:"hidden"`
}

// WidgetPayload is everything the embeddable script needs to render a widget.
type WidgetPayload struct {
	WidgetID uint         `json:"widget_id"`
	Reviews  []ReviewView `json:"reviews"`
	AggregateRatingSnapshot
	InitialLayout   string   `json:"initial_layout"`
	Layouts         []string `json:"layouts"`
	PaginationToken string   `json:"pagination_token,omitempty"`
	VisibleCount    int      `json:"visible_count"`
	HiddenCount     int      `json:"hidden_count"`
	ReviewLink      string   `json:"review_link,omitempty"`
	Source          string   `json:"source"`
}
