package types

type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusPublished ItemStatus = "published"
)

// PostContent is the editorial content of one carousel post.
type PostContent struct {
	Title           string   `json:"title" validate:"required"`
	Slides          []string `json:"slides" validate:"required,min=1"`
	CTA             string   `json:"cta"`
	Caption         string   `json:"caption"`
	EnhancedCaption string   `json:"enhanced_caption,omitempty"`
}

// ScheduledItem is one entry in the content calendar.
type ScheduledItem struct {
	ID      string      `json:"id"`
	Date    string      `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string      `json:"time" validate:"required,datetime=15:04"`
	Status  ItemStatus  `json:"status"`
	Content PostContent `json:"content" validate:"required"`
	PostID  string      `json:"post_id,omitempty"`
	// PostedAt is set when the item is marked published, RFC3339.
	PostedAt string `json:"posted_at,omitempty"`
}

// PublishRequest is the HTTP body for publishing pre-hosted images directly.
type PublishRequest struct {
	Caption         string   `json:"caption" validate:"required"`
	MediaURLs       []string `json:"media_urls" validate:"required,min=1,dive,url"`
	EnhancedCaption string   `json:"enhanced_caption,omitempty"`
}
