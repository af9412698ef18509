package domain

import "time"

const (
	// SourceCharter labels records that came from the upstream site.
	SourceCharter = "disasterscharter.org"
	// SourcePlaceholder labels built-in records substituted when nothing was sourced.
	SourcePlaceholder = "builtin-placeholder"

	DisasterFlood = "flood"

	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Location holds the activation's country, the region tag of the query that
// returned it, and the Charter's center point.
type Location struct {
	Country   string  `json:"country"`
	Region    string  `json:"region"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Metadata carries upstream identifiers needed for follow-up fetches.
type Metadata struct {
	Slug              string   `json:"slug"`
	ArticleID         string   `json:"article_id"`
	ExternalReference string   `json:"external_reference"`
	Keywords          string   `json:"keywords"`
	DisasterTypes     []string `json:"disaster_types"`
}

// DurationDetail is the result of detail-page enrichment. Every field is
// nullable; an attempted enrichment that found nothing has all fields nil.
type DurationDetail struct {
	DurationDays  *int    `json:"duration_days"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	Description   *string `json:"description"`
	ImpactDetails *string `json:"impact_details"`
}

// IsEmpty reports whether no field was extracted.
func (d DurationDetail) IsEmpty() bool {
	return d.DurationDays == nil && d.StartDate == nil && d.EndDate == nil &&
		d.Description == nil && d.ImpactDetails == nil
}

// DisasterEvent is the canonical, persisted activation record.
type DisasterEvent struct {
	ActivationID string     `json:"activation_id"`
	Title        string     `json:"title"`
	OccurredAt   *time.Time `json:"date"`
	Timestamp    int64      `json:"timestamp"`
	Location     Location   `json:"location"`
	Metadata     Metadata   `json:"metadata"`
	DataSource   string     `json:"data_source"`
	CollectedAt  time.Time  `json:"collected_at"`

	DisasterType *string         `json:"disaster_type,omitempty"`
	Severity     *string         `json:"severity,omitempty"`
	Duration     *DurationDetail `json:"duration,omitempty"`
	Synthetic    bool            `json:"synthetic,omitempty"`
}

// SatelliteImageRecord is one image of a quickview pair.
type SatelliteImageRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Keywords    string `json:"keywords"`
	Copyright   string `json:"copyright"`
	Country     string `json:"country"`
	Satellite   string `json:"satellite"`
	Width       int64  `json:"width"`
	Height      int64  `json:"height"`
	QuickviewID int64  `json:"quickview_id"`
	Synthetic   bool   `json:"synthetic,omitempty"`
}

// DocumentRecord is a library document. Priority orders documents for
// download; lower is better.
type DocumentRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DocumentURL string `json:"documentUrl"`
	Keywords    string `json:"keywords"`
	Priority    int    `json:"-"`
	Synthetic   bool   `json:"synthetic,omitempty"`
}

func ptr[T any](v T) *T { return &v }
