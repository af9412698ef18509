package domain

import (
	"strings"
	"time"

	"github.com/couchcryptid/flood-activation-etl/internal/fragment"
)

// Normalizer maps one raw upstream record to zero or more canonical records.
type Normalizer[R, D any] interface {
	Normalize(raw R) []D
}

// NormalizeAll applies n to every raw record, preserving order.
func NormalizeAll[R, D any](n Normalizer[R, D], raws []R) []D {
	out := make([]D, 0, len(raws))
	for _, r := range raws {
		out = append(out, n.Normalize(r)...)
	}
	return out
}

var (
	highSeverityTerms   = []string{"devastating", "major", "severe", "catastrophic"}
	mediumSeverityTerms = []string{"flooding", "flood"}
)

// ActivationNormalizer converts raw activations returned by one region query.
type ActivationNormalizer struct {
	Region string
}

// Normalize maps a raw activation to a DisasterEvent. It always yields
// exactly one event; events without an ID are dropped later by EventSet.
func (n ActivationNormalizer) Normalize(raw RawActivation) []DisasterEvent {
	event := DisasterEvent{
		ActivationID: strings.TrimSpace(string(raw.ActivationID)),
		Title:        raw.Title,
		OccurredAt:   millisToTime(int64(raw.DateAsTimestamp)),
		Timestamp:    int64(raw.DateAsTimestamp),
		Location: Location{
			Country:   raw.Country,
			Region:    n.Region,
			Latitude:  boundedCoord(float64(raw.CenterPointLatitude), 90),
			Longitude: boundedCoord(float64(raw.CenterPointLongitude), 180),
		},
		Metadata: Metadata{
			Slug:              raw.Slug,
			ArticleID:         string(raw.ArticleID),
			ExternalReference: string(raw.ExternalReferenceCode),
			Keywords:          raw.Keywords,
			DisasterTypes:     nonNil(raw.DisasterTypes),
		},
		DataSource:  SourceCharter,
		CollectedAt: Now(),
	}

	title := strings.ToLower(raw.Title)
	if strings.Contains(title, DisasterFlood) {
		event.DisasterType = ptr(DisasterFlood)
		event.Severity = ptr(SeverityFromTitle(title))
	}
	return []DisasterEvent{event}
}

// SeverityFromTitle classifies a title by ordered keyword sets; the first
// set with a substring hit wins.
func SeverityFromTitle(title string) string {
	title = strings.ToLower(title)
	switch {
	case containsAny(title, highSeverityTerms):
		return SeverityHigh
	case containsAny(title, mediumSeverityTerms):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ParseActivations extracts, decodes and normalizes the activations listing
// returned for q. It returns fragment.ErrExtractionMiss when the response
// carries no activations array and a *fragment.DecodeFault when the array is
// malformed.
func ParseActivations(body string, q Query) ([]DisasterEvent, error) {
	raws, err := fragment.ExtractAndDecode[RawActivation](body, ActivationsMarker)
	if err != nil {
		return nil, err
	}
	return NormalizeAll[RawActivation, DisasterEvent](ActivationNormalizer{Region: q.Region}, raws), nil
}

func millisToTime(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func boundedCoord(v, limit float64) float64 {
	if v < -limit || v > limit {
		return 0
	}
	return v
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
