package domain

import (
	"cmp"
	"slices"
	"time"
)

// DateRange bounds the event dates in a snapshot. Both ends are nil when no
// event carries a date.
type DateRange struct {
	Earliest *time.Time `json:"earliest"`
	Latest   *time.Time `json:"latest"`
}

// SnapshotMetadata summarizes a persisted collection. Field order is the
// serialized order.
type SnapshotMetadata struct {
	TotalEvents    int       `json:"total_events"`
	CollectionDate time.Time `json:"collection_date"`
	Source         string    `json:"source"`
	RegionsCovered []string  `json:"regions_covered"`
	DateRange      DateRange `json:"date_range"`
	Synthetic      bool      `json:"synthetic"`
}

// Snapshot is the processed collection document.
type Snapshot struct {
	Metadata SnapshotMetadata `json:"metadata"`
	Events   []DisasterEvent  `json:"events"`
}

// BuildSnapshot summarizes events collected at collectedAt. Events keep their
// given order; regions are sorted and distinct.
func BuildSnapshot(events []DisasterEvent, collectedAt time.Time, synthetic bool) Snapshot {
	if events == nil {
		events = []DisasterEvent{}
	}

	regions := make([]string, 0)
	var dr DateRange
	for _, e := range events {
		if e.Location.Region != "" && !slices.Contains(regions, e.Location.Region) {
			regions = append(regions, e.Location.Region)
		}
		if e.OccurredAt == nil {
			continue
		}
		t := *e.OccurredAt
		if dr.Earliest == nil || t.Before(*dr.Earliest) {
			dr.Earliest = ptr(t)
		}
		if dr.Latest == nil || t.After(*dr.Latest) {
			dr.Latest = ptr(t)
		}
	}
	slices.Sort(regions)

	source := SourceCharter
	if synthetic {
		source = SourcePlaceholder
	}
	return Snapshot{
		Metadata: SnapshotMetadata{
			TotalEvents:    len(events),
			CollectionDate: collectedAt.UTC(),
			Source:         source,
			RegionsCovered: regions,
			DateRange:      dr,
			Synthetic:      synthetic,
		},
		Events: events,
	}
}

// CountryCount is one row of a country frequency table.
type CountryCount struct {
	Country string
	Count   int
}

// TopCountries returns the n most frequent non-empty countries, ties broken
// by name.
func TopCountries(events []DisasterEvent, n int) []CountryCount {
	counts := make(map[string]int)
	for _, e := range events {
		if e.Location.Country != "" {
			counts[e.Location.Country]++
		}
	}
	rows := make([]CountryCount, 0, len(counts))
	for c, k := range counts {
		rows = append(rows, CountryCount{Country: c, Count: k})
	}
	slices.SortFunc(rows, func(a, b CountryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Country, b.Country)
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// DurationStats summarizes enriched durations.
type DurationStats struct {
	Enriched int
	WithDays int
	Avg      float64
	Min      int
	Max      int
}

// SummarizeDurations reports how many events carry an enrichment result and
// the spread of extracted durations.
func SummarizeDurations(events []DisasterEvent) DurationStats {
	var s DurationStats
	total := 0
	for _, e := range events {
		if e.Duration == nil {
			continue
		}
		s.Enriched++
		if e.Duration.DurationDays == nil {
			continue
		}
		days := *e.Duration.DurationDays
		if s.WithDays == 0 || days < s.Min {
			s.Min = days
		}
		if days > s.Max {
			s.Max = days
		}
		s.WithDays++
		total += days
	}
	if s.WithDays > 0 {
		s.Avg = float64(total) / float64(s.WithDays)
	}
	return s
}
