package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

var collected = time.Date(2024, time.May, 2, 6, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func event(id, title, region string, ms int64) domain.DisasterEvent {
	e := domain.DisasterEvent{
		ActivationID: id,
		Title:        title,
		Timestamp:    ms,
		Location:     domain.Location{Country: "Kenya", Region: region},
		DataSource:   domain.SourceCharter,
		CollectedAt:  collected,
	}
	if ms != 0 {
		t := time.UnixMilli(ms).UTC()
		e.OccurredAt = &t
	}
	return e
}

func TestValidateEvents(t *testing.T) {
	events := []domain.DisasterEvent{
		event("1", "Flood in Kenya", "africa", 1714000000000),
		event("", "No id", "africa", 0),
		event("1", "Duplicate", "global", 0),
	}
	p := validateEvents(events)
	require.Len(t, p.errors, 2)
	assert.Contains(t, p.errors[0], "activation_id is empty")
	assert.Contains(t, p.errors[1], "duplicates event 0")
}

func TestValidateEvents_DataSource(t *testing.T) {
	e := event("1", "Flood", "global", 0)
	e.Synthetic = true
	p := validateEvents([]domain.DisasterEvent{e})
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "synthetic event")
}

func TestValidateMetadata(t *testing.T) {
	events := []domain.DisasterEvent{
		event("1", "Flood in Kenya", "africa", 1714000000000),
		event("2", "Flood in Chad", "global", 1713000000000),
	}
	snap := domain.BuildSnapshot(events, collected, false)
	assert.True(t, validateMetadata(snap).passed())

	snap.Metadata.TotalEvents = 5
	snap.Metadata.RegionsCovered = []string{"africa"}
	p := validateMetadata(snap)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "TotalEvents")
}

func TestValidateMetadata_SyntheticMismatch(t *testing.T) {
	snap := domain.BuildSnapshot(domain.PlaceholderActivations(), collected, false)
	p := validateMetadata(snap)
	assert.False(t, p.passed())
}

func TestCheckDerived(t *testing.T) {
	var errs []string
	pf := func(format string, args ...any) { errs = append(errs, format) }

	ok := event("1", "Severe flooding in Brazil", "south america", 1714000000000)
	ok.DisasterType = strPtr(domain.DisasterFlood)
	ok.Severity = strPtr(domain.SeverityHigh)
	checkDerived(pf, &ok)
	assert.Empty(t, errs)

	bad := ok
	bad.Severity = strPtr(domain.SeverityLow)
	bad.Timestamp = 1
	bad.Location.Latitude = 91
	checkDerived(pf, &bad)
	assert.Len(t, errs, 3)
}

func TestValidateImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "satellite_01_x.jpg")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o600))

	m := domain.ImageManifest{
		TotalCount:     2,
		TotalSizeBytes: 2048,
		Images: []domain.DownloadedImage{
			{
				SatelliteImageRecord: domain.SatelliteImageRecord{ImageURL: "https://disasterscharter.org/x.jpg"},
				Filepath:             path,
				FileSize:             2048,
			},
			{
				SatelliteImageRecord: domain.SatelliteImageRecord{ImageURL: "/relative.jpg"},
				Filepath:             filepath.Join(dir, "missing.jpg"),
			},
		},
	}

	p := validateImages(m, false)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "not absolute")

	p = validateImages(m, true)
	assert.Len(t, p.errors, 2)
}

func TestValidateReports_CountMismatch(t *testing.T) {
	m := domain.ReportManifest{
		TotalCount: 3,
		Reports: []domain.DownloadedReport{
			{DocumentRecord: domain.DocumentRecord{DocumentURL: "https://disasterscharter.org/a.pdf"}},
		},
	}
	p := validateReports(m, false)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "total_count 3")
}
