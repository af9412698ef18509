package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "db", "floods.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func testEvent(id, title, region string) domain.DisasterEvent {
	occurred := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	sev := domain.SeverityMedium
	return domain.DisasterEvent{
		ActivationID: id,
		Title:        title,
		OccurredAt:   &occurred,
		Timestamp:    occurred.UnixMilli(),
		Location:     domain.Location{Country: "Kenya", Region: region, Latitude: -1.3, Longitude: 36.8},
		Metadata:     domain.Metadata{Slug: "flood-" + id, DisasterTypes: []string{"Flood"}},
		DataSource:   domain.SourceCharter,
		CollectedAt:  time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC),
		Severity:     &sev,
	}
}

func TestStore_SaveEventsFirstSeenWins(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n, err := store.SaveEvents(ctx, "run-1", []domain.DisasterEvent{
		testEvent("1", "Flood A", domain.GlobalRegion),
		testEvent("2", "Flood B", domain.GlobalRegion),
		testEvent("", "no id", domain.GlobalRegion),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.SaveEvents(ctx, "run-2", []domain.DisasterEvent{
		testEvent("2", "Flood B (changed)", "africa"),
		testEvent("3", "Flood C", "africa"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	got, ok, err := store.Get(ctx, "2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Flood B", got.Title)
	assert.Equal(t, domain.GlobalRegion, got.Location.Region)
	assert.Nil(t, got.Duration)
}

func TestStore_SaveDurationOnce(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	_, err := store.SaveEvents(ctx, "run-1", []domain.DisasterEvent{testEvent("1", "Flood", domain.GlobalRegion)})
	require.NoError(t, err)

	days := 12
	updated, err := store.SaveDuration(ctx, "1", domain.DurationDetail{DurationDays: &days})
	require.NoError(t, err)
	assert.True(t, updated)

	other := 99
	updated, err = store.SaveDuration(ctx, "1", domain.DurationDetail{DurationDays: &other})
	require.NoError(t, err)
	assert.False(t, updated)

	got, ok, err := store.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, got.Duration)
	require.NotNil(t, got.Duration.DurationDays)
	assert.Equal(t, 12, *got.Duration.DurationDays)

	updated, err = store.SaveDuration(ctx, "missing", domain.DurationDetail{})
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestStore_GetMissing(t *testing.T) {
	store := setupTestStore(t)
	_, ok, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Runs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LastRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordRun(ctx, domain.RunSummary{RunID: "a", StartedAt: start, FinishedAt: start.Add(time.Minute), TotalEvents: 10, Stored: 10}))
	require.NoError(t, store.RecordRun(ctx, domain.RunSummary{RunID: "b", StartedAt: start.Add(time.Hour), FinishedAt: start.Add(61 * time.Minute), TotalEvents: 11, Stored: 1, Synthetic: true}))

	last, ok, err := store.LastRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", last.RunID)
	assert.Equal(t, 11, last.Total)
	assert.Equal(t, 1, last.Inserted)
	assert.True(t, last.Synthetic)
	assert.True(t, start.Add(61*time.Minute).Equal(last.FinishedAt))
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floods.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.SaveEvents(ctx, "run-1", []domain.DisasterEvent{testEvent("1", "Flood", domain.GlobalRegion)})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	count, err := s2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
