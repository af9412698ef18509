package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testEvent(id string) domain.DisasterEvent {
	sev := domain.SeverityHigh
	return domain.DisasterEvent{
		ActivationID: id,
		Title:        "Severe flooding",
		Location:     domain.Location{Country: "Kenya", Region: "africa"},
		DataSource:   domain.SourceCharter,
		CollectedAt:  time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC),
		Severity:     &sev,
	}
}

func TestSerializeToMessage(t *testing.T) {
	event := testEvent("912")

	msg, err := serializeToMessage("run-1", event)
	require.NoError(t, err)

	assert.Equal(t, []byte("912"), msg.Key)
	assert.Contains(t, string(msg.Value), `"activation_id":"912"`)
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "region", msg.Headers[0].Key)
	assert.Equal(t, []byte("africa"), msg.Headers[0].Value)
	assert.Equal(t, "severity", msg.Headers[1].Key)
	assert.Equal(t, []byte("high"), msg.Headers[1].Value)
	assert.Equal(t, "collected_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2025-03-14T09:30:00Z"), msg.Headers[2].Value)
	assert.Equal(t, "run_id", msg.Headers[3].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[3].Value)
}

func TestSerializeToMessage_NoSeverity(t *testing.T) {
	event := testEvent("1")
	event.Severity = nil
	msg, err := serializeToMessage("r", event)
	require.NoError(t, err)
	assert.Empty(t, msg.Headers[1].Value)
}

func TestWriter_PublishSkipsSynthetic(t *testing.T) {
	fake := &fakeWriter{}
	w := &Writer{writer: fake, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	placeholder := testEvent("placeholder-1")
	placeholder.Synthetic = true

	n, err := w.Publish(context.Background(), "run-1", []domain.DisasterEvent{testEvent("1"), placeholder, testEvent("2")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, fake.msgs, 2)
	assert.Equal(t, []byte("1"), fake.msgs[0].Key)
	assert.Equal(t, []byte("2"), fake.msgs[1].Key)

	require.NoError(t, w.Close())
	assert.True(t, fake.closed)
}

func TestWriter_PublishNothing(t *testing.T) {
	fake := &fakeWriter{err: errors.New("must not be called")}
	w := &Writer{writer: fake, logger: slog.Default()}

	n, err := w.Publish(context.Background(), "run-1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriter_PublishError(t *testing.T) {
	fake := &fakeWriter{err: errors.New("broker down")}
	w := &Writer{writer: fake, logger: slog.Default()}

	_, err := w.Publish(context.Background(), "run-1", []domain.DisasterEvent{testEvent("1")})
	assert.ErrorContains(t, err, "broker down")
}
