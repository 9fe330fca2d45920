package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func testSnapshot() domain.DaySnapshot {
	return domain.DaySnapshot{
		Date: "2020-03-15",
		Atomic: []domain.AtomicFeature{
			{Point: domain.NewPointID(45.4642, 9.19), Total: 10, New: 2},
			{Point: domain.NewPointID(45.6983, 9.6773), Total: 5, New: 1},
		},
		Province:   map[string]domain.AggregateBucket{"Lombardy": {Total: 15, New: 3}},
		Country:    map[string]domain.AggregateBucket{"Italy": {Total: 15, New: 3}},
		Unresolved: 1,
	}
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(testSnapshot())
	require.NoError(t, err)

	assert.Equal(t, []byte("2020-03-15"), msg.Key)
	assert.Contains(t, string(msg.Value), `"geoid":"45.4642|9.19"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, HeaderDate, msg.Headers[0].Key)
	assert.Equal(t, []byte("2020-03-15"), msg.Headers[0].Value)
	assert.Equal(t, HeaderAtomic, msg.Headers[1].Key)
	assert.Equal(t, []byte("2"), msg.Headers[1].Value)
	assert.Equal(t, []byte("1"), msg.Headers[2].Value)
}

func TestDecodeMessage(t *testing.T) {
	snap := testSnapshot()
	msg, err := serializeToMessage(snap)
	require.NoError(t, err)

	got, err := DecodeMessage(msg)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeMessage_KeyMismatch(t *testing.T) {
	msg, err := serializeToMessage(testSnapshot())
	require.NoError(t, err)
	msg.Key = []byte("2020-03-14")

	_, err = DecodeMessage(msg)
	assert.Error(t, err)
}

func TestWriter_Publish(t *testing.T) {
	rec := &recordingWriter{}
	w := &Writer{writer: rec, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Publish(context.Background(), testSnapshot()))
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, []byte("2020-03-15"), rec.msgs[0].Key)

	require.NoError(t, w.Close())
	assert.True(t, rec.closed)
}

func TestWriter_PublishError(t *testing.T) {
	rec := &recordingWriter{err: errors.New("leader not available")}
	w := &Writer{writer: rec, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.Publish(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2020-03-15")
	assert.Contains(t, err.Error(), "leader not available")
}
