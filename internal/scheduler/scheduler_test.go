package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every tuesday", func(context.Context) error { return nil }, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every tuesday")
}

func TestNew_ValidSpecs(t *testing.T) {
	for _, spec := range []string{"*/15 * * * *", "0 6 * * *", "@hourly", "@every 10m"} {
		t.Run(spec, func(t *testing.T) {
			s, err := New(spec, func(context.Context) error { return nil }, discardLogger())
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestTick_RunsJobWithStartContext(t *testing.T) {
	var calls atomic.Int32
	s, err := New("@hourly", func(ctx context.Context) error {
		calls.Add(1)
		return ctx.Err()
	}, discardLogger())
	require.NoError(t, err)

	s.Start(context.Background())
	s.tick()
	s.tick()
	s.Stop()

	assert.Equal(t, int32(2), calls.Load())
}

func TestTick_JobErrorIsNotFatal(t *testing.T) {
	var calls atomic.Int32
	s, err := New("@hourly", func(context.Context) error {
		calls.Add(1)
		return errors.New("upstream unavailable")
	}, discardLogger())
	require.NoError(t, err)

	s.Start(context.Background())
	s.tick()
	s.tick()
	s.Stop()

	assert.Equal(t, int32(2), calls.Load())
}

func TestTick_BeforeStartIsNoop(t *testing.T) {
	var calls atomic.Int32
	s, err := New("@hourly", func(context.Context) error {
		calls.Add(1)
		return nil
	}, discardLogger())
	require.NoError(t, err)

	s.tick()
	assert.Zero(t, calls.Load())
}

func TestStop_CancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	done := make(chan error, 1)
	s, err := New("@hourly", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	}, discardLogger())
	require.NoError(t, err)

	s.Start(context.Background())
	go s.tick()
	<-started

	s.Stop()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not cancelled by Stop")
	}
}

func TestSchedule_Fires(t *testing.T) {
	fired := make(chan struct{}, 1)
	s, err := New("@every 1s", func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}, discardLogger())
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job never fired")
	}
}
