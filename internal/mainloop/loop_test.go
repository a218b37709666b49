package mainloop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, rate int) (*Loop, context.CancelFunc) {
	t.Helper()

	l := New(rate, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestDoRunsOnLoop(t *testing.T) {
	l, _ := startLoop(t, 100)

	var owned bool
	err := l.Do(context.Background(), func(ctx context.Context) error {
		owned = l.Owns(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, owned)
	assert.False(t, l.Owns(context.Background()))
}

func TestNestedDoDoesNotDeadlock(t *testing.T) {
	l, _ := startLoop(t, 100)

	done := make(chan error, 1)
	go func() {
		done <- l.Do(context.Background(), func(ctx context.Context) error {
			return l.Do(ctx, func(context.Context) error { return nil })
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("nested Do deadlocked")
	}
}

func TestDoPropagatesErrorsAndPanics(t *testing.T) {
	l, _ := startLoop(t, 100)

	sentinel := errors.New("nope")
	err := l.Do(context.Background(), func(context.Context) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	err = l.Do(context.Background(), func(context.Context) error { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	// the loop survives a panicking task
	assert.NoError(t, l.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestDoSerializesWork(t *testing.T) {
	l, _ := startLoop(t, 100)

	var active, peak atomic.Int32
	errs := make(chan error, 10)
	for range 10 {
		go func() {
			errs <- l.Do(context.Background(), func(context.Context) error {
				n := active.Add(1)
				if n > peak.Load() {
					peak.Store(n)
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				return nil
			})
		}()
	}
	for range 10 {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int32(1), peak.Load())
}

func TestTicks(t *testing.T) {
	l, _ := startLoop(t, 200)

	ticked := make(chan time.Duration, 1)
	l.OnTick(func(dt time.Duration) {
		select {
		case ticked <- dt:
		default:
		}
	})

	select {
	case dt := <-ticked:
		assert.Greater(t, dt, time.Duration(0))
	case <-time.After(2 * time.Second):
		t.Fatal("no tick observed")
	}
	assert.Positive(t, l.Frame())
}

func TestDoAfterStop(t *testing.T) {
	l, cancel := startLoop(t, 100)
	cancel()
	<-l.Done()

	err := l.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRunTwice(t *testing.T) {
	l, _ := startLoop(t, 100)
	require.Eventually(t, func() bool { return l.started.Load() }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, l.Run(context.Background()), ErrRunning)
}

func TestDoCancelledBeforeStart(t *testing.T) {
	l := New(10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTaskContextCancelledWhenLoopStops(t *testing.T) {
	l, cancel := startLoop(t, 100)

	started := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- l.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	<-started
	cancel()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not cancelled")
	}
}
