// Package mainloop provides the single execution context that owns host
// state. Work is posted to the loop and awaited; the loop also emits frame
// ticks that drive time-based work such as tweens.
package mainloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTickRate is the number of ticks per second when none is configured.
const DefaultTickRate = 60

var (
	// ErrStopped is returned when posting work to a loop that has exited.
	ErrStopped = errors.New("mainloop: stopped")
	// ErrRunning is returned by Run when the loop is already running.
	ErrRunning = errors.New("mainloop: already running")
)

// TickFunc is called on the loop goroutine once per tick with the elapsed
// time since the previous tick.
type TickFunc func(dt time.Duration)

type loopKey struct{}

type task struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Loop serializes every posted function onto one goroutine.
type Loop struct {
	interval time.Duration
	logger   *logrus.Entry

	tasks   chan task
	done    chan struct{}
	started atomic.Bool

	mu    sync.Mutex
	ticks []TickFunc
	frame atomic.Uint64
}

// New builds a loop ticking tickRate times per second.
func New(tickRate int, logger *logrus.Entry) *Loop {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loop{
		interval: time.Second / time.Duration(tickRate),
		logger:   logger,
		tasks:    make(chan task),
		done:     make(chan struct{}),
	}
}

// Run processes posted work and ticks until ctx is cancelled. It can be
// called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := time.Now()
	l.logger.WithField("interval", l.interval).Debug("main loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("main loop stopped")
			return nil
		case t := <-l.tasks:
			t.done <- l.run(ctx, t)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			l.tick(dt)
		}
	}
}

func (l *Loop) run(loopCtx context.Context, t task) (err error) {
	ctx, cancel := context.WithCancel(context.WithValue(t.ctx, loopKey{}, l))
	defer cancel()
	stop := context.AfterFunc(loopCtx, cancel)
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			l.logger.WithField("panic", r).Error("main loop task panicked")
			err = fmt.Errorf("mainloop: task panicked: %v", r)
		}
	}()
	return t.fn(ctx)
}

func (l *Loop) tick(dt time.Duration) {
	l.frame.Add(1)

	l.mu.Lock()
	fns := append([]TickFunc(nil), l.ticks...)
	l.mu.Unlock()

	for _, fn := range fns {
		l.safeTick(fn, dt)
	}
}

func (l *Loop) safeTick(fn TickFunc, dt time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.WithField("panic", r).Error("tick handler panicked")
		}
	}()
	fn(dt)
}

// OnTick registers fn to run on the loop goroutine every tick.
func (l *Loop) OnTick(fn TickFunc) {
	l.mu.Lock()
	l.ticks = append(l.ticks, fn)
	l.mu.Unlock()
}

// Do runs fn on the loop and waits for it to return. When ctx already
// belongs to work running on this loop, fn runs inline.
func (l *Loop) Do(ctx context.Context, fn func(context.Context) error) error {
	if l.Owns(ctx) {
		return fn(ctx)
	}

	t := task{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case l.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}

	select {
	case err := <-t.done:
		return err
	case <-l.done:
		select {
		case err := <-t.done:
			return err
		default:
			return ErrStopped
		}
	}
}

// Owns reports whether ctx was handed out by this loop.
func (l *Loop) Owns(ctx context.Context) bool {
	owner, _ := ctx.Value(loopKey{}).(*Loop)
	return owner == l
}

// Done is closed once Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Frame returns the number of ticks processed so far.
func (l *Loop) Frame() uint64 {
	return l.frame.Load()
}
