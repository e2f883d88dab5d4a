// Package startStop implements a restartable background service: a pair of
// start/stop functions wrapped with uptime tracking and an error history,
// the shape the monitor's supervisor loop runs under.
package startStop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	errpool "github.com/icap-oss/icapd/errors/pool"
)

// StartFunc runs until ctx is cancelled or it decides to exit on its own.
type StartFunc func(ctx context.Context) error

// StopFunc performs an orderly shutdown of whatever StartFunc was doing.
type StopFunc func(ctx context.Context) error

// StartStop is a restartable background service with uptime and error
// tracking.
type StartStop interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	ErrorsLast() error
	ErrorsList() []error
}

type runner struct {
	start StartFunc
	stop  StopFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	running   atomic.Bool
	startedAt atomic.Int64

	errs errpool.Pool
}

// New wraps start/stop into a StartStop. Either may be nil: calling Start
// or Stop without the corresponding function records an error instead of
// panicking.
func New(start StartFunc, stop StopFunc) StartStop {
	return &runner{start: start, stop: stop, errs: errpool.New()}
}

func (r *runner) addErr(err error) {
	r.errs.Add(err)
}

// Start stops any instance already running, clears the error history, and
// launches start in its own goroutine. It returns immediately; start's
// outcome surfaces later through ErrorsLast/ErrorsList.
func (r *runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		prevCancel, prevDone := r.cancel, r.done
		r.mu.Unlock()
		prevCancel()
		if prevDone != nil {
			<-prevDone
		}
		r.mu.Lock()
	}

	r.errs.Clear()

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	r.startedAt.Store(time.Now().UnixNano())
	r.running.Store(true)

	go func() {
		defer close(done)
		defer r.running.Store(false)
		defer r.startedAt.Store(0)

		if r.start == nil {
			r.addErr(errors.New("invalid start function"))
			return
		}
		if err := r.start(cctx); err != nil {
			r.addErr(err)
		}
	}()

	return nil
}

// Stop cancels the running instance, waits for it to exit, then runs stop.
// Any error from stop (or a missing stop function) is recorded, not
// returned: Stop itself only ever returns nil.
func (r *runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	if r.stop == nil {
		r.addErr(errors.New("invalid stop function"))
		return nil
	}
	if err := r.stop(ctx); err != nil {
		r.addErr(err)
	}
	return nil
}

func (r *runner) Restart(ctx context.Context) error {
	_ = r.Stop(ctx)
	return r.Start(ctx)
}

func (r *runner) IsRunning() bool {
	return r.running.Load()
}

func (r *runner) Uptime() time.Duration {
	if !r.running.Load() {
		return 0
	}
	at := r.startedAt.Load()
	if at == 0 {
		return 0
	}
	return time.Since(time.Unix(0, at))
}

func (r *runner) ErrorsLast() error {
	return r.errs.Last()
}

func (r *runner) ErrorsList() []error {
	return r.errs.Slice()
}
