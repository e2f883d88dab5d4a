package child

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/icap-oss/icapd/command"
)

// DefaultShutdownTimeout bounds how long Stop waits for in-flight workers
// to drain before escalating to an immediate termination.
const DefaultShutdownTimeout = 10 * time.Second

// Child owns one worker process's acceptor(s) and worker pool, and the
// signal/command-driven sequence that starts and stops them. It is built
// by the monitor after re-exec hands it its listening sockets and control
// pipe. One Acceptor per configured listener share the same Queue, Term,
// and free-server bookkeeping, the same way multiple Workers already
// share one Queue.
type Child struct {
	Acceptors       []*Acceptor
	Workers         []*Worker
	ShutdownTimeout time.Duration
	Log             *logrus.Entry

	// Bus runs the CHILD_START_CMD / CHILD_STOP_CMD commands registered
	// under its ChildStart/ChildStop capability, with UserData passed to
	// each handler; a nil Bus runs nothing.
	Bus      *command.Bus
	UserData any

	term *Termination
	wg   sync.WaitGroup

	sigCh chan os.Signal
}

// NewChild wires accs and workers to a shared Termination and returns the
// assembled Child. Every Acceptor's and Worker's Term must already point
// at the same Termination value passed here.
func NewChild(term *Termination, accs []*Acceptor, workers []*Worker) *Child {
	return &Child{
		Acceptors:       accs,
		Workers:         workers,
		ShutdownTimeout: DefaultShutdownTimeout,
		term:            term,
	}
}

func (c *Child) log() *logrus.Entry {
	if c.Log != nil {
		return c.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (c *Child) runChildStart() {
	if c.Bus == nil {
		return
	}
	for _, err := range c.Bus.RunByCapability(command.ChildStart, nil, c.UserData) {
		c.log().WithError(err).Warn("CHILD_START_CMD hook failed")
	}
}

func (c *Child) runChildStop() {
	if c.Bus == nil {
		return
	}
	for _, err := range c.Bus.RunByCapability(command.ChildStop, nil, c.UserData) {
		c.log().WithError(err).Warn("CHILD_STOP_CMD hook failed")
	}
}

// Start installs signal handlers, runs CHILD_START_CMD, then launches the
// acceptor and every worker in their own goroutines. It returns
// immediately; call Wait to block until they've all exited.
func (c *Child) Start() {
	c.installSignalHandlers()
	c.runChildStart()

	for _, acc := range c.Acceptors {
		acc := acc
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			acc.Run()
		}()
	}

	for _, w := range c.Workers {
		w := w
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			w.Run()
		}()
	}

	for _, acc := range c.Acceptors {
		acc.Go()
	}
}

// Wait blocks until every worker and the acceptor have returned.
func (c *Child) Wait() {
	c.wg.Wait()
}

// installSignalHandlers matches the C child's signal policy: SIGTERM
// raises termination (graceful unless the monitor already demanded
// IMMEDIATELY via father_said), SIGPIPE/SIGINT/SIGHUP are ignored by a
// child (only the monitor acts on SIGHUP).
func (c *Child) installSignalHandlers() {
	c.sigCh = make(chan os.Signal, 4)
	signal.Notify(c.sigCh, syscall.SIGTERM, syscall.SIGPIPE, syscall.SIGINT, syscall.SIGHUP)

	go func() {
		for sig := range c.sigCh {
			switch sig {
			case syscall.SIGTERM:
				c.Stop(TerminationGracefully)
			case syscall.SIGPIPE, syscall.SIGINT, syscall.SIGHUP:
				// ignored in a child; the monitor handles these.
			}
		}
	}()
}

// Stop raises the termination level and wakes every goroutine blocked on
// the queue or the free-server condition. For TerminationGracefully it
// waits up to ShutdownTimeout for a clean drain, escalates to
// TerminationImmediately if that runs out, and waits for the goroutines to
// exit. Any other level returns without waiting. CHILD_STOP_CMD runs last
// in both cases.
func (c *Child) Stop(level TerminationLevel) {
	c.term.Raise(level)
	c.broadcastAll()

	if level != TerminationGracefully {
		c.runChildStop()
		return
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.ShutdownTimeout):
		c.term.Raise(TerminationImmediately)
		c.broadcastAll()
		<-done
	}

	c.runChildStop()
}

// broadcastAll wakes every acceptor's queue and free-server wait so a
// raised Termination is observed promptly instead of on the next natural
// wakeup.
func (c *Child) broadcastAll() {
	for _, acc := range c.Acceptors {
		acc.Queue.Broadcast()
		acc.FreeServerCond.Broadcast()
	}
}
