package child

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/icap-oss/icapd/queue"
)

// Tunables mirroring the C server's fixed #defines. Exported so a config
// layer can override them per deployment instead of recompiling.
const (
	DefaultMaxKeepAliveRequests           = 100
	DefaultKeepAliveTimeout               = 15 * time.Second
	DefaultRequestsBeforeReallocateMemory = 1000
)

// Request is anything a Worker can build fresh, recycle across keep-alive
// requests on the same connection, and eventually discard once it has
// served RequestsBeforeReallocateMemory requests (bounding per-connection
// memory growth the way the C worker's periodic request_release/alloc does).
type Request interface {
	// Reset prepares the request to serve another request on the same
	// connection, returning false if it cannot be recycled and must be
	// rebuilt from scratch.
	Reset() bool
}

// Handler serves one request read off conn using req for scratch state; it
// returns whether the connection should be kept open for another
// keep-alive request.
type Handler func(conn *queue.Connection, req Request) (keepAlive bool, err error)

// Worker repeatedly dequeues a Connection and runs it through Handler for
// up to MaxKeepAliveRequests pipelined requests, the Go analogue of one
// iteration of c-icap's child worker thread loop.
type Worker struct {
	Queue      *queue.Queue
	Term       *Termination
	Handler    Handler
	NewRequest func() Request

	MaxKeepAliveRequests           int
	KeepAliveTimeout               time.Duration
	RequestsBeforeReallocateMemory int

	// UsedServers/FreeServers are the same shared counters the sibling
	// Acceptor reads; the worker owns writing them.
	UsedServers *int32
	FreeServers *int32
	// FreeServerCond is signaled after a request completes so an idle
	// acceptor waiting on "no free workers" wakes back up.
	FreeServerCond interface{ Broadcast() }

	Log *logrus.Entry
}

func (w *Worker) log() *logrus.Entry {
	if w.Log != nil {
		return w.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (w *Worker) defaults() {
	if w.MaxKeepAliveRequests <= 0 {
		w.MaxKeepAliveRequests = DefaultMaxKeepAliveRequests
	}
	if w.KeepAliveTimeout <= 0 {
		w.KeepAliveTimeout = DefaultKeepAliveTimeout
	}
	if w.RequestsBeforeReallocateMemory <= 0 {
		w.RequestsBeforeReallocateMemory = DefaultRequestsBeforeReallocateMemory
	}
}

// Run is one worker goroutine's whole life: dequeue, serve, repeat, until
// Term goes active and the queue runs dry.
func (w *Worker) Run() {
	w.defaults()

	var req Request
	var served int

	for {
		conn, ok := w.Queue.Get()
		if !ok {
			if w.Term.Load() == TerminationImmediately {
				return
			}
			w.Queue.WaitForQueue()
			if !w.Term.Active() {
				continue
			}
			conn, ok = w.Queue.Get()
			if !ok {
				return
			}
		}

		atomic.AddInt32(w.UsedServers, 1)
		atomic.AddInt32(w.FreeServers, -1)

		w.serveConnection(conn, &req, &served)

		atomic.AddInt32(w.UsedServers, -1)
		atomic.AddInt32(w.FreeServers, 1)
		if w.FreeServerCond != nil {
			w.FreeServerCond.Broadcast()
		}

		if w.Term.Load() == TerminationImmediately {
			return
		}
	}
}

func (w *Worker) serveConnection(conn queue.Connection, req *Request, served *int) {
	defer conn.Conn.Close()

	if *req == nil || !(*req).Reset() {
		if w.NewRequest == nil {
			return
		}
		*req = w.NewRequest()
	}

	for i := 0; i < w.MaxKeepAliveRequests; i++ {
		if w.Term.Load() == TerminationImmediately {
			return
		}
		if w.Term.Load() == TerminationGracefully && i > 0 {
			return
		}

		if i > 0 {
			_ = conn.Conn.SetReadDeadline(time.Now().Add(w.KeepAliveTimeout))
		}

		keepAlive, err := w.Handler(&conn, *req)
		*served++
		if err != nil {
			if err != net.ErrClosed {
				w.log().WithError(err).Debug("request handler returned an error, closing connection")
			}
			return
		}
		if !keepAlive {
			return
		}

		if *served%w.RequestsBeforeReallocateMemory == 0 {
			if w.NewRequest != nil {
				*req = w.NewRequest()
			}
			continue
		}
		if !(*req).Reset() {
			if w.NewRequest == nil {
				return
			}
			*req = w.NewRequest()
		}
	}
}
