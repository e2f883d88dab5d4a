package child

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/icap-oss/icapd/ipc/mutex"
	"github.com/icap-oss/icapd/queue"
)

// Acceptor runs the single accept loop of one child: wait for "go", then
// repeatedly win the process-wide accept mutex and drain the listener into
// the connection queue until this child runs out of free workers, at which
// point it releases the mutex and waits to be told a worker freed up.
//
// Only one Acceptor across the whole server tree holds AcceptMutex locked
// at a time; that serialization is what bounds the thundering-herd effect
// and the accept-to-queue backlog per child.
type Acceptor struct {
	Listener    net.Listener
	AcceptMutex mutex.Mutex
	Queue       *queue.Queue
	Proto       queue.Proto
	Term        *Termination

	// FreeServers is shared with the sibling Workers pool: Workers
	// decrement it while busy and increment it on completion: the
	// acceptor only ever reads it.
	FreeServers *int32
	// FreeServerCond is signaled by a Worker whenever it finishes a
	// request and increments *FreeServers, waking an idle acceptor.
	FreeServerCond *sync.Cond

	Log *logrus.Entry

	accepted uint64
	idle     int32

	initGo sync.Once
	goOnce sync.Once
	goCh   chan struct{}
}

func (a *Acceptor) log() *logrus.Entry {
	if a.Log != nil {
		return a.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (a *Acceptor) ensureGoCh() chan struct{} {
	a.initGo.Do(func() {
		a.goCh = make(chan struct{})
	})
	return a.goCh
}

// Go signals the acceptor that every worker is up and it may start
// accepting. Idempotent.
func (a *Acceptor) Go() {
	ch := a.ensureGoCh()
	a.goOnce.Do(func() {
		close(ch)
	})
}

func (a *Acceptor) waitForGo() {
	<-a.ensureGoCh()
}

// Accepted returns the running count of connections this acceptor has
// handed to the queue.
func (a *Acceptor) Accepted() uint64 {
	return atomic.LoadUint64(&a.accepted)
}

// Idle reports whether the acceptor currently does not hold the accept
// mutex, the Go analogue of proc_threads_queues.c's per-thread idle flag.
func (a *Acceptor) Idle() bool {
	return atomic.LoadInt32(&a.idle) != 0
}

// BusyRatio reports the fraction of this child's worker pool presently
// occupied, a supplemented diagnostic akin to c-icap's BUSY_SRVS_RATIO
// used for "running low on workers" log lines.
func (a *Acceptor) BusyRatio(totalServers int) float64 {
	if totalServers <= 0 {
		return 0
	}
	free := atomic.LoadInt32(a.FreeServers)
	used := totalServers - int(free)
	if used < 0 {
		used = 0
	}
	return float64(used) / float64(totalServers)
}

// Run is the acceptor's main loop. It blocks until Term goes active or the
// listener is closed out from under it.
func (a *Acceptor) Run() {
	a.waitForGo()

	for !a.Term.Active() {
		if err := a.AcceptMutex.Lock(); err != nil {
			continue
		}

		atomic.StoreInt32(&a.idle, 0)
		for atomic.LoadInt32(a.FreeServers) > int32(a.Queue.Used()) {
			if a.Term.Active() {
				break
			}

			conn, err := a.Listener.Accept()
			if err != nil {
				if a.Term.Active() {
					break
				}
				continue
			}

			c := queue.Connection{
				Conn:  conn,
				Local: conn.LocalAddr(),
				Peer:  conn.RemoteAddr(),
				Proto: a.Proto,
			}
			if tc, ok := conn.(*net.TCPConn); ok {
				_ = tc.SetLinger(0)
			}

			if used := a.Queue.Put(c); used == 0 {
				a.log().Warn("no available servers: connection dropped at a full queue")
				_ = conn.Close()
				continue
			}
			atomic.AddUint64(&a.accepted, 1)
		}

		atomic.StoreInt32(&a.idle, 1)
		_ = a.AcceptMutex.Unlock()

		// If there is still no room to accept (every worker is busy, or
		// busy enough that the queue already covers every free one),
		// sleep until a Worker frees one up instead of spinning on the
		// mutex between empty passes.
		if atomic.LoadInt32(a.FreeServers) <= int32(a.Queue.Used()) && !a.Term.Active() {
			a.FreeServerCond.L.Lock()
			a.FreeServerCond.Wait()
			a.FreeServerCond.L.Unlock()
		}
	}
}
