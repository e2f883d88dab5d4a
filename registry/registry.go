// Package registry implements the monitor's shared-memory child registry:
// a fixed-size array of child slots, one statistics block per slot, a
// cumulative stats_history block merged via a closed-count-weighted
// running mean, and process totals (started/closed/crashed children).
// The monitor owns the only writer; children only ever read their own
// slot, so the registry's mutex is an ordinary in-process sync.Mutex, not
// an inter-process one.
package registry

import (
	"sync"

	liberr "github.com/icap-oss/icapd/errors"
	"github.com/icap-oss/icapd/stats"
)

const (
	CodeRegistryFull liberr.CodeError = liberr.MinPkgRegistry + iota
	CodeUnknownChild
)

func init() {
	liberr.RegisterIdFctMessage(CodeRegistryFull, func(code liberr.CodeError) string {
		switch code {
		case CodeRegistryFull:
			return "child registry has no free slot"
		case CodeUnknownChild:
			return "no registered child with that pid"
		default:
			return liberr.UnknownMessage
		}
	})
}

// ChildSlot is one fixed-size record in the registry, addressed by index.
// A zero Pid marks the slot free, the scan register_child uses to find
// room for a new child.
type ChildSlot struct {
	Pid     int
	UUID    string
	Servers int
	PipeFD  int

	stats *stats.MemBlock
}

// Totals holds the process-wide counters registry.c keeps outside the
// per-child stats area.
type Totals struct {
	Started int64
	Closed  int64
	Crashed int64
	// HistoryRequests is a running total of requests for exited children.
	// No Registry method updates it: RemoveChild merges the exited child's
	// statistics into History() and leaves this field unchanged.
	HistoryRequests int64
}

// Registry is the child registry. statsTypes and statsFactory let the
// registry size and initialize one MemBlock per slot plus the cumulative
// history block without importing anything about what a particular
// statistics layout looks like beyond the stats package's own types.
type Registry struct {
	mu         sync.Mutex
	slots      []ChildSlot
	statsTypes []stats.Type
	history    *stats.MemBlock
	histograms *stats.HistogramRegistry
	totals     Totals
}

// New builds a Registry with capacity slots, one history MemBlock sized
// for statsTypes.
func New(capacity int, statsTypes []stats.Type) (*Registry, error) {
	history, err := stats.Init(make([]byte, stats.Size(len(statsTypes))), statsTypes)
	if err != nil {
		return nil, err
	}
	return &Registry{
		slots:      make([]ChildSlot, capacity),
		statsTypes: statsTypes,
		history:    history,
	}, nil
}

// RegisterChild scans for an empty slot (Pid == 0), initializes it, and
// returns its index. It does not bump Totals.Started: that happens in
// AnnounceChild, called by the monitor only after the fork/exec actually
// succeeds.
func (r *Registry) RegisterChild(pid int, uuid string, servers, pipeFD int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if r.slots[i].Pid == 0 {
			block, err := stats.Init(make([]byte, stats.Size(len(r.statsTypes))), r.statsTypes)
			if err != nil {
				return 0, err
			}
			r.slots[i] = ChildSlot{Pid: pid, UUID: uuid, Servers: servers, PipeFD: pipeFD, stats: block}
			return i, nil
		}
	}
	return 0, CodeRegistryFull.Error(nil)
}

// AnnounceChild bumps the started-children counter. Called by the monitor
// once it has confirmed the forked/exec'd child is alive.
func (r *Registry) AnnounceChild() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals.Started++
}

// RemoveChild locates pid's slot, merges its statistics into stats_history
// using a closed-count-weighted running mean for mean-typed entries (sums
// for counter/KBS), bumps Closed (and Crashed if crashed is true), and
// zeroes the slot so it can be reused.
func (r *Registry) RemoveChild(pid int, crashed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if r.slots[i].Pid != pid {
			continue
		}
		r.history.Merge(r.slots[i].stats)
		r.totals.Closed++
		if crashed {
			r.totals.Crashed++
		}
		r.slots[i] = ChildSlot{}
		return nil
	}
	return CodeUnknownChild.Error(nil)
}

// Stats returns the live statistics block for pid, or nil if pid is not
// currently registered.
func (r *Registry) Stats(pid int) *stats.MemBlock {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		if r.slots[i].Pid == pid {
			return r.slots[i].stats
		}
	}
	return nil
}

// History returns the cumulative statistics block for every child that has
// ever exited.
func (r *Registry) History() *stats.MemBlock {
	return r.history
}

// Totals returns a snapshot of the registry's process-wide counters, the
// c-icap registry.c started/closed/crashed counters this package exposes
// read-only.
func (r *Registry) Totals() Totals {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totals
}

// Active returns the pid of every currently registered child.
func (r *Registry) Active() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.slots))
	for _, s := range r.slots {
		if s.Pid != 0 {
			out = append(out, s.Pid)
		}
	}
	return out
}

// Capacity returns the maximum number of children the registry can track.
func (r *Registry) Capacity() int {
	return len(r.slots)
}

// Used returns the number of currently registered children.
func (r *Registry) Used() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.slots {
		if s.Pid != 0 {
			n++
		}
	}
	return n
}
