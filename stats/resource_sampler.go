package stats

import (
	"github.com/ja7ad/consumption/pkg/system/proc"
)

// ResourceSampler feeds each child's /proc/<pid>/stat CPU ticks and minor
// page faults into two registered int-mean entries every time Sample is
// called, supplementing the request/connection counters the spec names
// with real OS resource usage per the statistics "registered shared blobs"
// extension point.
type ResourceSampler struct {
	registry *Registry
	cpuID    int
	minfltID int
}

// NewResourceSampler registers the "child.cpu_ticks" and
// "child.minor_faults" entries under the given group and returns a sampler
// ready to feed them from a child's MemBlock.
func NewResourceSampler(r *Registry, group GroupID) *ResourceSampler {
	return &ResourceSampler{
		registry: r,
		cpuID:    r.Register("child.cpu_ticks", TypeIntMean, group),
		minfltID: r.Register("child.minor_faults", TypeIntMean, group),
	}
}

// Sample reads /proc/<pid>/stat for the given child and records a new
// sample into block's cpu-ticks and minor-fault entries. A read failure
// (the child already exited, or /proc is unavailable) is silently
// skipped: resource sampling is best-effort observability, never a
// correctness dependency.
func (s *ResourceSampler) Sample(block *MemBlock, pid int) {
	utime, stime, minflt, _, err := proc.ReadProcStat(pid)
	if err != nil {
		return
	}
	block.SetMean(s.cpuID, utime+stime)
	block.SetMean(s.minfltID, minflt)
}
