// Package monitor implements the supervisor process: it binds the
// configured listeners once, re-execs the running binary as one worker
// child per slot, scales the pool between MinSpareThreads and
// MaxSpareThreads, reaps exited children, and reconfigures the whole pool
// on SIGHUP or a watched config file change. Grounded on runner/startStop
// for its own top-level lifecycle and runner/ticker for the periodic
// supervise tick, both adapted from the teacher's restartable-service
// shape.
package monitor

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/icap-oss/icapd/command"
	"github.com/icap-oss/icapd/config"
	"github.com/icap-oss/icapd/ioutils/fileDescriptor"
	"github.com/icap-oss/icapd/ioutils/mapCloser"
	"github.com/icap-oss/icapd/registry"
	"github.com/icap-oss/icapd/runner/startStop"
	"github.com/icap-oss/icapd/runner/ticker"
	"github.com/icap-oss/icapd/stats"
)

// DefaultStatsTypes lays out the per-child statistics block every
// registered child carries: a request counter, bytes transferred, mean
// request time, and a mean integer quantity for whatever the workers
// decide to sample.
var DefaultStatsTypes = []stats.Type{
	stats.TypeCounter,
	stats.TypeKBS,
	stats.TypeTimeUS,
	stats.TypeIntMean,
}

// DefaultStatsLabels names DefaultStatsTypes' entries in registration
// order, for the "dump_statistics" built-in's text output.
var DefaultStatsLabels = []string{"requests", "bytes", "request_time_us", "mean_value"}

type reapResult struct {
	slot int
	pid  int
	err  error
}

// Monitor is the supervisor process. Build one with New, then run it with
// Run until ctx is cancelled or a fatal signal arrives.
type Monitor struct {
	Config   *config.Config
	Registry *registry.Registry
	Bus      *command.Bus
	Log      *logrus.Entry

	listeners      []*net.TCPListener
	listenerProtos []string

	mu       sync.Mutex
	children map[int]*childProcess
	old      []*childProcess

	pidfile *PIDFile
	fifo    *controlFIFO
	closers mapCloser.Closer
	life    startStop.StartStop
	tick    ticker.Ticker

	reapCh        chan reapResult
	reconfigureCh chan *config.Config
	stopRequested chan struct{}
	stopOnce      sync.Once
}

// New binds every configured listener and builds the child registry.
// Binding happens eagerly so a bad listener address fails startup before
// any child is ever spawned.
func New(cfg *config.Config, bus *command.Bus) (*Monitor, error) {
	specs := make([]listenerSpec, len(cfg.Listeners))
	protos := make([]string, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		specs[i] = listenerSpec{Address: l.Address, Port: l.Port, Protocol: l.Protocol}
		protos[i] = l.Protocol
	}
	listeners, err := bindListeners(specs)
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(cfg.MaxServers, DefaultStatsTypes)
	if err != nil {
		for _, l := range listeners {
			_ = l.Close()
		}
		return nil, err
	}

	if bus == nil {
		bus = command.New()
	}

	fifo, err := newControlFIFO(cfg.ControlFIFO)
	if err != nil {
		for _, l := range listeners {
			_ = l.Close()
		}
		return nil, err
	}

	closers := mapCloser.New(context.Background())
	for _, l := range listeners {
		closers.Add(l)
	}

	m := &Monitor{
		Config:         cfg,
		Registry:       reg,
		Bus:            bus,
		listeners:      listeners,
		listenerProtos: protos,
		children:       make(map[int]*childProcess),
		pidfile:        NewPIDFile(cfg.PIDFile),
		fifo:           fifo,
		closers:        closers,
		reapCh:         make(chan reapResult, 8),
		reconfigureCh:  make(chan *config.Config, 1),
		stopRequested:  make(chan struct{}),
	}
	m.life = startStop.New(m.start, m.stop)

	if err := command.RegisterStop(bus, m.requestShutdown); err != nil {
		return nil, err
	}
	if err := command.RegisterReconfigure(bus, m.requestReconfigure); err != nil {
		return nil, err
	}

	statsLabels := stats.NewRegistry()
	for i, typ := range DefaultStatsTypes {
		statsLabels.Register(DefaultStatsLabels[i], typ, stats.GroupNone)
	}
	if err := command.RegisterDumpStatistics(bus, statsLabels, reg.History(), os.Stdout); err != nil {
		return nil, err
	}
	if err := command.RegisterTest(bus, os.Stdout); err != nil {
		return nil, err
	}
	return m, nil
}

// requestShutdown is the "stop" built-in's StopFunc: it signals Run's main
// select loop the same way a caught SIGTERM does.
func (m *Monitor) requestShutdown() error {
	m.stopOnce.Do(func() { close(m.stopRequested) })
	return nil
}

func (m *Monitor) requestReconfigure() error {
	m.triggerReconfigure(m.Config)
	return nil
}

func (m *Monitor) log() *logrus.Entry {
	if m.Log != nil {
		return m.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Run blocks until ctx is cancelled or SIGTERM/SIGINT arrives, whichever
// comes first, then drains every child before returning.
func (m *Monitor) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := m.life.Start(runCtx); err != nil {
		return err
	}

	for {
		select {
		case <-runCtx.Done():
			_ = m.life.Stop(context.Background())
			return m.life.ErrorsLast()
		case <-m.stopRequested:
			cancel()
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				cancel()
			case syscall.SIGHUP:
				m.log().Info("SIGHUP received, reconfiguring")
				m.triggerReconfigure(m.Config)
			}
		}
	}
}

// start is the supervisor's own StartStop.StartFunc: acquire the pidfile,
// spawn StartServers children, start the periodic tick, and run the main
// event loop (reap results and reconfigure requests) until ctx is
// cancelled.
func (m *Monitor) start(ctx context.Context) error {
	if err := m.pidfile.Acquire(); err != nil {
		return err
	}

	// Every child inherits this process's file descriptor limit across
	// the re-exec, so raising it once here covers the whole pool: one fd
	// per listener plus one control-pipe fd per child, times MaxServers.
	want := (len(m.listeners) + 1) * m.Config.MaxServers
	if cur, max, err := fileDescriptor.SystemFileDescriptor(want); err != nil {
		m.log().WithError(err).Warn("could not raise file descriptor limit")
	} else {
		m.log().WithField("current", cur).WithField("max", max).Debug("file descriptor limit")
	}

	for i := 0; i < m.Config.StartServers; i++ {
		if err := m.spawnAndTrack(); err != nil {
			m.log().WithError(err).Error("initial child spawn failed")
		}
	}

	m.tick = ticker.New(m.Config.SuperviseInterval.Time(), m.onTick)
	if err := m.tick.Start(ctx); err != nil {
		return err
	}

	go m.fifo.run(func(line string) {
		if err := m.Bus.RunLine(line, nil, m.broadcastToChildren); err != nil {
			m.log().WithError(err).WithField("line", line).Warn("control fifo command failed")
		}
	}, m.log())

	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-m.reapCh:
			m.handleReap(r)
		case cfg := <-m.reconfigureCh:
			if err := m.reconfigure(cfg); err != nil {
				m.log().WithError(err).Error("reconfigure failed")
			}
		}
	}
}

// stop terminates every tracked child (current and still-draining old
// ones), waits up to ChildShutdownTimeout for them to exit on their own,
// then releases the pidfile. It folds every per-child failure into one
// *multierror.Error rather than stopping at the first one, so one stuck
// child never hides the rest.
func (m *Monitor) stop(ctx context.Context) error {
	m.fifo.close()

	m.mu.Lock()
	all := make([]*childProcess, 0, len(m.children)+len(m.old))
	for _, c := range m.children {
		all = append(all, c)
	}
	all = append(all, m.old...)
	m.mu.Unlock()

	var result error
	for _, c := range all {
		if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			result = multierror.Append(result, err)
		}
	}

	deadlineCtx, cancel := context.WithTimeout(context.Background(), m.Config.ChildShutdownTimeout.Time())
	defer cancel()

	for _, c := range all {
		select {
		case <-c.done:
		case <-deadlineCtx.Done():
			_ = c.cmd.Process.Kill()
			<-c.done
		}
		_ = c.controlW.Close()
	}

	if err := m.pidfile.Release(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := m.closers.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if result != nil {
		return CodeShutdownFailed.Error(result)
	}
	return nil
}

// onTick is the ticker.TickFunc the periodic supervise interval runs:
// evaluate the scale decision and act on it. Reaping itself happens
// continuously through per-child goroutines feeding reapCh, not here.
func (m *Monitor) onTick(ctx context.Context, _ *time.Ticker) error {
	m.mu.Lock()
	active := len(m.children)
	free := m.freeSpareLocked()
	m.mu.Unlock()

	action := DecideScale(active, m.Config.StartServers, m.Config.MinSpareThreads, m.Config.MaxSpareThreads, m.Config.MaxServers, free)

	if action.Saturated {
		m.log().Warn("server pool saturated at max_servers with no spare capacity")
		return nil
	}
	for i := 0; i < action.Spawn; i++ {
		if err := m.spawnAndTrack(); err != nil {
			m.log().WithError(err).Error("scale-up spawn failed")
		}
	}
	for i := 0; i < action.Kill; i++ {
		m.killOneIdle()
	}
	return nil
}

// freeSpareLocked estimates free worker capacity as ThreadsPerChild times
// the number of currently running children, a process-count proxy that
// counts every worker of every child as free.
func (m *Monitor) freeSpareLocked() int {
	return len(m.children) * m.Config.ThreadsPerChild
}

func (m *Monitor) spawnAndTrack() error {
	c, err := m.spawnChild()
	if err != nil {
		return err
	}

	slot, err := m.Registry.RegisterChild(c.cmd.Process.Pid, c.uuid, m.Config.ThreadsPerChild, 0)
	if err != nil {
		_ = c.cmd.Process.Kill()
		_ = c.controlW.Close()
		return err
	}
	c.slot = slot

	m.mu.Lock()
	m.children[slot] = c
	m.mu.Unlock()
	m.Registry.AnnounceChild()

	go func(c *childProcess) {
		err := c.cmd.Wait()
		close(c.done)
		m.reapCh <- reapResult{slot: c.slot, pid: c.cmd.Process.Pid, err: err}
	}(c)

	m.log().WithField("uuid", c.uuid).WithField("slot", slot).Info("child started")
	return nil
}

// killOneIdle retires one current child by sending it a graceful SIGTERM;
// it is reaped normally through handleReap once it exits.
func (m *Monitor) killOneIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.children {
		_ = c.cmd.Process.Signal(syscall.SIGTERM)
		return
	}
}

func (m *Monitor) handleReap(r reapResult) {
	crashed := r.err != nil

	var reaped *childProcess
	m.mu.Lock()
	if c, ok := m.children[r.slot]; ok {
		reaped = c
		delete(m.children, r.slot)
	} else {
		for i, c := range m.old {
			if c.slot == r.slot {
				reaped = c
				m.old = append(m.old[:i], m.old[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if err := m.Registry.RemoveChild(r.pid, crashed); err != nil {
		m.log().WithError(err).Warn("reap: unknown child pid")
	}

	log := m.log().WithField("pid", r.pid).WithField("crashed", crashed)
	if reaped != nil {
		log = log.WithField("uptime", time.Since(reaped.startedAt))
	}
	if crashed {
		log.Warn("child exited abnormally")
	} else {
		log.Info("child exited")
	}
}

// broadcastToChildren writes line to every running child's control pipe,
// the Bus.RunLine broadcastFn for commands carrying the Children
// capability.
func (m *Monitor) broadcastToChildren(line string) error {
	m.mu.Lock()
	children := make([]*childProcess, 0, len(m.children))
	for _, c := range m.children {
		children = append(children, c)
	}
	m.mu.Unlock()

	var result error
	for _, c := range children {
		if _, err := c.controlW.WriteString(line + "\n"); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Active returns the pid of every currently running child, a thin
// pass-through used by tests and by the status-reporting command.
func (m *Monitor) Active() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(m.children))
	for _, c := range m.children {
		out = append(out, c.cmd.Process.Pid)
	}
	return out
}
