package monitor

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// childProcess tracks one re-exec'd worker the monitor is supervising: the
// *exec.Cmd, its slot in the registry, the control-pipe write end the
// monitor uses to push command-bus lines, and the channel its reap
// goroutine reports on.
type childProcess struct {
	cmd       *exec.Cmd
	uuid      string
	slot      int
	controlW  *os.File
	startedAt time.Time
	// done closes once cmd.Wait (called exactly once, by spawnAndTrack's
	// reap goroutine) returns, so other goroutines can observe exit
	// without racing a second Wait call.
	done chan struct{}
}

// bindListeners opens one TCP listener per configured ListenerSpec. They
// are bound once by the monitor and handed to every re-exec'd child via
// inherited file descriptors, so a reconfigure that leaves the listener
// set unchanged never has to close and rebind a socket still accepting
// connections.
func bindListeners(specs []listenerSpec) ([]*net.TCPListener, error) {
	out := make([]*net.TCPListener, 0, len(specs))
	for _, s := range specs {
		addr := net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
		l, err := net.Listen("tcp", addr)
		if err != nil {
			for _, already := range out {
				_ = already.Close()
			}
			return nil, CodeListenFailed.Error(err)
		}
		tl, ok := l.(*net.TCPListener)
		if !ok {
			_ = l.Close()
			return nil, CodeListenFailed.Error(fmt.Errorf("%s: not a TCP listener", addr))
		}
		out = append(out, tl)
	}
	return out, nil
}

// listenerSpec is the subset of config.ListenerSpec spawn.go needs,
// decoupled from the config package so this file can be exercised without
// constructing a full config.Config.
type listenerSpec struct {
	Address, Protocol string
	Port              int
}

// spawnChild re-execs the running binary as a worker: it inherits one
// *os.File per bound listener plus a control-pipe read end, and carries
// its identity in the environment rather than on the command line so a
// `ps` listing never leaks internal bookkeeping. The registry slot is
// assigned by the caller once the real pid is known, after Start returns.
func (m *Monitor) spawnChild() (*childProcess, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, CodeSpawnFailed.Error(err)
	}

	pipeR, pipeW, err := os.Pipe()
	if err != nil {
		return nil, CodeSpawnFailed.Error(err)
	}

	listenerFiles, err := m.listenerFiles()
	if err != nil {
		_ = pipeR.Close()
		_ = pipeW.Close()
		return nil, err
	}

	id := uuid.NewString()

	cmd := exec.Command(exe, "--icapd-child")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = append(listenerFiles, pipeR)
	cmd.Env = append(os.Environ(),
		"ICAPD_CHILD_UUID="+id,
		"ICAPD_LISTENER_COUNT="+strconv.Itoa(len(listenerFiles)),
		"ICAPD_LISTENER_PROTOCOLS="+strings.Join(m.listenerProtos, ","),
		"ICAPD_THREADS_PER_CHILD="+strconv.Itoa(m.Config.ThreadsPerChild),
	)

	if err := cmd.Start(); err != nil {
		_ = pipeR.Close()
		_ = pipeW.Close()
		for _, f := range listenerFiles {
			_ = f.Close()
		}
		return nil, CodeSpawnFailed.Error(err)
	}

	// The monitor's own copies of the inherited ends are no longer needed
	// once the child has them; only pipeW (the monitor's write end of the
	// control pipe) stays open.
	_ = pipeR.Close()
	for _, f := range listenerFiles {
		_ = f.Close()
	}

	return &childProcess{
		cmd:       cmd,
		uuid:      id,
		controlW:  pipeW,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}, nil
}

// listenerFiles dups every bound listener's file descriptor into an
// *os.File suitable for exec.Cmd.ExtraFiles. Listener.File() already
// returns a blocking dup the child owns independently of the parent's
// *net.TCPListener, matching the fd-passing half of the re-exec model.
func (m *Monitor) listenerFiles() ([]*os.File, error) {
	files := make([]*os.File, 0, len(m.listeners))
	for _, l := range m.listeners {
		f, err := l.File()
		if err != nil {
			for _, already := range files {
				_ = already.Close()
			}
			return nil, CodeSpawnFailed.Error(err)
		}
		files = append(files, f)
	}
	return files, nil
}
