package monitor

import (
	"bufio"
	"os"
	"syscall"

	"github.com/sirupsen/logrus"
)

// controlFIFO is the monitor's named-pipe command input: open for reading
// in a loop, since a FIFO delivers EOF every time its last writer closes
// and must be reopened to accept the next one.
type controlFIFO struct {
	path string
	done chan struct{}
}

// newControlFIFO creates path as a named pipe if it does not already
// exist. An empty path disables the FIFO entirely.
func newControlFIFO(path string) (*controlFIFO, error) {
	if path == "" {
		return &controlFIFO{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := syscall.Mkfifo(path, 0600); err != nil {
			return nil, CodeFIFOCreate.Error(err)
		}
	}
	return &controlFIFO{path: path, done: make(chan struct{})}, nil
}

// run reads lines from the FIFO until closed, dispatching each through
// onLine. It blocks, so the caller runs it in its own goroutine.
func (f *controlFIFO) run(onLine func(line string), log *logrus.Entry) {
	if f.path == "" {
		return
	}
	for {
		select {
		case <-f.done:
			return
		default:
		}

		file, err := os.OpenFile(f.path, os.O_RDONLY, os.ModeNamedPipe)
		if err != nil {
			log.WithError(CodeFIFOOpen.Error(err)).Warn("control fifo open failed")
			return
		}

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := scanner.Text()
			if line != "" {
				onLine(line)
			}
		}
		_ = file.Close()
	}
}

// close unblocks run's next reopen attempt by signaling done; since the
// blocking half of run is the open() and Scan() calls rather than a
// select, a stuck open on an unwritten FIFO only unblocks on the next
// writer (or process exit), a known, documented limitation of FIFO-based
// control channels.
func (f *controlFIFO) close() {
	if f.done == nil {
		return
	}
	select {
	case <-f.done:
	default:
		close(f.done)
	}
}
