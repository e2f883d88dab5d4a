package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/icap-oss/icapd/child"
	"github.com/icap-oss/icapd/command"
	"github.com/icap-oss/icapd/config"
	"github.com/icap-oss/icapd/ipc/mutex"
	"github.com/icap-oss/icapd/queue"
)

// runChild reconstitutes one worker child from the file descriptors and
// environment the monitor's re-exec left behind: one listener per
// configured ListenerSpec (fds 3..3+N-1, tagged with the matching protocol
// from ICAPD_LISTENER_PROTOCOLS), then the control-pipe read end at fd
// 3+N. Every acceptor shares one connection queue and worker pool, the
// same way multiple listeners share one registry slot.
func runChild(cfg *config.Config) error {
	listenerCount, _ := strconv.Atoi(os.Getenv("ICAPD_LISTENER_COUNT"))
	protocols := strings.Split(os.Getenv("ICAPD_LISTENER_PROTOCOLS"), ",")
	threads, _ := strconv.Atoi(os.Getenv("ICAPD_THREADS_PER_CHILD"))
	if threads <= 0 {
		threads = cfg.ThreadsPerChild
	}
	uuid := os.Getenv("ICAPD_CHILD_UUID")

	log := logrus.NewEntry(logrus.StandardLogger()).WithField("child_uuid", uuid)

	scheme, err := acceptMutexScheme(cfg.AcceptMutexScheme)
	if err != nil {
		return err
	}
	acceptMutex, err := mutex.New(scheme, cfg.AcceptMutexName)
	if err != nil {
		return fmt.Errorf("accept mutex init: %w", err)
	}

	term := &child.Termination{}
	free := int32(threads)
	var used int32
	var condMu sync.Mutex
	freeCond := sync.NewCond(&condMu)
	q := queue.New(threads * 4)

	acceptors := make([]*child.Acceptor, 0, listenerCount)
	for i := 0; i < listenerCount; i++ {
		f := os.NewFile(uintptr(3+i), fmt.Sprintf("icapd-listener-%d", i))
		ln, err := net.FileListener(f)
		if err != nil {
			return fmt.Errorf("reconstitute listener %d: %w", i, err)
		}
		_ = f.Close()

		proto := queue.ProtoICAP
		if i < len(protocols) && protocols[i] == "http" {
			proto = queue.ProtoHTTP
		}

		acceptors = append(acceptors, &child.Acceptor{
			Listener:       ln,
			AcceptMutex:    acceptMutex,
			Queue:          q,
			Proto:          proto,
			Term:           term,
			FreeServers:    &free,
			FreeServerCond: freeCond,
			Log:            log,
		})
	}

	workers := make([]*child.Worker, 0, threads)
	for i := 0; i < threads; i++ {
		workers = append(workers, &child.Worker{
			Queue:                          q,
			Term:                           term,
			Handler:                        serveICAP,
			NewRequest:                     newICAPRequest,
			MaxKeepAliveRequests:           child.DefaultMaxKeepAliveRequests,
			KeepAliveTimeout:               child.DefaultKeepAliveTimeout,
			RequestsBeforeReallocateMemory: cfg.MaxRequestsPerChild,
			UsedServers:                    &used,
			FreeServers:                    &free,
			FreeServerCond:                 freeCond,
			Log:                            log,
		})
	}

	bus := command.New()
	if err := registerLifecycleCommands(bus, cfg, log); err != nil {
		return err
	}
	c := child.NewChild(term, acceptors, workers)
	c.Bus = bus
	c.Log = log
	c.ShutdownTimeout = cfg.ChildShutdownTimeout.Time()

	controlPipe := os.NewFile(uintptr(3+listenerCount), "icapd-control")
	go watchControlPipe(controlPipe, bus, c, log)

	c.Start()
	c.Wait()
	return nil
}

// registerLifecycleCommands wires cfg's CHILD_START_CMD/CHILD_STOP_CMD
// shell commands onto bus's ChildStart/ChildStop capabilities, the
// command-bus equivalent of spec.md §4.13 steps 5 and 9. Either may be
// empty, in which case that lifecycle point simply runs nothing.
func registerLifecycleCommands(bus *command.Bus, cfg *config.Config, log *logrus.Entry) error {
	if cfg.ChildStartCmd != "" {
		if err := bus.Register(command.Command{
			Name:         "child_start_cmd",
			Capabilities: command.ChildStart,
			Handler: func(argv []string, userData any) error {
				return runShellCmd(cfg.ChildStartCmd, log)
			},
		}); err != nil {
			return err
		}
	}
	if cfg.ChildStopCmd != "" {
		if err := bus.Register(command.Command{
			Name:         "child_stop_cmd",
			Capabilities: command.ChildStop,
			Handler: func(argv []string, userData any) error {
				return runShellCmd(cfg.ChildStopCmd, log)
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

func runShellCmd(line string, log *logrus.Entry) error {
	cmd := exec.Command("/bin/sh", "-c", line)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		log.WithField("output", string(out)).Debug("lifecycle command output")
	}
	return err
}

func acceptMutexScheme(name string) (mutex.Scheme, error) {
	switch name {
	case "posix":
		return mutex.SchemePosixSem, nil
	case "sysv":
		return mutex.SchemeSysVSem, nil
	case "flock", "":
		return mutex.SchemeFlock, nil
	default:
		return 0, fmt.Errorf("unknown accept_mutex_scheme %q", name)
	}
}

// watchControlPipe reads one command line per read off the monitor's
// control pipe and runs it through the child-side half of the command
// bus. EOF means the monitor is gone, so the child terminates immediately
// rather than waiting indefinitely for a parent that will never come back.
func watchControlPipe(f *os.File, bus *command.Bus, c *child.Child, log *logrus.Entry) {
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := bus.RunChildLine(line, nil); err != nil {
			log.WithError(err).WithField("line", line).Warn("control pipe command failed")
		}
	}

	log.Warn("control pipe closed, parent monitor is gone")
	c.Stop(child.TerminationImmediately)
}
