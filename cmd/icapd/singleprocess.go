package main

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/icap-oss/icapd/child"
	"github.com/icap-oss/icapd/command"
	"github.com/icap-oss/icapd/config"
	"github.com/icap-oss/icapd/ipc/mutex"
	"github.com/icap-oss/icapd/queue"
)

// runSingleProcess answers -S: one child's worker pool runs directly in
// the foreground, binding the configured listeners itself instead of
// inheriting them from a re-exec'd monitor. There is exactly one process
// and one accept mutex holder by construction, so the mutex scheme is
// still honored (a second icapd instance pointed at the same
// accept_mutex_name would still serialize correctly) but never actually
// contended.
func runSingleProcess(cfg *config.Config) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	scheme, err := acceptMutexScheme(cfg.AcceptMutexScheme)
	if err != nil {
		return err
	}
	acceptMutex, err := mutex.New(scheme, cfg.AcceptMutexName)
	if err != nil {
		return fmt.Errorf("accept mutex init: %w", err)
	}

	term := &child.Termination{}
	free := int32(cfg.ThreadsPerChild)
	var used int32
	var condMu sync.Mutex
	freeCond := sync.NewCond(&condMu)
	q := queue.New(cfg.ThreadsPerChild * 4)

	acceptors := make([]*child.Acceptor, 0, len(cfg.Listeners))
	for _, l := range cfg.Listeners {
		ln, err := net.Listen("tcp", net.JoinHostPort(l.Address, strconv.Itoa(l.Port)))
		if err != nil {
			return fmt.Errorf("listen %s: %w", l, err)
		}

		proto := queue.ProtoICAP
		if l.Protocol == "http" {
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

	workers := make([]*child.Worker, 0, cfg.ThreadsPerChild)
	for i := 0; i < cfg.ThreadsPerChild; i++ {
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

	c.Start()
	c.Wait()
	return nil
}
