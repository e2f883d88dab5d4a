package command

import (
	"sync"

	liberr "github.com/icap-oss/icapd/errors"
)

// Capability is the flag set a registered Command carries, mirroring
// c-icap's MONITOR_PROC_CMD/CHILDS_PROC_CMD/... bitmask.
type Capability uint

const (
	// Monitor marks a command runnable locally by the monitor process.
	Monitor Capability = 1 << iota
	// Children marks a command the monitor broadcasts down every
	// child's control pipe after running any Monitor-side handler.
	Children
	// PostMonitor marks a callback the monitor runs after broadcasting
	// to children, e.g. to log that a broadcast completed.
	PostMonitor
	// ChildStart runs directly in a child on spawn, before the acceptor
	// is signaled to start.
	ChildStart
	// ChildStop runs directly in a child just before it exits.
	ChildStop
	// OnDemand marks a command only ever fired through the scheduled
	// queue, never dispatched from the control FIFO directly.
	OnDemand
	// ChildCleanup runs on the monitor after a child has been reaped.
	ChildCleanup
)

func (c Capability) Has(bit Capability) bool { return c&bit != 0 }

// Handler runs a command's parsed argv. userData is whatever the caller
// passed to Dispatch or the scheduled queue; most built-ins ignore it.
type Handler func(argv []string, userData any) error

// Command is one registered command descriptor.
type Command struct {
	Name         string
	Capabilities Capability
	Handler      Handler
}

const (
	CodeUnknownCommand liberr.CodeError = liberr.MinPkgCommand + iota
	CodeDuplicateCommand
)

func init() {
	liberr.RegisterIdFctMessage(CodeUnknownCommand, func(code liberr.CodeError) string {
		switch code {
		case CodeUnknownCommand:
			return "unknown command"
		case CodeDuplicateCommand:
			return "command already registered"
		default:
			return liberr.UnknownMessage
		}
	})
}

// Bus is the process-wide command list plus the scheduled-future queue.
// Every mutation is mutex-protected, matching the spec's "registration is
// mutex-protected" requirement.
type Bus struct {
	mu        sync.Mutex
	byName    map[string]*Command
	scheduled []scheduledCommand
}

type scheduledCommand struct {
	name     string
	fireAt   int64
	userData any
}

func New() *Bus {
	return &Bus{byName: make(map[string]*Command)}
}

// Register adds cmd to the bus. Re-registering an existing name fails with
// CodeDuplicateCommand.
func (b *Bus) Register(cmd Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byName[cmd.Name]; ok {
		return CodeDuplicateCommand.Error(nil)
	}
	c := cmd
	b.byName[cmd.Name] = &c
	return nil
}

func (b *Bus) lookup(name string) (*Command, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.byName[name]
	return c, ok
}

// Schedule adds (name, userData) to fire at fireAt, a monotonic-clock-style
// timestamp the caller chooses a comparison unit for (unix seconds, a tick
// counter, whatever the monitor's clock source is).
func (b *Bus) Schedule(name string, fireAt int64, userData any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scheduled = append(b.scheduled, scheduledCommand{name: name, fireAt: fireAt, userData: userData})
}

// ExecScheduled fires every scheduled command whose fireAt < now and
// removes it from the queue, the equivalent of commands_exec_scheduled.
func (b *Bus) ExecScheduled(now int64) []error {
	b.mu.Lock()
	var due []scheduledCommand
	var remaining []scheduledCommand
	for _, s := range b.scheduled {
		if s.fireAt < now {
			due = append(due, s)
		} else {
			remaining = append(remaining, s)
		}
	}
	b.scheduled = remaining
	b.mu.Unlock()

	var errs []error
	for _, s := range due {
		cmd, ok := b.lookup(s.name)
		if !ok {
			errs = append(errs, CodeUnknownCommand.Error(nil))
			continue
		}
		if cmd.Handler != nil {
			if err := cmd.Handler(nil, s.userData); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// RunLine parses line with Tokenize and dispatches the resulting command by
// name, honoring the Monitor/Children/PostMonitor capability flags: the
// local handler runs first (if the command carries Monitor), broadcast is
// left to the caller (broadcastFn, typically one that writes the raw line
// to every child's pipe) when the command carries Children, and the same
// Handler runs again last when the command carries PostMonitor.
func (b *Bus) RunLine(line string, userData any, broadcastFn func(line string) error) error {
	argv := Tokenize(line)
	if len(argv) == 0 {
		return nil
	}
	cmd, ok := b.lookup(argv[0])
	if !ok {
		return CodeUnknownCommand.Error(nil)
	}

	if cmd.Capabilities.Has(Monitor) && cmd.Handler != nil {
		if err := cmd.Handler(argv, userData); err != nil {
			return err
		}
	}
	if cmd.Capabilities.Has(Children) && broadcastFn != nil {
		if err := broadcastFn(line); err != nil {
			return err
		}
	}
	if cmd.Capabilities.Has(PostMonitor) && cmd.Handler != nil {
		return cmd.Handler(argv, userData)
	}
	return nil
}

// RunChildLine is the child-side counterpart of RunLine: it looks up the
// command read off the control pipe and, if the command carries Children,
// runs it.
func (b *Bus) RunChildLine(line string, userData any) error {
	argv := Tokenize(line)
	if len(argv) == 0 {
		return nil
	}
	cmd, ok := b.lookup(argv[0])
	if !ok {
		return CodeUnknownCommand.Error(nil)
	}
	if cmd.Capabilities.Has(Children) && cmd.Handler != nil {
		return cmd.Handler(argv, userData)
	}
	return nil
}

// RunByCapability runs every registered command carrying bit, ignoring
// commands without one (used for ChildStart/ChildStop/ChildCleanup
// lifecycle sweeps). The commands are collected from the name map, so the
// order in which they run is not defined and is not registration order.
func (b *Bus) RunByCapability(bit Capability, argv []string, userData any) []error {
	b.mu.Lock()
	cmds := make([]*Command, 0, len(b.byName))
	for _, c := range b.byName {
		if c.Capabilities.Has(bit) {
			cmds = append(cmds, c)
		}
	}
	b.mu.Unlock()

	var errs []error
	for _, c := range cmds {
		if c.Handler == nil {
			continue
		}
		if err := c.Handler(argv, userData); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
