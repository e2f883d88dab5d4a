package command

import (
	"fmt"
	"io"

	"github.com/icap-oss/icapd/stats"
)

// StopFunc is supplied by the monitor to actually begin shutdown; the
// "stop" built-in just calls it.
type StopFunc func() error

// RegisterStop adds the "stop" built-in, which triggers the monitor's
// termination sequence.
func RegisterStop(b *Bus, stop StopFunc) error {
	return b.Register(Command{
		Name:         "stop",
		Capabilities: Monitor,
		Handler: func(argv []string, userData any) error {
			return stop()
		},
	})
}

// ReconfigureFunc is supplied by the monitor to re-parse config and roll
// children; the "reconfigure" built-in just calls it.
type ReconfigureFunc func() error

// RegisterReconfigure adds the "reconfigure" built-in.
func RegisterReconfigure(b *Bus, reconfigure ReconfigureFunc) error {
	return b.Register(Command{
		Name:         "reconfigure",
		Capabilities: Monitor,
		Handler: func(argv []string, userData any) error {
			return reconfigure()
		},
	})
}

// RegisterDumpStatistics adds the "dump_statistics" built-in, which
// formats a live MemBlock as plain text down the control FIFO, the Go
// equivalent of commands.c's text dump.
func RegisterDumpStatistics(b *Bus, registry *stats.Registry, block *stats.MemBlock, w io.Writer) error {
	return b.Register(Command{
		Name:         "dump_statistics",
		Capabilities: Monitor,
		Handler: func(argv []string, userData any) error {
			var err error
			registry.Iterate(func(id int, label string, typ stats.Type, group stats.GroupID) {
				if err != nil {
					return
				}
				switch typ {
				case stats.TypeCounter:
					_, err = fmt.Fprintf(w, "%s: %d\n", label, block.GetCounter(id))
				case stats.TypeKBS:
					kb, rem := block.KBS(id)
					_, err = fmt.Fprintf(w, "%s: %dKB+%dB\n", label, kb, rem)
				case stats.TypeTimeUS, stats.TypeTimeMS, stats.TypeIntMean:
					mean, samples := block.Mean(id)
					_, err = fmt.Fprintf(w, "%s: mean=%d samples=%d\n", label, mean, samples)
				}
			})
			return err
		},
	})
}

// RegisterTest adds the "test" diagnostic echo built-in: it writes its
// argv back to w, unchanged save for the command name itself.
func RegisterTest(b *Bus, w io.Writer) error {
	return b.Register(Command{
		Name:         "test",
		Capabilities: Monitor,
		Handler: func(argv []string, userData any) error {
			_, err := fmt.Fprintf(w, "test: %v\n", argv[1:])
			return err
		},
	})
}
