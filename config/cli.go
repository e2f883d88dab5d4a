package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags mirrors spec.md §6's CLI surface, bound onto cmd by BindFlags.
type Flags struct {
	Version        bool // -V
	VersionVerbose bool // -VV
	VersionAll     bool // -VA
	ConfigFile     string
	NoDaemon       bool // -N
	DebugLevel     int  // -d
	DebugStdout    bool // -D
	SingleProcess  bool // -S
	Child          bool // hidden --icapd-child: re-exec'd worker, not a user flag
}

// BindFlags registers every spec.md §6 flag on cmd and returns the Flags
// struct cobra will have populated once cmd.Execute parses argv.
func BindFlags(cmd *cobra.Command) *Flags {
	f := &Flags{}

	cmd.Flags().BoolVarP(&f.Version, "version", "V", false, "print version and exit")
	cmd.Flags().BoolVar(&f.VersionVerbose, "VV", false, "print verbose version info and exit")
	cmd.Flags().BoolVar(&f.VersionAll, "VA", false, "print full version and dependency info and exit")
	cmd.Flags().StringVarP(&f.ConfigFile, "config", "f", "", "config file path")
	cmd.Flags().BoolVarP(&f.NoDaemon, "no-daemon", "N", false, "do not daemonize")
	cmd.Flags().IntVarP(&f.DebugLevel, "debug", "d", 0, "debug verbosity level")
	cmd.Flags().BoolVarP(&f.DebugStdout, "debug-stdout", "D", false, "send debug output to stdout")
	cmd.Flags().BoolVarP(&f.SingleProcess, "single-process", "S", false, "run one child's worker pool in the foreground, no supervisor")
	cmd.Flags().BoolVar(&f.Child, "icapd-child", false, "internal: run as a re-exec'd worker child")
	_ = cmd.Flags().MarkHidden("icapd-child")

	return f
}

// BindViper layers v's config-file/defaults values under cmd's flags, so an
// explicitly passed flag always wins over the config file, which always
// wins over Default().
func BindViper(cmd *cobra.Command, v *viper.Viper) error {
	return v.BindPFlags(cmd.Flags())
}

// ResolveListener applies -S's "run in the foreground" intent on top of a
// loaded Config without requiring the caller to special-case it elsewhere.
func ResolveListener(cfg *Config, f *Flags) *Config {
	if f.SingleProcess {
		cfg.SingleProcess = true
	}
	if f.NoDaemon {
		cfg.NoDaemon = true
	}
	if f.DebugStdout {
		cfg.DebugStdout = true
	}
	if f.DebugLevel > 0 {
		cfg.DebugLevel = f.DebugLevel
	}
	return cfg
}
