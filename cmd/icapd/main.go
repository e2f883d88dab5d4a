// Command icapd is the ICAP adaptation server: a monitor process binds the
// configured listeners and supervises a pool of re-exec'd worker children,
// each running an acceptor per listener and a fixed pool of request
// workers. See config, logger, monitor, and child for the pieces this
// wires together.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/icap-oss/icapd/config"
	"github.com/icap-oss/icapd/logger"
	"github.com/icap-oss/icapd/monitor"
	"github.com/icap-oss/icapd/version"
)

// Stamped by -ldflags at build time; zero values describe an untagged dev
// build.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "icapd",
		Short:        "ICAP adaptation server",
		Long:         "icapd supervises a pool of re-exec'd worker children accepting ICAP/HTTP connections behind one or more listeners.",
		SilenceUsage: true,
	}
	flags := config.BindFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return run(cmd, flags)
	}
	return cmd
}

func buildInfo() *version.Info {
	return version.New(version.License_MIT, "icapd", "ICAP adaptation server",
		buildDate, buildCommit, buildVersion, "ICAP OSS", "ICAPD")
}

func run(cmd *cobra.Command, flags *config.Flags) error {
	info := buildInfo()
	switch {
	case flags.VersionAll:
		info.PrintVersion(os.Stdout, 2)
		return nil
	case flags.VersionVerbose:
		info.PrintVersion(os.Stdout, 1)
		return nil
	case flags.Version:
		info.PrintVersion(os.Stdout, 0)
		return nil
	}

	v, err := config.New(flags.ConfigFile)
	if err != nil {
		return err
	}
	if err := config.BindViper(cmd, v); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = config.ResolveListener(cfg, flags)

	lg, err := logger.InitStandard(logger.Config{
		Level:  logLevel(cfg),
		Stdout: cfg.LogStdout || cfg.DebugStdout,
		File:   cfg.LogFile,
		Syslog: cfg.LogSyslog,
	})
	if err != nil {
		return err
	}
	defer lg.Close()

	switch {
	case flags.Child:
		return runChild(cfg)
	case cfg.SingleProcess:
		return runSingleProcess(cfg)
	default:
		return runMonitor(cfg, flags.ConfigFile)
	}
}

func logLevel(cfg *config.Config) string {
	if cfg.DebugLevel > 0 {
		return "debug"
	}
	return cfg.LogLevel
}

func runMonitor(cfg *config.Config, cfgFile string) error {
	m, err := monitor.New(cfg, nil)
	if err != nil {
		return err
	}
	m.Log = logrus.NewEntry(logrus.StandardLogger())

	if cfgFile != "" {
		fw, err := m.WatchConfigFile(cfgFile)
		if err != nil {
			m.Log.WithError(err).Warn("config file watch failed, SIGHUP remains the only reconfigure trigger")
		} else {
			defer fw.Close()
		}
	}

	return m.Run(context.Background())
}
