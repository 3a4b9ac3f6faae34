package main

import (
	"time"

	"github.com/spf13/cobra"
)

// GlobalFlags holds persistent flags shared by all subcommands.
type GlobalFlags struct {
	ConfigPath string
}

// ServiceFlags holds per-service flags used when no config file is given.
type ServiceFlags struct {
	Name         string
	Command      string
	WorkDir      string
	User         string
	Group        string
	PIDFile      string
	Env          []string
	StopSignal   string
	ReloadSignal string
	StopTimeout  time.Duration
	KillTimeout  time.Duration
	StartupGrace time.Duration
	ChildLogDir  string
	StoreDSN     string
}

// ServeFlags holds flags for the serve subcommand.
type ServeFlags struct {
	Listen   string
	BasePath string
}

func (f *ServiceFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "service name")
	fl.StringVar(&f.Command, "command", "", "command line to launch")
	fl.StringVar(&f.WorkDir, "workdir", "", "working directory for the service")
	fl.StringVar(&f.User, "user", "", "run-as user")
	fl.StringVar(&f.Group, "group", "", "run-as group (requires --user)")
	fl.StringVar(&f.PIDFile, "pidfile", "", "PID file path")
	fl.StringArrayVar(&f.Env, "env", nil, "extra KEY=VALUE environment entries")
	fl.StringVar(&f.StopSignal, "stop-signal", "", "graceful stop signal (default TERM)")
	fl.StringVar(&f.ReloadSignal, "reload-signal", "", "reload signal (default HUP)")
	fl.DurationVar(&f.StopTimeout, "stop-timeout", 0, "graceful stop window (default 30s)")
	fl.DurationVar(&f.KillTimeout, "kill-timeout", 0, "forceful stop window, applied twice (default 5s)")
	fl.DurationVar(&f.StartupGrace, "startup-grace", 0, "post-launch liveness window (default 1s)")
	fl.StringVar(&f.ChildLogDir, "log-dir", "", "directory for the service's stdout/stderr logs")
	fl.StringVar(&f.StoreDSN, "store-dsn", "", "lifecycle event store DSN (sqlite path or postgres URL)")
}

func (f *ServeFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.Listen, "listen", "127.0.0.1:9822", "HTTP listen address")
	fl.StringVar(&f.BasePath, "base-path", "/api", "base path for lifecycle endpoints")
}
