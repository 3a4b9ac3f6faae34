//go:build !windows

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/supervisr"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.msg != "" {
				_, _ = fmt.Fprintln(os.Stderr, ee.msg)
			}
			os.Exit(ee.code)
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	serviceFlags := &ServiceFlags{}
	serveFlags := &ServeFlags{}

	root := &cobra.Command{
		Use:           "supervisr",
		Short:         "Single-instance process supervisor",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Supervisr owns the lifecycle of one named, long-running service tracked
through a PID file: race-free start, stop with signal escalation, restart,
status and reload.

Examples:
  supervisr start --name=ludolph --command="/usr/bin/ludolph" --pidfile=/run/ludolph/ludolph.pid
  supervisr status --config=/etc/supervisr/ludolph.toml
  supervisr serve --config=/etc/supervisr/ludolph.toml   # status HTTP + metrics`,
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file")

	root.AddCommand(
		createStartCommand(globalFlags, serviceFlags),
		createStopCommand(globalFlags, serviceFlags),
		createRestartCommand(globalFlags, serviceFlags),
		createStatusCommand(globalFlags, serviceFlags),
		createReloadCommand(globalFlags, serviceFlags),
		createServeCommand(globalFlags, serviceFlags, serveFlags),
	)
	return root
}

func createStartCommand(g *GlobalFlags, f *ServiceFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the service unless it is already running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(g, f, false, func(ctx context.Context, sup *supervisr.Supervisor) supervisr.Result {
				return sup.Start(ctx)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func createStopCommand(g *GlobalFlags, f *ServiceFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the service, escalating to SIGKILL after the graceful window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(g, f, false, func(ctx context.Context, sup *supervisr.Supervisor) supervisr.Result {
				return sup.Stop(ctx)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func createRestartCommand(g *GlobalFlags, f *ServiceFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop then start the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(g, f, false, func(ctx context.Context, sup *supervisr.Supervisor) supervisr.Result {
				return sup.Restart(ctx)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func createStatusCommand(g *GlobalFlags, f *ServiceFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the service is running (exit 3 when it is not)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(g, f, true, func(ctx context.Context, sup *supervisr.Supervisor) supervisr.Result {
				return sup.Status()
			})
		},
	}
	f.register(cmd)
	return cmd
}

func createReloadCommand(g *GlobalFlags, f *ServiceFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Signal the service to reload its own configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(g, f, false, func(ctx context.Context, sup *supervisr.Supervisor) supervisr.Result {
				return sup.Reload()
			})
		},
	}
	f.register(cmd)
	return cmd
}

func createServeCommand(g *GlobalFlags, f *ServiceFlags, sf *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose status, lifecycle and metrics endpoints over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, err := buildSupervisor(g, f)
			if err != nil {
				return err
			}
			if err := supervisr.RegisterMetricsDefault(); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}

			listen, basePath := sf.Listen, sf.BasePath
			if g.ConfigPath != "" {
				if fc, err := supervisr.LoadConfig(g.ConfigPath); err == nil && fc.Server.Listen != "" {
					listen = fc.Server.Listen
					if fc.Server.BasePath != "" {
						basePath = fc.Server.BasePath
					}
				}
			}

			srv := supervisr.NewHTTPServer(listen, basePath, sup)
			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			fmt.Printf("listening on %s\n", listen)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-sigCh:
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	f.register(cmd)
	sf.register(cmd)
	return cmd
}
