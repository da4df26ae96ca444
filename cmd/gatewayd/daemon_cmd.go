package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcp-gateway/toolkit/internal/daemon"
	"github.com/mcp-gateway/toolkit/internal/logs"
	"github.com/mcp-gateway/toolkit/internal/session"
)

func connectUpstream(ctx context.Context, spec session.ServerSpec) (session.Session, error) {
	return session.Connect(ctx, spec)
}

func newDaemonCmd() *cobra.Command {
	daemonCmd := &cobra.Command{Use: "daemon", Short: "stateful session daemon"}

	var dir string
	var logLevel string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the stateful daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logs.SetupCommandLogger(true, logLevel, false, "")
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			defer logger.Sync()

			if dir == "" {
				dir, err = daemon.SessionsDir()
				if err != nil {
					return fmt.Errorf("resolve sessions dir: %w", err)
				}
			}

			srv, err := daemon.ListenWithOptions(daemon.ListenOptions{
				Config:    daemon.DefaultConfig(),
				Dir:       dir,
				Logger:    logger,
				Connector: connectUpstream,
			})
			if err != nil {
				return fmt.Errorf("start daemon listener: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logger.Info("daemon listening", zap.String("endpoint", srv.Endpoint()))
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ctx) }()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					logger.Error("daemon serve failed", zap.Error(err))
				}
			}
			return srv.Close()
		},
	}
	serveCmd.Flags().StringVar(&dir, "dir", "", "sessions directory (default: daemon.SessionsDir())")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "log level override")

	daemonCmd.AddCommand(serveCmd)
	return daemonCmd
}
