package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcp-gateway/toolkit/internal/configsrc"
	"github.com/mcp-gateway/toolkit/internal/gwruntime"
	"github.com/mcp-gateway/toolkit/internal/httpgw"
	"github.com/mcp-gateway/toolkit/internal/logs"
	"github.com/mcp-gateway/toolkit/internal/manager"
	"github.com/mcp-gateway/toolkit/internal/pipeline"
	"github.com/mcp-gateway/toolkit/internal/session"
	"github.com/mcp-gateway/toolkit/internal/telemetry"
)

func logsSetup(cfg *configsrc.Config) (*zap.Logger, error) {
	if cfg.Logging != nil {
		return logs.SetupLogger(cfg.Logging)
	}
	return logs.SetupLogger(logs.DefaultLogConfig())
}

func newServeCmd() *cobra.Command {
	var configPath string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP call surface backed by the configured upstream servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configsrc.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := logsSetup(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			specs := cfg.ServerSpecs()
			if len(specs) == 0 {
				return fmt.Errorf("no enabled mcpServers in config")
			}

			mgr := manager.New(manager.Options{
				Max: 64,
				TTL: 30 * time.Minute,
				Factory: func(ctx context.Context, _ manager.Identity, req manager.Request) (session.Session, error) {
					spec, ok := specs[req.ServerName]
					if !ok {
						return nil, fmt.Errorf("unknown server %q", req.ServerName)
					}
					return session.Connect(ctx, spec)
				},
			})

			opts := gwruntime.DefaultOptions()
			opts.Manager = mgr

			rec := telemetry.New(prometheus.DefaultRegisterer, "gatewayd", "adapter")
			opts.Pipeline = gwruntime.PipelineOptions{Trace: pipeline.TraceOptions{
				Enabled: true, Collect: true, Sink: rec.TraceSink(),
			}}

			rt, err := gwruntime.New(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("build runtime: %w", err)
			}
			defer rt.Close()

			gw := httpgw.New(rt, logger)

			mux := http.NewServeMux()
			mux.Handle("/", gw)
			if metricsAddr == "" {
				mux.Handle("/metrics", promhttp.Handler())
			}

			srv := &http.Server{Addr: cfg.Listen, Handler: mux}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			logger.Info("gateway listening", zap.String("addr", cfg.Listen))

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					return err
				}
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if rec != nil {
				_ = rec.Shutdown(shutdownCtx)
			}
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file path (json or toml)")
	cmd.Flags().StringVar(&metricsAddr, "no-metrics", "", "set to any value to disable the built-in /metrics route")
	return cmd
}
