package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vexec/config"
)

func newServeMetricsCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Expose Prometheus metrics over HTTP",
		Long: `Serve the process metrics registry on metrics.listen_addr.

Endpoints:
  GET /metrics  - Prometheus text format
  GET /healthz  - liveness probe`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.runtime(cmd, func(c *config.File) {
				c.Metrics.Enabled = true
				if listen != "" {
					c.Metrics.ListenAddr = listen
				}
			})
			if err != nil {
				return err
			}
			handler, err := rt.MetricsHandler()
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              rt.Config().Metrics.ListenAddr,
				Handler:           metricsMux(handler),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			rt.Logger().Info("serving metrics", "addr", srv.Addr)
			fmt.Fprintf(cmd.OutOrStdout(), "serving metrics on %s\n", srv.Addr)

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override metrics.listen_addr")
	return cmd
}

func metricsMux(metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
