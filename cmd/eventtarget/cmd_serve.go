package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/eventtarget/config"
	"github.com/shashiranjanraj/eventtarget/internal/server"
)

var serveAddr string

// eventtarget serve — expose /metrics and /healthz.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve Prometheus metrics and a health check",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = config.MetricsAddr()
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("📈 Metrics on %s/metrics. Press Ctrl+C to stop.\n", addr)
		if err := server.Start(ctx, addr); err != nil {
			return err
		}
		fmt.Println("\n⚡ Server stopped.")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default METRICS_ADDR)")
}
