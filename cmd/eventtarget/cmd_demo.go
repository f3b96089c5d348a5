package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/eventtarget/config"
	"github.com/shashiranjanraj/eventtarget/internal/demo"
	"github.com/shashiranjanraj/eventtarget/internal/server"
)

var (
	demoListeners int
	demoDelay     time.Duration
	demoWorkers   int
	demoServe     bool
)

// eventtarget demo [mode]
var demoCmd = &cobra.Command{
	Use:       "demo [sequential|concurrent|forget|all]",
	Short:     "Fire slow listeners under each mode and compare timings",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"sequential", "concurrent", "forget", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}

		mode := "all"
		if len(args) == 1 {
			mode = args[0]
		}
		modes, err := demo.ParseModes(mode)
		if err != nil {
			return err
		}

		workers := demoWorkers
		if !cmd.Flags().Changed("workers") {
			workers = config.EventWorkers()
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := demo.Options{
			Listeners: demoListeners,
			Delay:     demoDelay,
			Workers:   workers,
			Timeout:   config.EventFireTimeout(),
		}
		results, err := demo.Run(ctx, modes, opts)
		if err != nil {
			return err
		}
		if err := demo.Print(os.Stdout, opts, results); err != nil {
			return err
		}

		if !demoServe {
			return nil
		}
		fmt.Printf("\n📈 Serving metrics on %s. Press Ctrl+C to stop.\n", config.MetricsAddr())
		return server.Start(ctx, config.MetricsAddr())
	},
}

func init() {
	demoCmd.Flags().IntVarP(&demoListeners, "listeners", "n", 4, "Number of deferred listeners")
	demoCmd.Flags().DurationVarP(&demoDelay, "delay", "d", 200*time.Millisecond, "Delay inside each listener")
	demoCmd.Flags().IntVarP(&demoWorkers, "workers", "w", 0, "Worker pool size for deferred listeners (0 = unbounded, default EVENT_WORKERS)")
	demoCmd.Flags().BoolVar(&demoServe, "serve", false, "Keep serving /metrics after the demo")
}
