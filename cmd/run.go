package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/ethash"
	"github.com/mezonai/ethash/events"
	"github.com/mezonai/ethash/exception"
	"github.com/mezonai/ethash/logx"
	"github.com/mezonai/ethash/monitoring"
	"github.com/spf13/cobra"
)

var (
	runBlock       uint64
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Keep the datasets of a block's epoch warm and serve metrics",
	Long: `Build the light cache and full dataset for the epoch of --block, pre-generate
the next epoch's dataset once the current one is ready, and expose Prometheus
metrics until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runService(ctx)
	},
}

func runService(ctx context.Context) error {
	bus := events.NewEventBus()
	engine, err := newEngine(bus)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	server := &http.Server{Addr: runMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	exception.SafeGo("metrics-server", func() {
		logx.Info("CMD", "Serving metrics on", runMetricsAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error("CMD", "Metrics server failed:", err)
		}
	})
	defer server.Close()

	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)
	exception.SafeGo("event-logger", func() {
		for ev := range ch {
			logx.Info("CMD", fmt.Sprintf("Event %s | epoch=%d | seed=%s", ev.Type(), ev.Epoch(), ev.Seed().Hex()))
		}
	})

	epoch := engine.Epoch(runBlock)
	if _, err := engine.Light(epoch.Seed); err != nil {
		return err
	}

	// Both datasets stay referenced until shutdown so the store cannot
	// release them.
	current, err := engine.Full(ctx, epoch.Seed, true, progressLogger(epoch.Number))
	if err != nil {
		return ignoreCanceled(err)
	}
	next, err := pregenerate(ctx, engine, ethash.SeedHash(epoch.Number+1), time.Second)
	if err != nil {
		return ignoreCanceled(err)
	}
	logx.Info("CMD", fmt.Sprintf("Datasets ready | epochs=%d,%d", current.Epoch(), next.Epoch()))

	<-ctx.Done()
	logx.Info("CMD", "Shutting down")
	runtime.KeepAlive(current)
	runtime.KeepAlive(next)
	return nil
}

// pregenerate starts the dataset for seed in the background and polls the
// generator until it is ready, logging progress every interval.
func pregenerate(ctx context.Context, engine *ethash.Ethash, seed common.Hash, interval time.Duration) (*ethash.FullDataset, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ready, err := engine.RequestGeneration(seed, true)
		if err != nil {
			return nil, err
		}
		if ready {
			ds, err := engine.Full(ctx, seed, false, nil)
			if err != nil {
				return nil, err
			}
			if ds != nil {
				return ds, nil
			}
			// Collected between the two calls; request it again.
			continue
		}
		if epoch, generating, percent := engine.GenerationProgress(); generating {
			logx.Info("CMD", fmt.Sprintf("Pre-generating dataset | epoch=%d | progress=%d%%", epoch, percent))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func progressLogger(epoch uint64) func(uint32) {
	var last uint32
	return func(percent uint32) {
		if percent < last+10 && percent != 100 {
			return
		}
		last = percent
		logx.Info("CMD", fmt.Sprintf("Dataset generation | epoch=%d | progress=%d%%", epoch, percent))
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		logx.Info("CMD", "Interrupted while waiting for dataset generation")
		return nil
	}
	return err
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Uint64Var(&runBlock, "block", 0, "Block number whose epoch to serve")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics", ":9100", "Address of the Prometheus metrics endpoint")
}
