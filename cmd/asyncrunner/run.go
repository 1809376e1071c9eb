package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	asyncrunner "github.com/Swind/go-async-runner"
	"github.com/Swind/go-async-runner/config"
	"github.com/Swind/go-async-runner/core"
	"github.com/Swind/go-async-runner/logging"
	metrics "github.com/Swind/go-async-runner/observability/prometheus"
)

type runOptions struct {
	workers          int
	waitQueuedWork   bool
	metricsAddr      string
	iterationTimeout time.Duration
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo workload",
		Long: `Run submits a mix of primary and worker tasks, some awaiting timers, plus
work items submitted straight to the queues, then drives the primary queue
until no task is pending.

Work items scheduled without a task are not waited for unless
--wait-queued-work is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, root, opts)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 2, "Worker pool size")
	cmd.Flags().BoolVar(&opts.waitQueuedWork, "wait-queued-work", false, "Keep driving the primary queue until queued work items have run too")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics at this address under /metrics")
	cmd.Flags().DurationVar(&opts.iterationTimeout, "iteration-timeout", 100*time.Millisecond, "Upper bound of one main loop iteration")

	return cmd
}

// resolveConfig layers explicitly set flags over the config file, or over
// the defaults when no file is given.
func resolveConfig(cmd *cobra.Command, root *rootOptions, opts *runOptions) (*config.Config, error) {
	cfg := config.Default()
	if root.configPath != "" {
		loaded, err := config.Load(root.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("wait-queued-work") {
		cfg.WaitForQueuedWork = opts.waitQueuedWork
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if flags.Changed("iteration-timeout") {
		cfg.IterationTimeout = opts.iterationTimeout
	}
	if root.logLevel != "" {
		cfg.LogLevel = root.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func execute(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewJSON(stderr, level)

	reg := prom.NewRegistry()
	exporter, err := metrics.NewMetricsExporter("asyncrunner", reg, metrics.ExporterOptions{})
	if err != nil {
		return fmt.Errorf("metrics exporter: %w", err)
	}

	execCfg := core.DefaultExecutorConfig()
	execCfg.Logger = logger
	execCfg.Metrics = exporter
	execCfg.IterationTimeout = cfg.IterationTimeout
	execCfg.WaitForQueuedWork = cfg.WaitForQueuedWork

	rt := asyncrunner.NewRuntimeWithConfig(asyncrunner.RuntimeConfig{
		Name:    "asyncrunner",
		Workers: cfg.Workers,
		Scheduler: &core.TaskSchedulerConfig{
			Logger:  logger,
			Metrics: exporter,
		},
		Executor: execCfg,
	})

	poller, err := metrics.NewSnapshotPoller(reg, time.Second)
	if err != nil {
		return fmt.Errorf("snapshot poller: %w", err)
	}
	poller.AddExecutor(rt.Executor.Name(), rt.Executor)
	poller.AddMainLoop(rt.MainLoop.Name(), rt.MainLoop)
	poller.AddPool(rt.Pool.ID(), rt.Pool)

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		logger.Info("serving metrics", core.F("addr", ln.Addr().String()))

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		if srv != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		rt.Start(gctx)
		defer rt.Stop()
		poller.Start(gctx)
		defer poller.Stop()

		return runDemo(gctx, rt, cfg.Demo, &demoOutput{w: stdout})
	})

	return g.Wait()
}
