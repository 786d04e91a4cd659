// Command callguard-probe periodically calls a target URL through a
// resilience Manager and serves the manager's health over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/callguard/component"
	"github.com/kbukum/callguard/config"
	"github.com/kbukum/callguard/health"
	"github.com/kbukum/callguard/logger"
	"github.com/kbukum/callguard/observability"
	"github.com/kbukum/callguard/resilience"
	"github.com/kbukum/callguard/version"
)

// envPrefix namespaces the probe's environment: CALLGUARD_PROBE_TARGET.
const envPrefix = "CALLGUARD"

type options struct {
	configFile string
	envFile    string
	target     string
	interval   time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Probe an upstream through a callguard resilience manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, opts)
		},
	}

	flags := root.Flags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default: search ./cmd/"+serviceName+"/config.yml, then ./config.yml)")
	flags.StringVar(&opts.envFile, "env-file", "", ".env file to load")
	flags.StringVar(&opts.target, "target", "", "URL to probe, overrides probe.target")
	flags.DurationVar(&opts.interval, "interval", 0, "probe interval, overrides probe.interval")

	root.AddCommand(newStatusCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	})
	return root
}

func loadConfig(cmd *cobra.Command, opts *options) (*ProbeConfig, error) {
	loaderOpts := []config.LoaderOption{config.WithEnvPrefix(envPrefix)}
	if opts.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.configFile))
	}
	if opts.envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(opts.envFile))
	}

	cfg := &ProbeConfig{}
	if err := config.LoadConfig(serviceName, cfg, append(loaderOpts, config.WithDefaults(config.ResiliencePresetDefaults))...); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("target") {
		cfg.Probe.Target = opts.target
	}
	if cmd.Flags().Changed("interval") {
		cfg.Probe.Interval = opts.interval
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(&cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)
	log.Info("Starting "+serviceName, version.Get().Fields())

	telemetry, err := observability.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", logger.Fields("error", err.Error()))
		}
	}()

	instruments, err := observability.NewResilienceMetrics(telemetry.Meter())
	if err != nil {
		return fmt.Errorf("telemetry instruments: %w", err)
	}

	manager := resilience.NewManager(cfg.Resilience.Config,
		resilience.WithLogger(log.WithComponent("resilience")),
		resilience.WithObserver(instruments),
		resilience.WithTracerProvider(telemetry.TracerProvider()),
	)

	registry := component.NewRegistry(log.WithComponent("component"))
	prober := NewProber(cfg.Probe, manager, nil, log.WithComponent("probe"))
	components := []component.Component{component.NewManagerComponent(manager), prober}

	if cfg.Health.Enabled {
		server := health.NewServer(cfg.Health.Addr, log.WithComponent("health"))
		health.Register(server.Engine(), manager)
		server.Engine().GET(health.PathComponents, health.ComponentsHandler(cfg.Name, registry.HealthAll))
		server.Engine().GET(health.PathInfo, health.InfoHandler(cfg.Name))
		components = append(components, server)
	}

	for _, c := range components {
		if err := registry.Register(c); err != nil {
			return err
		}
	}

	if err := registry.StartAll(ctx); err != nil {
		_ = registry.StopAll(context.Background())
		return err
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := registry.StopAll(stopCtx); err != nil {
		return err
	}

	if summary := manager.Metrics(); summary != nil {
		log.Info("Probe summary", logger.Fields(
			"total_requests", summary.TotalRequests,
			"success_rate", summary.SuccessRate,
			"p95_latency_ms", summary.P95Latency,
		))
	}
	return nil
}
