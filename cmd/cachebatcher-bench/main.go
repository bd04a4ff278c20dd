/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command cachebatcher-bench generates concurrent lookups against a cache behind a batcher
// and reports hits, misses and dropped lookups.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"

	"github.com/acronis/go-cachebatcher/internal/metricsserver"
	"github.com/acronis/go-cachebatcher/internal/ratelimit"
	"github.com/acronis/go-cachebatcher/log"
)

const envVarsPrefix = "CACHEBATCHER_BENCH"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

type flagValues struct {
	configPath  string
	backend     string
	requests    int
	concurrency int
	keys        int
	rate        ratelimit.Rate
	rateAlg     string
	latency     time.Duration
	metricsAddr string
}

func parseFlags(args []string, errOut io.Writer) (*flag.FlagSet, *flagValues, error) {
	fv := &flagValues{}
	flagSet := flag.NewFlagSet("cachebatcher-bench", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	flagSet.StringVarP(&fv.configPath, "config", "c", "", "Path to YAML or JSON configuration file")
	flagSet.StringVar(&fv.backend, "backend", backendMemory, "Backend cache: memory or redis")
	flagSet.IntVarP(&fv.requests, "requests", "n", 0, "Total number of lookups")
	flagSet.IntVar(&fv.concurrency, "concurrency", 0, "Number of goroutines issuing lookups")
	flagSet.IntVar(&fv.keys, "keys", 0, "Size of the key space, every other key is seeded")
	flagSet.Var(&fv.rate, "rate", "Maximum lookup rate, for example 1000/s (empty means unlimited)")
	flagSet.StringVar(&fv.rateAlg, "rate-algorithm", "",
		"Rate limiting algorithm: "+strings.Join(ratelimit.AvailableAlgorithms, ", "))
	flagSet.DurationVar(&fv.latency, "latency", 0, "Emulated latency of the memory backend")
	flagSet.StringVar(&fv.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics and pprof on this address")
	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}
	if flagSet.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %s", strings.Join(flagSet.Args(), " "))
	}
	return flagSet, fv, nil
}

// applyFlags overrides configuration values with the explicitly passed flags.
func applyFlags(cfg *AppConfig, flagSet *flag.FlagSet, fv *flagValues) error {
	if flagSet.Changed("backend") {
		if fv.backend != backendMemory && fv.backend != backendRedis {
			return fmt.Errorf("--backend: unknown backend %q", fv.backend)
		}
		cfg.Bench.Backend = fv.backend
	}
	for name, dst := range map[string]*int{
		"requests":    &cfg.Bench.Requests,
		"concurrency": &cfg.Bench.Concurrency,
		"keys":        &cfg.Bench.Keys,
	} {
		if !flagSet.Changed(name) {
			continue
		}
		v, _ := flagSet.GetInt(name)
		if v <= 0 {
			return fmt.Errorf("--%s: should be positive", name)
		}
		*dst = v
	}
	if flagSet.Changed("rate") {
		cfg.Bench.Rate = fv.rate
	}
	if flagSet.Changed("rate-algorithm") {
		cfg.Bench.RateAlgorithm = ratelimit.Algorithm(fv.rateAlg)
	}
	if flagSet.Changed("latency") {
		if fv.latency < 0 {
			return fmt.Errorf("--latency: should be >= 0")
		}
		cfg.Bench.Latency = fv.latency
	}
	if flagSet.Changed("metrics-addr") {
		cfg.MetricsServer.Enabled = fv.metricsAddr != ""
		cfg.MetricsServer.Address = fv.metricsAddr
	}
	return nil
}

func run(ctx context.Context, args []string, errOut io.Writer) error {
	flagSet, fv, err := parseFlags(args, errOut)
	if err != nil {
		return err
	}
	cfg := NewAppConfig()
	if err = cfg.Load(fv.configPath); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err = applyFlags(cfg, flagSet, fv); err != nil {
		return err
	}

	logger, closeLogger := log.NewLogger(cfg.Log)
	defer closeLogger()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	if cfg.MetricsServer.Enabled {
		srv := metricsserver.New(cfg.MetricsServer, registry, logger)
		fatalErr := make(chan error, 1)
		go srv.Start(fatalErr)
		defer func() {
			if stopErr := srv.Stop(); stopErr != nil {
				logger.Error("failed to stop metrics server", log.Error(stopErr))
			}
		}()
		var cancel context.CancelCauseFunc
		ctx, cancel = context.WithCancelCause(ctx)
		defer cancel(nil)
		go func() {
			select {
			case srvErr := <-fatalErr:
				cancel(fmt.Errorf("metrics server: %w", srvErr))
			case <-ctx.Done():
			}
		}()
	}

	_, err = runBench(ctx, cfg, registry, logger)
	if err != nil && ctx.Err() != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, ctx.Err()) {
			return cause
		}
	}
	return err
}
