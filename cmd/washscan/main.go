// Package main runs a batch wash-trade detection.
// Executes: load records → detect → (verify) → report
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"washtrade-lab/internal/config"
	"washtrade-lab/internal/logger"
	"washtrade-lab/internal/normalization"
	"washtrade-lab/internal/observability"
	"washtrade-lab/internal/orchestrator"
	"washtrade-lab/internal/storage"
	chstore "washtrade-lab/internal/storage/clickhouse"
	"washtrade-lab/internal/storage/memory"
	pgstore "washtrade-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "TOML config file (defaults apply when empty)")
	source := flag.String("source", "", "Record source: csv, memory, postgres or clickhouse (overrides config)")
	inputs := flag.String("input", "", "Comma-separated CSV exports for the csv source")
	lotteries := flag.String("lottery", "", "Comma-separated lottery ids to analyse (default: all)")
	outputDir := flag.String("output-dir", "", "Output directory for report files (overrides config)")
	verify := flag.Bool("verify", false, "Run detection twice and compare outputs")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	overrideStr(&cfg.Storage.Source, *source)
	overrideStr(&cfg.Output.Dir, *outputDir)
	overrideStr(&cfg.Output.MetricsAddr, *metricsAddr)
	overrideStr(&cfg.LogLevel, *logLevel)
	if *verify {
		cfg.Output.Verify = true
	}

	// Setup logger
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	// Start metrics server if enabled
	if cfg.Output.MetricsAddr != "" {
		go serveMetrics(log, cfg.Output.MetricsAddr)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, log, cfg, splitList(*inputs), splitList(*lotteries)); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("washscan failed")
	}
}

func run(ctx context.Context, log zerolog.Logger, cfg *config.Config, inputs, lotteries []string) error {
	store, closeStore, err := openStore(ctx, log, cfg, inputs)
	if err != nil {
		return err
	}
	defer closeStore()

	orch, err := orchestrator.New(orchestrator.Options{
		Store:     store,
		Detection: cfg.Detection,
		Lotteries: lotteries,
		OutputDir: cfg.Output.Dir,
		Verify:    cfg.Output.Verify,
		Metrics:   observability.DefaultMetrics,
		Logger:    &log,
	})
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s completed:\n", result.RunID)
	fmt.Printf("  Records: %d\n", result.Records)
	fmt.Printf("  Patterns: %d\n", len(result.Result.Patterns))
	fmt.Printf("  Fingerprint: %s\n", result.Report.Reproducibility.Fingerprint)
	for _, f := range result.Files {
		fmt.Printf("  - %s\n", f)
	}
	return nil
}

// openStore returns the configured record source. CSV exports are
// normalized into an in-memory store first.
func openStore(ctx context.Context, log zerolog.Logger, cfg *config.Config, inputs []string) (storage.BetRecordStore, func(), error) {
	noop := func() {}

	switch cfg.Storage.Source {
	case "csv", "memory":
		if len(inputs) == 0 {
			return nil, noop, errors.New("--input is required for the csv source")
		}
		norm, err := normalization.NewNormalizerFromConfig(cfg, &log)
		if err != nil {
			return nil, noop, err
		}
		store := memory.NewBetRecordStore()
		ing, err := orchestrator.NewIngester(orchestrator.IngesterOptions{
			Normalizer: norm,
			Store:      store,
			Runs:       memory.NewIngestLogStore(),
			Metrics:    observability.DefaultMetrics,
			Logger:     &log,
		})
		if err != nil {
			return nil, noop, err
		}
		for _, path := range inputs {
			if _, err := ing.IngestFile(ctx, path); err != nil {
				return nil, noop, err
			}
		}
		return store, noop, nil

	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return nil, noop, errors.New("postgres_dsn is required for the postgres source")
		}
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to postgres: %w", err)
		}
		return pgstore.NewBetRecordStore(pool), pool.Close, nil

	case "clickhouse":
		if cfg.Storage.ClickhouseDSN == "" {
			return nil, noop, errors.New("clickhouse_dsn is required for the clickhouse source")
		}
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return chstore.NewBetRecordStore(conn), func() { _ = conn.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown source %q", cfg.Storage.Source)
	}
}

func serveMetrics(log zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	log.Info().Str("addr", addr).Msg("starting metrics server")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server error")
	}
}

func overrideStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
