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
	"time"

	"github.com/rs/zerolog"

	"washtrade-lab/internal/config"
	"washtrade-lab/internal/logger"
	"washtrade-lab/internal/normalization"
	"washtrade-lab/internal/observability"
	"washtrade-lab/internal/orchestrator"
	"washtrade-lab/internal/storage"
	chstore "washtrade-lab/internal/storage/clickhouse"
	"washtrade-lab/internal/storage/migrations"
	pgstore "washtrade-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "TOML config file (defaults apply when empty)")
	target := flag.String("target", "postgres", "Storage target: postgres or clickhouse")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	defaultLottery := flag.String("default-lottery", "", "Lottery id for rows without one (overrides config)")
	migrate := flag.Bool("migrate", true, "Apply schema migrations before ingesting")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}
	if *defaultLottery != "" {
		cfg.Normalization.DefaultLottery = *defaultLottery
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// Setup logger
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	files := flag.Args()
	if len(files) == 0 {
		log.Fatal().Msg("no input files; usage: ingest [flags] export1.csv [export2.csv ...]")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})
			log.Info().Str("addr", *metricsAddr).Msg("starting metrics server")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.Error().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Error().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, log, cfg, strings.ToLower(*target), *migrate, files)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("ingest failed")
	}

	log.Info().Msg("shutdown complete")
}

func run(ctx context.Context, log zerolog.Logger, cfg *config.Config, target string, migrate bool, files []string) error {
	norm, err := normalization.NewNormalizerFromConfig(cfg, &log)
	if err != nil {
		return err
	}

	opts := orchestrator.IngesterOptions{
		Normalizer: norm,
		Metrics:    observability.DefaultMetrics,
		Logger:     &log,
	}

	switch target {
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return errors.New("--postgres-dsn is required for the postgres target")
		}
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return fmt.Errorf("postgres migrations: %w", err)
			}
		}
		opts.Store = pgstore.NewBetRecordStore(pool)
		opts.Runs = pgstore.NewIngestLogStore(pool)

	case "clickhouse":
		if cfg.Storage.ClickhouseDSN == "" {
			return errors.New("--clickhouse-dsn is required for the clickhouse target")
		}
		var conn *chstore.Conn
		if migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		}
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		// ClickHouse has no ingest log; re-ingesting a file fails on duplicate record ids.
		opts.Store = chstore.NewBetRecordStore(conn)

	default:
		return fmt.Errorf("unknown target %q", target)
	}

	ing, err := orchestrator.NewIngester(opts)
	if err != nil {
		return err
	}

	var stored, dropped int
	for _, path := range files {
		res, err := ing.IngestFile(ctx, path)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("%s: already ingested: %w", path, err)
			}
			return err
		}
		if res.Skipped {
			fmt.Printf("%s: skipped (already ingested)\n", res.Source)
			continue
		}
		stored += res.Stored
		dropped += res.Stats.Dropped()
		fmt.Printf("%s: %d rows, %d stored, %d dropped\n", res.Source, res.Stats.TotalRows, res.Stored, res.Stats.Dropped())
	}

	fmt.Printf("Ingestion complete: %d files, %d records stored, %d rows dropped\n", len(files), stored, dropped)
	return nil
}
