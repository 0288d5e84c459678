package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/asbrown77/bagile-platform-sub001/common/logging"
	"github.com/asbrown77/bagile-platform-sub001/common/messaging"
	natsclient "github.com/asbrown77/bagile-platform-sub001/common/messaging/nats"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/config"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/consumer"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/cursor"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/dedupe"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/dlq"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/handlers"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/normalizer"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/poller"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/ratelimit"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/receiver"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/server"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/service"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/sink"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/skus"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/validator"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/xeroclient"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("ingest"))
	logging.SetDefault(logger)

	slog.Info("Starting Ingest service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("Ingest service failed", logging.Error(err))
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	checks := make(map[string]handlers.ReadinessCheck)

	// Initialize receiver
	table, err := cfg.TrainerTable()
	if err != nil {
		return err
	}
	resolver := skus.NewResolver(table)
	registry := normalizer.NewRegistry(
		normalizer.NewXero(resolver),
		normalizer.NewWooCommerce(resolver),
		normalizer.NewSchedule(resolver),
	)
	recv := receiver.New(registry, validator.NewChain(validator.BasicValidator{}))
	slog.Info("Receiver initialized",
		slog.Any("sources", registry.Sources()),
		slog.Int("trainers", resolver.Len()),
	)

	// Initialize NATS JetStream
	var js *natsclient.JetStreamClient
	if cfg.NATS.Enabled {
		js, err = natsclient.NewJetStreamClient(natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       5 * time.Second,
			Username:      cfg.NATS.Username,
			Password:      cfg.NATS.Password,
			Token:         cfg.NATS.Token,
			Logger:        logger,
		})
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer js.Drain()
		js.NakDelay = cfg.NATS.NakDelay

		if _, err := js.CreateOrUpdateStream(ctx, natsclient.EnvelopesStream); err != nil {
			return err
		}
		if cfg.HasSink(config.SinkJetStream) {
			if _, err := js.CreateOrUpdateStream(ctx, natsclient.RecordsStream); err != nil {
				return err
			}
		}
		checks["nats"] = func(context.Context) error {
			if status := messaging.CheckHealth(js); !status.Connected {
				return errors.New(status.Error)
			}
			return nil
		}
		slog.Info("NATS JetStream connected", slog.String("url", cfg.NATS.URL))
	} else {
		slog.Info("NATS disabled - envelopes are processed inline")
	}

	// Initialize Redis for dedupe and rate limiting
	var store dedupe.Store = dedupe.NoOp{}
	var rateLimiter ratelimit.RateLimiter = &ratelimit.NoOpRateLimiter{}
	if cfg.Redis.Enabled {
		client, err := newRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()

		store = dedupe.NewRedis(client, cfg.Redis.DedupeTTL)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		slog.Info("Duplicate delivery suppression enabled", slog.Duration("ttl", cfg.Redis.DedupeTTL))

		if cfg.Ingestion.RateLimitEnabled {
			limiter, err := ratelimit.NewRedisRateLimiter(client, cfg.Ingestion.RateLimitRequests, cfg.Ingestion.RateLimitWindow)
			if err != nil {
				return err
			}
			rateLimiter = limiter
			slog.Info("Webhook rate limiting enabled",
				slog.Int("requests", cfg.Ingestion.RateLimitRequests),
				slog.Duration("window", cfg.Ingestion.RateLimitWindow),
			)
		}
	} else {
		slog.Info("Redis disabled - dedupe and rate limiting not available")
	}
	defer rateLimiter.Close()

	// Initialize sinks
	var sinks sink.Fanout
	for _, target := range cfg.Sink.Targets {
		switch target {
		case config.SinkOpenSearch:
			search, err := newOpenSearch(ctx, cfg, logger)
			if err != nil {
				return err
			}
			sinks = append(sinks, search)
			checks["opensearch"] = search.Ping
		case config.SinkJetStream:
			sinks = append(sinks, sink.NewPublisher(js))
		case config.SinkDiscard:
			sinks = append(sinks, sink.Discard{})
		}
		slog.Info("Sink enabled", slog.String("target", target))
	}

	// Initialize Dead Letter Queue
	var deadLetters service.DeadLetter
	switch cfg.DLQ.Backend {
	case config.DLQJetStream:
		q, err := dlq.NewJetStreamQueue(ctx, js, logger)
		if err != nil {
			return fmt.Errorf("initialize JetStream DLQ: %w", err)
		}
		deadLetters = q
		slog.Info("Dead Letter Queue enabled", slog.String("backend", "jetstream"))
	case config.DLQFile:
		q, err := dlq.NewQueue(cfg.DLQ.Path, logger)
		if err != nil {
			return fmt.Errorf("initialize file DLQ: %w", err)
		}
		deadLetters = q
		slog.Info("Dead Letter Queue enabled",
			slog.String("backend", "file"),
			slog.String("path", cfg.DLQ.Path),
		)
	default:
		slog.Info("Dead Letter Queue disabled")
	}

	processor, err := service.NewProcessor(service.Dependencies{
		Receiver: recv,
		Sink:     sinks,
		DLQ:      deadLetters,
		Dedupe:   store,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// Start the queue consumer
	if js != nil && cfg.NATS.Consume {
		consumerCfg := natsclient.DefaultConsumerConfig(
			messaging.ConsumerIngestWorkers,
			messaging.Wildcard(messaging.SubjectEnvelopesPrefix),
		)
		if _, err := js.CreateOrUpdateConsumer(ctx, natsclient.EnvelopesStream.Name, consumerCfg); err != nil {
			return err
		}
		envelopeConsumer := consumer.NewHandler(js, processor, logger)
		if err := envelopeConsumer.Start(ctx); err != nil {
			return err
		}
		defer envelopeConsumer.Stop()
	}

	// Start the accounting poller
	if cfg.Xero.Enabled {
		cursors, err := newCursorStore(ctx, cfg)
		if err != nil {
			return err
		}
		if pg, ok := cursors.(*cursor.Postgres); ok {
			defer pg.Close()
			checks["database"] = pg.Ping
		}

		client := xeroclient.New(cfg.Xero.BaseURL, cfg.Xero.TenantID, cfg.Xero.AccessToken, cfg.Xero.Timeout)
		invoicePoller := poller.New(client, processor, cursors, logger)
		go invoicePoller.Run(ctx, cfg.Xero.Interval)
		slog.Info("Accounting poller started", slog.Duration("interval", cfg.Xero.Interval))
	}

	// Initialize HTTP handlers
	opts := handlers.Options{
		Limiter:      rateLimiter,
		Checks:       checks,
		MaxBodyBytes: cfg.Ingestion.MaxEnvelopeSize,
		Logger:       logger,
	}
	if cfg.NATS.Queue {
		opts.Queue = js
	}
	router := server.NewRouter(handlers.NewHandler(processor, opts))

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Ingest service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func newOpenSearch(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*sink.OpenSearch, error) {
	store, err := sink.NewOpenSearch(sink.OpenSearchConfig{
		URL:           cfg.OpenSearch.URL,
		Username:      cfg.OpenSearch.Username,
		Password:      cfg.OpenSearch.Password,
		TLSSkipVerify: cfg.OpenSearch.TLSSkipVerify,
		IndexPrefix:   cfg.OpenSearch.IndexPrefix,
		ShardCount:    cfg.OpenSearch.ShardCount,
		ReplicaCount:  cfg.OpenSearch.ReplicaCount,
		FlushInterval: cfg.OpenSearch.FlushInterval,
	}, logger)
	if err != nil {
		return nil, err
	}

	initCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	if err := store.Initialize(initCtx); err != nil {
		slog.Warn("Failed to initialize OpenSearch; records may fail to index until it is reachable",
			logging.Error(err))
	}
	return store, nil
}

func newCursorStore(ctx context.Context, cfg *config.Config) (cursor.Store, error) {
	if cfg.Database.URL == "" {
		slog.Warn("Using in-memory sync cursor (development only)")
		return cursor.NewMemory(), nil
	}

	if cfg.Database.Migrate {
		version, err := cursor.Migrate(cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("Database migration complete", slog.Uint64("version", uint64(version)))
	}

	store, err := cursor.NewPostgres(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	return store, nil
}
