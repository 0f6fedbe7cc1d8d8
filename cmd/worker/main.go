// Worker sweeps expired sessions and, when KAFKA_BROKERS and LOKI_URL are set, forwards auth
// events from Kafka to Loki. It serves /metrics and /healthz on WORKER_METRICS_ADDR.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/db"
	"task-tracker/backend/internal/logging"
	"task-tracker/backend/internal/metrics"
	"task-tracker/backend/internal/session"
	sessionrepo "task-tracker/backend/internal/session/repository"
	"task-tracker/backend/internal/telemetry/consumer"
	"task-tracker/backend/internal/telemetry/loki"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat, "task-tracker-auth-worker")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	var conn interface{ Close() error }
	var sessions sessionrepo.Repository
	if cfg.SessionStore == config.SessionStoreRedis {
		rdb, err = sessionrepo.OpenRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		conn = rdb
		sessions, err = sessionrepo.Open(cfg.SessionStore, nil, rdb)
	} else {
		sqlDB, openErr := db.Open(cfg.DatabaseURL)
		if openErr != nil {
			return openErr
		}
		conn = sqlDB
		sessions, err = sessionrepo.Open(cfg.SessionStore, sqlDB, nil)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	m := metrics.New()
	sweeper := session.NewSweeper(sessions, cfg.SweepInterval(), log)
	sweeper.OnSweep = func(n int64, err error) {
		if err == nil {
			m.SessionsSwept(n)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	brokers := cfg.KafkaBrokersList()
	if len(brokers) > 0 && cfg.LokiURL != "" {
		lokiClient, err := loki.NewClient(cfg.LokiURL, loki.DefaultJob, nil)
		if err != nil {
			return err
		}
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          cfg.AuthEventsTopic,
			GroupID:        cfg.KafkaGroupID,
			MinBytes:       1,
			MaxBytes:       10e6, // 10MB
			MaxWait:        time.Second,
			CommitInterval: time.Second,
		})
		defer reader.Close()
		fwd := consumer.NewForwarder(reader, lokiClient, m, log)
		g.Go(func() error { return fwd.Run(gctx) })
		log.Info("worker: forwarding auth events", "topic", cfg.AuthEventsTopic, "group", cfg.KafkaGroupID, "loki", cfg.LokiURL)
	} else {
		log.Info("worker: event forwarding disabled; set KAFKA_BROKERS and LOKI_URL to enable")
	}

	log.Info("worker: started", "sweep_interval", cfg.SweepInterval().String(), "metrics_addr", cfg.WorkerMetricsAddr)
	err = g.Wait()
	log.Info("worker: stopped")
	return err
}
