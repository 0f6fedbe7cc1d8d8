// Server runs the task tracker auth HTTP API.
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

	"task-tracker/backend/internal/audit"
	auditrepo "task-tracker/backend/internal/audit/repository"
	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/db"
	healthhandler "task-tracker/backend/internal/health/handler"
	identityservice "task-tracker/backend/internal/identity/service"
	"task-tracker/backend/internal/logging"
	"task-tracker/backend/internal/metrics"
	"task-tracker/backend/internal/security"
	"task-tracker/backend/internal/server"
	sessionrepo "task-tracker/backend/internal/session/repository"
	"task-tracker/backend/internal/telemetry"
	telemetryotel "task-tracker/backend/internal/telemetry/otel"
	"task-tracker/backend/internal/telemetry/producer"
	userrepo "task-tracker/backend/internal/user/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.RequireServer(); err != nil {
		return err
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat, cfg.OTelServiceName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.OTelServiceName, cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn("otel shutdown", "error", err)
		}
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	checks := map[string]healthhandler.Pinger{"postgres": conn}
	var rdb *redis.Client
	if cfg.SessionStore == config.SessionStoreRedis {
		rdb, err = sessionrepo.OpenRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		checks["redis"] = healthhandler.RedisPinger{Client: rdb}
	}
	sessions, err := sessionrepo.Open(cfg.SessionStore, conn, rdb)
	if err != nil {
		return err
	}

	key, err := security.LoadSecret(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}
	tokens := security.NewTokenProvider(key, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHashPool(security.NewHasher(cfg.BcryptCost), cfg.HashWorkers)
	log.Info("password hashing pool ready", "workers", hasher.Size(), "bcrypt_cost", cfg.BcryptCost)

	auditRepo := auditrepo.NewPostgresRepository(conn)
	emitters := []telemetry.EventEmitter{
		audit.NewLogger(auditRepo),
		telemetryotel.NewEventEmitter(providers.LoggerProvider),
	}
	if p := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuthEventsTopic); p != nil {
		defer p.Close()
		emitters = append(emitters, p)
		log.Info("auth events published to kafka", "topic", p.Topic())
	}

	m := metrics.New()
	auth := identityservice.NewAuthService(
		userrepo.NewPostgresRepository(conn),
		sessions,
		hasher,
		tokens,
		identityservice.WithLogger(log),
		identityservice.WithEvents(telemetry.NewFanout(emitters...)),
		identityservice.WithLastLoginDebounce(cfg.LastLoginDebounceDuration()),
	)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.Deps{
			Auth:         auth,
			Tokens:       tokens,
			AuditRepo:    auditRepo,
			HealthChecks: checks,
			Metrics:      m,
			Log:          log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "session_store", cfg.SessionStore)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", "error", err)
		}
		// let in-flight auth events reach their sinks
		time.Sleep(telemetry.ShutdownDrainDuration)
	}
	log.Info("http server stopped")
	return nil
}
