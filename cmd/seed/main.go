// seed inserts a demo account for local testing. Idempotent: it does nothing if the demo
// e-mail is already registered.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/db"
	"task-tracker/backend/internal/logging"
	"task-tracker/backend/internal/security"
	"task-tracker/backend/internal/user/domain"
	userrepo "task-tracker/backend/internal/user/repository"
)

const (
	demoUsername = "demo"
	demoEmail    = "demo@example.com"
	demoPassword = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("seed: config", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, "text", "task-tracker-seed")

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("seed: open db", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := userrepo.NewPostgresRepository(conn)
	existing, err := users.GetByEmail(ctx, demoEmail)
	if err != nil {
		log.Error("seed: lookup", "error", err)
		os.Exit(1)
	}
	if existing != nil {
		log.Info("seed: demo user already present", "user_id", existing.ID)
		return
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = demoPassword
	}
	hash, err := security.NewHashPool(security.NewHasher(cfg.BcryptCost), 1).Hash(ctx, password)
	if err != nil {
		log.Error("seed: hash password", "error", err)
		os.Exit(1)
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:            uuid.NewString(),
		Username:      demoUsername,
		Email:         demoEmail,
		FirstName:     "Demo",
		LastName:      "User",
		PasswordHash:  hash,
		Active:        true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := users.Create(ctx, u); err != nil {
		log.Error("seed: create user", "error", err)
		os.Exit(1)
	}
	log.Info("seed: created demo user", "user_id", u.ID, "email", demoEmail)
}
