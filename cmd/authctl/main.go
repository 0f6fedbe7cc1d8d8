// authctl is the operator CLI: secret generation, session cleanup, account activation and
// schema migrations. It reads the same environment as the server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"task-tracker/backend/internal/cli"
	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/db"
	"task-tracker/backend/internal/db/migrate"
	sessionrepo "task-tracker/backend/internal/session/repository"
	userrepo "task-tracker/backend/internal/user/repository"
)

type migrator struct{ dsn string }

func (m migrator) Run(direction string) error   { return migrate.Run(m.dsn, direction) }
func (m migrator) Version() (uint, bool, error) { return migrate.Version(m.dsn) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	root := cli.NewRootCommand(backend(cfg), os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "authctl:", err)
		os.Exit(1)
	}
}

func backend(cfg *config.Config) cli.Backend {
	return cli.Backend{
		Sessions: func(ctx context.Context) (cli.SessionAdmin, func(), error) {
			if cfg.SessionStore == config.SessionStoreRedis {
				rdb, err := sessionrepo.OpenRedis(cfg.RedisURL)
				if err != nil {
					return nil, nil, err
				}
				repo, err := sessionrepo.Open(cfg.SessionStore, nil, rdb)
				if err != nil {
					rdb.Close()
					return nil, nil, err
				}
				return repo, func() { rdb.Close() }, nil
			}
			conn, err := db.Open(cfg.DatabaseURL)
			if err != nil {
				return nil, nil, err
			}
			repo, err := sessionrepo.Open(cfg.SessionStore, conn, nil)
			if err != nil {
				conn.Close()
				return nil, nil, err
			}
			return repo, closer(conn), nil
		},
		Users: func(ctx context.Context) (cli.UserAdmin, func(), error) {
			conn, err := db.Open(cfg.DatabaseURL)
			if err != nil {
				return nil, nil, err
			}
			return userrepo.NewPostgresRepository(conn), closer(conn), nil
		},
		Migrator: func() (cli.Migrator, error) {
			if cfg.DatabaseURL == "" {
				return nil, migrate.ErrNoDSN
			}
			return migrator{dsn: cfg.DatabaseURL}, nil
		},
	}
}

func closer(conn *sql.DB) func() { return func() { conn.Close() } }
