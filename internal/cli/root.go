// Package cli implements authctl, the operator command line for the auth service.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// SessionAdmin is the session store surface authctl needs.
type SessionAdmin interface {
	DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error)
	InvalidateAllByUser(ctx context.Context, userID string) (int64, error)
}

// UserAdmin is the user store surface authctl needs.
type UserAdmin interface {
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

// Migrator runs schema migrations.
type Migrator interface {
	Run(direction string) error
	Version() (version uint, dirty bool, err error)
}

// Backend opens the stores lazily so commands that need none (secret generate) run without
// a database. Each open returns a close func.
type Backend struct {
	Sessions func(ctx context.Context) (SessionAdmin, func(), error)
	Users    func(ctx context.Context) (UserAdmin, func(), error)
	Migrator func() (Migrator, error)
}

// NewRootCommand builds the authctl command tree.
func NewRootCommand(b Backend, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Operate the task tracker auth service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(
		newSecretCommand(),
		newSessionsCommand(b),
		newUsersCommand(b),
		newMigrateCommand(b),
	)
	return root
}
