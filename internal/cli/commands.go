package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"task-tracker/backend/internal/db/migrate"
	"task-tracker/backend/internal/security"
)

// ErrUserNotFound is returned by users activate/deactivate for an unknown id.
var ErrUserNotFound = errors.New("user not found")

func newSecretCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "secret", Short: "Manage the token signing secret"}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a fresh 512-bit secret for JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := security.GenerateSecret()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	})
	return cmd
}

func newSessionsCommand(b Backend) *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Inspect and clean up sessions"}
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete sessions whose expiry has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := b.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			n, err := store.DeleteExpiredBefore(cmd.Context(), time.Now().UTC())
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired sessions\n", n)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <user-id>",
		Short: "Deactivate every session of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := b.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			n, err := store.InvalidateAllByUser(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("revoke: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %d sessions for %s\n", n, args[0])
			return nil
		},
	})
	return cmd
}

func newUsersCommand(b Backend) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage user accounts"}
	for _, active := range []bool{true, false} {
		use := "activate"
		if !active {
			use = "deactivate"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use + " <user-id>",
			Short: use + " a user account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, closeFn, err := b.Users(cmd.Context())
				if err != nil {
					return err
				}
				defer closeFn()
				found, err := store.SetActive(cmd.Context(), args[0], active)
				if err != nil {
					return fmt.Errorf("%s: %w", use, err)
				}
				if !found {
					return fmt.Errorf("%s %s: %w", use, args[0], ErrUserNotFound)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s active=%v\n", args[0], active)
				return nil
			},
		})
	}
	return cmd
}

func newMigrateCommand(b Backend) *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Apply or roll back the schema"}
	for _, dir := range []string{migrate.Up, migrate.Down} {
		cmd.AddCommand(&cobra.Command{
			Use:   dir,
			Short: "Run all " + dir + " migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := b.Migrator()
				if err != nil {
					return err
				}
				if err := m.Run(dir); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", dir)
				return nil
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := b.Migrator()
			if err != nil {
				return err
			}
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%v\n", v, dirty)
			return nil
		},
	})
	return cmd
}
