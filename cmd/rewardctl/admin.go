package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/learnquest/rewards-engine/internal/app"
	"github.com/learnquest/rewards-engine/internal/application/command"
)

// ─── migrate / users / sweep ────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(migrateCmd, usersCmd, sweepCmd)
	usersCmd.AddCommand(usersAddCmd)

	migrateCmd.Flags().Bool("status", false, "show migration status instead of migrating")
	migrateCmd.Flags().Bool("rollback", false, "roll back the latest migration")
	usersAddCmd.Flags().String("name", "", "display name")
	sweepCmd.Flags().Int("batch-size", command.DefaultSweepBatchSize, "records expired per transaction")
	sweepCmd.Flags().Int("max-batches", 0, "stop after this many batches (0 = until done)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, _ := cmd.Flags().GetBool("status")
		rollback, _ := cmd.Flags().GetBool("rollback")

		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			if e.Migrator == nil {
				return errors.New("migrations require the postgres driver")
			}
			switch {
			case status:
				migrations, err := e.Migrator.Status(ctx)
				if err != nil {
					return err
				}
				return render(cmd, migrations, func(w io.Writer) {
					fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
					for _, m := range migrations {
						fmt.Fprintf(w, "%03d\t%s\t%s\n", m.Version, m.Name, fmtTime(&m.AppliedAt))
					}
				})
			case rollback:
				if err := e.Migrator.Rollback(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "rolled back latest migration")
				return nil
			default:
				n, err := e.Migrator.Migrate(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
				return nil
			}
		})
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage known users",
}

var usersAddCmd = &cobra.Command{
	Use:   "add USER_ID",
	Short: "Register a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			u, err := e.AddUser(ctx, args[0], name)
			if err != nil {
				return err
			}
			return render(cmd, u, func(w io.Writer) {
				fmt.Fprintf(w, "added user %s\n", u.ID)
			})
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark awards past their expiry as EXPIRED",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		batch, _ := cmd.Flags().GetInt("batch-size")
		maxBatches, _ := cmd.Flags().GetInt("max-batches")

		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			res, err := e.Commands.ExpireRewards.Handle(ctx, command.ExpireRewardsCommand{BatchSize: batch, MaxBatches: maxBatches})
			if err != nil {
				return err
			}
			return render(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "expired %d award(s) in %d batch(es)\n", res.Expired, res.Batches)
			})
		})
	},
}
