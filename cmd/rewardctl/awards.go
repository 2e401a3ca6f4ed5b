package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/learnquest/rewards-engine/internal/app"
	"github.com/learnquest/rewards-engine/internal/application/command"
	"github.com/learnquest/rewards-engine/internal/application/query"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
)

// ─── award / consume / status ───────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(awardCmd, consumeCmd, statusCmd, awardsCmd)
	awardsCmd.AddCommand(awardsListCmd)

	awardsListCmd.Flags().String("status", "", "filter by effective status (ACTIVE, CONSUMED, EXPIRED)")
}

var awardCmd = &cobra.Command{
	Use:   "award USER_ID REWARD_ID",
	Short: "Grant a reward to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			res, err := e.Commands.AwardReward.Handle(ctx, command.AwardRewardCommand{UserID: args[0], RewardID: args[1]})
			if err != nil {
				return err
			}
			return render(cmd, res.Record, func(w io.Writer) {
				fmt.Fprintf(w, "awarded %s to %s, expires %s\n", res.Record.RewardID, res.Record.UserID, fmtTime(res.Record.ExpiresAt))
				if res.Ledger != nil {
					fmt.Fprintf(w, "points %d, level %d\n", res.Ledger.Points, res.Ledger.Level)
				}
			})
		})
	},
}

var consumeCmd = &cobra.Command{
	Use:   "consume USER_ID REWARD_ID",
	Short: "Redeem an awarded reward",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			res, err := e.Commands.ConsumeReward.Handle(ctx, command.ConsumeRewardCommand{UserID: args[0], RewardID: args[1]})
			if err != nil {
				return err
			}
			return render(cmd, res.Record, func(w io.Writer) {
				if !res.Consumed {
					fmt.Fprintf(w, "%s rewards take effect when awarded; nothing to consume\n", res.Definition.Type)
					return
				}
				fmt.Fprintf(w, "consumed %s at %s\n", res.Record.RewardID, fmtTime(res.Record.ConsumedAt))
			})
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status USER_ID REWARD_ID",
	Short: "Show an award's status, expiring it if due",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			res, err := e.Commands.CheckStatus.Handle(ctx, command.CheckRewardStatusCommand{UserID: args[0], RewardID: args[1]})
			if err != nil {
				return err
			}
			return render(cmd, res.Record, func(w io.Writer) {
				fmt.Fprintf(w, "Status\t%s\n", res.Record.Status)
				fmt.Fprintf(w, "Awarded\t%s\n", fmtTime(&res.Record.DateAwarded))
				fmt.Fprintf(w, "Expires\t%s\n", fmtTime(res.Record.ExpiresAt))
				fmt.Fprintf(w, "Consumed\t%s\n", fmtTime(res.Record.ConsumedAt))
			})
		})
	},
}

var awardsCmd = &cobra.Command{
	Use:   "awards",
	Short: "Inspect a user's awards",
}

var awardsListCmd = &cobra.Command{
	Use:   "list USER_ID",
	Short: "List a user's awards with their effective status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := query.ListUserRewardsQuery{UserID: args[0]}
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			st, ok := reward.ParseStatus(s)
			if !ok {
				return fmt.Errorf("unknown status %q", s)
			}
			q.Status = &st
		}

		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			items, err := e.Queries.ListUserRewards.Handle(ctx, q)
			if err != nil {
				return err
			}
			return render(cmd, items, func(w io.Writer) {
				fmt.Fprintln(w, "REWARD\tTYPE\tSTATUS\tAWARDED\tEXPIRES")
				for _, it := range items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.RewardID, it.Type, it.Status, fmtTime(&it.DateAwarded), fmtTime(it.ExpiresAt))
				}
			})
		})
	},
}
