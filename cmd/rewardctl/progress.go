package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/learnquest/rewards-engine/internal/app"
	"github.com/learnquest/rewards-engine/internal/application/command"
	"github.com/learnquest/rewards-engine/internal/application/query"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
)

// ─── points / activity / level ──────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(pointsCmd, activityCmd, levelCmd)
	pointsCmd.AddCommand(pointsCreditCmd)
	activityCmd.AddCommand(activityRecordCmd, activityListCmd)
	levelCmd.AddCommand(levelGetCmd)

	activityRecordCmd.Flags().Int64("points", 0, "points awarded for the activity")
	activityRecordCmd.Flags().String("description", "", "free-text description")
	activityListCmd.Flags().Int("limit", 20, "maximum entries")
}

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Manage the points ledger",
}

var pointsCreditCmd = &cobra.Command{
	Use:   "credit USER_ID AMOUNT",
	Short: "Credit points to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			res, err := e.Commands.CreditPoints.Handle(ctx, command.CreditPointsCommand{UserID: args[0], Amount: amount})
			if err != nil {
				return err
			}
			return render(cmd, res.Entry, func(w io.Writer) {
				fmt.Fprintf(w, "points %d, level %d", res.Entry.Points, res.Entry.Level)
				if res.Change.LeveledUp() {
					fmt.Fprintf(w, " (level up from %d)", res.Change.OldLevel)
				}
				fmt.Fprintln(w)
			})
		})
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Record and inspect learning activity",
}

var activityRecordCmd = &cobra.Command{
	Use:   "record USER_ID TYPE",
	Short: "Record a learning activity (lesson, exercise, perfect-score)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		points, _ := cmd.Flags().GetInt64("points")
		desc, _ := cmd.Flags().GetString("description")

		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			res, err := e.Commands.RecordActivity.Handle(ctx, command.RecordActivityCommand{
				UserID:        args[0],
				Type:          progress.ActivityType(args[1]),
				PointsAwarded: points,
				Description:   desc,
			})
			if err != nil {
				return err
			}
			return render(cmd, res.Activity, func(w io.Writer) {
				fmt.Fprintf(w, "recorded %s activity %s; points %d, level %d\n",
					res.Activity.Type, res.Activity.ID, res.Entry.Points, res.Entry.Level)
			})
		})
	},
}

var activityListCmd = &cobra.Command{
	Use:   "list USER_ID",
	Short: "Show a user's activity history, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			logs, err := e.Queries.ListActivity.Handle(ctx, query.ListActivityHistoryQuery{UserID: args[0], Limit: limit})
			if err != nil {
				return err
			}
			return render(cmd, logs, func(w io.Writer) {
				fmt.Fprintln(w, "WHEN\tTYPE\tPOINTS\tDESCRIPTION")
				for _, l := range logs {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", fmtTime(&l.CreatedAt), l.Type, l.PointsAwarded, l.Description)
				}
			})
		})
	},
}

var levelCmd = &cobra.Command{
	Use:   "level",
	Short: "Inspect user levels",
}

var levelGetCmd = &cobra.Command{
	Use:   "get USER_ID",
	Short: "Show a user's points and level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			lvl, err := e.Queries.GetUserLevel.Handle(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd, lvl, func(w io.Writer) {
				fmt.Fprintf(w, "Level\t%d\n", lvl.Level)
				fmt.Fprintf(w, "Points\t%d\n", lvl.Points)
				if lvl.NextLevelAt != nil {
					fmt.Fprintf(w, "Next level at\t%d\n", *lvl.NextLevelAt)
				}
				fmt.Fprintf(w, "Lessons\t%d\n", lvl.LessonsCompleted)
				fmt.Fprintf(w, "Exercises\t%d\n", lvl.ExercisesCompleted)
				fmt.Fprintf(w, "Perfect scores\t%d\n", lvl.PerfectScores)
			})
		})
	},
}
