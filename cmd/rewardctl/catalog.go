package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/learnquest/rewards-engine/internal/app"
	"github.com/learnquest/rewards-engine/internal/application/command"
	"github.com/learnquest/rewards-engine/internal/application/query"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
)

// ─── catalog ────────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogCreateCmd, catalogListCmd, catalogGetCmd)

	catalogCreateCmd.Flags().StringP("file", "f", "", "TOML reward definition")

	catalogListCmd.Flags().String("type", "", "filter by reward type")
	catalogListCmd.Flags().String("trigger", "", "filter by trigger")
	catalogListCmd.Flags().Bool("active", false, "only active definitions")
	catalogListCmd.Flags().Bool("inactive", false, "only inactive definitions")
	catalogListCmd.Flags().Bool("hide-secret", false, "omit secret definitions")
	catalogListCmd.Flags().Int("limit", 0, "page size (0 lists everything)")
	catalogListCmd.Flags().Int("offset", 0, "page offset")
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage reward definitions",
}

var catalogCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a reward definition from a TOML file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			return errors.New("definition file required: rewardctl catalog create -f <file>")
		}
		params, err := decodeDefinitionFile(path)
		if err != nil {
			return err
		}

		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			def, err := e.Commands.CreateReward.Handle(ctx, command.CreateRewardDefinitionCommand{Params: params})
			if err != nil {
				return err
			}
			return render(cmd, def, func(w io.Writer) {
				fmt.Fprintf(w, "created reward %s (%s, %s)\n", def.ID, def.Type, def.Trigger)
			})
		})
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reward definitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		q, err := catalogQuery(cmd)
		if err != nil {
			return err
		}
		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			defs, err := e.Queries.ListRewards.Handle(ctx, q)
			if err != nil {
				return err
			}
			return render(cmd, defs, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tTYPE\tTRIGGER\tACTIVE\tSECRET")
				for _, d := range defs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\n", d.ID, d.Name, d.Type, d.Trigger, d.IsActive, d.IsSecret)
				}
			})
		})
	},
}

var catalogGetCmd = &cobra.Command{
	Use:   "get REWARD_ID",
	Short: "Show one reward definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.App) error {
			def, err := e.Queries.GetReward.Handle(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd, def, func(w io.Writer) {
				fmt.Fprintf(w, "ID\t%s\n", def.ID)
				fmt.Fprintf(w, "Name\t%s\n", def.Name)
				fmt.Fprintf(w, "Type\t%s\n", def.Type)
				fmt.Fprintf(w, "Trigger\t%s\n", def.Trigger)
				fmt.Fprintf(w, "Active\t%t\n", def.IsActive)
				fmt.Fprintf(w, "Limited\t%t\n", def.IsLimited)
				if def.ExpirationDays != nil {
					fmt.Fprintf(w, "Expires after\t%d days\n", *def.ExpirationDays)
				}
			})
		})
	},
}

func catalogQuery(cmd *cobra.Command) (query.ListRewardDefinitionsQuery, error) {
	var q query.ListRewardDefinitionsQuery
	flags := cmd.Flags()

	if s, _ := flags.GetString("type"); s != "" {
		t, ok := reward.ParseType(s)
		if !ok {
			return q, fmt.Errorf("unknown reward type %q", s)
		}
		q.Type = &t
	}
	if s, _ := flags.GetString("trigger"); s != "" {
		t, ok := reward.ParseTrigger(s)
		if !ok {
			return q, fmt.Errorf("unknown trigger %q", s)
		}
		q.Trigger = &t
	}

	active, _ := flags.GetBool("active")
	inactive, _ := flags.GetBool("inactive")
	switch {
	case active && inactive:
		return q, errors.New("--active and --inactive are mutually exclusive")
	case active:
		q.IsActive = &active
	case inactive:
		v := false
		q.IsActive = &v
	}

	q.HideSecret, _ = flags.GetBool("hide-secret")
	q.Limit, _ = flags.GetInt("limit")
	q.Offset, _ = flags.GetInt("offset")
	return q, nil
}
