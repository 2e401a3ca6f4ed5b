package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/learnquest/rewards-engine/config"
	"github.com/learnquest/rewards-engine/internal/app"
)

// ─── Root command ───────────────────────────────────────────────────────────

var (
	flagDriver  string
	flagOutput  string
	flagTimeout time.Duration

	// openEngine builds the engine and its release func; replaced in tests.
	openEngine = func(ctx context.Context, cfg *config.Config) (*app.App, func() error, error) {
		e, err := app.New(ctx, cfg, app.Options{})
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	}
)

var rootCmd = &cobra.Command{
	Use:           "rewardctl",
	Short:         "Administer the learning rewards engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDriver, "driver", "", "store driver override (postgres, memory)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format (text, json)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "timeout for the whole command")
}

// Execute runs the root command and reports errors on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

// withEngine opens the engine, runs fn under the command timeout and
// releases the engine.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *app.App) error) (err error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagDriver != "" {
		cfg.Database.Driver = flagDriver
	}
	// The CLI is short-lived; the background worker owns the sweep.
	cfg.Scheduler.SweepEnabled = false

	e, release, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := release(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, e)
}
