package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one deal lifecycle sweep and print the report",
	Long:  "Activates due drafts, expires finished deals and reactivates expired deals whose window was extended. Takes the same database lock as the sweeper inside serve, so when another sweep is running it moves nothing and exits with an error.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "sweep", false)
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := newLifecycleStore(env.Pool, cfg.Lifecycle)
		if err != nil {
			return err
		}
		sweeper, err := buildSweeper(st, nil, cfg.Lifecycle)
		if err != nil {
			return err
		}

		report, runErr := sweeper.RunOnce(ctx)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
