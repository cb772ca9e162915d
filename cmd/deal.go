package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dealscout/dealscout/internal/lifecycle"
	"github.com/dealscout/dealscout/internal/model"
)

var (
	dealID int64
	dealTo string
)

var dealCmd = &cobra.Command{
	Use:   "deal",
	Short: "Manual deal lifecycle operations",
}

var dealTransitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "Move a deal to another status",
	Example: `  dealscout deal transition --id 42 --to archived
  dealscout deal transition --id 42 --to active`,
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := model.ParseDealStatus(dealTo)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context(), "deal", false)
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := newLifecycleStore(env.Pool, cfg.Lifecycle)
		if err != nil {
			return err
		}
		return transitionDeal(cmd.Context(), st, cmd.OutOrStdout(), dealID, to)
	},
}

var dealCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether a deal can still be edited",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "deal", false)
		if err != nil {
			return err
		}
		defer env.Close()

		return checkDeal(cmd.Context(), lifecycle.NewPostgresStore(env.Pool), cmd.OutOrStdout(), dealID)
	},
}

func transitionDeal(ctx context.Context, st lifecycle.Store, out io.Writer, id int64, to model.DealStatus) error {
	from, err := st.TransitionDeal(ctx, id, to)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "deal %d: %s -> %s\n", id, from, to)
	return err
}

func checkDeal(ctx context.Context, st lifecycle.Store, out io.Writer, id int64) error {
	if err := st.EnsureEditable(ctx, id); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "deal %d is editable\n", id)
	return err
}

func init() {
	for _, c := range []*cobra.Command{dealTransitionCmd, dealCheckCmd} {
		c.Flags().Int64Var(&dealID, "id", 0, "deal id")
		_ = c.MarkFlagRequired("id")
	}
	dealTransitionCmd.Flags().StringVar(&dealTo, "to", "", "target status (draft, active, expired, archived)")
	_ = dealTransitionCmd.MarkFlagRequired("to")

	dealCmd.AddCommand(dealTransitionCmd, dealCheckCmd)
	rootCmd.AddCommand(dealCmd)
}
