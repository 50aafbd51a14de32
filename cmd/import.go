package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/app"
	"github.com/kilianp07/oncall/core/store"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load a YAML or JSON roster into the configured store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fx, err := store.LoadFixture(args[0])
		if err != nil {
			return err
		}
		return withService(func(ctx context.Context, svc *app.Service) error {
			if err := fx.Apply(ctx, svc.Schedule.Store()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d team(s), %d engineer(s), %d holiday(s)\n",
				len(fx.Teams), len(fx.Engineers), len(fx.Holidays))
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
