package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/app"
)

var daysCmd = &cobra.Command{
	Use:   "days YYYY-MM",
	Short: "List the on-call days of a month",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := monthArg(args[0])
		if err != nil {
			return err
		}
		return withService(func(ctx context.Context, svc *app.Service) error {
			days, err := svc.Schedule.OnCallDays(ctx, m)
			if err != nil {
				return err
			}
			for _, d := range days {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), d); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(daysCmd)
}
