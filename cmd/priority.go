package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/app"
)

var priorityCmd = &cobra.Command{
	Use:   "priority TEAM YYYY-MM",
	Short: "Show a team's priority groups for a month",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := monthArg(args[1])
		if err != nil {
			return err
		}
		return withService(func(ctx context.Context, svc *app.Service) error {
			groups, err := svc.Schedule.Priority(ctx, args[0], m)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), groups)
		})
	},
}

func init() {
	rootCmd.AddCommand(priorityCmd)
}
