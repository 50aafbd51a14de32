package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/app"
)

var (
	whatIfPrefs     []string
	whatIfMaxShifts int
)

var whatIfCmd = &cobra.Command{
	Use:   "whatif TEAM YYYY-MM ENGINEER",
	Short: "Preview the dates an engineer would get with other preferences",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := monthArg(args[1])
		if err != nil {
			return err
		}
		return withService(func(ctx context.Context, svc *app.Service) error {
			dates, err := svc.Schedule.WhatIf(ctx, args[0], m, args[2], whatIfPrefs, whatIfMaxShifts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dates)
		})
	},
}

func init() {
	whatIfCmd.Flags().StringSliceVarP(&whatIfPrefs, "prefer", "p", nil, "preferred dates in rank order")
	whatIfCmd.Flags().IntVarP(&whatIfMaxShifts, "max-shifts", "m", 1, "hypothetical shift cap")
	rootCmd.AddCommand(whatIfCmd)
}
