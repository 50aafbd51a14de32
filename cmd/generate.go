package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/app"
)

var generateTeams []string

var generateCmd = &cobra.Command{
	Use:   "generate YYYY-MM",
	Short: "Generate and commit the schedule of a month",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringSliceVarP(&generateTeams, "team", "t", nil, "teams to schedule (default all)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	m, err := monthArg(args[0])
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		out, err := svc.Generate(ctx, m, generateTeams...)
		if err != nil {
			return err
		}
		for team, res := range out.Teams {
			if len(res.Shortfalls) > 0 {
				if _, err := fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d day(s) below capacity\n", team, len(res.Shortfalls)); err != nil {
					return err
				}
			}
		}
		return printJSON(cmd.OutOrStdout(), out)
	})
}
