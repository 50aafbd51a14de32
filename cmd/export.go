package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/app"
	"github.com/kilianp07/oncall/pkg/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export TEAM YYYY-MM",
	Short: "Export a committed month as JSON, CSV or an HTML chart",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", export.FormatJSON, "json, csv or html")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	m, err := monthArg(args[1])
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		a, err := svc.Schedule.Schedule(ctx, args[0], m)
		if err != nil {
			return err
		}
		rep, err := svc.Schedule.Report(ctx, args[0], m)
		if err != nil {
			return err
		}
		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOut, err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		return export.Write(w, exportFormat, export.Schedule{
			Team: args[0], Month: m.String(), Assignments: a, Report: &rep,
		})
	})
}
