package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the vault index from scratch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		report, err := app.IndexUC.IndexVault(cmd.Context(), app.Config.Collection)
		if report != nil {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed %d files into %q: %d chunks in %d batches\n",
				report.Files, report.Collection, report.Chunks, report.Batches)
			for _, skipped := range report.Skipped {
				fmt.Fprintf(out, "  skipped %s: %s\n", skipped.Path, skipped.Error)
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
