package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"djconv/database"
	"djconv/export"
)

var errValidationFailed = errors.New("validation found problems")

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the database for problems that would stop an export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dm, err := database.NewDatabaseManager(a.cfg.MixxxDB, 1, a.logger)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer dm.Close()

			report, err := export.Check(cmd.Context(), dm)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if report.OK() {
				fmt.Fprintln(w, "✓ No problems found")
				return nil
			}
			for _, issue := range report.Issues {
				if issue.ID != 0 {
					fmt.Fprintf(w, "⚠️  %s: %s %d: %s\n", issue.Check, issue.Entity, issue.ID, issue.Message)
				} else {
					fmt.Fprintf(w, "⚠️  %s: %s\n", issue.Check, issue.Message)
				}
			}
			return fmt.Errorf("%w: %d issues", errValidationFailed, len(report.Issues))
		},
	}
}
