package cmd

import (
	"github.com/spf13/cobra"

	"github.com/1009rishit/Case-data/internal/runner"
)

// newArchiveCmd creates the 'archive' subcommand: retrieve and upload every
// pending document without re-crawling the portals first.
func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Retrieves and archives pending documents for every target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			reports, err := runner.New(a).Run(cmd.Context(), runner.Options{Archive: true})
			if err != nil {
				return err
			}
			return summarize(a.Logger, reports)
		},
	}
}
