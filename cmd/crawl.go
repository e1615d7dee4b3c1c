package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1009rishit/Case-data/internal/court"
	"github.com/1009rishit/Case-data/internal/rowio"
	"github.com/1009rishit/Case-data/internal/runner"
)

// newCrawlCmd creates the 'crawl' subcommand: harvest rows from every
// configured target into the metadata store, or into a CSV file when --out
// is given.
func newCrawlCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Harvests case filing rows from the configured court portals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			opts := runner.Options{Crawl: true}

			var flush func() error
			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w := rowio.NewWriter(f)
				opts.Sink = func(row court.Row) error { return w.Write(row) }
				flush = w.Flush
			}

			reports, err := runner.New(a).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if flush != nil {
				if err := flush(); err != nil {
					return fmt.Errorf("flush output file: %w", err)
				}
			}
			return summarize(a.Logger, reports)
		},
	}

	cmd.Flags().StringVar(&outFile, "out", "", "write harvested rows to a CSV file instead of the store")
	return cmd
}

// summarize logs per-target outcomes and fails the command when every
// target failed.
func summarize(logger *zap.Logger, reports []court.RunReport) error {
	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	logger.Info("harvest finished",
		zap.Int("targets", len(reports)),
		zap.Int("failed", failed),
	)
	if failed == len(reports) && len(reports) > 0 {
		return fmt.Errorf("all %d targets failed", failed)
	}
	return nil
}
