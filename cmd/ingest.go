package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1009rishit/Case-data/internal/court"
	"github.com/1009rishit/Case-data/internal/metrics"
	"github.com/1009rishit/Case-data/internal/rowio"
)

// newIngestCmd creates the 'ingest' subcommand: replay a previously dumped
// CSV of harvested rows into the metadata store.
func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <rows.csv>",
		Short: "Loads harvested rows from a CSV file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open rows file: %w", err)
			}
			defer f.Close()

			rows, dropped, err := rowio.Read(f)
			if err != nil {
				return fmt.Errorf("read rows: %w", err)
			}

			ctx := cmd.Context()
			courts := make(map[string]court.CourtRef)
			var inserted, linksAdded, duplicates int
			for _, row := range rows {
				key := row.Court + "\x00" + row.Bench
				ref, ok := courts[key]
				if !ok {
					ref, err = a.Store.EnsureCourt(ctx, row.Court, row.Bench, "", "")
					if err != nil {
						return fmt.Errorf("ensure court %q: %w", row.Court, err)
					}
					courts[key] = ref
				}
				outcome, err := a.Store.UpsertCase(ctx, ref, row.CaseNo, row.Date, row.Party, row.PDFLink)
				if err != nil {
					return fmt.Errorf("upsert case %q: %w", row.CaseNo, err)
				}
				metrics.ObserveUpsert(outcome.String())
				switch outcome {
				case court.OutcomeInserted:
					inserted++
				case court.OutcomeLinkAdded:
					linksAdded++
				case court.OutcomeDuplicate:
					duplicates++
				}
			}

			a.Logger.Info("ingest finished",
				zap.Int("rows", len(rows)),
				zap.Int("dropped", dropped),
				zap.Int("inserted", inserted),
				zap.Int("links_added", linksAdded),
				zap.Int("duplicates", duplicates),
			)
			return nil
		},
	}
	return cmd
}
