package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1009rishit/Case-data/internal/api"
	"github.com/1009rishit/Case-data/internal/runner"
)

// newRunCmd creates the 'run' subcommand: a full harvest cycle, crawl then
// archive, with the status server up for the duration when enabled.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs a full harvest cycle: crawl, then archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			reports := api.NewReportLog()
			var srv *http.Server
			if a.Config.Server.Enabled {
				srv = &http.Server{
					Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
					Handler:           api.NewServer(reports, a.Logger).Handler(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					a.Logger.Info("status server listening", zap.String("addr", srv.Addr))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.Logger.Error("status server failed", zap.Error(err))
					}
				}()
			}

			runReports, err := runner.New(a).Run(cmd.Context(), runner.Options{Crawl: true, Archive: true})
			for _, r := range runReports {
				reports.Add(r)
			}

			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if serr := srv.Shutdown(shutdownCtx); serr != nil {
					a.Logger.Warn("status server shutdown failed", zap.Error(serr))
				}
			}
			if err != nil {
				return err
			}
			return summarize(a.Logger, runReports)
		},
	}
}
