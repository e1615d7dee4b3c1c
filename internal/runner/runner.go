// Package runner orchestrates full harvest runs across configured targets.
//
// Each target gets its own session, crawl machine and archival pass. Targets
// run concurrently up to the session worker bound, and one target failing
// never stops the others; its report carries the error instead.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/1009rishit/Case-data/internal/app"
	"github.com/1009rishit/Case-data/internal/archive"
	"github.com/1009rishit/Case-data/internal/court"
	"github.com/1009rishit/Case-data/internal/crawl"
	"github.com/1009rishit/Case-data/internal/extract"
	"github.com/1009rishit/Case-data/internal/id/uuid"
	"github.com/1009rishit/Case-data/internal/metrics"
	"github.com/1009rishit/Case-data/internal/pdftext"
	"github.com/1009rishit/Case-data/internal/session"
)

// Options select which stages a run executes.
type Options struct {
	// Crawl harvests rows into the store.
	Crawl bool
	// Archive drains pending documents afterwards.
	Archive bool
	// Sink, when set, receives rows instead of the store. Useful for
	// dumping a harvest to a file without persisting it.
	Sink court.RowSink
}

// Runner executes harvest runs for every configured target.
type Runner struct {
	app    *app.App
	idGen  *uuid.Generator
	logger *zap.Logger
}

// New builds a Runner on top of the wired application services.
func New(a *app.App) *Runner {
	return &Runner{
		app:    a,
		idGen:  uuid.NewUUIDGenerator(),
		logger: a.Logger,
	}
}

// Run executes the selected stages for every target and returns one report
// per target. The returned error is non-nil only for setup problems; target
// failures are reported per target.
func (r *Runner) Run(ctx context.Context, opts Options) ([]court.RunReport, error) {
	targets := r.app.Config.Targets
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets configured")
	}

	workers := r.app.Config.Crawl.SessionWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	reports := make([]court.RunReport, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target court.Target) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			reports[i] = r.runTarget(ctx, target, opts)
		}(i, target)
	}
	wg.Wait()
	return reports, nil
}

func (r *Runner) runTarget(ctx context.Context, target court.Target, opts Options) court.RunReport {
	runID, err := r.idGen.NewID()
	if err != nil {
		runID = fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	report := court.RunReport{
		RunID:     runID,
		Target:    target.Name,
		Bench:     target.Bench,
		StartedAt: r.app.Clock.Now(),
	}
	logger := r.logger.With(
		zap.String("run_id", runID),
		zap.String("target", target.Name),
		zap.String("bench", target.Bench),
	)

	err = r.harvest(ctx, target, opts, logger, &report)
	report.FinishedAt = r.app.Clock.Now()
	if err != nil {
		report.Error = err.Error()
		metrics.ObserveTargetFailed()
		logger.Error("target run failed", zap.Error(err))
		return report
	}
	logger.Info("target run finished",
		zap.Int("rows", report.Rows),
		zap.Int("inserted", report.Inserted),
		zap.Int("links_added", report.LinksAdded),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("archived", report.Archived),
		zap.Int("failed", report.Failed),
	)
	return report
}

func (r *Runner) harvest(
	ctx context.Context,
	target court.Target,
	opts Options,
	logger *zap.Logger,
	report *court.RunReport,
) error {
	ext, err := extract.Lookup(target.Extractor)
	if err != nil {
		return fmt.Errorf("target %q: %w", target.Name, err)
	}
	ref, err := r.app.Store.EnsureCourt(ctx, target.Name, target.Bench, target.BaseURL, target.Tag)
	if err != nil {
		return fmt.Errorf("ensure court: %w", err)
	}

	httpCfg := r.app.Config.HTTP
	sess := session.New(session.Config{
		UserAgent:  httpCfg.UserAgent,
		Timeout:    httpCfg.Timeout(),
		MaxRetries: httpCfg.MaxRetries,
		BackoffMin: time.Duration(httpCfg.BackoffInitialMs) * time.Millisecond,
		BackoffMax: time.Duration(httpCfg.BackoffMaxMs) * time.Millisecond,
	}, logger)

	if opts.Crawl {
		machine := crawl.New(target, ext, sess, r.app.Solver, r.app.Clock, crawl.Config{
			CaptchaRetries: r.app.Config.Crawl.CaptchaRetries,
		}, logger)

		sink := opts.Sink
		if sink == nil {
			sink = func(row court.Row) error {
				outcome, err := r.app.Store.UpsertCase(ctx, ref, row.CaseNo, row.Date, row.Party, row.PDFLink)
				if err != nil {
					return fmt.Errorf("upsert case %q: %w", row.CaseNo, err)
				}
				metrics.ObserveUpsert(outcome.String())
				switch outcome {
				case court.OutcomeInserted:
					report.Inserted++
				case court.OutcomeLinkAdded:
					report.LinksAdded++
				case court.OutcomeDuplicate:
					report.Duplicates++
				}
				return nil
			}
		}

		stats, err := machine.Run(ctx, sink)
		report.Rows = stats.Rows
		if err != nil {
			return fmt.Errorf("crawl: %w", err)
		}
	}

	if opts.Archive {
		deriver := pdftext.New(pdftext.CommandRecognizer{}, logger)
		pipeline := archive.New(
			r.app.Store,
			r.app.Blobs,
			deriver,
			r.app.Hasher,
			r.app.Clock,
			r.app.Publisher,
			archive.Config{
				Workers: r.app.Config.Archive.Workers,
				WorkDir: r.app.Config.Archive.LocalDir,
				Topic:   r.app.Config.PubSub.Topic,
			},
			logger,
		)

		var fetcher archive.DocumentFetcher
		if target.DocumentGate {
			fetcher = archive.GatedFetcher{Session: sess, Solver: r.app.Solver, Logger: logger}
		} else {
			fetcher = archive.PlainFetcher{Session: sess}
		}

		result, err := pipeline.Run(ctx, target, ref, fetcher)
		report.Archived = result.Archived
		report.Failed = result.Failed
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return nil
}
