// Package crawl drives the per-target crawl session state machine.
//
// One Machine instance handles one (target, bench) run: acquire the search
// form and any anti-forgery token, solve the captcha gate, submit the search,
// and walk the result space, either by page cursor against a reported total
// or by enumerating a case-type x day cross-product. Rows are handed to the
// sink page by page; nothing buffers the full result set. The machine is
// restartable only from the initial state.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/1009rishit/Case-data/internal/court"
	"github.com/1009rishit/Case-data/internal/extract"
	"github.com/1009rishit/Case-data/internal/metrics"
)

// ErrChallengeExhausted reports that the captcha retry budget ran out. The
// target is failed for this run and is not retried further here.
var ErrChallengeExhausted = errors.New("captcha retry limit exceeded")

// state names the machine's positions, mostly for logs.
type state int

const (
	stateInit state = iota
	stateTokenFetched
	stateCaptchaPending
	stateCaptchaSolved
	stateResultsFetched
	statePaginating
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateTokenFetched:
		return "token_fetched"
	case stateCaptchaPending:
		return "captcha_pending"
	case stateCaptchaSolved:
		return "captcha_solved"
	case stateResultsFetched:
		return "results_fetched"
	case statePaginating:
		return "paginating"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config bounds machine behavior.
type Config struct {
	// CaptchaRetries is the challenge attempt budget for one run.
	CaptchaRetries int
}

// Stats summarizes one run.
type Stats struct {
	Pages           int
	Rows            int
	Dropped         int
	CaptchaAttempts int
}

// Machine runs the crawl protocol for one target.
type Machine struct {
	target court.Target
	ext    extract.RowExtractor
	sess   court.Session
	solver court.Solver
	clock  court.Clock
	cfg    Config
	logger *zap.Logger

	state    state
	stats    Stats
	failures int
}

// New constructs a Machine. The session must be exclusive to this machine.
func New(
	target court.Target,
	ext extract.RowExtractor,
	sess court.Session,
	solver court.Solver,
	clock court.Clock,
	cfg Config,
	logger *zap.Logger,
) *Machine {
	if cfg.CaptchaRetries <= 0 {
		cfg.CaptchaRetries = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		target: target,
		ext:    ext,
		sess:   sess,
		solver: solver,
		clock:  clock,
		cfg:    cfg,
		logger: logger.With(
			zap.String("target", target.Name),
			zap.String("bench", target.Bench),
		),
	}
}

// Run executes the crawl and streams rows into sink.
func (m *Machine) Run(ctx context.Context, sink court.RowSink) (Stats, error) {
	m.transition(stateInit)
	m.stats = Stats{}
	m.failures = 0

	var err error
	switch m.target.Mode {
	case court.ModeDateCell:
		err = m.runDateCells(ctx, sink)
	default:
		err = m.runPaged(ctx, sink)
	}
	if err != nil {
		m.transition(stateFailed)
		return m.stats, err
	}
	m.transition(stateDone)
	return m.stats, nil
}

// runPaged drives portals that report a total count and serve fixed pages.
func (m *Machine) runPaged(ctx context.Context, sink court.RowSink) error {
	searchURL := m.target.SearchURL()
	base, err := url.Parse(searchURL)
	if err != nil {
		return fmt.Errorf("parse search url: %w", err)
	}
	subs := m.windowSubstitutions(m.clock.Now())

	for {
		form, code, err := m.acquireChallenge(ctx, searchURL, base)
		if err != nil {
			return err
		}

		subs["page"] = "1"
		data, err := m.submit(ctx, searchURL, base, form, code, subs)
		if err != nil {
			return err
		}
		if data.InvalidCaptcha {
			if err := m.challengeFailed("results page rejected captcha"); err != nil {
				return err
			}
			continue // fresh token, fresh image
		}
		m.transition(stateResultsFetched)
		if err := m.emitPage(data, "", sink); err != nil {
			return err
		}

		totalPages := 1
		if data.Total >= 0 && m.target.PageSize > 0 {
			totalPages = (data.Total + m.target.PageSize - 1) / m.target.PageSize
		}
		if totalPages <= 1 {
			return nil
		}

		m.transition(statePaginating)
		restart := false
		for page := 2; page <= totalPages; page++ {
			subs["page"] = strconv.Itoa(page)
			data, err := m.submit(ctx, searchURL, base, form, code, subs)
			if err != nil {
				return err
			}
			if data.InvalidCaptcha {
				// Mid-pagination expiry restarts the run from Init; the
				// store makes re-emitted rows no-ops.
				if err := m.challengeFailed("captcha expired while paginating"); err != nil {
					return err
				}
				restart = true
				break
			}
			if err := m.emitPage(data, "", sink); err != nil {
				return err
			}
		}
		if !restart {
			return nil
		}
	}
}

// runDateCells drives portals enumerated by case-type x day instead of a
// page cursor. Captcha and session rules are identical per cell.
func (m *Machine) runDateCells(ctx context.Context, sink court.RowSink) error {
	searchURL := m.target.SearchURL()
	base, err := url.Parse(searchURL)
	if err != nil {
		return fmt.Errorf("parse search url: %w", err)
	}

	now := m.clock.Now()
	days := m.target.LookbackDays
	for _, caseType := range m.target.CaseTypes {
		for offset := days - 1; offset >= 0; offset-- {
			day := now.AddDate(0, 0, -offset)
			if err := m.runCell(ctx, searchURL, base, caseType, day, sink); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Machine) runCell(
	ctx context.Context,
	searchURL string,
	base *url.URL,
	caseType string,
	day time.Time,
	sink court.RowSink,
) error {
	dayStr := day.Format(m.target.DateFormat)
	subs := map[string]string{
		"day":       dayStr,
		"from_date": dayStr,
		"to_date":   dayStr,
		"case_type": caseType,
		"page":      "1",
	}
	cellDate := day.Format("2006-01-02")

	for {
		form, code, err := m.acquireChallenge(ctx, searchURL, base)
		if err != nil {
			return err
		}
		data, err := m.submit(ctx, searchURL, base, form, code, subs)
		if err != nil {
			return err
		}
		if data.InvalidCaptcha {
			if err := m.challengeFailed("results page rejected captcha"); err != nil {
				return err
			}
			continue
		}
		m.transition(stateResultsFetched)
		if err := m.emitPage(data, cellDate, sink); err != nil {
			return err
		}

		// Next-control pagination within the cell.
		for data.NextURL != "" {
			m.transition(statePaginating)
			page, err := m.sess.Get(ctx, data.NextURL)
			if err != nil {
				return fmt.Errorf("fetch next page: %w", err)
			}
			data, err = m.ext.ParseResults(page.Body, base)
			if err != nil {
				m.logger.Warn("next page parse failed, skipping",
					zap.String("case_type", caseType),
					zap.String("day", dayStr),
					zap.Error(err),
				)
				break
			}
			if err := m.emitPage(data, cellDate, sink); err != nil {
				return err
			}
		}
		return nil
	}
}

// acquireChallenge fetches the search form and resolves the captcha gate,
// honoring the retry budget. A rejected or timed-out solve never reuses the
// old image: the form (and with it token and image) is re-fetched fresh.
func (m *Machine) acquireChallenge(ctx context.Context, searchURL string, base *url.URL) (extract.FormInfo, string, error) {
	for {
		page, err := m.sess.Get(ctx, searchURL)
		if err != nil {
			return extract.FormInfo{}, "", fmt.Errorf("fetch search form: %w", err)
		}
		form, err := m.ext.ParseForm(page.Body, base)
		if err != nil {
			return extract.FormInfo{}, "", fmt.Errorf("parse search form: %w", err)
		}
		m.transition(stateTokenFetched)

		code, err := m.resolveCaptcha(ctx, form)
		if err != nil {
			if ctx.Err() != nil {
				return extract.FormInfo{}, "", err
			}
			m.logger.Warn("captcha solve failed", zap.Error(err))
			if ferr := m.challengeFailed(err.Error()); ferr != nil {
				return extract.FormInfo{}, "", ferr
			}
			continue
		}
		return form, code, nil
	}
}

// resolveCaptcha returns the challenge text for the current form: inline
// codes are read straight off the page, image challenges go to the solver.
func (m *Machine) resolveCaptcha(ctx context.Context, form extract.FormInfo) (string, error) {
	if form.CaptchaInline != "" {
		return strings.TrimSpace(form.CaptchaInline), nil
	}
	if form.CaptchaImageURL == "" {
		return "", nil
	}
	if m.solver == nil {
		return "", fmt.Errorf("target requires captcha solving but no solver is configured")
	}

	m.transition(stateCaptchaPending)
	m.stats.CaptchaAttempts++
	img, err := m.sess.Get(ctx, form.CaptchaImageURL)
	if err != nil {
		metrics.ObserveCaptcha("error")
		return "", fmt.Errorf("fetch captcha image: %w", err)
	}
	text, err := m.solver.Solve(ctx, img.Body)
	if err != nil {
		metrics.ObserveCaptcha("rejected")
		return "", fmt.Errorf("solve captcha: %w", err)
	}
	metrics.ObserveCaptcha("solved")
	m.transition(stateCaptchaSolved)
	return text, nil
}

// submit posts the search form with token, captcha and substitutions applied.
func (m *Machine) submit(
	ctx context.Context,
	searchURL string,
	base *url.URL,
	form extract.FormInfo,
	code string,
	subs map[string]string,
) (extract.PageData, error) {
	fields := make(map[string]string, len(m.target.FormFields)+4)
	for k, v := range m.target.FormFields {
		fields[k] = substitute(v, subs)
	}
	if form.TokenField != "" && form.Token != "" {
		fields[form.TokenField] = form.Token
	}
	for _, f := range form.CaptchaFields {
		if code != "" {
			fields[f] = code
		}
	}

	page, err := m.sess.PostForm(ctx, searchURL, fields)
	if err != nil {
		return extract.PageData{}, fmt.Errorf("submit search: %w", err)
	}
	m.stats.Pages++
	metrics.ObservePage(m.target.Name)

	data, err := m.ext.ParseResults(page.Body, base)
	if err != nil {
		// Unexpected page shape skips the page, it does not fail the run.
		m.logger.Warn("results parse failed, treating page as empty", zap.Error(err))
		return extract.PageData{Total: -1}, nil
	}
	return data, nil
}

// emitPage normalizes, filters and forwards one page of rows.
func (m *Machine) emitPage(data extract.PageData, fallbackDate string, sink court.RowSink) error {
	if data.TooBroad {
		m.logger.Warn("query too broad, portal asked to refine; page treated as empty")
		return nil
	}
	emitted := 0
	for _, row := range data.Rows {
		row.Court = m.target.Name
		row.Bench = m.target.Bench
		if row.Date == "" {
			row.Date = fallbackDate
		}
		row = row.Normalize()
		if !row.Complete() {
			m.stats.Dropped++
			continue
		}
		if err := sink(row); err != nil {
			return fmt.Errorf("row sink: %w", err)
		}
		emitted++
	}
	m.stats.Rows += emitted
	metrics.ObserveRows(m.target.Name, emitted)
	return nil
}

// challengeFailed counts one challenge failure against the budget. Counting
// failures rather than solver calls keeps inline-captcha portals bounded too.
func (m *Machine) challengeFailed(reason string) error {
	m.failures++
	if m.failures >= m.cfg.CaptchaRetries {
		m.logger.Error("captcha retry limit reached",
			zap.Int("failures", m.failures),
			zap.String("reason", reason),
		)
		return fmt.Errorf("%s after %d attempts: %w", reason, m.failures, ErrChallengeExhausted)
	}
	m.logger.Warn("challenge failed, refetching token and image",
		zap.Int("failures", m.failures),
		zap.String("reason", reason),
	)
	return nil
}

func (m *Machine) transition(next state) {
	if m.state == next {
		return
	}
	m.logger.Debug("state transition",
		zap.Stringer("from", m.state),
		zap.Stringer("to", next),
	)
	m.state = next
}

func (m *Machine) windowSubstitutions(now time.Time) map[string]string {
	from := now.AddDate(0, 0, -m.target.LookbackDays)
	return map[string]string{
		"from_date": from.Format(m.target.DateFormat),
		"to_date":   now.Format(m.target.DateFormat),
	}
}

func substitute(value string, subs map[string]string) string {
	if !strings.Contains(value, "{") {
		return value
	}
	for k, v := range subs {
		value = strings.ReplaceAll(value, "{"+k+"}", v)
	}
	return value
}
