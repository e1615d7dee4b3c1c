package archive

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/1009rishit/Case-data/internal/court"
	"github.com/1009rishit/Case-data/internal/extract"
)

// DocumentFetcher retrieves one document's bytes from its link.
type DocumentFetcher interface {
	Fetch(ctx context.Context, link string) ([]byte, error)
}

// PlainFetcher downloads the link directly through the crawl session, so the
// session's cookies accompany the request.
type PlainFetcher struct {
	Session court.Session
}

// Fetch implements DocumentFetcher.
func (f PlainFetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	page, err := f.Session.Get(ctx, link)
	if err != nil {
		return nil, err
	}
	if page.StatusCode >= 400 {
		return nil, fmt.Errorf("document fetch returned %d", page.StatusCode)
	}
	return page.Body, nil
}

// GatedFetcher handles portals that answer a document link with a captcha
// page instead of the PDF. It parses the gate form, solves the challenge and
// posts it back, retrying with a fresh image on rejection.
type GatedFetcher struct {
	Session  court.Session
	Solver   court.Solver
	Attempts int
	Logger   *zap.Logger
}

// Fetch implements DocumentFetcher.
func (f GatedFetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	attempts := f.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("parse document link: %w", err)
	}

	for attempt := 1; ; attempt++ {
		page, err := f.Session.Get(ctx, link)
		if err != nil {
			return nil, err
		}
		if isPDF(page) {
			// Gate already satisfied for this session.
			return page.Body, nil
		}

		gate, err := extract.ParseGateForm(page.Body, base)
		if err != nil {
			return nil, fmt.Errorf("document gate: %w", err)
		}
		if f.Solver == nil {
			return nil, fmt.Errorf("document gate requires captcha solving but no solver is configured")
		}
		img, err := f.Session.Get(ctx, gate.CaptchaImageURL)
		if err != nil {
			return nil, fmt.Errorf("fetch gate captcha: %w", err)
		}
		code, err := f.Solver.Solve(ctx, img.Body)
		if err != nil {
			if attempt >= attempts {
				return nil, fmt.Errorf("solve gate captcha: %w", err)
			}
			logger.Warn("gate captcha solve failed, retrying",
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		form := make(map[string]string, len(gate.Hidden)+1)
		for k, v := range gate.Hidden {
			form[k] = v
		}
		form[gate.CaptchaField] = code

		resp, err := f.Session.PostForm(ctx, gate.Action, form)
		if err != nil {
			return nil, fmt.Errorf("submit gate form: %w", err)
		}
		if isPDF(resp) {
			return resp.Body, nil
		}
		if attempt >= attempts {
			return nil, fmt.Errorf("document gate rejected captcha after %d attempts", attempt)
		}
		logger.Warn("gate rejected captcha, refetching", zap.Int("attempt", attempt))
	}
}

func isPDF(page court.Page) bool {
	if strings.Contains(strings.ToLower(page.ContentType), "application/pdf") {
		return true
	}
	return len(page.Body) > 4 && string(page.Body[:5]) == "%PDF-"
}
