// Package session provides a cookie-scoped HTTP client for one crawl run.
//
// Every crawl run owns its own Session, and through it its own cookie jar.
// Court portals tie the anti-forgery token, the captcha image and the search
// results to one server-side session, so all requests of a run must ride the
// same jar, and no two runs may ever share one.
package session

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/1009rishit/Case-data/internal/court"
)

const responseKey = "session_response"

// Config controls session HTTP behavior.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// Session wraps a colly collector with request/response plumbing. It is owned
// by a single crawl run; the collector's cookie jar carries the run's state.
type Session struct {
	cfg       Config
	collector *colly.Collector
	logger    *zap.Logger
}

var _ court.Session = (*Session)(nil)

type responseHolder struct {
	statusCode  int
	contentType string
	finalURL    string
	body        []byte
	err         error
	seen        bool
}

// New builds a Session with a fresh cookie jar.
func New(cfg Config, logger *zap.Logger) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 250 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(newHTTPTransport())

	c.OnResponse(func(r *colly.Response) {
		holder, ok := r.Request.Ctx.GetAny(responseKey).(*responseHolder)
		if !ok {
			return
		}
		holder.statusCode = r.StatusCode
		holder.body = append([]byte(nil), r.Body...)
		if r.Headers != nil {
			holder.contentType = r.Headers.Get("Content-Type")
		}
		if r.Request != nil && r.Request.URL != nil {
			holder.finalURL = r.Request.URL.String()
		}
		holder.seen = true
	})
	c.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Request == nil {
			return
		}
		if holder, ok := r.Request.Ctx.GetAny(responseKey).(*responseHolder); ok {
			holder.err = err
		}
	})

	return &Session{cfg: cfg, collector: c, logger: logger}
}

// Get fetches a URL over the session jar.
func (s *Session) Get(ctx context.Context, rawURL string) (court.Page, error) {
	return s.do(ctx, http.MethodGet, rawURL, "", nil)
}

// PostForm submits an urlencoded form over the session jar.
func (s *Session) PostForm(ctx context.Context, rawURL string, form map[string]string) (court.Page, error) {
	values := url.Values{}
	for k, v := range form {
		values.Set(k, v)
	}
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(ctx, http.MethodPost, rawURL, values.Encode(), hdr)
}

func (s *Session) do(ctx context.Context, method, rawURL, body string, hdr http.Header) (court.Page, error) {
	var lastErr error
	attempts := s.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, s.backoff(attempt)); err != nil {
				return court.Page{}, err
			}
			s.logger.Debug("retrying request",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
			)
		}
		page, err := s.doOnce(ctx, method, rawURL, body, hdr)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return court.Page{}, lastErr
		}
	}
	return court.Page{}, fmt.Errorf("%s %s after %d attempts: %w", method, rawURL, attempts, lastErr)
}

func (s *Session) doOnce(ctx context.Context, method, rawURL, body string, hdr http.Header) (court.Page, error) {
	holder := &responseHolder{}
	cctx := colly.NewContext()
	cctx.Put(responseKey, holder)

	done := make(chan error, 1)
	go func() {
		if body == "" {
			done <- s.collector.Request(method, rawURL, nil, cctx, hdr)
			return
		}
		done <- s.collector.Request(method, rawURL, strings.NewReader(body), cctx, hdr)
	}()

	select {
	case <-ctx.Done():
		return court.Page{}, fmt.Errorf("request canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return court.Page{}, fmt.Errorf("request failed: %w", err)
		}
	}
	if holder.err != nil {
		return court.Page{}, fmt.Errorf("response failed: %w", holder.err)
	}
	if !holder.seen {
		return court.Page{}, fmt.Errorf("no response received for %s", rawURL)
	}

	finalURL := holder.finalURL
	if finalURL == "" {
		finalURL = rawURL
	}
	return court.Page{
		URL:         finalURL,
		StatusCode:  holder.statusCode,
		ContentType: holder.contentType,
		Body:        holder.body,
	}, nil
}

// Cookies returns the jar's cookies for the given URL.
func (s *Session) Cookies(rawURL string) []*http.Cookie {
	return s.collector.Cookies(rawURL)
}

// SetCookies seeds the jar, used to hand a crawl session over to the
// retrieval pipeline on document-gated sites.
func (s *Session) SetCookies(rawURL string, cookies []*http.Cookie) error {
	if err := s.collector.SetCookies(rawURL, cookies); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

func (s *Session) backoff(attempt int) time.Duration {
	d := s.cfg.BackoffMin << uint(attempt-1)
	if d > s.cfg.BackoffMax {
		d = s.cfg.BackoffMax
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
