// Package captcha implements the client for the XEvil-style image solving
// service: submit a base64 image, receive a job id, poll until solved.
package captcha

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Failure sentinels. Transport problems are wrapped normal errors; these two
// mark protocol-level outcomes the crawl machine reacts to.
var (
	// ErrSolveTimeout means the poll budget ran out before the service
	// produced text.
	ErrSolveTimeout = errors.New("captcha solve timed out")
	// ErrSolveRejected means the service refused the submission or reported
	// an unrecoverable error for the job.
	ErrSolveRejected = errors.New("captcha submission rejected")
)

// Config controls the solving protocol.
type Config struct {
	BaseURL      string
	Key          string
	InitialDelay time.Duration
	PollInterval time.Duration
	MaxPolls     int
	Timeout      time.Duration
}

// Client talks to the solving service. One Client is safe for concurrent use;
// each Solve call owns its own job id, so independent crawl sessions never
// share challenge state.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client, filling protocol defaults.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("captcha base url is required")
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 5 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 6
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 15 * time.Second,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Solve submits the challenge image and polls for the solved text. It blocks
// the calling session up to InitialDelay + MaxPolls*PollInterval. A failed
// solve is never retried here: the caller must fetch a fresh challenge.
func (c *Client) Solve(ctx context.Context, image []byte) (string, error) {
	id, err := c.submit(ctx, image)
	if err != nil {
		return "", err
	}
	c.logger.Debug("captcha submitted", zap.String("job_id", id))

	if err := sleepCtx(ctx, c.cfg.InitialDelay); err != nil {
		return "", err
	}

	for attempt := 0; attempt < c.cfg.MaxPolls; attempt++ {
		text, done, err := c.poll(ctx, id)
		if err != nil {
			return "", err
		}
		if done {
			c.logger.Debug("captcha solved", zap.String("job_id", id))
			return text, nil
		}
		if err := sleepCtx(ctx, c.cfg.PollInterval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("job %s after %d polls: %w", id, c.cfg.MaxPolls, ErrSolveTimeout)
}

func (c *Client) submit(ctx context.Context, image []byte) (string, error) {
	form := url.Values{
		"key":    {c.cfg.Key},
		"method": {"base64"},
		"body":   {base64.StdEncoding.EncodeToString(image)},
	}
	body, err := c.call(ctx, http.MethodPost, c.endpoint("in.php"), form)
	if err != nil {
		return "", fmt.Errorf("submit captcha: %w", err)
	}
	if !strings.HasPrefix(body, "OK|") {
		return "", fmt.Errorf("submit response %q: %w", truncate(body), ErrSolveRejected)
	}
	return strings.SplitN(body, "|", 2)[1], nil
}

// poll returns (text, true, nil) once the job is solved, (_, false, nil)
// while it is still pending, and an error for rejections and transport
// failures.
func (c *Client) poll(ctx context.Context, id string) (string, bool, error) {
	q := url.Values{
		"key":    {c.cfg.Key},
		"action": {"get"},
		"id":     {id},
	}
	body, err := c.call(ctx, http.MethodGet, c.endpoint("res.php")+"?"+q.Encode(), nil)
	if err != nil {
		return "", false, fmt.Errorf("poll captcha: %w", err)
	}
	switch {
	case strings.HasPrefix(body, "OK|"):
		return strings.SplitN(body, "|", 2)[1], true, nil
	case body == "CAPCHA_NOT_READY" || body == "CAPTCHA_NOT_READY":
		return "", false, nil
	case strings.HasPrefix(body, "ERROR"):
		return "", false, fmt.Errorf("poll response %q: %w", truncate(body), ErrSolveRejected)
	default:
		// Unknown markers are treated as still-pending; the poll budget
		// bounds how long that can last.
		return "", false, nil
	}
}

func (c *Client) call(ctx context.Context, method, endpoint string, form url.Values) (string, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("solver returned status %d", resp.StatusCode)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("captcha solve canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func truncate(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
