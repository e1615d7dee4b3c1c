package captcha_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1009rishit/Case-data/internal/captcha"
)

func newTestClient(t *testing.T, baseURL string, maxPolls int) *captcha.Client {
	t.Helper()
	client, err := captcha.New(captcha.Config{
		BaseURL:      baseURL,
		Key:          "test-key",
		InitialDelay: time.Millisecond,
		PollInterval: time.Millisecond,
		MaxPolls:     maxPolls,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestSolveSuccess(t *testing.T) {
	t.Parallel()

	image := []byte("fake-png")
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/in.php":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "test-key", r.FormValue("key"))
			assert.Equal(t, "base64", r.FormValue("method"))
			assert.Equal(t, base64.StdEncoding.EncodeToString(image), r.FormValue("body"))
			_, _ = w.Write([]byte("OK|42"))
		case "/res.php":
			assert.Equal(t, "42", r.URL.Query().Get("id"))
			assert.Equal(t, "get", r.URL.Query().Get("action"))
			if polls.Add(1) < 2 {
				_, _ = w.Write([]byte("CAPCHA_NOT_READY"))
				return
			}
			_, _ = w.Write([]byte("OK|XK7P2"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 5)
	text, err := client.Solve(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, "XK7P2", text)
	assert.Equal(t, int32(2), polls.Load())
}

func TestSolveTimesOutAfterMaxPolls(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in.php" {
			_, _ = w.Write([]byte("OK|7"))
			return
		}
		polls.Add(1)
		_, _ = w.Write([]byte("CAPCHA_NOT_READY"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)
	_, err := client.Solve(context.Background(), []byte("img"))
	require.ErrorIs(t, err, captcha.ErrSolveTimeout)
	assert.Equal(t, int32(3), polls.Load())
}

func TestSolveSubmissionRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ERROR_ZERO_BALANCE"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)
	_, err := client.Solve(context.Background(), []byte("img"))
	require.ErrorIs(t, err, captcha.ErrSolveRejected)
}

func TestSolvePollRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in.php" {
			_, _ = w.Write([]byte("OK|9"))
			return
		}
		_, _ = w.Write([]byte("ERROR_CAPTCHA_UNSOLVABLE"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)
	_, err := client.Solve(context.Background(), []byte("img"))
	require.ErrorIs(t, err, captcha.ErrSolveRejected)
}

func TestSolveCanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in.php" {
			_, _ = w.Write([]byte("OK|1"))
			return
		}
		_, _ = w.Write([]byte("CAPCHA_NOT_READY"))
	}))
	defer srv.Close()

	client, err := captcha.New(captcha.Config{
		BaseURL:      srv.URL,
		InitialDelay: time.Minute,
		PollInterval: time.Minute,
		MaxPolls:     3,
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Solve(ctx, []byte("img"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := captcha.New(captcha.Config{}, nil)
	require.Error(t, err)
}
