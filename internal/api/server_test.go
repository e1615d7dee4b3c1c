package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1009rishit/Case-data/internal/api"
	"github.com/1009rishit/Case-data/internal/court"
)

func newTestServer(t *testing.T) (*httptest.Server, *api.ReportLog) {
	t.Helper()
	reports := api.NewReportLog()
	srv := httptest.NewServer(api.NewServer(reports, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, reports
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunEndpoints(t *testing.T) {
	t.Parallel()
	srv, reports := newTestServer(t)

	report := court.RunReport{
		RunID:     "run-1",
		Target:    "Delhi High Court",
		Rows:      10,
		Inserted:  8,
		StartedAt: time.Date(2025, 8, 31, 10, 0, 0, 0, time.UTC),
	}
	reports.Add(report)

	t.Run("List", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/runs")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload struct {
			Runs []court.RunReport `json:"runs"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		require.Len(t, payload.Runs, 1)
		assert.Equal(t, "run-1", payload.Runs[0].RunID)
	})

	t.Run("GetExisting", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/runs/run-1")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload struct {
			Run court.RunReport `json:"run"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, 10, payload.Run.Rows)
	})

	t.Run("GetMissing", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/runs/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
