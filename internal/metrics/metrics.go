// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	harvestRowsTotal        *prometheus.CounterVec
	harvestPagesTotal       *prometheus.CounterVec
	captchaAttemptsTotal    *prometheus.CounterVec
	upsertsTotal            *prometheus.CounterVec
	documentsArchivedTotal  *prometheus.CounterVec
	documentsFailedTotal    *prometheus.CounterVec
	archiveDurationSeconds  *prometheus.HistogramVec
	targetsFailedTotal      prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		harvestRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_rows_total",
				Help: "Total normalized rows emitted by crawl sessions, labeled by target.",
			},
			[]string{"target"},
		)

		harvestPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_pages_total",
				Help: "Total result pages fetched, labeled by target.",
			},
			[]string{"target"},
		)

		captchaAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_captcha_attempts_total",
				Help: "Total captcha challenge attempts, labeled by result.",
			},
			[]string{"result"},
		)

		upsertsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_upserts_total",
				Help: "Total case upserts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		documentsArchivedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_documents_archived_total",
				Help: "Total documents uploaded and marked archived, labeled by target.",
			},
			[]string{"target"},
		)

		documentsFailedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_documents_failed_total",
				Help: "Total per-document archival failures, labeled by target.",
			},
			[]string{"target"},
		)

		archiveDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvest_archive_duration_seconds",
				Help:    "Histogram of per-document archival latencies.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"target"},
		)

		targetsFailedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvest_targets_failed_total",
				Help: "Total target runs that ended in failure.",
			},
		)
	})
}

// Handler returns an http.Handler exposing the metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRows counts emitted rows for a target.
func ObserveRows(target string, n int) {
	if harvestRowsTotal != nil && n > 0 {
		harvestRowsTotal.WithLabelValues(target).Add(float64(n))
	}
}

// ObservePage counts one fetched results page.
func ObservePage(target string) {
	if harvestPagesTotal != nil {
		harvestPagesTotal.WithLabelValues(target).Inc()
	}
}

// ObserveCaptcha counts one challenge attempt with its result
// (solved | rejected | timeout | error).
func ObserveCaptcha(result string) {
	if captchaAttemptsTotal != nil {
		captchaAttemptsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveUpsert counts one upsert outcome.
func ObserveUpsert(outcome string) {
	if upsertsTotal != nil {
		upsertsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveArchived counts one archived document and its latency.
func ObserveArchived(target string, d time.Duration) {
	if documentsArchivedTotal != nil {
		documentsArchivedTotal.WithLabelValues(target).Inc()
	}
	if archiveDurationSeconds != nil {
		archiveDurationSeconds.WithLabelValues(target).Observe(d.Seconds())
	}
}

// ObserveArchiveFailure counts one per-document failure.
func ObserveArchiveFailure(target string) {
	if documentsFailedTotal != nil {
		documentsFailedTotal.WithLabelValues(target).Inc()
	}
}

// ObserveTargetFailed counts one failed target run.
func ObserveTargetFailed() {
	if targetsFailedTotal != nil {
		targetsFailedTotal.Inc()
	}
}
