// Package metrics exposes Prometheus counters and histograms for the
// audit engine: crawl request outcomes and the issues each run produces.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coastvine/seoauditor/internal/model"
)

var (
	CrawlRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seoaudit_crawl_requests_total",
			Help: "Total number of crawl requests executed",
		},
		[]string{"site", "status"},
	)

	CrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seoaudit_crawl_duration_seconds",
			Help:    "Duration of crawl requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"site"},
	)

	CrawlBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seoaudit_crawl_bytes_total",
			Help: "Total bytes of HTML downloaded across all crawls",
		},
		[]string{"site"},
	)

	IssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seoaudit_issues_total",
			Help: "Total number of audit issues found, by severity and category",
		},
		[]string{"site", "severity", "category"},
	)

	HardGatesFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seoaudit_hard_gates_failed_total",
			Help: "Total number of hard gate failures, by gate name",
		},
		[]string{"site", "gate"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seoaudit_run_duration_seconds",
			Help:    "Duration of a full audit run in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"site", "mode"},
	)
)

// RecordCrawl updates the crawl metrics for one fetch.
func RecordCrawl(site string, res model.CrawlResult) {
	statusStr := strconv.Itoa(res.StatusCode)
	if res.StatusCode == 0 {
		statusStr = "error"
	}
	CrawlRequestsTotal.WithLabelValues(site, statusStr).Inc()
	CrawlDuration.WithLabelValues(site).Observe(float64(res.DurationMs) / 1000)
	CrawlBytesTotal.WithLabelValues(site).Add(float64(len(res.Body)))
}

// RecordRun updates the per-run metrics once a result is assembled.
func RecordRun(site string, result model.AuditRunResult) {
	RunDuration.WithLabelValues(site, result.Mode).Observe(result.EndTime.Sub(result.StartTime).Seconds())
	for _, issue := range result.Issues {
		IssuesTotal.WithLabelValues(site, string(issue.Severity), string(issue.Category)).Inc()
	}
	for _, gate := range result.HardGates {
		if !gate.Passed {
			HardGatesFailedTotal.WithLabelValues(site, gate.Name).Inc()
		}
	}
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
// The server runs in a background goroutine and must be stopped via Server.Stop()
// to release resources and avoid leaks.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
