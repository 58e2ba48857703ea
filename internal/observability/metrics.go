// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"captable-lab/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal       *prometheus.CounterVec
	BreakpointsDerived  *prometheus.CounterVec
	ValidationFailures  *prometheus.CounterVec
	AnalysisDuration    prometheus.Histogram
	SweepIterations     prometheus.Histogram
	CurvePointsSampled  prometheus.Counter
	ReportsGenerated    prometheus.Counter

	// API metrics
	HTTPRequestDuration *prometheus.HistogramVec
	WSClientsConnected  prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulAnalysis prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "captable_lab"
	}

	return &Metrics{
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of breakpoint analyses by status",
		}, []string{"status"}),
		BreakpointsDerived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "breakpoints_total",
			Help:      "Total number of breakpoints derived by type",
		}, []string{"type"}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "validation_failures_total",
			Help:      "Total number of failed validation checks by check id",
		}, []string{"check"}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Breakpoint analysis duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		SweepIterations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "sweep_iterations",
			Help:      "State-walk steps per analysis",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		CurvePointsSampled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "curve_points_sampled_total",
			Help:      "Total number of allocation curve points sampled",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "reports_generated_total",
			Help:      "Total number of report files written",
		}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
		WSClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_clients_connected",
			Help:      "Number of connected websocket feed clients",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulAnalysis: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last successful analysis",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAnalysis records one completed analysis and its schedule.
func RecordAnalysis(res *domain.AnalysisResult, unixSeconds float64) {
	DefaultMetrics.AnalysesTotal.WithLabelValues("completed").Inc()
	DefaultMetrics.AnalysisDuration.Observe(float64(res.Performance.ElapsedMicros) / 1e6)
	DefaultMetrics.SweepIterations.Observe(float64(res.Performance.SweepIterations))

	for _, bp := range res.Breakpoints {
		DefaultMetrics.BreakpointsDerived.WithLabelValues(bp.Type.String()).Inc()
	}
	for _, v := range res.ValidationResults {
		if !v.Passed {
			DefaultMetrics.ValidationFailures.WithLabelValues(v.Check).Inc()
		}
	}
	DefaultMetrics.LastSuccessfulAnalysis.Set(unixSeconds)
}

// RecordAnalysisRejected counts a cap table that failed construction.
func RecordAnalysisRejected() {
	DefaultMetrics.AnalysesTotal.WithLabelValues("rejected").Inc()
}

// RecordCurveSampled counts stored allocation curve points.
func RecordCurveSampled(points int) {
	DefaultMetrics.CurvePointsSampled.Add(float64(points))
}

// RecordReportGenerated counts one written report artifact set.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordWSClients sets the connected feed client gauge.
func RecordWSClients(n int) {
	DefaultMetrics.WSClientsConnected.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records one served API request.
func RecordHTTPRequest(route, status string, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route, status).Observe(seconds)
}
