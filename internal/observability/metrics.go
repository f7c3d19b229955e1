package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	operationTotal    *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec

	tabsWritten  *prometheus.CounterVec
	tabsOpened   prometheus.Counter
	tabsClosed   prometheus.Counter
	commandTotal *prometheus.CounterVec

	autosaveTotal *prometheus.CounterVec
	lastAutosave  prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			operationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tabkeeper_session_operations_total",
					Help: "Total session operations by operation and status.",
				},
				[]string{"operation", "status"},
			),
			operationDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tabkeeper_session_operation_duration_seconds",
					Help:    "Session operation duration in seconds by operation.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
			operationErrors: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tabkeeper_session_errors_total",
					Help: "Total session operation failures by operation and error code.",
				},
				[]string{"operation", "code"},
			),
			tabsWritten: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tabkeeper_tabs_written_total",
					Help: "Total open-tab directives written by operation.",
				},
				[]string{"operation"},
			),
			tabsOpened: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "tabkeeper_tabs_opened_total",
					Help: "Total tabs opened while replaying session scripts.",
				},
			),
			tabsClosed: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "tabkeeper_tabs_closed_total",
					Help: "Total tabs closed by session loads.",
				},
			),
			commandTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tabkeeper_commands_total",
					Help: "Total host commands executed by command and status.",
				},
				[]string{"command", "status"},
			),
			autosaveTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tabkeeper_autosave_total",
					Help: "Total scheduled autosaves by status.",
				},
				[]string{"status"},
			),
			lastAutosave: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "tabkeeper_last_autosave_timestamp_seconds",
					Help: "Unix time of the last successful autosave.",
				},
			),
		}

		prometheus.MustRegister(
			m.operationTotal,
			m.operationDuration,
			m.operationErrors,
			m.tabsWritten,
			m.tabsOpened,
			m.tabsClosed,
			m.commandTotal,
			m.autosaveTotal,
			m.lastAutosave,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// RecordSessionOperation records one save, append or load. code is the
// session error code on failure and empty on success.
func RecordSessionOperation(operation string, duration time.Duration, code string) {
	m := getMetrics()
	status := "success"
	if code != "" {
		status = "error"
		m.operationErrors.WithLabelValues(operation, code).Inc()
	}
	m.operationTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordTabsWritten(operation string, count int) {
	m := getMetrics()
	m.tabsWritten.WithLabelValues(operation).Add(float64(count))
}

func RecordTabOpened() {
	m := getMetrics()
	m.tabsOpened.Inc()
}

func RecordTabsClosed(count int) {
	m := getMetrics()
	m.tabsClosed.Add(float64(count))
}

func RecordCommand(command string, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.commandTotal.WithLabelValues(command, status).Inc()
}

func RecordAutosave(at time.Time, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
		m.lastAutosave.Set(float64(at.Unix()))
	}
	m.autosaveTotal.WithLabelValues(status).Inc()
}
