// Package metrics exposes Prometheus metrics of disclosure sessions. Batch commands dump them to a textfile for the
// node exporter; the `serve` command exposes them on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Registry holds every metric of this package.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	StageDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "disclosure",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each stage of a disclosure session.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"path", "stage"})

	SessionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "disclosure",
		Name:      "sessions_total",
		Help:      "Disclosure sessions by path and outcome.",
	}, []string{"path", "outcome"})

	DisclosureRound = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "disclosure",
		Name:      "round",
		Help:      "Beacon round the last time-delayed session was bound to.",
	}, []string{"chain"})
)

// ObserveStage records how long a stage took.
func ObserveStage(path, stage string, d time.Duration) {
	StageDuration.WithLabelValues(path, stage).Observe(d.Seconds())
}

// RecordSession counts a finished session.
func RecordSession(path string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}

	SessionsTotal.WithLabelValues(path, outcome).Inc()
}

// WriteTextfile writes the registry in the text exposition format. An empty filename is a no-op.
func WriteTextfile(filename string) error {
	if filename == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(filename, Registry); err != nil {
		return errors.Wrapf(err, "无法写入指标文件 %v", filename)
	}

	return nil
}

// Handler serves the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
