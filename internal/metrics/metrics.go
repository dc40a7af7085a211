package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isitdown_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "code"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isitdown_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// ProbeTotal counts website probes by outcome ("up" or "down").
	ProbeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isitdown_probe_total",
			Help: "Number of website probes by result",
		},
		[]string{"result"},
	)

	ProbeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "isitdown_probe_duration_seconds",
			Help:    "Duration of website probes",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	MonitorSkippedTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "isitdown_monitor_skipped_ticks_total",
			Help: "Monitor ticks dropped because the previous tick was still running",
		},
	)

	StatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isitdown_status_changes_total",
			Help: "Website status transitions detected by the monitor",
		},
		[]string{"to"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequests, RequestDuration, ProbeTotal, ProbeDuration, MonitorSkippedTicks, StatusChanges,
	}
}

// Register adds all collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
