package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromReporter exposes telemetry as Prometheus counters.
type PromReporter struct {
	events     *prometheus.CounterVec
	exceptions *prometheus.CounterVec
}

var _ Reporter = (*PromReporter)(nil)

// NewPromReporter registers the locker counters with the given registerer.
// Pass prometheus.DefaultRegisterer for process-wide metrics.
func NewPromReporter(reg prometheus.Registerer) *PromReporter {
	factory := promauto.With(reg)
	return &PromReporter{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "locker_notifications_total",
			Help: "Total number of telemetry events recorded, by event name",
		}, []string{"event"}),
		exceptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "locker_exceptions_total",
			Help: "Total number of exceptions recorded, by failure kind",
		}, []string{"kind"}),
	}
}

func (r *PromReporter) TrackEvent(name string, props map[string]string) {
	r.events.WithLabelValues(name).Inc()
}

func (r *PromReporter) TrackException(err error, props map[string]string) {
	kind := props["kind"]
	if kind == "" {
		kind = "unknown"
	}
	r.exceptions.WithLabelValues(kind).Inc()
}
