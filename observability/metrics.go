package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	TurnsTotal          *prometheus.CounterVec
	StepDuration        *prometheus.HistogramVec
	AccessDenials       *prometheus.CounterVec
	ActiveConversations prometheus.Gauge
	ModelCalls          *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed conversation turns by agent type and outcome.",
		}, []string{"agent_type", "outcome"}),
		StepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_ms",
			Help:      "Workflow step duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"step", "outcome"}),
		AccessDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_denials_total",
			Help:      "Subscription gate denials by agent type and tier.",
		}, []string{"agent_type", "tier"}),
		ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Conversations currently executing a turn.",
		}),
		ModelCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model invocations by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
}

// ObserveStep records one workflow step execution. It has the
// workflow.StepObserver shape so it can be wired straight into a builder.
func (m *Metrics) ObserveStep(step string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.StepDuration.WithLabelValues(step, outcome).Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
