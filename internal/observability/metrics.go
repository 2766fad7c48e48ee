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
	ActiveInterviews prometheus.Gauge
	InterviewEvents  *prometheus.CounterVec
	Turns            *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec
	CaptureSeconds   prometheus.Histogram
	StageLatency     *prometheus.HistogramVec

	Pipeline *PipelineWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveInterviews: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_interviews",
			Help:      "Whether an interview session is currently active.",
		}),
		InterviewEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interview_events_total",
			Help:      "Interview lifecycle and capture events by type.",
		}, []string{"event"}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Transcript turns appended by speaker role.",
		}, []string{"role"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Remote service errors by provider and code.",
		}, []string{"provider", "code"}),
		CaptureSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Duration of finished capture sessions in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Latency of pipeline stages in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}, []string{"stage"}),
		Pipeline: NewPipelineWindow(256),
	}
}

// ObserveStage records a pipeline stage latency in both the Prometheus
// histogram and the rolling window snapshot.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.Pipeline.Observe(stage, ms)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
