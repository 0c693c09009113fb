package comet

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "chaton"

type Metrics struct {
	ContentRequests   prometheus.Counter
	ContentResets     prometheus.Counter
	ContentFailures   prometheus.Counter
	Reconnects        prometheus.Counter
	VersionMismatches prometheus.Counter
	Users             prometheus.Gauge

	CountPolls    prometheus.Counter
	CountFailures prometheus.Counter
	Unseen        prometheus.Gauge

	// by outcome, "ok" or "error"
	Posts *prometheus.CounterVec
}

// `registerer` may be nil, in which case the collectors are created but not registered
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	counter := func(name string, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      help,
		})
	}
	gauge := func(name string, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      help,
		})
	}

	metrics := &Metrics{
		ContentRequests:   counter("content_requests_total", "Content long-poll requests issued."),
		ContentResets:     counter("content_resets_total", "Responses that cleared the view."),
		ContentFailures:   counter("content_failures_total", "Content requests that failed in transport."),
		Reconnects:        counter("reconnects_total", "Content loop resumptions after a failure."),
		VersionMismatches: counter("version_mismatches_total", "Responses from a different server version."),
		Users:             gauge("users", "Users connected as last reported by the server."),
		CountPolls:        counter("count_polls_total", "Unseen count requests issued."),
		CountFailures:     counter("count_failures_total", "Unseen count requests that ended the poll chain."),
		Unseen:            gauge("unseen_messages", "Messages arrived since the view was last looked at."),
		Posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "posts_total",
			Help:      "Posts submitted by outcome.",
		}, []string{"outcome"}),
	}

	if registerer != nil {
		registerer.MustRegister(
			metrics.ContentRequests,
			metrics.ContentResets,
			metrics.ContentFailures,
			metrics.Reconnects,
			metrics.VersionMismatches,
			metrics.Users,
			metrics.CountPolls,
			metrics.CountFailures,
			metrics.Unseen,
			metrics.Posts,
		)
	}
	return metrics
}
