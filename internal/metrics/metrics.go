// Package metrics exposes Prometheus counters for the attribute engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attrsys"

// Metrics groups the engine counters.
type Metrics struct {
	gatherer prometheus.Gatherer

	eventsPublished  *prometheus.CounterVec
	regenTrueUps     prometheus.Counter
	modifiersApplied *prometheus.CounterVec
	modifiersStacked *prometheus.CounterVec
	modifiersEnded   *prometheus.CounterVec
	rejectedWrites   *prometheus.CounterVec
	deltasApplied    prometheus.Counter
	deltaEntries     prometheus.Histogram
}

// New registers the counters with reg. When reg is also a Gatherer it backs Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Attribute and modifier events published, by event tag.",
		}, []string{"event"}),
		regenTrueUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regen_trueups_total",
			Help:      "Regeneration true-ups committed to stored state.",
		}),
		modifiersApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modifiers_applied_total",
			Help:      "Modifier instances applied, by class.",
		}, []string{"class"}),
		modifiersStacked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modifiers_stacked_total",
			Help:      "Re-applications absorbed as an extra stack, by class.",
		}, []string{"class"}),
		modifiersEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modifiers_ended_total",
			Help:      "Modifier instances that reached a terminal state, by reason.",
		}, []string{"reason"}),
		rejectedWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_writes_total",
			Help:      "Attribute mutations rejected, by reason.",
		}, []string{"reason"}),
		deltasApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replication_deltas_applied_total",
			Help:      "Non-empty deltas applied to mirror stores.",
		}),
		deltaEntries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "replication_delta_entries",
			Help:      "Changed plus removed attributes per applied delta.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	reg.MustRegister(
		m.eventsPublished,
		m.regenTrueUps,
		m.modifiersApplied,
		m.modifiersStacked,
		m.modifiersEnded,
		m.rejectedWrites,
		m.deltasApplied,
		m.deltaEntries,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) EventPublished(event string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(event).Inc()
}

func (m *Metrics) RegenTrueUp() {
	if m == nil {
		return
	}
	m.regenTrueUps.Inc()
}

func (m *Metrics) ModifierApplied(class string) {
	if m == nil {
		return
	}
	m.modifiersApplied.WithLabelValues(class).Inc()
}

func (m *Metrics) ModifierStacked(class string) {
	if m == nil {
		return
	}
	m.modifiersStacked.WithLabelValues(class).Inc()
}

func (m *Metrics) ModifierEnded(reason string) {
	if m == nil {
		return
	}
	m.modifiersEnded.WithLabelValues(reason).Inc()
}

func (m *Metrics) WriteRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedWrites.WithLabelValues(reason).Inc()
}

// DeltaApplied records one delta of n entries applied to a mirror.
func (m *Metrics) DeltaApplied(n int) {
	if m == nil {
		return
	}
	m.deltasApplied.Inc()
	m.deltaEntries.Observe(float64(n))
}
