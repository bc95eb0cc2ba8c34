package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "nutri"

// SchedulingMetrics exposes counters for the appointment calendar and booking flows.
type SchedulingMetrics struct {
	calendarDropped *prometheus.CounterVec
	bookingsTotal   *prometheus.CounterVec
	slotsOffered    prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		calendarDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "calendar_dropped_total",
			Help:      "Appointments left off the calendar because their date or time range was unusable",
		}, []string{"reason"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Appointment create/update attempts by outcome",
		}, []string{"operation", "outcome"}),
		slotsOffered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "slots_offered",
			Help:      "Free slots offered per availability lookup",
			Buckets:   prometheus.LinearBuckets(0, 4, 7),
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.calendarDropped, m.bookingsTotal, m.slotsOffered)
	return m
}

func (m *SchedulingMetrics) ObserveCalendarDrop(reason string) {
	if m == nil {
		return
	}
	m.calendarDropped.WithLabelValues(reason).Inc()
}

// ObserveBooking counts a create or update. Outcome is "ok", "conflict", "invalid" or "error".
func (m *SchedulingMetrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSlotsOffered(n int) {
	if m == nil {
		return
	}
	m.slotsOffered.Observe(float64(n))
}

// PlanMetrics tracks plan drafting calls to the language model providers.
type PlanMetrics struct {
	draftsTotal  *prometheus.CounterVec
	draftLatency *prometheus.HistogramVec
}

func NewPlanMetrics(reg prometheus.Registerer) *PlanMetrics {
	m := &PlanMetrics{
		draftsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plans",
			Name:      "drafts_total",
			Help:      "Plan drafting requests by source and outcome",
		}, []string{"source", "outcome"}),
		draftLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "plans",
			Name:      "draft_latency_seconds",
			Help:      "Latency of plan drafting requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.draftsTotal, m.draftLatency)
	return m
}

// ObserveDraft records one drafting request. Source is "cache" or "llm".
func (m *PlanMetrics) ObserveDraft(source, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.draftsTotal.WithLabelValues(source, outcome).Inc()
	m.draftLatency.WithLabelValues(source).Observe(seconds)
}
