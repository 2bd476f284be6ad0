package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for the appointment lifecycle and the
// auto-cancellation sweeper.
type SchedulingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	sweepRunsTotal   prometheus.Counter
	noShowsTotal     *prometheus.CounterVec
	noticeFailures   prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemed",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemed",
			Subsystem: "scheduling",
			Name:      "transitions_total",
			Help:      "Applied appointment status transitions",
		}, []string{"transition"}),
		sweepRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemed",
			Subsystem: "scheduling",
			Name:      "sweep_runs_total",
			Help:      "Auto-cancellation sweep runs",
		}),
		noShowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemed",
			Subsystem: "scheduling",
			Name:      "no_show_cancellations_total",
			Help:      "Appointments cancelled for no-show by cause",
		}, []string{"cause"}),
		noticeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemed",
			Subsystem: "scheduling",
			Name:      "notice_failures_total",
			Help:      "System notices that could not be delivered",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.sweepRunsTotal, m.noShowsTotal, m.noticeFailures)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveTransition(transition string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(transition).Inc()
}

func (m *SchedulingMetrics) ObserveSweep() {
	if m == nil {
		return
	}
	m.sweepRunsTotal.Inc()
}

func (m *SchedulingMetrics) ObserveNoShow(cause string) {
	if m == nil {
		return
	}
	m.noShowsTotal.WithLabelValues(cause).Inc()
}

func (m *SchedulingMetrics) ObserveNoticeFailure() {
	if m == nil {
		return
	}
	m.noticeFailures.Inc()
}
