package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters for the chat intake flow.
type DialogueMetrics struct {
	eventsTotal     *prometheus.CounterVec
	completionTotal *prometheus.CounterVec
	leadOpsTotal    *prometheus.CounterVec
	intakesTotal    prometheus.Counter
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inmobot",
			Subsystem: "dialogue",
			Name:      "events_total",
			Help:      "Inbound chat events by kind and outcome",
		}, []string{"kind", "status"}),
		completionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inmobot",
			Subsystem: "completion",
			Name:      "requests_total",
			Help:      "Completion adapter calls by outcome",
		}, []string{"outcome"}),
		leadOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inmobot",
			Subsystem: "leads",
			Name:      "operations_total",
			Help:      "Lead store operations by op and status",
		}, []string{"op", "status"}),
		intakesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inmobot",
			Subsystem: "dialogue",
			Name:      "intakes_completed_total",
			Help:      "Intake scripts that reached the email step and were persisted",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsTotal, m.completionTotal, m.leadOpsTotal, m.intakesTotal)
	return m
}

func (m *DialogueMetrics) ObserveEvent(kind, status string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(kind, status).Inc()
}

func (m *DialogueMetrics) ObserveCompletion(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.completionTotal.WithLabelValues(outcome).Inc()
}

func (m *DialogueMetrics) ObserveLeadOp(op string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.leadOpsTotal.WithLabelValues(op, status).Inc()
}

func (m *DialogueMetrics) ObserveIntakeCompleted() {
	if m == nil {
		return
	}
	m.intakesTotal.Inc()
}
