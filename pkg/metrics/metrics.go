package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	eligibilityChecks  *prometheus.CounterVec
	evaluatorDegraded  *prometheus.CounterVec
	decisions          *prometheus.CounterVec
	blockHoursAnomaly  *prometheus.CounterVec
	concurrentRefusals prometheus.Counter
	hoursResyncDrift   prometheus.Counter
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eligibilityChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ojt",
			Name:      "eligibility_checks_total",
			Help:      "Eligibility gate evaluations by result (allowed or reason code).",
		}, []string{"result"}),
		evaluatorDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ojt",
			Name:      "evaluator_degraded_total",
			Help:      "Evaluator lookups that failed and were resolved by the fail-open/closed policy.",
		}, []string{"evaluator", "policy"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ojt",
			Name:      "reconciliation_decisions_total",
			Help:      "Forgot-time-out decisions by decision and outcome.",
		}, []string{"decision", "outcome"}),
		blockHoursAnomaly: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ojt",
			Name:      "block_hours_anomalies_total",
			Help:      "Hour computations clamped to zero because time-in was at or after block end.",
		}, []string{"block_type"}),
		concurrentRefusals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ojt",
			Name:      "concurrent_session_refusals_total",
			Help:      "Time-in attempts refused because an open session already exists.",
		}),
		hoursResyncDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ojt",
			Name:      "hours_resync_drift_total",
			Help:      "Students whose stored accumulated hours differed from the recomputed sum.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.eligibilityChecks,
			m.evaluatorDegraded,
			m.decisions,
			m.blockHoursAnomaly,
			m.concurrentRefusals,
			m.hoursResyncDrift,
		)
	}
	return m
}

func (m *Metrics) EligibilityChecked(result string) {
	if m == nil {
		return
	}
	m.eligibilityChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) EvaluatorDegraded(evaluator string, failOpen bool) {
	if m == nil {
		return
	}
	policy := "fail_closed"
	if failOpen {
		policy = "fail_open"
	}
	m.evaluatorDegraded.WithLabelValues(evaluator, policy).Inc()
}

func (m *Metrics) Decision(decision, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision, outcome).Inc()
}

func (m *Metrics) BlockHoursAnomaly(blockType string) {
	if m == nil {
		return
	}
	m.blockHoursAnomaly.WithLabelValues(blockType).Inc()
}

func (m *Metrics) ConcurrentRefusal() {
	if m == nil {
		return
	}
	m.concurrentRefusals.Inc()
}

func (m *Metrics) HoursDrift() {
	if m == nil {
		return
	}
	m.hoursResyncDrift.Inc()
}
