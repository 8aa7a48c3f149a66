package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's prometheus instruments. A nil *Metrics is a
// valid no-op receiver so the engine can run unmetered in tests.
type Metrics struct {
	instancesStarted   prometheus.Counter
	instancesFinished  *prometheus.CounterVec
	transitions        prometheus.Counter
	transitionRejected *prometheus.CounterVec
	transitionSeconds  prometheus.Histogram
	tasksCreated       prometheus.Counter
	tasksCompleted     prometheus.Counter
	resolutionWarnings prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		instancesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stageflow_instances_started_total",
			Help: "Workflow instances started.",
		}),
		instancesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stageflow_instances_finished_total",
			Help: "Workflow instances that reached a terminal status.",
		}, []string{"status"}),
		transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stageflow_transitions_total",
			Help: "Successful instance transitions.",
		}),
		transitionRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stageflow_transitions_rejected_total",
			Help: "Transitions rejected before any write.",
		}, []string{"reason"}),
		transitionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stageflow_transition_duration_seconds",
			Help:    "Wall time of a transition call.",
			Buckets: prometheus.DefBuckets,
		}),
		tasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stageflow_tasks_created_total",
			Help: "Tasks materialized on node entry.",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stageflow_tasks_completed_total",
			Help: "Tasks marked completed.",
		}),
		resolutionWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stageflow_resolution_warnings_total",
			Help: "Required positions that resolved to zero assignees.",
		}),
	}
	reg.MustRegister(
		m.instancesStarted, m.instancesFinished, m.transitions,
		m.transitionRejected, m.transitionSeconds,
		m.tasksCreated, m.tasksCompleted, m.resolutionWarnings,
	)
	return m
}

func (m *Metrics) InstanceStarted() {
	if m != nil {
		m.instancesStarted.Inc()
	}
}

func (m *Metrics) InstanceFinished(status string) {
	if m != nil {
		m.instancesFinished.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) Transition(d time.Duration) {
	if m != nil {
		m.transitions.Inc()
		m.transitionSeconds.Observe(d.Seconds())
	}
}

func (m *Metrics) TransitionRejected(reason string) {
	if m != nil {
		m.transitionRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) TasksCreated(n int) {
	if m != nil {
		m.tasksCreated.Add(float64(n))
	}
}

func (m *Metrics) TaskCompleted() {
	if m != nil {
		m.tasksCompleted.Inc()
	}
}

func (m *Metrics) ResolutionWarning() {
	if m != nil {
		m.resolutionWarnings.Inc()
	}
}
