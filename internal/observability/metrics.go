package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the permit review workflow
// engine. Counters and histograms are registered via promauto with the default
// registry.
type Metrics struct {
	// WorkflowsInitiated counts the number of procedures for which review
	// workflows were instantiated.
	WorkflowsInitiated prometheus.Counter

	// WorkflowStatesCreated counts individual department workflow states created.
	WorkflowStatesCreated prometheus.Counter

	// ReviewsCompleted counts completed department reviews, labeled by outcome.
	ReviewsCompleted *prometheus.CounterVec

	// ReviewsAssigned counts workflow states claimed by reviewers.
	ReviewsAssigned prometheus.Counter

	// DepartmentsUnblocked counts pending-to-ready transitions produced by
	// dependency recomputation.
	DepartmentsUnblocked prometheus.Counter

	// ResolutionDuration observes the duration of a full dependency resolution
	// pass over a procedure's workflow set, in seconds.
	ResolutionDuration prometheus.Histogram

	// ReviewDuration observes the time between a reviewer claiming work and
	// completing it, in seconds.
	ReviewDuration prometheus.Histogram

	// NotificationsDispatched counts reviewer notifications successfully handed
	// to the broker.
	NotificationsDispatched prometheus.Counter

	// NotificationsFailed counts reviewer notifications that could not be
	// delivered. Failures never roll back workflow state.
	NotificationsFailed prometheus.Counter

	// PendingWorkQueries counts dashboard pending-work lookups.
	PendingWorkQueries prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		WorkflowsInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_initiated_total",
			Help:      "Total number of procedures for which review workflows were created",
		}),
		WorkflowStatesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_states_created_total",
			Help:      "Total number of department workflow states created",
		}),
		ReviewsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_completed_total",
			Help:      "Total number of department reviews completed by outcome",
		}, []string{"outcome"}),
		ReviewsAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_assigned_total",
			Help:      "Total number of workflow states claimed by reviewers",
		}),
		DepartmentsUnblocked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "departments_unblocked_total",
			Help:      "Total number of departments transitioned from pending to ready",
		}),
		ResolutionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dependency_resolution_duration_seconds",
			Help:      "Duration of dependency resolution passes in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		ReviewDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "review_duration_seconds",
			Help:      "Time between a reviewer claiming and completing a review in seconds",
			Buckets:   []float64{60, 300, 900, 3600, 14400, 86400, 259200, 604800},
		}),
		NotificationsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dispatched_total",
			Help:      "Total number of reviewer notifications dispatched",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of reviewer notifications that failed to dispatch",
		}),
		PendingWorkQueries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_work_queries_total",
			Help:      "Total number of pending-work dashboard queries served",
		}),
	}
}

// RecordWorkflowInitiated records a workflow instantiation with the number of
// department states created.
func (m *Metrics) RecordWorkflowInitiated(states int) {
	m.WorkflowsInitiated.Inc()
	m.WorkflowStatesCreated.Add(float64(states))
}

// RecordReviewCompleted records a completed review with its outcome and the
// review duration in seconds.
func (m *Metrics) RecordReviewCompleted(outcome string, durationSeconds float64) {
	m.ReviewsCompleted.WithLabelValues(outcome).Inc()
	if durationSeconds > 0 {
		m.ReviewDuration.Observe(durationSeconds)
	}
}

// RecordReviewAssigned records a reviewer claiming a workflow state.
func (m *Metrics) RecordReviewAssigned() {
	m.ReviewsAssigned.Inc()
}

// RecordDepartmentsUnblocked records the number of departments unlocked by a
// resolution pass.
func (m *Metrics) RecordDepartmentsUnblocked(count int) {
	if count > 0 {
		m.DepartmentsUnblocked.Add(float64(count))
	}
}

// RecordResolutionPass records the duration of a dependency resolution pass.
func (m *Metrics) RecordResolutionPass(durationSeconds float64) {
	m.ResolutionDuration.Observe(durationSeconds)
}

// RecordNotificationDispatched records a successfully dispatched notification.
func (m *Metrics) RecordNotificationDispatched() {
	m.NotificationsDispatched.Inc()
}

// RecordNotificationFailed records a failed notification dispatch.
func (m *Metrics) RecordNotificationFailed() {
	m.NotificationsFailed.Inc()
}

// RecordPendingWorkQuery records a pending-work dashboard query.
func (m *Metrics) RecordPendingWorkQuery() {
	m.PendingWorkQueries.Inc()
}
