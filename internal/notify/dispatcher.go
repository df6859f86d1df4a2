// Package notify dispatches reviewer notifications for workflow transitions.
// Dispatch is best-effort: workflow state is authoritative and already
// committed by the time a notification is attempted, so failures here are
// logged and counted but never surfaced to the caller.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"github.com/civium/permit-review-service/internal/config"
	"github.com/civium/permit-review-service/internal/domain"
	"github.com/civium/permit-review-service/internal/observability"
)

// Dispatcher fans out notifications for newly actionable workflow states,
// one message per eligible reviewer of each department.
type Dispatcher interface {
	// DispatchReady notifies the reviewers of every department whose workflow
	// state just became ready. Must be called only after the state transitions
	// are durably committed.
	DispatchReady(ctx context.Context, procedure *domain.Procedure, states []*domain.ReviewWorkflowState)
}

// ReviewerDirectory resolves a department to its eligible reviewers.
type ReviewerDirectory interface {
	EligibleReviewers(ctx context.Context, departmentID int64) ([]*domain.Reviewer, error)
}

// kafkaWriter is the subset of *kafka.Writer used by the dispatcher.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Compile-time interface verification.
var (
	_ Dispatcher = (*KafkaDispatcher)(nil)
	_ Dispatcher = (*NopDispatcher)(nil)
)

// KafkaDispatcher publishes one notification message per eligible reviewer to
// a Kafka topic, throttled by a rate limiter so a large procedure cannot
// flood the broker.
type KafkaDispatcher struct {
	writer       kafkaWriter
	directory    ReviewerDirectory
	limiter      *rate.Limiter
	metrics      *observability.Metrics
	logger       zerolog.Logger
	writeTimeout time.Duration
}

// NewKafkaDispatcher creates a Kafka-backed notification dispatcher.
func NewKafkaDispatcher(cfg config.NotificationsConfig, directory ReviewerDirectory, metrics *observability.Metrics, logger zerolog.Logger) *KafkaDispatcher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaDispatcher{
		writer:       writer,
		directory:    directory,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		metrics:      metrics,
		logger:       logger.With().Str("component", "notification_dispatcher").Logger(),
		writeTimeout: cfg.WriteTimeout,
	}
}

// DispatchReady notifies the eligible reviewers of each newly ready state.
func (d *KafkaDispatcher) DispatchReady(ctx context.Context, procedure *domain.Procedure, states []*domain.ReviewWorkflowState) {
	for _, state := range states {
		reviewers, err := d.directory.EligibleReviewers(ctx, state.DepartmentID)
		if err != nil {
			d.logger.Error().Err(err).
				Int64("department_id", state.DepartmentID).
				Str("workflow_id", state.ID.String()).
				Msg("failed to resolve eligible reviewers")
			d.metrics.RecordNotificationFailed()
			continue
		}

		if len(reviewers) == 0 {
			d.logger.Warn().
				Int64("department_id", state.DepartmentID).
				Str("procedure_id", procedure.ID.String()).
				Msg("department has no eligible reviewers")
			continue
		}

		for _, reviewer := range reviewers {
			d.publish(ctx, procedure, state, reviewer)
		}
	}
}

// publish sends a single reviewer notification, honoring the rate limiter.
func (d *KafkaDispatcher) publish(ctx context.Context, procedure *domain.Procedure, state *domain.ReviewWorkflowState, reviewer *domain.Reviewer) {
	if err := d.limiter.Wait(ctx); err != nil {
		d.logger.Error().Err(err).Msg("rate limiter wait aborted")
		d.metrics.RecordNotificationFailed()
		return
	}

	event := domain.NotificationEvent{
		EventType:      domain.EventTypeDepartmentReady,
		ProcedureID:    procedure.ID.String(),
		ProcedureFolio: procedure.Folio,
		ProcedureType:  procedure.ProcedureType,
		MunicipalityID: procedure.MunicipalityID,
		DepartmentID:   state.DepartmentID,
		WorkflowID:     state.ID.String(),
		RecipientID:    reviewer.UserID,
		RecipientEmail: reviewer.Email,
	}

	value, err := json.Marshal(event)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to marshal notification event")
		d.metrics.RecordNotificationFailed()
		return
	}

	writeCtx := ctx
	if d.writeTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, d.writeTimeout)
		defer cancel()
	}

	msg := kafka.Message{
		Key:   []byte(procedure.ID.String()),
		Value: value,
	}

	if err := d.writer.WriteMessages(writeCtx, msg); err != nil {
		d.logger.Error().Err(err).
			Int64("department_id", state.DepartmentID).
			Int64("recipient_id", reviewer.UserID).
			Msg("failed to publish reviewer notification")
		d.metrics.RecordNotificationFailed()
		return
	}

	d.logger.Debug().
		Int64("department_id", state.DepartmentID).
		Int64("recipient_id", reviewer.UserID).
		Str("workflow_id", state.ID.String()).
		Msg("reviewer notification published")
	d.metrics.RecordNotificationDispatched()
}

// Close closes the underlying Kafka writer.
func (d *KafkaDispatcher) Close() error {
	if closer, ok := d.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// NopDispatcher discards all notifications. Used when notifications are
// disabled in configuration.
type NopDispatcher struct {
	logger zerolog.Logger
}

// NewNopDispatcher creates a dispatcher that only logs at debug level.
func NewNopDispatcher(logger zerolog.Logger) *NopDispatcher {
	return &NopDispatcher{logger: logger.With().Str("component", "notification_dispatcher").Logger()}
}

// DispatchReady logs the would-be notifications and drops them.
func (d *NopDispatcher) DispatchReady(ctx context.Context, procedure *domain.Procedure, states []*domain.ReviewWorkflowState) {
	for _, state := range states {
		d.logger.Debug().
			Str("procedure_id", procedure.ID.String()).
			Int64("department_id", state.DepartmentID).
			Msg("notifications disabled, dropping department ready event")
	}
}
