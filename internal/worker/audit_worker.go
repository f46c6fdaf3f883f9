package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/retina-portal/internal/events"
	"github.com/spec-kit/retina-portal/internal/observability"
)

// AuditWorker subscribes to auth and scan events and records an audit trail.
type AuditWorker struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditWorker creates the worker.
func NewAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditWorker {
	return &AuditWorker{dispatcher: dispatcher, logger: logger, metrics: metrics}
}

// Start registers the audit handlers.
func (w *AuditWorker) Start() {
	if w.dispatcher == nil {
		return
	}
	w.dispatcher.Subscribe(events.EventSignedIn, w.handleSessionEvent)
	w.dispatcher.Subscribe(events.EventSignedOut, w.handleSessionEvent)
	w.dispatcher.Subscribe(events.EventTokenRefreshed, w.handleSessionEvent)
	w.dispatcher.Subscribe(events.EventScanCompleted, w.handleScanCompleted)
	w.dispatcher.Subscribe(events.EventAppointmentBooked, w.handleAppointmentBooked)
}

func (w *AuditWorker) handleSessionEvent(_ context.Context, event events.Event) error {
	w.logger.Info("session event",
		zap.String("type", string(event.Type)),
		zap.String("identity", event.Identity),
	)
	return nil
}

func (w *AuditWorker) handleScanCompleted(_ context.Context, event events.Event) error {
	w.metrics.RecordScan("completed")
	w.logger.Info("scan completed",
		zap.String("identity", event.Identity),
		zap.Any("payload", event.Payload),
	)
	return nil
}

func (w *AuditWorker) handleAppointmentBooked(_ context.Context, event events.Event) error {
	w.logger.Info("appointment booked",
		zap.String("identity", event.Identity),
		zap.Any("payload", event.Payload),
	)
	return nil
}
