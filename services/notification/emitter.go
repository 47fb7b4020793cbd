// Package notification is the engine's outbound event boundary. The engine
// only emits; delivery, formatting and fan-out belong to the notification
// system consuming the queue.
package notification

import (
	"context"
	"encoding/json"
	"time"

	"parishly/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeAppointmentEvent is the asynq task type carrying appointment events.
const TypeAppointmentEvent = "appointment:event"

// Emitter publishes appointment lifecycle events.
type Emitter interface {
	Emit(ctx context.Context, event models.AppointmentEvent)
}

// QueueEmitter enqueues events onto the asynq queue for the external
// notification worker. Emission failures are logged, never propagated; a
// missed notification must not fail a booking.
type QueueEmitter struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewQueueEmitter(client *asynq.Client, logger *zap.Logger) *QueueEmitter {
	return &QueueEmitter{client: client, logger: logger}
}

func (e *QueueEmitter) Emit(ctx context.Context, event models.AppointmentEvent) {
	event.EmittedAt = time.Now().UTC()
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("failed to marshal appointment event", zap.Error(err))
		return
	}
	task := asynq.NewTask(TypeAppointmentEvent, payload)
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		e.logger.Error("failed to enqueue appointment event",
			zap.String("type", string(event.Type)),
			zap.String("appointmentId", event.AppointmentID),
			zap.Error(err),
		)
		return
	}
	e.logger.Debug("appointment event enqueued",
		zap.String("type", string(event.Type)),
		zap.String("appointmentId", event.AppointmentID),
	)
}
