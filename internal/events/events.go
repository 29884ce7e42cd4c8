// Package events records what happened to appointments and queue entries.
// Events are emitted after a mutation succeeds and go to every configured
// sink; a failing sink never undoes the mutation.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	AggregateAppointment = "appointment"
	AggregateQueueEntry  = "queue_entry"
)

const (
	AppointmentCreated     = "appointment.created"
	AppointmentUpdated     = "appointment.updated"
	AppointmentCancelled   = "appointment.cancelled"
	AppointmentRescheduled = "appointment.rescheduled"
	AppointmentCompleted   = "appointment.completed"
	AppointmentDeleted     = "appointment.deleted"
	AppointmentNoShow      = "appointment.no_show"

	QueueEntryCreated   = "queue.entry_created"
	QueueEntryUpdated   = "queue.entry_updated"
	QueueStatusChanged  = "queue.status_changed"
	QueueDoctorAssigned = "queue.doctor_assigned"
	QueueEntryCancelled = "queue.entry_cancelled"
	QueueEntryDeleted   = "queue.entry_deleted"
)

type Event struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	AggregateType string    `json:"aggregateType"`
	AggregateID   int64     `json:"aggregateId"`
	Actor         string    `json:"actor"`
	Payload       any       `json:"payload,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func New(eventType, aggregateType string, aggregateID int64, actor string, payload any) Event {
	return Event{
		ID:            uuid.New(),
		Type:          eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Actor:         actor,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes ev and logs a failure instead of returning it.
func Emit(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().
			Err(err).
			Str("event_id", ev.ID.String()).
			Str("event_type", ev.Type).
			Int64("aggregate_id", ev.AggregateID).
			Msg("failed to publish event")
	}
}
