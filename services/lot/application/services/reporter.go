package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/ghuser/lotdesk/pkg/logger"
	"github.com/ghuser/lotdesk/services/lot/domain/events"
)

// Publisher is the slice of the event bus the reporter needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// eventReporter publishes every outcome as an OperationCompletedEvent.
// Publishing is best-effort; a failure is logged and the operation result
// is unaffected.
type eventReporter struct {
	workspaceID uuid.UUID
	bus         Publisher
	log         logger.Logger
}

func newEventReporter(workspaceID uuid.UUID, bus Publisher, log logger.Logger) *eventReporter {
	return &eventReporter{workspaceID: workspaceID, bus: bus, log: log}
}

func (r *eventReporter) Report(ctx context.Context, outcome events.Outcome, _ RetryFunc) {
	event := events.OperationCompletedEvent{
		EventID:     uuid.New(),
		Version:     1,
		WorkspaceID: r.workspaceID,
		Outcome:     outcome,
		OccurredAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		r.log.ErrorContext(ctx, "marshal operation event", "error", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", event.EventID.String())
	msg.Metadata.Set("event_version", "1")
	if err := r.bus.Publish(ctx, events.TopicOperationCompleted, msg); err != nil {
		r.log.WarnContext(ctx, "publish operation event failed",
			"operation", string(outcome.Kind), "error", err)
	}
}
