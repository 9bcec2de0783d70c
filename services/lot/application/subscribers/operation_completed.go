// Package subscribers holds event bus handlers for the lot context.
package subscribers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/lotdesk/pkg/logger"
	"github.com/ghuser/lotdesk/services/lot/domain/events"
)

// OperationRecorder is satisfied by telemetry.OperationCounter.
type OperationRecorder interface {
	Record(ctx context.Context, operation string, success bool)
}

// OperationCompleted returns a handler for lot.operation.completed events.
// It counts every outcome and logs failures with their workspace.
// Handlers must be idempotent; the bus retries up to 3× on failure.
func OperationCompleted(rec OperationRecorder, log logger.Logger) func(context.Context, *message.Message) error {
	return func(ctx context.Context, msg *message.Message) error {
		var evt events.OperationCompletedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			// a malformed payload will not get better on retry
			log.ErrorContext(ctx, "discarding malformed operation event",
				"message_id", msg.UUID, "error", err)
			return nil
		}
		if evt.Version != 1 {
			return fmt.Errorf("operation event %s: unsupported version %d", evt.EventID, evt.Version)
		}

		rec.Record(ctx, string(evt.Outcome.Kind), evt.Outcome.Success)
		if !evt.Outcome.Success {
			log.InfoContext(ctx, "lot operation failed",
				"workspace_id", evt.WorkspaceID.String(),
				"operation", string(evt.Outcome.Kind),
				"item_id", evt.Outcome.ItemID,
				"error", evt.Outcome.Error,
			)
		}
		return nil
	}
}
