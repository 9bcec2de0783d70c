package events

import (
	"time"

	"github.com/google/uuid"
)

// TopicOperationCompleted is the Watermill topic published after every
// remote-backed collection operation, successful or not.
const TopicOperationCompleted = "lot.operation.completed"

// Kind names the remote operation an Outcome belongs to.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindFetch  Kind = "fetch"
)

// Label is the user-facing verb for the kind, e.g. "Create".
func (k Kind) Label() string {
	switch k {
	case KindCreate:
		return "Create"
	case KindUpdate:
		return "Update"
	case KindDelete:
		return "Delete"
	case KindFetch:
		return "Fetch"
	default:
		return "Retry"
	}
}

// Outcome is the per-action result handed to the presentation layer.
type Outcome struct {
	Kind    Kind   `json:"operation"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ItemID  int    `json:"item_id,omitempty"`
}

// OperationCompletedEvent is the bus payload for TopicOperationCompleted.
type OperationCompletedEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	Version     int       `json:"version"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Outcome     Outcome   `json:"outcome"`
	OccurredAt  time.Time `json:"occurred_at"`
}
