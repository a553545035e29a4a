package queue

import (
	"context"
	"encoding/json"
)

// Job handles every message of one type.
type Job interface {
	// Type returns the message type the job handles.
	Type() string

	// Handle processes one message payload. A returned error schedules a retry.
	Handle(ctx context.Context, payload json.RawMessage) error
}
