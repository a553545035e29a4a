package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Enqueuer submits work to a queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

// Config tunes the consumer side of a queue.
type Config struct {
	Workers      int           // concurrent handlers
	RetryLimit   int           // attempts after the first before a message is dead-lettered
	RetryDelay   time.Duration // delay before a failed message is retried
	PollInterval time.Duration // blocking pop timeout and retry sweep period
	Prefix       string        // key prefix
}

func (c *Config) withDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Prefix == "" {
		c.Prefix = "marketbrief:queue"
	}
}

// Message is the envelope stored in Redis.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// ParsePayload decodes a message payload into T.
func ParsePayload[T any](payload json.RawMessage) (*T, error) {
	var out T
	if len(payload) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
