package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MarketBrief/internal/domain/models"
	drepo "MarketBrief/internal/domain/repository"
	applogger "MarketBrief/pkg/logger"
)

// Broadcaster fans a snapshot event out to live subscribers.
type Broadcaster interface {
	Broadcast(ev *models.SnapshotEvent)
}

// Invalidator drops a cached snapshot.
type Invalidator interface {
	Invalidate()
}

// SnapshotEventHandler consumes snapshot events from Kafka, drops the cached
// snapshot and pushes the event to websocket clients.
type SnapshotEventHandler struct {
	topic   string
	cache   Invalidator
	hub     Broadcaster
	metrics drepo.Metrics
	l       *applogger.Logger
}

// NewSnapshotEventHandler creates the handler. hub and metrics may be nil.
func NewSnapshotEventHandler(topic string, cache Invalidator, hub Broadcaster, metrics drepo.Metrics, l *applogger.Logger) *SnapshotEventHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &SnapshotEventHandler{topic: topic, cache: cache, hub: hub, metrics: metrics, l: l}
}

func (h *SnapshotEventHandler) Topic() string { return h.topic }

// Handle rejects undecodable payloads; the consumer retries them and then
// parks them on its dead letter topic.
func (h *SnapshotEventHandler) Handle(_ context.Context, b []byte) error {
	var ev models.SnapshotEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("decode snapshot event: %w", err)
	}
	if ev.AsOf == "" {
		h.recordError("consumer_invalid")
		return fmt.Errorf("snapshot event without as_of")
	}

	h.cache.Invalidate()
	if h.hub != nil {
		h.hub.Broadcast(&ev)
	}
	if h.metrics != nil && !ev.CollectedAt.IsZero() {
		h.metrics.RecordLatency("snapshot_event_lag", time.Since(ev.CollectedAt).Seconds())
	}
	h.l.Info("snapshot event received",
		applogger.String("run_id", ev.RunID),
		applogger.String("as_of", ev.AsOf),
	)
	return nil
}

func (h *SnapshotEventHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}
