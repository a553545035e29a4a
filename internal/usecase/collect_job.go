package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	applogger "MarketBrief/pkg/logger"
	"MarketBrief/pkg/queue"
)

// CollectJobType is the queue message type for an on-demand collection.
const CollectJobType = "collect"

// CollectRequest is the payload of a collect message.
type CollectRequest struct {
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// CollectJob runs the collector for a queued request.
type CollectJob struct {
	collector *Collector
	l         *applogger.Logger
}

// NewCollectJob creates the queue handler for CollectJobType.
func NewCollectJob(c *Collector, l *applogger.Logger) *CollectJob {
	if l == nil {
		l = applogger.Nop()
	}
	return &CollectJob{collector: c, l: l.With(applogger.String("job", CollectJobType))}
}

func (j *CollectJob) Type() string { return CollectJobType }

// Handle runs one collection. A run already in progress satisfies the request.
func (j *CollectJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.ParsePayload[CollectRequest](payload)
	if err != nil {
		return fmt.Errorf("decode collect request: %w", err)
	}
	report, err := j.collector.Run(ctx, j.collector.now())
	if errors.Is(err, ErrRunInProgress) {
		j.l.Info("collection already running", applogger.String("reason", req.Reason))
		return nil
	}
	if err != nil {
		return err
	}
	j.l.Info("on-demand collection done",
		applogger.String("reason", req.Reason),
		applogger.String("run_id", report.RunID),
		applogger.Int("provider_errors", len(report.ProviderErrors)))
	return nil
}
