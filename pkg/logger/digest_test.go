package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]DigestEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]DigestEntry))
	return nil
}

func TestDigestFoldsRepeats(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AttachDigest(&DigestConfig{Interval: time.Hour, MaxUnique: 10, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("fetch failed", String("provider", "fred"), Error(errors.New("timeout")))
	}
	l.Error("fetch failed", String("provider", "yahoo"))
	require.Equal(t, 2, l.digest.Pending())

	l.DetachDigest()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "logs", pub.topic)

	counts := map[interface{}]int{}
	for _, e := range pub.batches[0] {
		counts[e.Fields["provider"]] = e.Count
	}
	assert.Equal(t, 3, counts["fred"])
	assert.Equal(t, 1, counts["yahoo"])
}

func TestDigestFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	d := NewDigest(&DigestConfig{Interval: time.Hour, MaxUnique: 2, Topic: "logs", Publisher: pub})
	defer d.Close()

	d.Add("error", "a", nil, "x.go:1")
	d.Add("error", "b", nil, "x.go:2")
	assert.Equal(t, 0, d.Pending())

	pub.mu.Lock()
	assert.Len(t, pub.batches, 1)
	pub.mu.Unlock()
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)

	l, err := New(&Config{Level: "info", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	l.With(String("component", "test")).Info("ok", Int("n", 1), Float64("v", 1.5), Duration("d", time.Second))
}
