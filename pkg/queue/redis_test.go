package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scheduled struct {
	data []byte
	at   time.Time
}

type memStore struct {
	mu    sync.Mutex
	lists map[string][][]byte
	sets  map[string][]scheduled
}

func newMemStore() *memStore {
	return &memStore{lists: map[string][][]byte{}, sets: map[string][]scheduled{}}
}

func (m *memStore) Push(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append([][]byte{data}, m.lists[key]...)
	return nil
}

func (m *memStore) Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	l := m.lists[key]
	if n := len(l); n > 0 {
		m.lists[key] = l[:n-1]
		m.mu.Unlock()
		return l[n-1], nil
	}
	m.mu.Unlock()
	select {
	case <-ctx.Done():
	case <-time.After(timeout):
	}
	return nil, ErrEmpty
}

func (m *memStore) Schedule(_ context.Context, key string, data []byte, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[key] = append(m.sets[key], scheduled{data: data, at: at})
	return nil
}

func (m *memStore) Due(_ context.Context, set, list string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keep []scheduled
	moved := 0
	for _, s := range m.sets[set] {
		if s.at.After(now) {
			keep = append(keep, s)
			continue
		}
		m.lists[list] = append([][]byte{s.data}, m.lists[list]...)
		moved++
	}
	m.sets[set] = keep
	return moved, nil
}

func (m *memStore) len(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lists[key])
}

type funcJob struct {
	typ string
	fn  func(json.RawMessage) error
}

func (j funcJob) Type() string { return j.typ }
func (j funcJob) Handle(_ context.Context, p json.RawMessage) error {
	return j.fn(p)
}

func TestQueueDeliversPayload(t *testing.T) {
	s := newMemStore()
	q := newQueue(nil, Config{PollInterval: 10 * time.Millisecond}, s)

	got := make(chan string, 1)
	q.RegisterJob(funcJob{typ: "collect", fn: func(p json.RawMessage) error {
		v, err := ParsePayload[struct {
			Reason string `json:"reason"`
		}](p)
		if err != nil {
			return err
		}
		got <- v.Reason
		return nil
	}})

	id, err := q.Enqueue(context.Background(), "collect", map[string]string{"reason": "manual"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Start(ctx) }()

	select {
	case r := <-got:
		assert.Equal(t, "manual", r)
	case <-time.After(2 * time.Second):
		t.Fatal("job not delivered")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestQueueRetriesThenDeadLetters(t *testing.T) {
	s := newMemStore()
	q := newQueue(nil, Config{PollInterval: 5 * time.Millisecond, RetryLimit: 1, RetryDelay: time.Nanosecond}, s)

	var calls atomic.Int32
	q.RegisterJob(funcJob{typ: "collect", fn: func(json.RawMessage) error {
		calls.Add(1)
		return errors.New("provider down")
	}})
	_, err := q.Enqueue(context.Background(), "collect", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Start(ctx) }()

	require.Eventually(t, func() bool { return s.len(q.key("dlq")) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueueUnknownTypeIsDeadLettered(t *testing.T) {
	s := newMemStore()
	q := newQueue(nil, Config{}, s)
	q.RegisterJob(funcJob{typ: "collect", fn: func(json.RawMessage) error { return nil }})

	data, err := json.Marshal(Message{ID: "1", Type: "unknown"})
	require.NoError(t, err)
	q.process(context.Background(), data)
	assert.Equal(t, 1, s.len(q.key("dlq")))

	q.process(context.Background(), []byte("{"))
	assert.Equal(t, 2, s.len(q.key("dlq")))
}

func TestQueueStartNeedsJobs(t *testing.T) {
	q := newQueue(nil, Config{}, newMemStore())
	assert.Error(t, q.Start(context.Background()))
}
