package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"MarketBrief/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by a store pop that timed out.
var ErrEmpty = errors.New("queue: empty")

// store is the subset of Redis the queue needs.
type store interface {
	Push(ctx context.Context, key string, data []byte) error
	Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	Schedule(ctx context.Context, key string, data []byte, at time.Time) error
	// Due moves members of the sorted set scored at or before now onto list.
	Due(ctx context.Context, set, list string, now time.Time) (int, error)
}

type redisStore struct{ client *redis.Client }

func (s redisStore) Push(ctx context.Context, key string, data []byte) error {
	return s.client.LPush(ctx, key, data).Err()
}

func (s redisStore) Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	res, err := s.client.BRPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, ErrEmpty
	}
	return []byte(res[1]), nil
}

func (s redisStore) Schedule(ctx context.Context, key string, data []byte, at time.Time) error {
	return s.client.ZAdd(ctx, key, redis.Z{Score: float64(at.Unix()), Member: data}).Err()
}

func (s redisStore) Due(ctx context.Context, set, list string, now time.Time) (int, error) {
	members, err := s.client.ZRangeByScore(ctx, set, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, m := range members {
		pipe := s.client.TxPipeline()
		pipe.ZRem(ctx, set, m)
		pipe.LPush(ctx, list, m)
		if _, err := pipe.Exec(ctx); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// RedisQueue is a list-backed job queue with delayed retries and a dead
// letter list. Any process may enqueue; Start consumes.
type RedisQueue struct {
	log   *logger.Logger
	cfg   Config
	store store
	now   func() time.Time

	mu   sync.RWMutex
	jobs map[string]Job
}

// NewRedisQueue creates a queue on client.
func NewRedisQueue(l *logger.Logger, cfg Config, client *redis.Client) *RedisQueue {
	return newQueue(l, cfg, redisStore{client: client})
}

func newQueue(l *logger.Logger, cfg Config, s store) *RedisQueue {
	cfg.withDefaults()
	if l == nil {
		l = logger.Nop()
	}
	return &RedisQueue{
		log:   l.With(logger.String("component", "queue")),
		cfg:   cfg,
		store: s,
		now:   time.Now,
		jobs:  make(map[string]Job),
	}
}

// RegisterJob registers the handler for job.Type(). Must be called before Start.
func (q *RedisQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.jobs[job.Type()]; ok {
		q.log.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	q.jobs[job.Type()] = job
}

// Enqueue stores a message and returns its id.
func (q *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}
	msg := Message{ID: uuid.NewString(), Type: msgType, Payload: raw, EnqueuedAt: q.now().UTC()}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := q.store.Push(ctx, q.key("messages"), data); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return msg.ID, nil
}

// Start consumes until ctx is cancelled, then waits for in-flight jobs.
func (q *RedisQueue) Start(ctx context.Context) error {
	q.mu.RLock()
	n := len(q.jobs)
	q.mu.RUnlock()
	if n == 0 {
		return errors.New("queue: no jobs registered")
	}

	var wg sync.WaitGroup
	for i := 0; i < q.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.worker(ctx, id)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.retryLoop(ctx)
	}()
	q.log.Info("queue started", logger.Int("workers", q.cfg.Workers), logger.String("prefix", q.cfg.Prefix))

	wg.Wait()
	q.log.Info("queue stopped")
	return nil
}

func (q *RedisQueue) worker(ctx context.Context, id int) {
	for ctx.Err() == nil {
		data, err := q.store.Pop(ctx, q.key("messages"), q.cfg.PollInterval)
		switch {
		case errors.Is(err, ErrEmpty), ctx.Err() != nil:
			continue
		case err != nil:
			q.log.Error("queue pop", logger.Int("worker_id", id), logger.Error(err))
			sleep(ctx, q.cfg.PollInterval)
			continue
		}
		q.process(ctx, data)
	}
}

// process runs one message. Unknown types and undecodable envelopes go
// straight to the dead letter list.
func (q *RedisQueue) process(ctx context.Context, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		q.log.Error("queue message undecodable", logger.Error(err))
		q.deadLetter(ctx, data)
		return
	}

	q.mu.RLock()
	job, ok := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !ok {
		q.log.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		q.deadLetter(ctx, data)
		return
	}

	start := q.now()
	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		q.log.Info("job done", logger.String("type", msg.Type), logger.String("id", msg.ID),
			logger.Duration("elapsed_ms", q.now().Sub(start)))
		return
	}
	if errors.Is(err, context.Canceled) {
		// requeue so the next consumer picks it up
		if perr := q.store.Push(context.WithoutCancel(ctx), q.key("messages"), data); perr != nil {
			q.log.Error("requeue cancelled job", logger.Error(perr))
		}
		return
	}

	q.log.Error("job failed", logger.String("type", msg.Type), logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts+1), logger.Error(err))
	if msg.Attempts >= q.cfg.RetryLimit {
		q.deadLetter(ctx, data)
		return
	}
	msg.Attempts++
	retry, err := json.Marshal(msg)
	if err == nil {
		err = q.store.Schedule(ctx, q.key("retry"), retry, q.now().Add(q.cfg.RetryDelay))
	}
	if err != nil {
		q.log.Error("schedule retry", logger.Error(err))
	}
}

func (q *RedisQueue) deadLetter(ctx context.Context, data []byte) {
	if err := q.store.Push(context.WithoutCancel(ctx), q.key("dlq"), data); err != nil {
		q.log.Error("dead letter push", logger.Error(err))
	}
}

func (q *RedisQueue) retryLoop(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.store.Due(ctx, q.key("retry"), q.key("messages"), q.now()); err != nil && ctx.Err() == nil {
				q.log.Error("move due retries", logger.Error(err))
			}
		}
	}
}

func (q *RedisQueue) key(suffix string) string {
	return q.cfg.Prefix + ":" + suffix
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
