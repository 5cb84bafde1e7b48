package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when enqueueing before Start or after Stop.
	ErrNotStarted = errors.New("queue not running")
	// ErrFull is returned by TryEnqueue when the buffer has no room.
	ErrFull = errors.New("queue full")
)

// Job is one unit of work. Jobs sharing a non-empty Key coalesce: when a newer
// job with the same key is enqueued, older ones that have not started yet are
// skipped.
type Job[T any] struct {
	ID       string
	Key      string
	Payload  T
	Attempt  int
	Enqueued time.Time

	seq uint64
}

// Handler processes a job.
type Handler[T any] func(context.Context, Job[T]) error

// Config tunes the worker pool. MaxRetries of zero disables retries.
type Config[T any] struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	// OnSkip observes jobs dropped because a newer job took their key.
	OnSkip func(Job[T])
	Logger *zap.Logger
}

// Queue dispatches jobs to a fixed set of goroutines.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	cfg     Config[T]
	logger  *zap.Logger

	jobs chan Job[T]
	wg   sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	seq     uint64
	latest  map[string]uint64
}

// New builds a queue named for its logs.
func New[T any](name string, handler Handler[T], cfg Config[T]) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 8
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("queue", name)),
		jobs:    make(chan Job[T], cfg.BufferSize),
		latest:  make(map[string]uint64),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels the workers and waits for the running jobs to return. Queued
// jobs are abandoned.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue adds a job, blocking while the buffer is full.
func (q *Queue[T]) Enqueue(job Job[T]) error {
	job, ctx, err := q.prepare(job)
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		q.release(job)
		return fmt.Errorf("queue %s: %w", q.name, ErrNotStarted)
	case q.jobs <- job:
		return nil
	}
}

// TryEnqueue adds a job or fails with ErrFull without waiting. A rejected job
// still supersedes the queued jobs of its key.
func (q *Queue[T]) TryEnqueue(job Job[T]) error {
	job, _, err := q.prepare(job)
	if err != nil {
		return err
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		q.release(job)
		return fmt.Errorf("queue %s: %w", q.name, ErrFull)
	}
}

// Len reports the jobs waiting for a worker.
func (q *Queue[T]) Len() int { return len(q.jobs) }

func (q *Queue[T]) prepare(job Job[T]) (Job[T], context.Context, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return job, nil, fmt.Errorf("queue %s: %w", q.name, ErrNotStarted)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	if job.Attempt == 0 {
		q.seq++
		job.seq = q.seq
		if job.Key != "" {
			q.latest[job.Key] = job.seq
		}
	}
	return job, q.ctx, nil
}

// superseded reports whether a newer job took the key.
func (q *Queue[T]) superseded(job Job[T]) bool {
	if job.Key == "" {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.latest[job.Key] != job.seq
}

// release drops the key entry once its latest job is done or was never queued.
func (q *Queue[T]) release(job Job[T]) {
	if job.Key == "" {
		return
	}
	q.mu.Lock()
	if q.latest[job.Key] == job.seq {
		delete(q.latest, job.Key)
	}
	q.mu.Unlock()
}

func (q *Queue[T]) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if q.superseded(job) {
				q.logger.Debug("job superseded", zap.String("job_id", job.ID), zap.String("key", job.Key))
				if q.cfg.OnSkip != nil {
					q.cfg.OnSkip(job)
				}
				continue
			}
			err := q.run(job)
			if err == nil {
				q.release(job)
				continue
			}
			q.retry(job, err)
		}
	}
}

func (q *Queue[T]) run(job Job[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()
	return q.handler(q.ctx, job)
}

func (q *Queue[T]) retry(job Job[T], err error) {
	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.release(job)
		q.logger.Warn("job failed", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err))
		return
	}
	q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))

	timer := time.NewTimer(q.cfg.RetryDelay)
	go func() {
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(job); err != nil {
				q.logger.Error("requeue failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}()
}
