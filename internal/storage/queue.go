package storage

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

const DefaultBatchSize = 5

// WriteQueue runs write closures in FIFO order on a single drain goroutine.
// The drain executes at most batch operations, then yields before taking
// the next batch, which bounds how long one burst of writes can hog a CPU.
type WriteQueue struct {
	mu      sync.Mutex
	ops     []func()
	batch   int
	running bool
	closed  bool
	waiters []chan struct{}

	depth  func(n int)
	logger *zap.Logger
}

func NewWriteQueue(batch int, logger *zap.Logger) *WriteQueue {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WriteQueue{batch: batch, logger: logger, depth: func(int) {}}
}

// Enqueue appends op. It reports false once the queue is closed.
func (q *WriteQueue) Enqueue(op func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.ops = append(q.ops, op)
	q.depth(len(q.ops))
	if !q.running {
		q.running = true
		go q.drain()
	}
	return true
}

func (q *WriteQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.ops) == 0 {
			q.running = false
			waiters := q.waiters
			q.waiters = nil
			q.mu.Unlock()
			for _, w := range waiters {
				close(w)
			}
			return
		}
		n := q.batch
		if n > len(q.ops) {
			n = len(q.ops)
		}
		batch := make([]func(), n)
		copy(batch, q.ops[:n])
		q.ops = q.ops[n:]
		q.depth(len(q.ops))
		q.mu.Unlock()

		for _, op := range batch {
			q.run(op)
		}
		runtime.Gosched()
	}
}

func (q *WriteQueue) run(op func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("storage write panicked", zap.Any("panic", r))
		}
	}()
	op()
}

// Len returns the number of operations not yet started.
func (q *WriteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Flush blocks until every operation enqueued so far has run.
func (q *WriteQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if !q.running && len(q.ops) == 0 {
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for the backlog.
func (q *WriteQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return q.Flush(ctx)
}
