package paginate

import (
	"context"
	"sync"
)

// Loop is a single logical thread executing posted tasks in FIFO order. It
// can be driven by Run or, for deterministic tests, by Drain.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop creates empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues task. It never blocks and can be called from any goroutine,
// including tasks running on the loop.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Drain runs queued tasks on the calling goroutine until queue is empty,
// tasks posted while draining are executed as well. Returns number of
// executed tasks. Must not be called concurrently with Run.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		task()
		n++
	}
}

// Run drains the loop as tasks arrive until context is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// call executes fn on the loop and waits for it to finish. Loop has to be
// running.
func call[T any](ctx context.Context, l *Loop, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	l.Post(func() {
		v, err := fn()
		ch <- result{v, err}
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}
