package task

import "sync"

// Loop is a single-goroutine cooperative executor.
//
// Submit is safe from any goroutine. The consumer side is one goroutine
// calling either Run (blocking, for programs) or Drain (run until the
// queue is empty, for tests and scripted drivers); the two must not be
// used concurrently with each other.
type Loop struct {
	mu    sync.Mutex
	queue []func()

	wake chan struct{}
	done chan struct{}
	stop sync.Once
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Submit queues run for execution. Nil functions are ignored.
func (l *Loop) Submit(run func()) {
	if run == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, run)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Drain runs queued functions until the queue is empty, including work
// they submit while running.
func (l *Loop) Drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		// Take the batch to avoid holding the lock during callbacks.
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		for _, run := range batch {
			run()
		}
	}
}

// Run drains the queue and sleeps until new work arrives, returning once
// Stop is called.
func (l *Loop) Run() {
	for {
		l.Drain()
		select {
		case <-l.done:
			return
		case <-l.wake:
		}
	}
}

// Stop makes Run return. Stopping more than once is a no-op.
func (l *Loop) Stop() {
	l.stop.Do(func() { close(l.done) })
}
