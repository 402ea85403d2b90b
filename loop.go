package hashpage

import (
	"context"
	"sync"
)

// loop is the runtime's task queue. Tasks run one at a time on whichever
// goroutine is inside Run or Flush.
type loop struct {
	mu      sync.Mutex
	tasks   []func()
	pending int
	wake    chan struct{}
	idle    func()
}

func newLoop(idle func()) *loop {
	return &loop{wake: make(chan struct{}, 1), idle: idle}
}

func (l *loop) post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
}

func (l *loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// async runs work on its own goroutine and posts then with the result.
// Flush keeps waiting while any such work is outstanding.
func (l *loop) async(ctx context.Context, work func(context.Context) (string, error), then func(string, error)) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	go func() {
		s, err := work(ctx)
		l.mu.Lock()
		l.pending--
		l.tasks = append(l.tasks, func() { then(s, err) })
		l.mu.Unlock()
		l.signal()
	}()
}

func (l *loop) next() (func(), int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil, l.pending
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, l.pending
}

// drain runs queued tasks until none are left and reports how many ran and
// how much async work is still outstanding. Async work finishes by queueing
// its completion under the same lock, so pending == 0 with an empty queue
// means the loop is idle.
func (l *loop) drain() (ran, pending int) {
	for {
		fn, p := l.next()
		if fn == nil {
			return ran, p
		}
		fn()
		ran++
	}
}

func (l *loop) run(ctx context.Context) error {
	for {
		// Idle means nothing is in flight either, so a render is not
		// reported halfway through a navigation.
		if ran, pending := l.drain(); ran > 0 && pending == 0 && l.idle != nil {
			l.idle()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *loop) flush(ctx context.Context) error {
	total := 0
	for {
		ran, pending := l.drain()
		total += ran
		if pending == 0 {
			if total > 0 && l.idle != nil {
				l.idle()
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
