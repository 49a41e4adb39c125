package loop

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Dispatcher serializes all callbacks onto the goroutine that calls Wait.
// Sources (socket readers, listeners) run as goroutines under an errgroup and
// only ever Post work back; they never touch loop-owned state directly.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	dispatched atomic.Uint64
}

func New() *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		queue:  make([]func(), 0, 16),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Post queues fn for the loop goroutine. It never blocks; after Close the
// callback is dropped.
func (d *Dispatcher) Post(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Go runs a source goroutine; ctx is cancelled by Close.
func (d *Dispatcher) Go(fn func(ctx context.Context) error) {
	d.group.Go(func() error {
		return fn(d.ctx)
	})
}

// Context is cancelled once Close begins.
func (d *Dispatcher) Context() context.Context {
	return d.ctx
}

// Dispatched counts callbacks run so far.
func (d *Dispatcher) Dispatched() uint64 {
	return d.dispatched.Load()
}

// Wait is the single suspension point of the process. It blocks, with no
// timeout, until at least one posted callback has run or a signal arrives.
// A delivered signal is returned to the caller unhandled.
func (d *Dispatcher) Wait(signals <-chan os.Signal) (os.Signal, bool) {
	for {
		if d.runQueued() > 0 {
			return nil, false
		}
		select {
		case <-d.wake:
		case sig := <-signals:
			return sig, true
		case <-d.ctx.Done():
			return nil, false
		}
	}
}

func (d *Dispatcher) runQueued() int {
	d.mu.Lock()
	batch := d.queue
	d.queue = make([]func(), 0, cap(batch))
	d.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	d.dispatched.Add(uint64(len(batch)))
	return len(batch)
}

// Close stops accepting callbacks, cancels sources, and waits for them.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.queue = nil
	d.mu.Unlock()

	d.cancel()
	return d.group.Wait()
}

// Timer is a one-shot loop timer.
type Timer struct {
	t       *time.Timer
	stopped atomic.Bool
}

// AfterFunc runs fn on the loop goroutine once d has elapsed.
func (d *Dispatcher) AfterFunc(after time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(after, func() {
		d.Post(func() {
			if tm.stopped.Load() {
				return
			}
			tm.stopped.Store(true)
			fn()
		})
	})
	return tm
}

// Stop prevents a pending timer from firing; it reports whether it was pending.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	wasPending := !t.stopped.Swap(true)
	t.t.Stop()
	return wasPending
}
