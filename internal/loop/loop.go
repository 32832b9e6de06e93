// Package loop provides the single-goroutine event loop that every feed and
// playback state transition runs on.
//
// Callbacks posted from any goroutine are executed one at a time, in posting
// order, on the goroutine that calls Run (or RunPending/Settle in tests).
// Timers are modelled as cancellable tasks ordered by deadline. Blocking work
// (network requests) runs off-loop through Go and re-enters the loop through
// its continuation.
package loop

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Loop is a cooperative event loop. Only Post, Go and Close are safe to call
// from other goroutines; everything else belongs to the loop goroutine.
type Loop struct {
	clock clockwork.Clock

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	tasks taskHeap
	seq   uint64

	jobs   sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a loop driven by the given clock.
func New(clock clockwork.Clock) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		clock:  clock,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Clock returns the clock the loop schedules against.
func (l *Loop) Clock() clockwork.Clock {
	return l.clock
}

// Now returns the loop clock's current time.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post queues fn for execution on the loop goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Go runs work on its own goroutine and posts the continuation it returns,
// if any, back onto the loop.
func (l *Loop) Go(work func(ctx context.Context) func()) {
	l.jobs.Add(1)
	go func() {
		defer l.jobs.Done()
		if next := work(l.ctx); next != nil {
			l.Post(next)
		}
	}()
}

// AfterFunc schedules fn to run on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Task {
	l.seq++
	t := &Task{
		loop:  l,
		at:    l.clock.Now().Add(d),
		seq:   l.seq,
		fn:    fn,
		index: -1,
	}
	heap.Push(&l.tasks, t)
	return t
}

// RunPending executes queued callbacks and due tasks until none are left and
// returns how many ran.
func (l *Loop) RunPending() int {
	ran := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		due := l.runDue()
		ran += len(batch) + due

		if len(batch) == 0 && due == 0 {
			return ran
		}
	}
}

func (l *Loop) runDue() int {
	now := l.clock.Now()
	ran := 0
	for len(l.tasks) > 0 && !l.tasks[0].at.After(now) {
		t := heap.Pop(&l.tasks).(*Task)
		t.fn()
		ran++
	}
	return ran
}

// Settle waits for background jobs and drains the loop until it is idle.
func (l *Loop) Settle() {
	for {
		l.jobs.Wait()
		if l.RunPending() == 0 {
			return
		}
	}
}

// Pending reports how many tasks are scheduled.
func (l *Loop) Pending() int {
	return len(l.tasks)
}

// Run drives the loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()

		var (
			timer  clockwork.Timer
			expiry <-chan time.Time
		)
		if len(l.tasks) > 0 {
			timer = l.clock.NewTimer(l.tasks[0].at.Sub(l.clock.Now()))
			expiry = timer.Chan()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-l.wake:
		case <-expiry:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Close cancels the context handed to background jobs.
func (l *Loop) Close() {
	l.cancel()
}

// Task is a scheduled callback.
type Task struct {
	loop  *Loop
	at    time.Time
	seq   uint64
	fn    func()
	index int
}

// Cancel unschedules the task. It reports false if the task already ran or
// was cancelled before.
func (t *Task) Cancel() bool {
	if t == nil || t.index < 0 {
		return false
	}
	heap.Remove(&t.loop.tasks, t.index)
	return true
}

// Deadline returns when the task is due.
func (t *Task) Deadline() time.Time {
	return t.at
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
