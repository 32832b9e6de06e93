package playback

import (
	"context"
	"time"

	"github.com/gauthierbraillon/shortsfeed/internal/loop"
)

// ViewReporter delivers a counted view. Delivery is fire-and-forget; errors
// are logged by the caller and never retried.
type ViewReporter interface {
	ReportView(ctx context.Context, videoID string) error
}

// viewLedger remembers which videos were reported during one queue lifetime.
type viewLedger struct {
	rereport bool
	reported map[string]struct{}
}

func newViewLedger(rereport bool) *viewLedger {
	return &viewLedger{rereport: rereport, reported: make(map[string]struct{})}
}

// begin is called when a video becomes active.
func (v *viewLedger) begin(videoID string) {
	if v.rereport {
		delete(v.reported, videoID)
	}
}

// claim marks videoID as reported and reports whether the caller should send
// the report.
func (v *viewLedger) claim(videoID string) bool {
	if _, ok := v.reported[videoID]; ok {
		return false
	}
	v.reported[videoID] = struct{}{}
	return true
}

func (v *viewLedger) has(videoID string) bool {
	_, ok := v.reported[videoID]
	return ok
}

func (v *viewLedger) reset() {
	clear(v.reported)
}

// Accumulator measures continuous watch time by sampling the playback
// position at a fixed interval. Each sample contributes the forward progress
// since the previous one, capped by the wall time in between, so seeking
// ahead never inflates the total. It fires once when the threshold is
// reached and stops sampling afterwards.
type Accumulator struct {
	loop        *loop.Loop
	interval    time.Duration
	threshold   time.Duration
	sample      func() (float64, bool)
	onThreshold func()

	task    *loop.Task
	sampled bool
	lastPos float64
	lastAt  time.Time
	watched time.Duration
	fired   bool
}

func newAccumulator(l *loop.Loop, interval, threshold time.Duration, sample func() (float64, bool), onThreshold func()) *Accumulator {
	return &Accumulator{
		loop:        l,
		interval:    interval,
		threshold:   threshold,
		sample:      sample,
		onThreshold: onThreshold,
	}
}

// Start begins sampling. It is a no-op while already sampling or after the
// threshold fired.
func (a *Accumulator) Start() {
	if a.task != nil || a.fired {
		return
	}
	a.lastPos, a.sampled = a.sample()
	a.lastAt = a.loop.Now()
	a.task = a.loop.AfterFunc(a.interval, a.tick)
}

// Stop pauses sampling and keeps the accumulated total.
func (a *Accumulator) Stop() {
	a.task.Cancel()
	a.task = nil
	a.sampled = false
}

// Reset stops sampling and zeroes the total for a new activation.
func (a *Accumulator) Reset() {
	a.Stop()
	a.watched = 0
	a.fired = false
}

// Watched returns the accumulated watch time.
func (a *Accumulator) Watched() time.Duration {
	return a.watched
}

// Fired reports whether the threshold was reached.
func (a *Accumulator) Fired() bool {
	return a.fired
}

// Running reports whether a sample is scheduled.
func (a *Accumulator) Running() bool {
	return a.task != nil
}

func (a *Accumulator) tick() {
	a.task = nil
	pos, ok := a.sample()
	now := a.loop.Now()

	if ok && a.sampled {
		if progress := pos - a.lastPos; progress > 0 {
			d := time.Duration(progress * float64(time.Second))
			if elapsed := now.Sub(a.lastAt); d > elapsed {
				d = elapsed
			}
			a.watched += d
		}
	}
	a.sampled = ok
	a.lastPos = pos
	a.lastAt = now

	if a.watched >= a.threshold {
		a.fired = true
		a.onThreshold()
		return
	}
	a.task = a.loop.AfterFunc(a.interval, a.tick)
}
