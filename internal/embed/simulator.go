package embed

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrNotLoaded is returned by playback commands issued before Load.
var ErrNotLoaded = errors.New("embed: no video loaded")

const defaultLoadLatency = 300 * time.Millisecond

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithLoadLatency sets how long a load takes before the player reports ready.
func WithLoadLatency(d time.Duration) SimulatorOption {
	return func(s *Simulator) {
		s.loadLatency = d
	}
}

// WithDurations overrides the per-video duration lookup.
func WithDurations(fn func(videoID string) float64) SimulatorOption {
	return func(s *Simulator) {
		if fn != nil {
			s.durationOf = fn
		}
	}
}

// Simulator is a Factory of headless players whose playback position follows
// the clock. It stands in for a hosted embed when running from a terminal.
type Simulator struct {
	clock       clockwork.Clock
	loadLatency time.Duration
	durationOf  func(videoID string) float64
}

// NewSimulator creates a simulator driven by clock.
func NewSimulator(clock clockwork.Clock, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		clock:       clock,
		loadLatency: defaultLoadLatency,
		durationOf:  SimulatedDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open mounts a new simulated player.
func (s *Simulator) Open(notify Notify) (Player, error) {
	return &simPlayer{sim: s, notify: notify, volume: 100}, nil
}

// SimulatedDuration derives a stable 10-39 second duration from a video id.
func SimulatedDuration(videoID string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(videoID))
	return float64(10 + h.Sum32()%30)
}

type simPlayer struct {
	sim    *Simulator
	notify Notify

	mu       sync.Mutex
	videoID  string
	duration float64
	position float64
	since    time.Time
	playing  bool
	ready    bool
	detached bool
	muted    bool
	volume   int
	captions bool
	timer    clockwork.Timer
	gen      uint64
}

func (p *simPlayer) Load(videoID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return ErrDetached
	}
	p.stopTimer()
	p.videoID = videoID
	p.duration = p.sim.durationOf(videoID)
	p.position = 0
	p.playing = false
	p.ready = false
	gen := p.gen
	p.timer = p.sim.clock.AfterFunc(p.sim.loadLatency, func() { p.markReady(gen) })
	return nil
}

func (p *simPlayer) markReady(gen uint64) {
	p.mu.Lock()
	if p.detached || p.ready || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.ready = true
	p.mu.Unlock()
	p.notify(Event{Kind: EventReady})
}

func (p *simPlayer) Play() error {
	p.mu.Lock()
	if err := p.usable(); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.playing {
		p.mu.Unlock()
		return nil
	}
	if p.position >= p.duration {
		p.position = 0
	}
	p.playing = true
	p.since = p.sim.clock.Now()
	p.scheduleEnd()
	p.mu.Unlock()

	p.notify(Event{Kind: EventStateChange, State: StatePlaying})
	return nil
}

func (p *simPlayer) Pause() error {
	p.mu.Lock()
	if err := p.usable(); err != nil {
		p.mu.Unlock()
		return err
	}
	if !p.playing {
		p.mu.Unlock()
		return nil
	}
	p.position = p.currentLocked()
	p.playing = false
	p.stopTimer()
	p.mu.Unlock()

	p.notify(Event{Kind: EventStateChange, State: StatePaused})
	return nil
}

func (p *simPlayer) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usable(); err != nil {
		return err
	}
	if seconds < 0 {
		seconds = 0
	}
	if seconds > p.duration {
		seconds = p.duration
	}
	p.position = seconds
	if p.playing {
		p.since = p.sim.clock.Now()
		p.stopTimer()
		p.scheduleEnd()
	}
	return nil
}

func (p *simPlayer) Mute() error {
	return p.set(func() { p.muted = true })
}

func (p *simPlayer) Unmute() error {
	return p.set(func() { p.muted = false })
}

func (p *simPlayer) SetVolume(pct int) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return p.set(func() { p.volume = pct })
}

func (p *simPlayer) SetCaptions(on bool) error {
	return p.set(func() { p.captions = on })
}

func (p *simPlayer) CurrentTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return 0, ErrDetached
	}
	return p.currentLocked(), nil
}

func (p *simPlayer) Duration() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return 0, ErrDetached
	}
	return p.duration, nil
}

func (p *simPlayer) Unload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return ErrDetached
	}
	p.detached = true
	p.playing = false
	p.stopTimer()
	return nil
}

// Muted reports the simulated audio state.
func (p *simPlayer) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *simPlayer) set(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return ErrDetached
	}
	fn()
	return nil
}

func (p *simPlayer) usable() error {
	if p.detached {
		return ErrDetached
	}
	if !p.ready {
		return ErrNotLoaded
	}
	return nil
}

func (p *simPlayer) currentLocked() float64 {
	pos := p.position
	if p.playing {
		pos += p.sim.clock.Since(p.since).Seconds()
	}
	if pos > p.duration {
		pos = p.duration
	}
	return pos
}

func (p *simPlayer) scheduleEnd() {
	p.gen++
	gen := p.gen
	remaining := time.Duration((p.duration - p.position) * float64(time.Second))
	p.timer = p.sim.clock.AfterFunc(remaining, func() { p.finish(gen) })
}

func (p *simPlayer) finish(gen uint64) {
	p.mu.Lock()
	if p.detached || !p.playing || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.position = p.duration
	p.playing = false
	p.timer = nil
	p.mu.Unlock()
	p.notify(Event{Kind: EventStateChange, State: StateEnded})
}

func (p *simPlayer) stopTimer() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
