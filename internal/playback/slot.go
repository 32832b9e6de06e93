package playback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gauthierbraillon/shortsfeed/internal/embed"
	"github.com/gauthierbraillon/shortsfeed/internal/feed"
	"github.com/gauthierbraillon/shortsfeed/internal/loop"
)

// slotEnv is what a slot shares with its controller.
type slotEnv struct {
	loop     *loop.Loop
	policy   *Policy
	factory  embed.Factory
	ledger   *viewLedger
	reporter ViewReporter
	opts     *Options
	log      *slog.Logger
	emit     func(Event)
	ended    func(*Slot)
	released func(*Slot)
}

// Slot binds one queue index to one player embed. Every binding gets a fresh
// epoch; embed notifications carrying an older epoch are dropped, so a late
// callback from a torn-down embed never touches the slot.
type Slot struct {
	env *slotEnv

	index    int
	video    feed.VideoItem
	state    State
	player   embed.Player
	epoch    uint64
	active   bool
	spinner  bool
	teardown *loop.Task
	guard    *loop.Task
	acc      *Accumulator
}

func newSlot(env *slotEnv) *Slot {
	s := &Slot{env: env, index: -1}
	s.acc = newAccumulator(env.loop, env.opts.PollInterval, env.opts.ViewThreshold, s.position, s.reportView)
	return s
}

// View returns a read-only picture of the slot.
func (s *Slot) View() SlotView {
	return SlotView{
		Index:   s.index,
		VideoID: s.video.ID,
		State:   s.state,
		Active:  s.active,
		Spinner: s.spinner,
		Watched: s.acc.Watched(),
	}
}

func (s *Slot) bind(index int, video feed.VideoItem) {
	s.index = index
	s.video = video
	s.epoch++
	epoch := s.epoch

	player, err := s.env.factory.Open(func(ev embed.Event) {
		s.env.loop.Post(func() { s.handle(epoch, ev) })
	})
	if err != nil {
		s.env.log.Warn("embed open failed", "index", index, "video_id", video.ID, "error", err)
		return
	}
	s.player = player
	s.spinner = true
	s.setState(Loading)
	s.call("load", func(p embed.Player) error { return p.Load(video.ID) })
}

// heat keeps the slot mounted, cancelling a pending teardown.
func (s *Slot) heat() {
	if s.teardown.Cancel() {
		s.env.log.Debug("teardown cancelled", "index", s.index, "video_id", s.video.ID)
	}
	s.teardown = nil
}

// chill schedules the debounced teardown unless one is already pending.
func (s *Slot) chill() {
	if s.teardown != nil {
		return
	}
	s.teardown = s.env.loop.AfterFunc(s.env.opts.TeardownDelay, s.unload)
}

// teardownNow unloads the slot without waiting for the debounce.
func (s *Slot) teardownNow() {
	s.teardown.Cancel()
	s.unload()
}

func (s *Slot) unload() {
	s.teardown = nil
	s.active = false
	s.acc.Reset()
	s.cancelGuard()
	if s.player != nil {
		if err := s.player.Unload(); err != nil && !errors.Is(err, embed.ErrDetached) {
			s.env.log.Warn("embed unload failed", "index", s.index, "video_id", s.video.ID, "error", err)
		}
		s.player = nil
	}
	s.epoch++
	s.spinner = false
	s.setState(Unloaded)
	s.env.released(s)
}

func (s *Slot) activate() {
	s.active = true
	s.env.ledger.begin(s.video.ID)
	s.acc.Reset()
	s.applyCaptions()

	switch s.state {
	case Ready, Paused:
		s.play()
	case Ended:
		s.call("seek", func(p embed.Player) error { return p.SeekTo(0) })
		s.play()
	case Playing, Buffering:
		s.acc.Start()
	}
	s.env.emit(Event{Kind: EventActivated, Index: s.index, Video: s.video, State: s.state})
}

// deactivate pauses the slot right away instead of waiting for the embed to
// confirm, so two slots are never both considered playing.
func (s *Slot) deactivate() {
	if !s.active {
		return
	}
	s.active = false
	s.acc.Stop()
	s.cancelGuard()
	if s.state.running() {
		s.call("pause", func(p embed.Player) error { return p.Pause() })
		s.spinner = false
		s.setState(Paused)
	}
}

func (s *Slot) handle(epoch uint64, ev embed.Event) {
	if epoch != s.epoch || s.player == nil {
		s.env.log.Debug("dropping stale embed event", "index", s.index, "event", ev.Kind)
		return
	}
	switch ev.Kind {
	case embed.EventReady:
		s.onReady()
	case embed.EventStateChange:
		s.onStateChange(ev.State)
	case embed.EventError:
		s.env.log.Warn("embed reported error", "index", s.index, "video_id", s.video.ID, "error", ev.Err)
	}
}

func (s *Slot) onReady() {
	if s.state != Loading {
		return
	}
	s.spinner = false
	s.setState(Ready)
	s.applyCaptions()
	s.applyAudio()
	if s.active {
		s.play()
	}
}

func (s *Slot) onStateChange(st embed.State) {
	switch st {
	case embed.StatePlaying:
		if !s.state.loaded() {
			return
		}
		if !s.active {
			s.call("pause", func(p embed.Player) error { return p.Pause() })
			s.setState(Paused)
			return
		}
		s.cancelGuard()
		s.spinner = false
		s.setState(Playing)
		s.acc.Start()

	case embed.StateBuffering:
		if s.state != Playing {
			return
		}
		s.acc.Stop()
		s.spinner = true
		s.setState(Buffering)
		s.guard = s.env.loop.AfterFunc(s.env.opts.BufferingTimeout, s.forceResume)

	case embed.StatePaused:
		if !s.state.running() {
			return
		}
		s.cancelGuard()
		s.acc.Stop()
		s.spinner = false
		s.setState(Paused)

	case embed.StateEnded:
		if !s.state.running() {
			return
		}
		s.cancelGuard()
		s.acc.Stop()
		s.spinner = false
		s.setState(Ended)
		s.reportView()
		if s.active {
			s.env.ended(s)
		}
	}
}

func (s *Slot) forceResume() {
	s.guard = nil
	if s.state != Buffering {
		return
	}
	s.env.log.Debug("buffering guard elapsed", "index", s.index, "video_id", s.video.ID)
	s.spinner = false
	s.setState(Playing)
	s.acc.Start()
}

func (s *Slot) cancelGuard() {
	s.guard.Cancel()
	s.guard = nil
}

// play issues play. Audio is applied both before and after: the first play of
// a session always goes out muted, and a pending unmute follows it.
func (s *Slot) play() {
	s.applyAudio()
	if !s.call("play", func(p embed.Player) error { return p.Play() }) {
		return
	}
	if !s.env.policy.Played() {
		s.env.policy.notePlay()
		s.applyAudio()
	}
}

func (s *Slot) applyAudio() {
	if s.env.policy.Muted() || !s.env.policy.Played() {
		s.call("mute", func(p embed.Player) error { return p.Mute() })
		return
	}
	s.call("unmute", func(p embed.Player) error { return p.Unmute() })
	s.call("volume", func(p embed.Player) error { return p.SetVolume(100) })
}

func (s *Slot) applyCaptions() {
	on := s.env.policy.CaptionsOn()
	s.call("captions", func(p embed.Player) error { return p.SetCaptions(on) })
}

// tap unmutes the feed on the first gesture and toggles play/pause after.
func (s *Slot) tap() {
	policy := s.env.policy
	if policy.Muted() {
		policy.SetMuted(false)
		if s.state.loaded() && !s.state.running() {
			s.restart()
		}
		return
	}
	switch s.state {
	case Playing, Buffering:
		s.call("pause", func(p embed.Player) error { return p.Pause() })
	case Ready, Paused, Ended:
		s.restart()
	}
}

func (s *Slot) restart() {
	if s.state == Ended {
		s.call("seek", func(p embed.Player) error { return p.SeekTo(0) })
	}
	s.play()
}

func (s *Slot) seek(delta time.Duration) {
	if !s.state.loaded() {
		return
	}
	var cur, dur float64
	if !s.call("current_time", func(p embed.Player) (err error) {
		cur, err = p.CurrentTime()
		return err
	}) {
		return
	}
	if !s.call("duration", func(p embed.Player) (err error) {
		dur, err = p.Duration()
		return err
	}) {
		return
	}

	target := cur + delta.Seconds()
	if target < 0 {
		target = 0
	}
	if dur > 0 && target > dur {
		target = dur
	}
	s.call("seek", func(p embed.Player) error { return p.SeekTo(target) })
}

func (s *Slot) position() (float64, bool) {
	var pos float64
	ok := s.call("current_time", func(p embed.Player) (err error) {
		pos, err = p.CurrentTime()
		return err
	})
	return pos, ok
}

func (s *Slot) reportView() {
	id := s.video.ID
	if id == "" || !s.env.ledger.claim(id) {
		return
	}
	s.env.log.Info("view counted", "video_id", id, "watched", s.acc.Watched())
	s.env.emit(Event{Kind: EventViewReported, Index: s.index, Video: s.video, State: s.state, Watched: s.acc.Watched()})

	reporter := s.env.reporter
	if reporter == nil {
		return
	}
	log := s.env.log
	s.env.loop.Go(func(ctx context.Context) func() {
		ctx, cancel := context.WithTimeout(ctx, reportTimeout)
		defer cancel()
		if err := reporter.ReportView(ctx, id); err != nil {
			log.Warn("view report failed", "video_id", id, "error", err)
		}
		return nil
	})
}

// call issues one embed command. Failures are logged and swallowed.
func (s *Slot) call(command string, fn func(embed.Player) error) bool {
	if s.player == nil {
		s.env.log.Debug("embed command on detached slot", "command", command, "index", s.index)
		return false
	}
	if err := fn(s.player); err != nil {
		s.env.log.Warn("embed command failed", "command", command, "index", s.index, "video_id", s.video.ID, "error", err)
		return false
	}
	return true
}

func (s *Slot) setState(st State) {
	if s.state == st {
		return
	}
	prev := s.state
	s.state = st
	s.env.log.Debug("slot state", "index", s.index, "video_id", s.video.ID, "from", prev, "to", st)
	s.env.emit(Event{Kind: EventStateChanged, Index: s.index, Video: s.video, State: st, Prev: prev})
}
