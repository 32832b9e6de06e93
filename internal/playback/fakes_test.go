package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gauthierbraillon/shortsfeed/internal/embed"
	"github.com/gauthierbraillon/shortsfeed/internal/feed"
	"github.com/gauthierbraillon/shortsfeed/internal/loop"
)

var errPlayRefused = errors.New("play refused")

// fakeFactory opens scripted players. With autoReady a load reports ready on
// the next loop turn; with autoEvents play and pause report their state
// change the way a hosted embed does.
type fakeFactory struct {
	clock      clockwork.Clock
	autoReady  bool
	autoEvents bool
	duration   float64
	failPlay   bool
	failLength bool

	players []*fakePlayer
	log     []string
}

func (f *fakeFactory) Open(notify embed.Notify) (embed.Player, error) {
	p := &fakePlayer{f: f, id: len(f.players), notify: notify, duration: f.duration}
	f.players = append(f.players, p)
	return p, nil
}

// latest returns the most recent player that loaded videoID.
func (f *fakeFactory) latest(videoID string) *fakePlayer {
	for i := len(f.players) - 1; i >= 0; i-- {
		if f.players[i].videoID == videoID {
			return f.players[i]
		}
	}
	return nil
}

func (f *fakeFactory) live() []*fakePlayer {
	var out []*fakePlayer
	for _, p := range f.players {
		if !p.unloaded {
			out = append(out, p)
		}
	}
	return out
}

type fakePlayer struct {
	f        *fakeFactory
	id       int
	notify   embed.Notify
	videoID  string
	duration float64

	playing  bool
	pos      float64
	since    time.Time
	unloaded bool
	cmds     []string
}

func (p *fakePlayer) record(cmd string) {
	p.cmds = append(p.cmds, cmd)
	p.f.log = append(p.f.log, fmt.Sprintf("%s:%s", p.videoID, cmd))
}

func (p *fakePlayer) emit(st embed.State) {
	p.notify(embed.Event{Kind: embed.EventStateChange, State: st})
}

func (p *fakePlayer) ready() {
	p.notify(embed.Event{Kind: embed.EventReady})
}

func (p *fakePlayer) current() float64 {
	pos := p.pos
	if p.playing {
		pos += p.f.clock.Since(p.since).Seconds()
	}
	if p.duration > 0 && pos > p.duration {
		pos = p.duration
	}
	return pos
}

func (p *fakePlayer) has(cmd string) bool {
	for _, c := range p.cmds {
		if c == cmd {
			return true
		}
	}
	return false
}

func (p *fakePlayer) count(cmd string) int {
	n := 0
	for _, c := range p.cmds {
		if c == cmd {
			n++
		}
	}
	return n
}

func (p *fakePlayer) Load(videoID string) error {
	if p.unloaded {
		return embed.ErrDetached
	}
	p.videoID = videoID
	p.record("load")
	if p.f.autoReady {
		p.ready()
	}
	return nil
}

func (p *fakePlayer) Play() error {
	if p.unloaded {
		return embed.ErrDetached
	}
	p.record("play")
	if p.f.failPlay {
		return errPlayRefused
	}
	if !p.playing {
		p.playing = true
		p.since = p.f.clock.Now()
		if p.f.autoEvents {
			p.emit(embed.StatePlaying)
		}
	}
	return nil
}

func (p *fakePlayer) Pause() error {
	if p.unloaded {
		return embed.ErrDetached
	}
	p.record("pause")
	if p.playing {
		p.pos = p.current()
		p.playing = false
		if p.f.autoEvents {
			p.emit(embed.StatePaused)
		}
	}
	return nil
}

func (p *fakePlayer) SeekTo(seconds float64) error {
	if p.unloaded {
		return embed.ErrDetached
	}
	p.record(fmt.Sprintf("seek:%.1f", seconds))
	p.pos = seconds
	p.since = p.f.clock.Now()
	return nil
}

func (p *fakePlayer) Mute() error {
	if p.unloaded {
		return embed.ErrDetached
	}
	p.record("mute")
	return nil
}

func (p *fakePlayer) Unmute() error {
	if p.unloaded {
		return embed.ErrDetached
	}
	p.record("unmute")
	return nil
}

func (p *fakePlayer) SetVolume(pct int) error {
	if p.unloaded {
		return embed.ErrDetached
	}
	p.record(fmt.Sprintf("volume:%d", pct))
	return nil
}

func (p *fakePlayer) SetCaptions(on bool) error {
	if p.unloaded {
		return embed.ErrDetached
	}
	if on {
		p.record("captions:on")
	} else {
		p.record("captions:off")
	}
	return nil
}

func (p *fakePlayer) CurrentTime() (float64, error) {
	if p.unloaded {
		return 0, embed.ErrDetached
	}
	return p.current(), nil
}

func (p *fakePlayer) Duration() (float64, error) {
	if p.unloaded {
		return 0, embed.ErrDetached
	}
	if p.f.failLength {
		return 0, errors.New("duration unavailable")
	}
	return p.duration, nil
}

func (p *fakePlayer) Unload() error {
	if p.unloaded {
		return embed.ErrDetached
	}
	p.record("unload")
	p.unloaded = true
	p.playing = false
	return nil
}

// pagedSource serves a fixed catalogue in pages, restarting for every new
// session token.
type pagedSource struct {
	mu       sync.Mutex
	catalog  []feed.VideoItem
	offsets  map[feed.SessionToken]int
	failures int
	repeats  int
	requests []feed.PageRequest
}

func newPagedSource(n int) *pagedSource {
	src := &pagedSource{offsets: make(map[feed.SessionToken]int)}
	for i := 1; i <= n; i++ {
		src.catalog = append(src.catalog, feed.VideoItem{
			ID:          fmt.Sprintf("v%d", i),
			Title:       fmt.Sprintf("Short %d", i),
			ChannelName: "Channel",
		})
	}
	return src
}

func (s *pagedSource) FetchPage(_ context.Context, req feed.PageRequest) ([]feed.VideoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.failures > 0 && len(s.requests) > 1 {
		s.failures--
		return nil, errors.New("feed unavailable")
	}
	if s.repeats > 0 && len(s.requests) > 1 {
		s.repeats--
		return append([]feed.VideoItem(nil), s.catalog[:req.Limit]...), nil
	}
	off := s.offsets[req.Session]
	end := off + req.Limit
	if end > len(s.catalog) {
		end = len(s.catalog)
	}
	page := append([]feed.VideoItem(nil), s.catalog[off:end]...)
	s.offsets[req.Session] = end
	return page, nil
}

func (s *pagedSource) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *pagedSource) lastRequest() feed.PageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type fakeReporter struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (r *fakeReporter) ReportView(_ context.Context, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, videoID)
	return r.err
}

func (r *fakeReporter) reported() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type harness struct {
	t        *testing.T
	clock    *clockwork.FakeClock
	loop     *loop.Loop
	src      *pagedSource
	factory  *fakeFactory
	reporter *fakeReporter
	feed     *Feed
	events   []Event
}

type harnessConfig struct {
	catalog  int
	pageSize int
	manual   bool
	opts     []Option
}

func newHarness(t *testing.T, cfg harnessConfig) *harness {
	t.Helper()
	if cfg.catalog == 0 {
		cfg.catalog = 20
	}
	if cfg.pageSize == 0 {
		cfg.pageSize = feed.DefaultPageSize
	}
	clock := clockwork.NewFakeClock()
	h := &harness{
		t:        t,
		clock:    clock,
		loop:     loop.New(clock),
		src:      newPagedSource(cfg.catalog),
		factory:  &fakeFactory{clock: clock, autoReady: !cfg.manual, autoEvents: true, duration: 60},
		reporter: &fakeReporter{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := feed.NewSession(h.src, h.loop, feed.WithPageSize(cfg.pageSize), feed.WithLogger(logger))
	opts := append([]Option{
		WithLogger(logger),
		WithObserver(func(ev Event) { h.events = append(h.events, ev) }),
	}, cfg.opts...)
	h.feed = New(h.loop, session, h.factory, h.reporter, opts...)
	t.Cleanup(h.loop.Close)
	return h
}

func (h *harness) start() {
	h.feed.Start("")
	h.settle()
}

func (h *harness) settle() {
	h.loop.Settle()
	h.assertSingleActive()
}

// watch lets the fake clock run for d in small steps.
func (h *harness) watch(d time.Duration) {
	const step = 100 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.clock.Advance(step)
		h.settle()
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.settle()
}

func (h *harness) player(videoID string) *fakePlayer {
	h.t.Helper()
	p := h.factory.latest(videoID)
	if p == nil {
		h.t.Fatalf("no player loaded %s", videoID)
	}
	return p
}

// assertSingleActive fails when more than one slot counts as playing or the
// playing slot is not the active one.
func (h *harness) assertSingleActive() {
	h.t.Helper()
	running := 0
	for idx, s := range h.feed.slots {
		if s.state.running() {
			running++
			if idx != h.feed.Active() {
				h.t.Fatalf("slot %d is %s but active index is %d", idx, s.state, h.feed.Active())
			}
		}
	}
	if running > 1 {
		h.t.Fatalf("%d slots running at once", running)
	}
}

func (h *harness) count(kind EventKind) int {
	n := 0
	for _, ev := range h.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// firstIndex returns the position of entry in the global command log, or -1.
func firstIndex(log []string, entry string) int {
	for i, l := range log {
		if l == entry {
			return i
		}
	}
	return -1
}

func lastAudioBefore(cmds []string, stop string) string {
	last := ""
	for _, c := range cmds {
		if c == stop {
			return last
		}
		if c == "mute" || c == "unmute" {
			last = c
		}
	}
	return last
}

func hasPrefix(cmds []string, prefix string) bool {
	for _, c := range cmds {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
