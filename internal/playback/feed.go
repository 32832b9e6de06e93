package playback

import (
	"sort"

	"github.com/gauthierbraillon/shortsfeed/internal/embed"
	"github.com/gauthierbraillon/shortsfeed/internal/feed"
	"github.com/gauthierbraillon/shortsfeed/internal/loop"
)

// Feed drives an infinite vertical feed: one active index, a window of
// mounted slots around it, and the paginated session behind it.
type Feed struct {
	env     *slotEnv
	session *feed.Session
	virt    Virtualizer
	opts    Options

	slots   map[int]*Slot
	free    []*Slot
	active  int
	current *Slot

	// advancePending is set when the last video ended before the next page
	// arrived.
	advancePending bool
}

// New wires a controller to its session, embed factory and view reporter.
// reporter may be nil.
func New(l *loop.Loop, session *feed.Session, factory embed.Factory, reporter ViewReporter, opts ...Option) *Feed {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	f := &Feed{
		session: session,
		virt:    Virtualizer{Radius: o.Window},
		opts:    o,
		slots:   make(map[int]*Slot),
		active:  -1,
	}
	f.env = &slotEnv{
		loop:     l,
		policy:   NewPolicy(o.CaptionsOn),
		factory:  factory,
		ledger:   newViewLedger(o.ReReportViews),
		reporter: reporter,
		opts:     &f.opts,
		log:      o.Logger,
		emit:     f.emit,
		ended:    f.onEnded,
		released: f.release,
	}
	f.env.policy.Subscribe(f.onPolicyChange)
	session.OnChange(f.onSessionEvent)
	return f
}

// Start begins a session for viewerID (empty for anonymous).
func (f *Feed) Start(viewerID string) {
	f.session.Reset(viewerID)
}

// SetViewer switches identity. Every slot is torn down immediately and a new
// session starts; the mute and caption preferences survive.
func (f *Feed) SetViewer(viewerID string) {
	if viewerID == f.session.ViewerID() && f.session.Token() != "" {
		return
	}
	f.env.log.Info("viewer changed", "viewer", viewerID)
	f.session.Reset(viewerID)
}

// ScrollTo moves the active index as the result of a user gesture. Out of
// range indices are clamped.
func (f *Feed) ScrollTo(index int) {
	f.advancePending = false
	f.setActive(index, true)
}

func (f *Feed) Next() {
	f.ScrollTo(f.active + 1)
}

func (f *Feed) Prev() {
	f.ScrollTo(f.active - 1)
}

// Tap is a tap on the active video.
func (f *Feed) Tap() {
	if f.current != nil {
		f.current.tap()
	}
}

func (f *Feed) ToggleCaptions() {
	f.env.policy.SetCaptionsOn(!f.env.policy.CaptionsOn())
}

func (f *Feed) SeekForward() {
	if f.current != nil {
		f.current.seek(f.opts.SeekStep)
	}
}

func (f *Feed) SeekBackward() {
	if f.current != nil {
		f.current.seek(-f.opts.SeekStep)
	}
}

// Policy exposes the global mute and caption flags.
func (f *Feed) Policy() *Policy {
	return f.env.policy
}

// Active returns the active index, or -1 before the first page.
func (f *Feed) Active() int {
	return f.active
}

// Current returns the active video.
func (f *Feed) Current() (feed.VideoItem, bool) {
	if f.active < 0 {
		return feed.VideoItem{}, false
	}
	return f.session.At(f.active)
}

// SlotState returns the state of the slot mounted at index.
func (f *Feed) SlotState(index int) State {
	if s, ok := f.slots[index]; ok {
		return s.state
	}
	return Unloaded
}

// Snapshot captures the controller state for display.
func (f *Feed) Snapshot() Snapshot {
	snap := Snapshot{
		Active:     f.active,
		Length:     f.session.Len(),
		Loading:    f.session.Loading(),
		Exhausted:  f.session.Exhausted(),
		Muted:      f.env.policy.Muted(),
		CaptionsOn: f.env.policy.CaptionsOn(),
	}
	if video, ok := f.Current(); ok {
		snap.Current = &video
	}
	for _, s := range f.slots {
		snap.Slots = append(snap.Slots, s.View())
	}
	sort.Slice(snap.Slots, func(i, j int) bool { return snap.Slots[i].Index < snap.Slots[j].Index })
	return snap
}

// Close unloads every embed.
func (f *Feed) Close() {
	f.current = nil
	f.teardownAll()
}

func (f *Feed) setActive(index int, gesture bool) {
	n := f.session.Len()
	if n == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index > n-1 {
		index = n - 1
	}
	if index == f.active {
		// Pushing past the end of the queue is a trigger on its own.
		f.session.MaybeLoadMore(index)
		return
	}

	prev := f.active
	if f.current != nil {
		f.current.deactivate()
	}
	f.current = nil
	f.active = index

	if gesture && f.opts.UnmuteOnScroll && prev >= 0 && index > prev && index > 0 {
		f.env.policy.SetMuted(false)
	}

	f.reconcile()
	if s, ok := f.slots[index]; ok {
		f.current = s
		s.activate()
	}
	f.session.MaybeLoadMore(index)
}

// reconcile mounts the window around the active index and schedules teardown
// for everything outside it.
func (f *Feed) reconcile() {
	lo, hi := f.virt.Window(f.active, f.session.Len())
	for idx, s := range f.slots {
		if idx < lo || idx > hi {
			s.chill()
		}
	}
	for idx := lo; idx <= hi; idx++ {
		video, ok := f.session.At(idx)
		if !ok {
			continue
		}
		s, exists := f.slots[idx]
		if !exists {
			s = f.acquire()
			f.slots[idx] = s
		}
		s.heat()
		if s.state == Unloaded {
			s.bind(idx, video)
		}
	}
}

func (f *Feed) acquire() *Slot {
	if n := len(f.free); n > 0 {
		s := f.free[n-1]
		f.free = f.free[:n-1]
		return s
	}
	return newSlot(f.env)
}

func (f *Feed) release(s *Slot) {
	if f.slots[s.index] == s {
		delete(f.slots, s.index)
	}
	if f.current == s {
		f.current = nil
	}
	s.index = -1
	f.free = append(f.free, s)
}

func (f *Feed) teardownAll() {
	slots := make([]*Slot, 0, len(f.slots))
	for _, s := range f.slots {
		slots = append(slots, s)
	}
	for _, s := range slots {
		s.teardownNow()
	}
}

func (f *Feed) onEnded(s *Slot) {
	if s != f.current {
		return
	}
	if f.active+1 < f.session.Len() {
		f.setActive(f.active+1, false)
		return
	}
	if f.session.Exhausted() {
		return
	}
	f.advancePending = true
	f.session.LoadMore()
}

func (f *Feed) onSessionEvent(ev feed.Event) {
	switch ev.Kind {
	case feed.EventReset:
		f.current = nil
		f.teardownAll()
		f.env.ledger.reset()
		f.active = -1
		f.advancePending = false

	case feed.EventAppended:
		if len(ev.Items) == 0 {
			// Every video in the page was already delivered.
			if f.active < 0 || f.advancePending {
				f.session.LoadMore()
			}
			return
		}
		switch {
		case f.active < 0:
			f.setActive(0, false)
		case f.advancePending:
			f.advancePending = false
			f.setActive(f.active+1, false)
		default:
			f.reconcile()
		}

	case feed.EventExhausted:
		f.advancePending = false
		f.emit(Event{Kind: EventExhausted, Index: f.active})

	case feed.EventFailed:
		f.emit(Event{Kind: EventLoadFailed, Index: f.active, Err: ev.Err})
	}
}

func (f *Feed) onPolicyChange(change PolicyChange) {
	if f.current == nil {
		return
	}
	switch change {
	case MuteChanged:
		f.current.applyAudio()
	case CaptionsChanged:
		f.current.applyCaptions()
	}
}

func (f *Feed) emit(ev Event) {
	if f.opts.Observer != nil {
		f.opts.Observer(ev)
	}
}
