// Package playback is the feed's playback controller: it binds queued videos
// to a bounded set of player embeds around the active index, applies the
// global mute/caption policy, and counts views.
//
// Everything in this package runs on the event loop goroutine.
package playback

import (
	"time"

	"github.com/gauthierbraillon/shortsfeed/internal/feed"
)

// State is the lifecycle state of a playback slot.
type State int

const (
	Unloaded State = iota
	Loading
	Ready
	Playing
	Paused
	Buffering
	Ended
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Buffering:
		return "buffering"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// loaded reports whether the embed has finished loading the video.
func (s State) loaded() bool {
	return s >= Ready
}

// running reports whether the slot counts as the one playing.
func (s State) running() bool {
	return s == Playing || s == Buffering
}

// EventKind identifies a controller event.
type EventKind int

const (
	EventActivated EventKind = iota
	EventStateChanged
	EventViewReported
	EventExhausted
	EventLoadFailed
)

func (k EventKind) String() string {
	switch k {
	case EventActivated:
		return "activated"
	case EventStateChanged:
		return "state_changed"
	case EventViewReported:
		return "view_reported"
	case EventExhausted:
		return "exhausted"
	case EventLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Event is delivered to the observer configured with WithObserver.
type Event struct {
	Kind    EventKind
	Index   int
	Video   feed.VideoItem
	State   State
	Prev    State
	Watched time.Duration
	Err     error
}

// SlotView is a read-only picture of one mounted slot.
type SlotView struct {
	Index   int
	VideoID string
	State   State
	Active  bool
	Spinner bool
	Watched time.Duration
}

// Snapshot is a read-only picture of the whole controller.
type Snapshot struct {
	Active     int
	Length     int
	Loading    bool
	Exhausted  bool
	Muted      bool
	CaptionsOn bool
	Current    *feed.VideoItem
	Slots      []SlotView
}
