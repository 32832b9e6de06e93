// Package embed describes the externally-owned media player capability the
// feed drives, and ships a clock-driven simulator of it.
package embed

import "errors"

// ErrDetached is returned by a player that has been unloaded.
var ErrDetached = errors.New("embed: player detached")

// State mirrors the player states reported by hosted video embeds.
type State int

const (
	StateUnstarted State = -1
	StateEnded     State = 0
	StatePlaying   State = 1
	StatePaused    State = 2
	StateBuffering State = 3
	StateCued      State = 5
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEnded:
		return "ended"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCued:
		return "cued"
	default:
		return "unknown"
	}
}

// EventKind identifies a player notification.
type EventKind int

const (
	EventReady EventKind = iota
	EventStateChange
	EventError
)

// Event is a notification emitted by a player.
type Event struct {
	Kind  EventKind
	State State
	Err   error
}

// Notify receives player notifications. Players may call it from any
// goroutine; events from one player must be delivered in emission order.
type Notify func(Event)

// Player is one mounted embed instance.
type Player interface {
	Load(videoID string) error
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	Mute() error
	Unmute() error
	SetVolume(pct int) error
	SetCaptions(on bool) error
	CurrentTime() (float64, error)
	Duration() (float64, error)
	Unload() error
}

// Factory mounts a new player whose notifications go to notify.
type Factory interface {
	Open(notify Notify) (Player, error)
}
