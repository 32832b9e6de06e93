// Package feed owns the session-scoped, append-only queue of videos shown in
// the vertical feed.
//
// This package enables shortsfeed to:
// - Mint a session token per queue lifetime so the backend can skip items already served
// - Page through the feed without ever blocking the event loop
// - Stop paginating after the first empty page until the session is reset
package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultPageSize is the number of videos requested per page.
const DefaultPageSize = 5

// prefetchDistance is how close to the end of the queue the active index may
// get before the next page is requested.
const prefetchDistance = 2

// VideoItem is one playable entry in the feed. It is never mutated after it
// has been appended to a queue.
type VideoItem struct {
	ID               string
	Title            string
	ChannelID        string
	ChannelName      string
	ChannelAvatarURL string
	ThumbnailURL     string
	PublishedAt      time.Time
}

// SessionToken identifies one queue lifetime to the feed backend.
type SessionToken string

// NewSessionToken mints a fresh random token.
func NewSessionToken() SessionToken {
	return SessionToken(uuid.NewString())
}

// PageRequest describes one pagination call.
type PageRequest struct {
	Limit    int
	Session  SessionToken
	ViewerID string
}

// Source returns the next page of the feed for a session. An empty page
// means the session is exhausted.
type Source interface {
	FetchPage(ctx context.Context, req PageRequest) ([]VideoItem, error)
}

// Runner runs blocking work off the event loop and posts its continuation
// back. *loop.Loop satisfies it.
type Runner interface {
	Go(work func(ctx context.Context) func())
}

// EventKind identifies a session change.
type EventKind int

const (
	EventReset EventKind = iota
	EventAppended
	EventExhausted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventReset:
		return "reset"
	case EventAppended:
		return "appended"
	case EventExhausted:
		return "exhausted"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is delivered to session listeners on the loop goroutine.
type Event struct {
	Kind  EventKind
	Items []VideoItem
	Err   error
}
