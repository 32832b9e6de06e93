package feed

import (
	"context"
	"log/slog"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPageSize sets how many videos each page request asks for.
func WithPageSize(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithRequestTimeout bounds each page request.
func WithRequestTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTokenSource replaces the session token generator (useful for testing).
func WithTokenSource(mint func() SessionToken) SessionOption {
	return func(s *Session) {
		if mint != nil {
			s.mint = mint
		}
	}
}

// Session produces a monotonically growing queue for one viewer context.
// All methods must be called on the event loop goroutine.
type Session struct {
	source   Source
	runner   Runner
	pageSize int
	timeout  time.Duration
	mint     func() SessionToken
	log      *slog.Logger

	viewerID  string
	token     SessionToken
	queue     *Queue
	inFlight  bool
	exhausted bool
	listeners []func(Event)
}

// NewSession creates a session that pages through source. No request is made
// until Reset is called.
func NewSession(source Source, runner Runner, opts ...SessionOption) *Session {
	s := &Session{
		source:   source,
		runner:   runner,
		pageSize: DefaultPageSize,
		timeout:  defaultRequestTimeout,
		mint:     NewSessionToken,
		log:      slog.Default(),
		queue:    NewQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a listener for session events.
func (s *Session) OnChange(fn func(Event)) {
	s.listeners = append(s.listeners, fn)
}

// Reset starts a new queue lifetime for viewerID (empty for anonymous) and
// requests the first page. The new token is minted before that request.
func (s *Session) Reset(viewerID string) {
	s.viewerID = viewerID
	s.token = s.mint()
	s.queue.Clear()
	s.exhausted = false
	s.inFlight = false

	s.log.Debug("feed session reset", "session", s.token, "viewer", viewerID)
	s.emit(Event{Kind: EventReset})
	s.LoadMore()
}

// LoadMore requests the next page unless one is already in flight, the feed
// is exhausted, or the session has not been reset yet. It reports whether a
// request was issued.
func (s *Session) LoadMore() bool {
	if s.inFlight || s.exhausted || s.token == "" {
		return false
	}
	s.inFlight = true

	req := PageRequest{
		Limit:    s.pageSize,
		Session:  s.token,
		ViewerID: s.viewerID,
	}
	timeout := s.timeout
	s.runner.Go(func(ctx context.Context) func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		items, err := s.source.FetchPage(ctx, req)
		return func() { s.applyPage(req, items, err) }
	})
	return true
}

// MaybeLoadMore applies the prefetch trigger for the given active index.
func (s *Session) MaybeLoadMore(active int) bool {
	if active < s.queue.Len()-prefetchDistance {
		return false
	}
	return s.LoadMore()
}

func (s *Session) applyPage(req PageRequest, items []VideoItem, err error) {
	if req.Session != s.token {
		s.log.Debug("dropping page for stale session", "session", req.Session, "current", s.token)
		return
	}
	s.inFlight = false

	if err != nil {
		s.log.Warn("feed page request failed", "error", err, "session", s.token)
		s.emit(Event{Kind: EventFailed, Err: err})
		return
	}

	if len(items) == 0 {
		s.exhausted = true
		s.log.Info("feed exhausted", "session", s.token, "queued", s.queue.Len())
		s.emit(Event{Kind: EventExhausted})
		return
	}

	added := s.queue.Append(items)
	if dropped := len(items) - len(added); dropped > 0 {
		s.log.Warn("feed page repeated delivered videos", "session", s.token, "dropped", dropped)
	}
	s.log.Debug("feed page appended", "session", s.token, "added", len(added), "queued", s.queue.Len())
	s.emit(Event{Kind: EventAppended, Items: added})
}

func (s *Session) emit(ev Event) {
	for _, fn := range s.listeners {
		fn(ev)
	}
}

// Len returns the queue length.
func (s *Session) Len() int {
	return s.queue.Len()
}

// At returns the queued video at index i.
func (s *Session) At(i int) (VideoItem, bool) {
	return s.queue.At(i)
}

// Items returns a copy of the queue.
func (s *Session) Items() []VideoItem {
	return s.queue.Items()
}

// Token returns the current session token.
func (s *Session) Token() SessionToken {
	return s.token
}

// ViewerID returns the viewer the session is scoped to.
func (s *Session) ViewerID() string {
	return s.viewerID
}

// Loading reports whether a page request is in flight.
func (s *Session) Loading() bool {
	return s.inFlight
}

// Exhausted reports whether the backend has signalled the end of the feed.
func (s *Session) Exhausted() bool {
	return s.exhausted
}
