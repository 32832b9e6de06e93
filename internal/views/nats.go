package views

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject view events are published on.
const DefaultSubject = "video.viewed"

// Publisher is the part of *nats.Conn the reporter needs.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// ViewedEvent is the payload published for each counted view.
type ViewedEvent struct {
	VideoID  string    `json:"video_id"`
	ViewedAt time.Time `json:"viewed_at"`
}

// NatsReporter publishes counted views as events.
type NatsReporter struct {
	pub     Publisher
	subject string
	clock   clockwork.Clock
	log     *slog.Logger
}

// NatsOption configures a NatsReporter.
type NatsOption func(*NatsReporter)

func WithSubject(subject string) NatsOption {
	return func(r *NatsReporter) {
		if subject != "" {
			r.subject = subject
		}
	}
}

func WithClock(clock clockwork.Clock) NatsOption {
	return func(r *NatsReporter) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) NatsOption {
	return func(r *NatsReporter) {
		if logger != nil {
			r.log = logger
		}
	}
}

func NewNatsReporter(pub Publisher, opts ...NatsOption) *NatsReporter {
	r := &NatsReporter{
		pub:     pub,
		subject: DefaultSubject,
		clock:   clockwork.NewRealClock(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *NatsReporter) ReportView(ctx context.Context, videoID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ViewedEvent{VideoID: videoID, ViewedAt: r.clock.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: r.subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Content-Type", "application/json")

	r.log.Debug("publishing view event", "subject", r.subject, "video_id", videoID)
	if err := r.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", r.subject, err)
	}
	return nil
}

// Connect dials NATS for view publishing.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("shortsfeed"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return nc, nil
}
