package views

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
)

type mockReporter struct {
	ids []string
	err error
}

func (m *mockReporter) ReportView(_ context.Context, videoID string) error {
	m.ids = append(m.ids, videoID)
	return m.err
}

type mockPublisher struct {
	msgs []*nats.Msg
	err  error
}

func (m *mockPublisher) PublishMsg(msg *nats.Msg) error {
	m.msgs = append(m.msgs, msg)
	return m.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMultiReporter_CallsAllReporters(t *testing.T) {
	a := &mockReporter{}
	b := &mockReporter{}
	multi := NewMultiReporter(quietLogger(), a, nil, b)

	if multi.Len() != 2 {
		t.Fatalf("nil reporters should be skipped, got %d delegates", multi.Len())
	}
	if err := multi.ReportView(context.Background(), "vid1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.ids) != 1 || a.ids[0] != "vid1" {
		t.Errorf("first reporter not called: %v", a.ids)
	}
	if len(b.ids) != 1 || b.ids[0] != "vid1" {
		t.Errorf("second reporter not called: %v", b.ids)
	}
}

func TestMultiReporter_ContinuesOnError(t *testing.T) {
	failing := &mockReporter{err: errors.New("backend down")}
	ok := &mockReporter{}
	multi := NewMultiReporter(quietLogger(), failing, ok)

	if err := multi.ReportView(context.Background(), "vid1"); err != nil {
		t.Fatalf("failures should be logged, not returned: %v", err)
	}
	if len(ok.ids) != 1 {
		t.Error("second reporter should still be called after first fails")
	}
}

func TestNatsReporter_PublishesViewedEvent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	pub := &mockPublisher{}
	reporter := NewNatsReporter(pub, WithSubject("shorts.viewed"), WithClock(clock), WithLogger(quietLogger()))

	if err := reporter.ReportView(context.Background(), "vid1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.Subject != "shorts.viewed" {
		t.Errorf("expected subject shorts.viewed, got %s", msg.Subject)
	}
	if msg.Header.Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON content type header, got %q", msg.Header.Get("Content-Type"))
	}

	var ev ViewedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		t.Fatalf("payload should be JSON: %v", err)
	}
	if ev.VideoID != "vid1" || !ev.ViewedAt.Equal(clock.Now()) {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestNatsReporter_DefaultsAndErrors(t *testing.T) {
	pub := &mockPublisher{err: nats.ErrConnectionClosed}
	reporter := NewNatsReporter(pub, WithSubject(""))

	err := reporter.ReportView(context.Background(), "vid1")
	if !errors.Is(err, nats.ErrConnectionClosed) {
		t.Fatalf("publish error should be wrapped, got %v", err)
	}
	if pub.msgs[0].Subject != DefaultSubject {
		t.Errorf("empty subject should keep the default, got %s", pub.msgs[0].Subject)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := reporter.ReportView(ctx, "vid2"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context should short-circuit, got %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Error("nothing should be published after cancellation")
	}
}
