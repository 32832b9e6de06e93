// Package views delivers counted views to the places that record them.
package views

import (
	"context"
	"log/slog"

	"github.com/gauthierbraillon/shortsfeed/internal/playback"
)

var (
	_ playback.ViewReporter = (*MultiReporter)(nil)
	_ playback.ViewReporter = (*NatsReporter)(nil)
)

// MultiReporter fans a view out to every registered reporter.
type MultiReporter struct {
	reporters []playback.ViewReporter
	log       *slog.Logger
}

// NewMultiReporter creates a reporter that delegates to all non-nil reporters.
func NewMultiReporter(logger *slog.Logger, reporters ...playback.ViewReporter) *MultiReporter {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MultiReporter{log: logger}
	for _, r := range reporters {
		if r != nil {
			m.reporters = append(m.reporters, r)
		}
	}
	return m
}

// Len returns the number of delegates.
func (m *MultiReporter) Len() int {
	return len(m.reporters)
}

// ReportView always returns nil; individual failures are logged.
func (m *MultiReporter) ReportView(ctx context.Context, videoID string) error {
	for _, r := range m.reporters {
		if err := r.ReportView(ctx, videoID); err != nil {
			m.log.Warn("multi-reporter: view report failed", "video_id", videoID, "error", err)
		}
	}
	return nil
}
