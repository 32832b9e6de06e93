// Package display provides terminal output formatting for shortsfeed.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/gauthierbraillon/shortsfeed/internal/feed"
	"github.com/gauthierbraillon/shortsfeed/internal/playback"
	"github.com/gauthierbraillon/shortsfeed/pkg/browser"
)

const (
	separator     = " • "
	maxTitleWidth = 72

	EmptyFeedMessage = "No videos yet. Add a channel!"
	ExhaustedMessage = "Nothing more to show."
	LoadingMessage   = "Loading more..."
)

// TerminalFormatter formats feed items and playback status for terminal display.
type TerminalFormatter struct {
	now func() time.Time
}

// NewTerminalFormatter creates a new terminal formatter.
func NewTerminalFormatter() *TerminalFormatter {
	return &TerminalFormatter{now: time.Now}
}

// FormatItem formats a single video for display. position is 1-based.
func (f *TerminalFormatter) FormatItem(position int, item feed.VideoItem) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("#%d %s", position, f.TruncateText(item.Title, maxTitleWidth)))

	meta := "  by " + channelOf(item)
	if !item.PublishedAt.IsZero() {
		meta += separator + f.FormatTimestamp(item.PublishedAt)
	}
	lines = append(lines, meta)

	if watch := browser.WatchURL(item.ID); watch != "" {
		lines = append(lines, "  "+watch)
	}

	return strings.Join(lines, "\n") + "\n"
}

// FormatFeed formats a page of videos, numbering from 1.
func (f *TerminalFormatter) FormatFeed(items []feed.VideoItem) string {
	if len(items) == 0 {
		return EmptyFeedMessage + "\n"
	}

	var formatted []string
	for i, item := range items {
		formatted = append(formatted, f.FormatItem(i+1, item))
	}

	return strings.Join(formatted, "\n---\n\n")
}

// FormatEvent renders a controller event as one line. Events that are not
// interesting to a viewer render as the empty string.
func (f *TerminalFormatter) FormatEvent(ev playback.Event) string {
	switch ev.Kind {
	case playback.EventActivated:
		return fmt.Sprintf("▶ #%d %s%s%s", ev.Index+1, f.TruncateText(ev.Video.Title, maxTitleWidth), separator, channelOf(ev.Video))
	case playback.EventStateChanged:
		switch ev.State {
		case playback.Buffering:
			return fmt.Sprintf("  #%d buffering...", ev.Index+1)
		case playback.Ended:
			return fmt.Sprintf("  #%d ended", ev.Index+1)
		}
		return ""
	case playback.EventViewReported:
		return fmt.Sprintf("  ✓ view counted for #%d after %s", ev.Index+1, ev.Watched.Round(time.Second))
	case playback.EventExhausted:
		return ExhaustedMessage
	case playback.EventLoadFailed:
		return "  could not load more videos, will retry"
	default:
		return ""
	}
}

// FormatStatus renders a snapshot: the active video, audio and caption
// flags, the mounted window, and the loading/exhausted affordances.
func (f *TerminalFormatter) FormatStatus(snap playback.Snapshot) string {
	var b strings.Builder

	if snap.Current == nil {
		if snap.Loading {
			b.WriteString(LoadingMessage + "\n")
		} else {
			b.WriteString(EmptyFeedMessage + "\n")
		}
		return b.String()
	}

	fmt.Fprintf(&b, "Video %d of %d\n", snap.Active+1, snap.Length)
	b.WriteString(f.FormatItem(snap.Active+1, *snap.Current))

	sound := "sound on"
	if snap.Muted {
		sound = "muted (tap for sound)"
	}
	captions := "captions off"
	if snap.CaptionsOn {
		captions = "captions on"
	}
	fmt.Fprintf(&b, "  %s%s%s\n", sound, separator, captions)

	var slots []string
	for _, s := range snap.Slots {
		label := fmt.Sprintf("#%d %s", s.Index+1, s.State)
		if s.Active {
			label = fmt.Sprintf("[%s %s]", label, s.Watched.Round(time.Second))
		}
		if s.Spinner {
			label += "*"
		}
		slots = append(slots, label)
	}
	if len(slots) > 0 {
		fmt.Fprintf(&b, "  slots: %s\n", strings.Join(slots, " "))
	}

	switch {
	case snap.Loading:
		b.WriteString(LoadingMessage + "\n")
	case snap.Exhausted && snap.Active == snap.Length-1:
		b.WriteString(ExhaustedMessage + "\n")
	}
	return b.String()
}

// FormatTimestamp formats a timestamp as relative time.
func (f *TerminalFormatter) FormatTimestamp(t time.Time) string {
	diff := f.now().Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return pluralize(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return pluralize(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return pluralize(int(diff.Hours()/24), "day")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// pluralize returns "N unit ago" or "N units ago" based on count.
func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// TruncateText truncates text to maxLen runes, adding "..." if truncated.
func (f *TerminalFormatter) TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}

func channelOf(item feed.VideoItem) string {
	if item.ChannelName != "" {
		return item.ChannelName
	}
	return "@" + item.ChannelID
}
