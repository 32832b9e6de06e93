package playback

import (
	"log/slog"
	"time"
)

const (
	DefaultWindow           = 1
	DefaultTeardownDelay    = 500 * time.Millisecond
	DefaultBufferingTimeout = 4 * time.Second
	DefaultPollInterval     = time.Second
	DefaultViewThreshold    = 15 * time.Second
	DefaultSeekStep         = 5 * time.Second

	reportTimeout = 10 * time.Second
)

// Options holds the controller's tunables.
type Options struct {
	Window           int
	TeardownDelay    time.Duration
	BufferingTimeout time.Duration
	PollInterval     time.Duration
	ViewThreshold    time.Duration
	SeekStep         time.Duration
	CaptionsOn       bool
	UnmuteOnScroll   bool
	ReReportViews    bool
	Logger           *slog.Logger
	Observer         func(Event)
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		Window:           DefaultWindow,
		TeardownDelay:    DefaultTeardownDelay,
		BufferingTimeout: DefaultBufferingTimeout,
		PollInterval:     DefaultPollInterval,
		ViewThreshold:    DefaultViewThreshold,
		SeekStep:         DefaultSeekStep,
		UnmuteOnScroll:   true,
		Logger:           slog.Default(),
	}
}

// Option configures a Feed.
type Option func(*Options)

// WithWindow sets how many neighbours on each side of the active index keep
// a mounted embed.
func WithWindow(radius int) Option {
	return func(o *Options) {
		if radius >= 0 {
			o.Window = radius
		}
	}
}

// WithTeardownDelay sets the debounce before a cold slot is unloaded.
func WithTeardownDelay(d time.Duration) Option {
	return func(o *Options) {
		o.TeardownDelay = d
	}
}

// WithBufferingTimeout sets how long a slot may stay buffering before it is
// treated as playing again.
func WithBufferingTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.BufferingTimeout = d
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.PollInterval = d
		}
	}
}

// WithViewThreshold sets the continuous watch time that counts as a view.
func WithViewThreshold(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.ViewThreshold = d
		}
	}
}

func WithSeekStep(d time.Duration) Option {
	return func(o *Options) {
		o.SeekStep = d
	}
}

// WithCaptions sets the initial caption preference.
func WithCaptions(on bool) Option {
	return func(o *Options) {
		o.CaptionsOn = on
	}
}

// WithUnmuteOnScroll controls whether a forward scroll gesture past the first
// video counts as the user asking for sound.
func WithUnmuteOnScroll(on bool) Option {
	return func(o *Options) {
		o.UnmuteOnScroll = on
	}
}

// WithReReportViews allows a video to be reported again each time it is
// reactivated. By default a video is reported at most once per queue.
func WithReReportViews(on bool) Option {
	return func(o *Options) {
		o.ReReportViews = on
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithObserver registers fn to receive controller events on the loop
// goroutine.
func WithObserver(fn func(Event)) Option {
	return func(o *Options) {
		o.Observer = fn
	}
}
