// Package browser opens shorts in the system browser.
package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

const watchBase = "https://www.youtube.com/shorts/"

// ErrNoVideo is returned when there is no video to open.
var ErrNoVideo = errors.New("no video to open")

// WatchURL returns the public watch page of a short.
func WatchURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return watchBase + url.PathEscape(videoID)
}

// Launcher starts an external program without waiting for it.
type Launcher func(name string, args ...string) error

// Opener opens URLs through a platform launcher.
type Opener struct {
	goos   string
	launch Launcher
}

// NewOpener creates an opener for goos using launch. Empty values select the
// running platform and exec.
func NewOpener(goos string, launch Launcher) *Opener {
	if goos == "" {
		goos = runtime.GOOS
	}
	if launch == nil {
		launch = startCommand
	}
	return &Opener{goos: goos, launch: launch}
}

// Open opens the specified URL in the default browser.
// It validates the URL before passing it to the system browser to prevent command injection.
func Open(urlString string) error {
	return NewOpener("", nil).Open(urlString)
}

// OpenVideo opens the watch page of videoID.
func OpenVideo(videoID string) error {
	return NewOpener("", nil).OpenVideo(videoID)
}

func (o *Opener) OpenVideo(videoID string) error {
	if videoID == "" {
		return ErrNoVideo
	}
	return o.Open(WatchURL(videoID))
}

func (o *Opener) Open(urlString string) error {
	parsedURL, err := url.Parse(urlString)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	// Whitelist allowed schemes to prevent malicious URLs
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https allowed)", parsedURL.Scheme)
	}

	switch o.goos {
	case "linux":
		return o.launch("xdg-open", urlString)
	case "darwin":
		return o.launch("open", urlString)
	case "windows":
		return o.launch("rundll32", "url.dll,FileProtocolHandler", urlString)
	default:
		return fmt.Errorf("unsupported platform: %s", o.goos)
	}
}

func startCommand(name string, args ...string) error {
	return exec.Command(name, args...).Start() // #nosec G204 -- URL validated by Open
}
