package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gauthierbraillon/shortsfeed/internal/display"
	"github.com/gauthierbraillon/shortsfeed/internal/embed"
	"github.com/gauthierbraillon/shortsfeed/internal/feed"
	"github.com/gauthierbraillon/shortsfeed/internal/feedapi"
	"github.com/gauthierbraillon/shortsfeed/internal/loop"
	"github.com/gauthierbraillon/shortsfeed/internal/playback"
	"github.com/gauthierbraillon/shortsfeed/internal/views"
	"github.com/gauthierbraillon/shortsfeed/pkg/browser"
)

const playHelp = "keys: n next, p prev, t tap, c captions, f/b seek, o open, s status, q quit"

// newPlayCmd creates the play subcommand.
func newPlayCmd(a *app) *cobra.Command {
	var (
		viewer   string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the feed, one short at a time",
		Long:  "Play the feed with simulated players. Commands are read from stdin, one per line.\n\n" + playHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return runPlay(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout(), resolveViewer(a, viewer), duration > 0)
		},
	}

	cmd.Flags().StringVar(&viewer, "viewer", "", "Viewer id (defaults to the signed-in viewer)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after this long and keep playing when stdin closes")

	return cmd
}

func runPlay(ctx context.Context, a *app, in io.Reader, out io.Writer, viewerID string, timed bool) error {
	clock := clockwork.NewRealClock()
	lp := loop.New(clock)

	client := feedapi.NewClient(feedapi.WithBaseURL(a.cfg.APIURL))
	reporter, closeReporter := newReporter(a, client)
	defer closeReporter()

	session := feed.NewSession(client, lp,
		feed.WithPageSize(a.cfg.PageSize),
		feed.WithLogger(a.log),
	)

	formatter := display.NewTerminalFormatter()
	ctrl := playback.New(lp, session, embed.NewSimulator(clock), reporter,
		playback.WithWindow(a.cfg.Window),
		playback.WithCaptions(a.cfg.Captions),
		playback.WithUnmuteOnScroll(a.cfg.UnmuteOnScroll),
		playback.WithReReportViews(a.cfg.ReReportViews),
		playback.WithViewThreshold(a.cfg.ViewThreshold),
		playback.WithLogger(a.log),
		playback.WithObserver(func(ev playback.Event) {
			if line := formatter.FormatEvent(ev); line != "" {
				fmt.Fprintln(out, line)
			}
		}),
	)

	fmt.Fprintf(out, "Playing feed from %s (%s)\n", a.cfg.APIURL, playHelp)
	lp.Post(func() { ctrl.Start(viewerID) })

	ctx, quit := context.WithCancel(ctx)
	defer quit()

	lines := make(chan string)
	go scanLines(in, lines)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := lp.Run(gctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					if !timed {
						quit()
						return nil
					}
					lines = nil
					continue
				}
				if !dispatch(lp, ctrl, formatter, out, a.log, line) {
					quit()
					return nil
				}
			}
		}
	})

	err := g.Wait()

	// The loop has stopped; drain what is already queued and unmount.
	lp.Close()
	lp.Settle()
	ctrl.Close()

	return err
}

func scanLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

// dispatch posts one command to the loop. It returns false on quit.
func dispatch(lp *loop.Loop, ctrl *playback.Feed, formatter *display.TerminalFormatter, out io.Writer, logger *slog.Logger, line string) bool {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "":
		return true
	case "q", "quit", "exit":
		return false
	case "n", "j", "next":
		lp.Post(ctrl.Next)
	case "p", "k", "prev":
		lp.Post(ctrl.Prev)
	case "t", "tap":
		lp.Post(ctrl.Tap)
	case "c", "captions":
		lp.Post(ctrl.ToggleCaptions)
	case "f", "forward":
		lp.Post(ctrl.SeekForward)
	case "b", "back":
		lp.Post(ctrl.SeekBackward)
	case "s", "status":
		lp.Post(func() { fmt.Fprint(out, formatter.FormatStatus(ctrl.Snapshot())) })
	case "o", "open":
		lp.Post(func() {
			video, _ := ctrl.Current()
			if err := browser.OpenVideo(video.ID); err != nil {
				logger.Warn("open in browser failed", "video_id", video.ID, "error", err)
				fmt.Fprintf(out, "  could not open browser: %v\n", err)
			}
		})
	default:
		lp.Post(func() { fmt.Fprintf(out, "  unknown command %q (%s)\n", cmd, playHelp) })
	}
	return true
}

// newReporter fans view reports out to the backend and, when configured,
// to NATS. A NATS outage degrades to HTTP-only reporting.
func newReporter(a *app, client *feedapi.Client) (*views.MultiReporter, func()) {
	reporters := []playback.ViewReporter{client}
	closeFn := func() {}

	if a.cfg.NatsURL != "" {
		nc, err := views.Connect(a.cfg.NatsURL, a.log)
		if err != nil {
			a.log.Warn("view events disabled", "error", err)
		} else {
			reporters = append(reporters, views.NewNatsReporter(nc,
				views.WithSubject(a.cfg.NatsSubject),
				views.WithLogger(a.log),
			))
			closeFn = func() {
				if err := nc.Drain(); err != nil {
					nc.Close()
				}
			}
		}
	}

	return views.NewMultiReporter(a.log, reporters...), closeFn
}
