package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gauthierbraillon/shortsfeed/internal/display"
	"github.com/gauthierbraillon/shortsfeed/internal/feed"
	"github.com/gauthierbraillon/shortsfeed/internal/feedapi"
	"github.com/gauthierbraillon/shortsfeed/pkg/profile"
)

// resolveViewer returns the explicit viewer, else the signed-in one, else
// "" for an anonymous feed.
func resolveViewer(a *app, explicit string) string {
	if explicit != "" {
		return explicit
	}
	id, err := profile.NewStore(a.cfg.ConfigDir).ViewerID()
	if err != nil {
		a.log.Warn("could not read viewer profile, continuing anonymously", "error", err)
		return ""
	}
	return id
}

// newFeedCmd creates the feed subcommand.
func newFeedCmd(a *app) *cobra.Command {
	var (
		viewer string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the first page of a fresh feed session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client := feedapi.NewClient(feedapi.WithBaseURL(a.cfg.APIURL))
			items, err := client.FetchPage(ctx, feed.PageRequest{
				ViewerID: resolveViewer(a, viewer),
				Session:  feed.NewSessionToken(),
				Limit:    limit,
			})
			if err != nil {
				return fmt.Errorf("failed to fetch feed: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), display.NewTerminalFormatter().FormatFeed(items))
			return nil
		},
	}

	cmd.Flags().StringVar(&viewer, "viewer", "", "Viewer id (defaults to the signed-in viewer)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of videos to fetch")

	return cmd
}

// newLoginCmd creates the login subcommand.
func newLoginCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "login <viewer-id>",
		Short: "Remember a viewer so feeds are personalized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := profile.NewStore(a.cfg.ConfigDir)
			viewer := &profile.Viewer{ID: args[0], Name: name, SignedInAt: time.Now().UTC()}
			if err := store.Save(viewer); err != nil {
				return fmt.Errorf("failed to save viewer: %w", err)
			}

			label := viewer.ID
			if viewer.Name != "" {
				label = fmt.Sprintf("%s (%s)", viewer.Name, viewer.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", label)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")

	return cmd
}

// newLogoutCmd creates the logout subcommand.
func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := profile.NewStore(a.cfg.ConfigDir)
			if _, err := store.Load(); errors.Is(err, profile.ErrNoViewer) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to sign out: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

// newConfigCmd creates the config subcommand.
func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "env:              %s\n", cfg.Env)
			fmt.Fprintf(out, "api url:          %s\n", cfg.APIURL)
			fmt.Fprintf(out, "config dir:       %s\n", cfg.ConfigDir)
			fmt.Fprintf(out, "page size:        %d\n", cfg.PageSize)
			fmt.Fprintf(out, "window:           %d\n", cfg.Window)
			fmt.Fprintf(out, "captions:         %t\n", cfg.Captions)
			fmt.Fprintf(out, "unmute on scroll: %t\n", cfg.UnmuteOnScroll)
			fmt.Fprintf(out, "re-report views:  %t\n", cfg.ReReportViews)
			fmt.Fprintf(out, "view threshold:   %s\n", cfg.ViewThreshold)
			nats := cfg.NatsURL
			if nats == "" {
				nats = "(disabled)"
			}
			fmt.Fprintf(out, "nats:             %s %s\n", nats, cfg.NatsSubject)
			return nil
		},
	}
}
