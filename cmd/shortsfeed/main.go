// Package main provides the shortsfeed CLI entry point.
package main

import (
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/gauthierbraillon/shortsfeed/internal/config"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveVersion prefers the ldflags version and falls back to the module
// version recorded by go install.
func resolveVersion(ldflags string, bi *debug.BuildInfo) string {
	if ldflags != "" && ldflags != "dev" {
		return ldflags
	}
	if bi != nil && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}

func buildInfo() *debug.BuildInfo {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return bi
}

// app carries what every subcommand needs once configuration is resolved.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

// newRootCmd creates the root command for shortsfeed CLI.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "shortsfeed",
		Short:         "Scroll an endless feed of shorts from your terminal",
		Long:          "Shortsfeed plays an infinite vertical feed of short videos: one at a time, muted until you tap, with views counted after 15 seconds of watching.",
		Version:       resolveVersion(version, buildInfo()),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = initLogger(cfg, cmd.ErrOrStderr())
			return nil
		},
	}

	rootCmd.SetVersionTemplate("shortsfeed version {{.Version}}\n")

	rootCmd.AddCommand(newPlayCmd(a))
	rootCmd.AddCommand(newFeedCmd(a))
	rootCmd.AddCommand(newLoginCmd(a))
	rootCmd.AddCommand(newLogoutCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// initLogger installs the default logger: human-readable debug output for
// local runs, JSON at info level everywhere else. Logs go to w so that
// stdout only carries feed output.
func initLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler
	if cfg.IsLocal() {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(handler).With("version", resolveVersion(version, buildInfo()))
	slog.SetDefault(logger)
	return logger
}
