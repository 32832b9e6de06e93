//go:build integration

package main

import (
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestBinaryVersion_MatchesGitTag verifies that a release build reports the
// git tag it was built from.
// Run with: go test -tags=integration ./cmd/shortsfeed -v
func TestBinaryVersion_MatchesGitTag(t *testing.T) {
	output, err := exec.Command("git", "describe", "--tags", "--always", "--dirty").Output()
	if err != nil {
		t.Skipf("Skipping test: git not available or not a git repo: %v", err)
	}
	gitVersion := strings.TrimSpace(string(output))

	release := filepath.Join(t.TempDir(), "shortsfeed")
	build := exec.Command("go", "build", "-ldflags", "-X main.version="+gitVersion, "-o", release, ".")
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("release build failed: %v\n%s", err, out)
	}

	versionOutput, err := exec.Command(release, "--version").Output()
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}
	parts := strings.Fields(strings.TrimSpace(string(versionOutput)))
	if len(parts) < 3 {
		t.Fatalf("unexpected version output format: %s", versionOutput)
	}

	// "shortsfeed version v0.2.0" -> "v0.2.0"
	if parts[2] != gitVersion {
		t.Errorf("Binary version %q does not match git tag %q.\n\nVersion must be injected at build time via:\n  go build -ldflags=\"-X main.version=$(git describe --tags --always --dirty)\" ./cmd/shortsfeed", parts[2], gitVersion)
	}
}
