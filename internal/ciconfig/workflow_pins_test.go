package ciconfig_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var (
	pinnedSHA   = regexp.MustCompile(`@[0-9a-f]{40}`)
	goDirective = regexp.MustCompile(`(?m)^go (\d+\.\d+)`)
	goImage     = regexp.MustCompile(`golang:(\d+\.\d+)`)
)

func workflows(t *testing.T) map[string]string {
	t.Helper()
	paths, err := filepath.Glob("../../.github/workflows/*.yml")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no workflow files found")
	}

	out := make(map[string]string, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		out[filepath.Base(path)] = string(content)
	}
	return out
}

func TestWorkflowActions_PinnedToCommitSHA(t *testing.T) {
	for name, content := range workflows(t) {
		for i, line := range strings.Split(content, "\n") {
			if !strings.Contains(line, "uses:") {
				continue
			}
			if !pinnedSHA.MatchString(line) {
				t.Errorf("%s:%d: action not pinned to commit SHA: %s", name, i+1, strings.TrimSpace(line))
			}
		}
	}
}

// The CI image must build with the language version go.mod declares.
func TestWorkflowGoVersion_MatchesGoMod(t *testing.T) {
	mod, err := os.ReadFile("../../go.mod")
	if err != nil {
		t.Fatal(err)
	}
	m := goDirective.FindSubmatch(mod)
	if m == nil {
		t.Fatal("go.mod has no go directive")
	}
	want := string(m[1])

	for name, content := range workflows(t) {
		for _, img := range goImage.FindAllStringSubmatch(content, -1) {
			if img[1] != want {
				t.Errorf("%s uses golang:%s, go.mod declares %s", name, img[1], want)
			}
		}
	}
}

func TestWorkflow_RunsIntegrationTests(t *testing.T) {
	for _, content := range workflows(t) {
		if strings.Contains(content, "-tags=integration") {
			return
		}
	}
	t.Error("no workflow runs the integration-tagged tests")
}
