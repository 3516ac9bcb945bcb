package alerting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeOverrides(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write overrides file: %v", err)
	}
	return path
}

func TestLoadOverrides(t *testing.T) {
	path := writeOverrides(t, `
rules:
  minor-delay-12h: false
  stuck-at-location: true
`)

	overrides, err := LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides failed: %v", err)
	}
	if len(overrides) != 2 {
		t.Fatalf("got %d overrides, want 2", len(overrides))
	}
	if overrides["minor-delay-12h"] {
		t.Error("minor-delay-12h should be disabled")
	}
	if !overrides["stuck-at-location"] {
		t.Error("stuck-at-location should be enabled")
	}
}

func TestLoadOverrides_Errors(t *testing.T) {
	if _, err := LoadOverrides(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeOverrides(t, "rules: [not, a, map]")
	if _, err := LoadOverrides(path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestOverrideWatcher_Apply(t *testing.T) {
	path := writeOverrides(t, `
rules:
  minor-delay-12h: false
  no-such-rule: true
`)

	engine := newTestEngine()
	watcher := NewOverrideWatcher(path, engine, zerolog.Nop())
	if err := watcher.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// The known rule is toggled; the unknown id is skipped without error.
	c := testContainer(12)
	if got := engine.Evaluate(c); len(got) != 0 {
		t.Errorf("overridden rule still triggered: %v", triggerRuleIDs(got))
	}
}

func TestOverrideWatcher_EmptyFileIsNoop(t *testing.T) {
	path := writeOverrides(t, "rules: {}\n")

	engine := newTestEngine()
	watcher := NewOverrideWatcher(path, engine, zerolog.Nop())
	if err := watcher.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	c := testContainer(12)
	if got := engine.Evaluate(c); len(got) != 1 {
		t.Errorf("empty override file changed rule state: %v", triggerRuleIDs(got))
	}
}
