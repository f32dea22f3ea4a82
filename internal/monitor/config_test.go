package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitors.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestParseConfigFile(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		path := writeConfig(t, `
interval: 30s
monitors:
  - rest-jsonplaceholder-posts
  - graphql-countries
`)
		config, err := ParseConfigFile(path)
		if err != nil {
			t.Fatalf("expected valid config, got %v", err)
		}
		if config.Interval != 30*time.Second {
			t.Errorf("expected 30s interval, got %s", config.Interval)
		}
		if len(config.Monitors) != 2 {
			t.Errorf("expected 2 monitors, got %v", config.Monitors)
		}
	})

	t.Run("interval is optional", func(t *testing.T) {
		path := writeConfig(t, "monitors:\n  - rest-1\n")
		config, err := ParseConfigFile(path)
		if err != nil {
			t.Fatalf("expected valid config, got %v", err)
		}
		if config.Interval != 0 {
			t.Errorf("expected zero interval, got %s", config.Interval)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ParseConfigFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "monitors: [unclosed")
		if _, err := ParseConfigFile(path); err == nil {
			t.Error("expected a parse error")
		}
	})

	t.Run("empty monitors list", func(t *testing.T) {
		path := writeConfig(t, "interval: 30s\nmonitors: []\n")
		if _, err := ParseConfigFile(path); err == nil {
			t.Error("expected a validation error")
		}
	})

	t.Run("sub-second interval", func(t *testing.T) {
		path := writeConfig(t, "interval: 100ms\nmonitors:\n  - rest-1\n")
		if _, err := ParseConfigFile(path); err == nil {
			t.Error("expected a validation error")
		}
	})

	t.Run("blank preset id", func(t *testing.T) {
		path := writeConfig(t, "monitors:\n  - rest-1\n  - \"\"\n")
		if _, err := ParseConfigFile(path); err == nil {
			t.Error("expected a validation error")
		}
	})
}
