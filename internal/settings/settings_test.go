package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bitiz/tirebot-go/internal/settings"
)

func TestResolvePrecedence(t *testing.T) {
	if got := settings.Resolve("override", "global"); got != "override" {
		t.Errorf("expected override to win, got %q", got)
	}
	if got := settings.Resolve("", "global"); got != "global" {
		t.Errorf("expected global fallback, got %q", got)
	}
	if got := settings.Resolve("   ", "global"); got != "global" {
		t.Errorf("whitespace override should not win, got %q", got)
	}
}

func TestResponsesForUnknownDomain(t *testing.T) {
	p := settings.NewProvider(settings.Settings{})
	got := p.ResponsesFor("nobody.example.com")
	if got.Greeting != settings.DefaultResponses().Greeting {
		t.Errorf("expected default greeting, got %q", got.Greeting)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.json")
	content := `[{"domain":"Lastik.example.com","responses":{"greeting":"Selam!"}}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p := settings.NewProvider(settings.Settings{})
	if err := p.LoadOverrides(path, nil); err != nil {
		t.Fatalf("LoadOverrides failed: %v", err)
	}

	got := p.ResponsesFor("lastik.example.com")
	if got.Greeting != "Selam!" {
		t.Errorf("expected override greeting, got %q", got.Greeting)
	}
	// Fields absent from the override fall back to the global defaults.
	if got.Goodbye != settings.DefaultResponses().Goodbye {
		t.Errorf("expected default goodbye, got %q", got.Goodbye)
	}
}

func TestLoadOverridesMissingFile(t *testing.T) {
	p := settings.NewProvider(settings.Settings{})
	if err := p.LoadOverrides("/nonexistent/overrides.json", nil); err != nil {
		t.Errorf("missing file should not be an error, got %v", err)
	}
}
