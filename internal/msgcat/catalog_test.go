package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("err.not_enough_players", map[string]any{"Min": 3})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "3") {
		t.Fatalf("rendered %q, want the player minimum in it", out)
	}
	if _, err := c.Render("err.nope", nil); err == nil {
		t.Fatalf("unknown key rendered")
	}
}

func TestRender_MissingDataErrors(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("err.unknown_category", map[string]any{}); err == nil {
		t.Fatalf("missing template data accepted")
	}
}

func TestNew_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	body := "err:\n  room_full: \"No seats left.\"\n"
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New with override: %v", err)
	}
	out, err := c.Render("err.room_full", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "No seats left." {
		t.Fatalf("override not applied: %q", out)
	}
	// untouched keys keep their embedded defaults
	if _, err := c.Render("err.not_host", nil); err != nil {
		t.Fatalf("default lost after override: %v", err)
	}
}
