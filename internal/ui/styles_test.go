package ui

import (
	"strings"
	"testing"
)

func TestRender_PlainWhenColorDisabled(t *testing.T) {
	DisableColor()

	for name, fn := range map[string]func(string) string{
		"pass":   RenderPass,
		"warn":   RenderWarn,
		"fail":   RenderFail,
		"accent": RenderAccent,
		"muted":  RenderMuted,
	} {
		if got := fn("hello"); got != "hello" {
			t.Errorf("%s: got %q, want plain text", name, got)
		}
	}
}

func TestColorDisabled_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if !ColorDisabled() {
		t.Error("ColorDisabled() = false with NO_COLOR set")
	}
}

func TestPanel(t *testing.T) {
	DisableColor()
	out := Panel("first", "second")
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Errorf("Panel() lost content:\n%s", out)
	}
	if !strings.Contains(out, "╭") {
		t.Errorf("Panel() has no border:\n%s", out)
	}
}

func TestCheckbox(t *testing.T) {
	DisableColor()
	if Checkbox(true) == Checkbox(false) {
		t.Error("Checkbox() renders done and pending the same")
	}
}
