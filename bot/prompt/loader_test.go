package prompt

import (
	"strings"
	"testing"
)

func TestLoadPromptSetNonEmpty(t *testing.T) {
	t.Parallel()

	p := LoadPromptSet()
	for name, v := range map[string]string{
		"persona":  p.Persona,
		"welcome":  p.Welcome,
		"help":     p.Help,
		"buyer":    p.Buyer,
		"investor": p.Investor,
		"advisory": p.Advisory,
	} {
		if strings.TrimSpace(v) == "" {
			t.Fatalf("%s prompt is empty", name)
		}
	}
	if !strings.Contains(p.Persona, "InmoBot") || !strings.Contains(p.Persona, "Florida") {
		t.Fatalf("persona must name InmoBot and Florida: %q", p.Persona)
	}
}

func TestWelcomeFor(t *testing.T) {
	t.Parallel()

	p := LoadPromptSet()
	if got := p.WelcomeFor("Jane"); !strings.HasPrefix(got, "¡Hola Jane!") {
		t.Fatalf("WelcomeFor() = %q", got)
	}
	if got := p.WelcomeFor("  "); !strings.HasPrefix(got, "¡Hola amigo!") {
		t.Fatalf("WelcomeFor(blank) = %q", got)
	}
}
