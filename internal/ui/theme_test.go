package ui

import (
	"testing"

	"github.com/five82/manavault/internal/market"
)

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 {
		t.Fatalf("ThemeNames() returned %d names, want 3", len(names))
	}
	if names[0] != "Nightfox" || names[1] != "Kanagawa" || names[2] != "Slate" {
		t.Fatalf("ThemeNames() = %v, want [Nightfox Kanagawa Slate]", names)
	}
}

func TestNextTheme(t *testing.T) {
	tests := map[string]string{
		"Nightfox": "Kanagawa",
		"Kanagawa": "Slate",
		"Slate":    "Nightfox",
		"Unknown":  "Nightfox",
	}
	for current, want := range tests {
		if got := NextTheme(current); got != want {
			t.Errorf("NextTheme(%s) = %q, want %q", current, got, want)
		}
	}
}

func TestGetTheme(t *testing.T) {
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate).Name = %q, want Slate", got)
	}
	if got := GetTheme("Unknown").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(Unknown).Name = %q, want Nightfox (fallback)", got)
	}
}

func TestEveryThemeColorsEveryRarity(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, r := range market.Rarities {
			if th.RarityColors[r] == "" {
				t.Errorf("theme %s has no color for %s", name, r)
			}
		}
	}
}
