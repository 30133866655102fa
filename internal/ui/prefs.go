package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	defaultListWidthPct = 40
	minListWidthPct     = 25
	maxListWidthPct     = 70
)

// UIPreferences stores persisted app preferences.
type UIPreferences struct {
	ListWidthPct int    `json:"list_width_pct"`
	Pane         string `json:"pane"`
}

func defaultUIPreferences() UIPreferences {
	return UIPreferences{ListWidthPct: defaultListWidthPct, Pane: "list"}
}

func (p UIPreferences) normalized() UIPreferences {
	if p.ListWidthPct == 0 {
		p.ListWidthPct = defaultListWidthPct
	}
	p.ListWidthPct = min(max(p.ListWidthPct, minListWidthPct), maxListWidthPct)
	if p.Pane != "map" {
		p.Pane = "list"
	}
	return p
}

func prefsPath(dir string) string {
	return filepath.Join(dir, "ui_prefs.json")
}

func loadUIPreferences(dir string) UIPreferences {
	if dir == "" {
		return defaultUIPreferences()
	}

	data, err := os.ReadFile(prefsPath(dir))
	if err != nil {
		return defaultUIPreferences()
	}

	var prefs UIPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return defaultUIPreferences()
	}
	return prefs.normalized()
}

func saveUIPreferences(dir string, prefs UIPreferences) error {
	if dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create prefs dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}

	if err := os.WriteFile(prefsPath(dir), data, 0o600); err != nil {
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	return nil
}
