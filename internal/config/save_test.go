package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weft", "config.toml")

	cfg := NewDefault()
	cfg.DefaultVault = "work"
	cfg.Vaults = map[string]string{"work": "/tmp/work-vault"}
	cfg.Engine.SuggestionLimit = 50
	cfg.UI.Accent = "39"

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo returned error: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if loaded.DefaultVault != "work" || loaded.Vaults["work"] != "/tmp/work-vault" {
		t.Errorf("vaults not persisted: %+v", loaded)
	}
	if loaded.Engine.SuggestionLimit != 50 || loaded.Engine.MaxEmbedDepth != 8 {
		t.Errorf("engine not persisted: %+v", loaded.Engine)
	}
	if loaded.UI.Accent != "39" {
		t.Errorf("accent = %q", loaded.UI.Accent)
	}
}

func TestSaveToOmitsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := NewDefault()
	cfg.DefaultVault = "notes"
	cfg.Vaults = map[string]string{"notes": "/notes"}
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"[engine]", "[watch]", "[server]", "[vault]", "[ui]", "log_level"} {
		if strings.Contains(string(data), key) {
			t.Errorf("default section %s written:\n%s", key, data)
		}
	}
}

func TestSaveToRequiresPath(t *testing.T) {
	if err := SaveTo("  ", NewDefault()); err == nil {
		t.Error("expected error for empty path")
	}
}
