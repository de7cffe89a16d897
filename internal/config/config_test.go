package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigGetVaultPath(t *testing.T) {
	t.Run("named vault", func(t *testing.T) {
		cfg := &Config{
			Vaults: map[string]string{
				"work":     "/path/to/work",
				"personal": "/path/to/personal",
			},
		}

		path, err := cfg.GetVaultPath("work")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if path != "/path/to/work" {
			t.Errorf("expected '/path/to/work', got %q", path)
		}
	})

	t.Run("default vault", func(t *testing.T) {
		cfg := &Config{
			DefaultVault: "personal",
			Vaults: map[string]string{
				"work":     "/path/to/work",
				"personal": "/path/to/personal",
			},
		}

		path, err := cfg.GetVaultPath("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if path != "/path/to/personal" {
			t.Errorf("expected '/path/to/personal', got %q", path)
		}
	})

	t.Run("home expansion", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		cfg := &Config{Vaults: map[string]string{"notes": "~/notes"}}

		path, err := cfg.GetVaultPath("notes")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if path != filepath.Join(home, "notes") {
			t.Errorf("expected home-relative path, got %q", path)
		}
	})

	t.Run("no default", func(t *testing.T) {
		cfg := &Config{}
		if _, err := cfg.GetVaultPath(""); err == nil {
			t.Error("expected error when no default vault is configured")
		}
	})

	t.Run("unknown vault", func(t *testing.T) {
		cfg := &Config{Vaults: map[string]string{"work": "/w"}}
		_, err := cfg.GetVaultPath("home")
		if err == nil || !strings.Contains(err.Error(), "home") {
			t.Errorf("expected not-found error naming the vault, got %v", err)
		}
	})
}

func TestVaultNamesSorted(t *testing.T) {
	cfg := &Config{Vaults: map[string]string{"b": "/b", "a": "/a", "c": "/c"}}
	got := strings.Join(cfg.VaultNames(), ",")
	if got != "a,b,c" {
		t.Errorf("VaultNames() = %s, want a,b,c", got)
	}
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `
default_vault = "notes"

[vaults]
notes = "/srv/notes"

[engine]
max_embed_depth = 3
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Engine.MaxEmbedDepth != 3 {
		t.Errorf("max_embed_depth = %d, want 3", cfg.Engine.MaxEmbedDepth)
	}
	if cfg.Engine.SuggestionLimit != 20 {
		t.Errorf("suggestion_limit default = %d, want 20", cfg.Engine.SuggestionLimit)
	}
	if cfg.Watch.DebounceMS != 150 || cfg.Server.Addr != ":7878" || cfg.LogLevel != LogLevelWarn {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	if len(cfg.Vault.Ignore) != 3 {
		t.Errorf("ignore default = %v", cfg.Vault.Ignore)
	}
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", `log_level = "loud"`},
		{"zero depth", "[engine]\nmax_embed_depth = 0"},
		{"negative debounce", "[watch]\ndebounce_ms = -1"},
		{"empty addr", "[server]\naddr = \"\""},
		{"bad accent", "[ui]\naccent = \"blue\""},
		{"unknown default vault", `default_vault = "missing"`},
		{"malformed toml", `log_level = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			writeConfig(t, path, tt.content)
			if _, err := LoadFrom(path); err == nil {
				t.Errorf("expected error for %q", tt.content)
			}
		})
	}
}

func TestValidAccent(t *testing.T) {
	for _, accent := range []string{"", "0", "39", "255", "#ff00AA"} {
		if err := validAccent(accent); err != nil {
			t.Errorf("validAccent(%q) = %v", accent, err)
		}
	}
	for _, accent := range []string{"256", "-1", "#fff", "#gggggg", "39px", "039"} {
		if err := validAccent(accent); err == nil {
			t.Errorf("validAccent(%q) should fail", accent)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{LogLevelDebug, slog.LevelDebug},
		{LogLevelInfo, slog.LevelInfo},
		{LogLevelWarn, slog.LevelWarn},
		{LogLevelError, slog.LevelError},
		{"", slog.LevelWarn},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestDefaultPathHonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "weft", "config.toml")
	if got := DefaultPath(); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
	if got := ResolveConfigPath(""); got != want {
		t.Errorf("ResolveConfigPath(\"\") = %q, want %q", got, want)
	}
	if got := ResolveConfigPath("/etc/weft.toml"); got != "/etc/weft.toml" {
		t.Errorf("explicit path not honored: %q", got)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.MaxEmbedDepth != 8 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestCreateDefaultLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weft", "config.toml")

	created, err := CreateDefault(path)
	if err != nil {
		t.Fatalf("CreateDefault: %v", err)
	}
	if created != path {
		t.Errorf("CreateDefault returned %q", created)
	}
	if _, err := LoadFrom(path); err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}

	writeConfig(t, path, `log_level = "debug"`)
	if _, err := CreateDefault(path); err != nil {
		t.Fatalf("CreateDefault on existing file: %v", err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != LogLevelDebug {
		t.Error("CreateDefault overwrote an existing file")
	}
}
