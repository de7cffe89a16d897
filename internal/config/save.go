package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aidanlsb/weft/internal/vault"
)

// persistedConfig is the on-disk shape written by SaveTo. Values equal to the
// defaults are omitted so the file stays minimal.
type persistedConfig struct {
	DefaultVault *string            `toml:"default_vault,omitempty"`
	LogLevel     *string            `toml:"log_level,omitempty"`
	Vaults       map[string]string  `toml:"vaults,omitempty"`
	Engine       *persistedEngine   `toml:"engine,omitempty"`
	Watch        *WatchConfig       `toml:"watch,omitempty"`
	Server       *ServerConfig      `toml:"server,omitempty"`
	Vault        *VaultConfig       `toml:"vault,omitempty"`
	UI           *persistedUIConfig `toml:"ui,omitempty"`
}

type persistedEngine struct {
	MaxEmbedDepth   int `toml:"max_embed_depth"`
	SuggestionLimit int `toml:"suggestion_limit"`
}

type persistedUIConfig struct {
	Accent    *string `toml:"accent,omitempty"`
	CodeTheme *string `toml:"code_theme,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Save writes the global config to the default config path.
func Save(cfg *Config) error {
	return SaveTo(DefaultPath(), cfg)
}

// SaveTo writes the config to a specific path atomically.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = NewDefault()
	}
	def := NewDefault()

	out := persistedConfig{
		DefaultVault: nonEmptyPtr(cfg.DefaultVault),
	}
	if cfg.LogLevel != def.LogLevel {
		out.LogLevel = nonEmptyPtr(cfg.LogLevel)
	}
	if len(cfg.Vaults) > 0 {
		out.Vaults = cfg.Vaults
	}
	if cfg.Engine != def.Engine {
		out.Engine = &persistedEngine{
			MaxEmbedDepth:   cfg.Engine.MaxEmbedDepth,
			SuggestionLimit: cfg.Engine.SuggestionLimit,
		}
	}
	if cfg.Watch != def.Watch {
		watch := cfg.Watch
		out.Watch = &watch
	}
	if cfg.Server != def.Server {
		server := cfg.Server
		out.Server = &server
	}
	if strings.Join(cfg.Vault.Ignore, "\x00") != strings.Join(def.Vault.Ignore, "\x00") {
		v := cfg.Vault
		out.Vault = &v
	}

	accent := nonEmptyPtr(cfg.UI.Accent)
	codeTheme := nonEmptyPtr(cfg.UI.CodeTheme)
	if accent != nil || codeTheme != nil {
		out.UI = &persistedUIConfig{
			Accent:    accent,
			CodeTheme: codeTheme,
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := vault.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}
