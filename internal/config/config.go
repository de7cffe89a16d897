// Package config handles weft configuration: a global TOML file with named
// vaults and defaults, overlaid by an optional per-vault file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Log levels accepted by log_level.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Config represents the weft configuration.
type Config struct {
	// DefaultVault is the name of the default vault (from Vaults map).
	DefaultVault string `toml:"default_vault"`

	// Vaults is a map of vault names to paths.
	Vaults map[string]string `toml:"vaults"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	Engine EngineConfig `toml:"engine"`
	Watch  WatchConfig  `toml:"watch"`
	Server ServerConfig `toml:"server"`
	Vault  VaultConfig  `toml:"vault"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`
}

// EngineConfig tunes the reference engine.
type EngineConfig struct {
	// MaxEmbedDepth bounds nested embed expansion.
	MaxEmbedDepth int `toml:"max_embed_depth"`

	// SuggestionLimit caps suggestion lists. Zero or less means unlimited.
	SuggestionLimit int `toml:"suggestion_limit"`
}

// WatchConfig configures `weft watch` and the watcher inside `weft serve`.
type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// ServerConfig configures `weft serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// VaultConfig controls how a vault directory is walked.
type VaultConfig struct {
	// Ignore lists directory names never walked.
	Ignore []string `toml:"ignore"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`

	// CodeTheme sets the Glamour/Chroma theme used for rendered markdown code blocks.
	// Example values: "monokai", "dracula", "github", "nord".
	CodeTheme string `toml:"code_theme"`
}

// NewDefault returns a Config with default values.
func NewDefault() *Config {
	return &Config{
		LogLevel: LogLevelWarn,
		Engine: EngineConfig{
			MaxEmbedDepth:   8,
			SuggestionLimit: 20,
		},
		Watch: WatchConfig{
			DebounceMS: 150,
		},
		Server: ServerConfig{
			Addr: ":7878",
		},
		Vault: VaultConfig{
			Ignore: []string{".git", ".weft", ".trash"},
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)),
		validation.Field(&c.DefaultVault, validation.By(c.knownVault)),
	)
	if err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.UI.Validate(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

func (c *Config) knownVault(value interface{}) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if _, ok := c.Vaults[name]; !ok {
		return fmt.Errorf("vault %q is not listed in [vaults]", name)
	}
	return nil
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxEmbedDepth, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DebounceMS, validation.Min(0), validation.Max(60000)),
	)
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
	)
}

// Validate validates the UI configuration.
func (c *UIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Accent, validation.By(validAccent)),
	)
}

func validAccent(value interface{}) error {
	accent, _ := value.(string)
	accent = strings.TrimSpace(accent)
	if accent == "" {
		return nil
	}
	if strings.HasPrefix(accent, "#") {
		if len(accent) != 7 || strings.Trim(strings.ToLower(accent[1:]), "0123456789abcdef") != "" {
			return fmt.Errorf("accent must be #RRGGBB or 0-255")
		}
		return nil
	}
	var n int
	if _, err := fmt.Sscanf(accent, "%d", &n); err != nil || n < 0 || n > 255 || fmt.Sprint(n) != accent {
		return fmt.Errorf("accent must be #RRGGBB or 0-255")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to warn.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// GetVaultPath returns the path for a named vault.
// If name is empty, returns the default vault path.
func (c *Config) GetVaultPath(name string) (string, error) {
	if name == "" {
		name = c.DefaultVault
	}
	if name == "" {
		return "", fmt.Errorf("no default vault configured")
	}
	if path, ok := c.Vaults[name]; ok {
		return expandHome(path), nil
	}
	return "", fmt.Errorf("vault '%s' not found in config", name)
}

// VaultNames returns the configured vault names in sorted order.
func (c *Config) VaultNames() []string {
	names := make([]string, 0, len(c.Vaults))
	for name := range c.Vaults {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load loads the configuration from the default location.
// Returns the defaults if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return NewDefault(), nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path. Keys missing from
// the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	config := NewDefault()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// DefaultPath returns the global config file path:
// $XDG_CONFIG_HOME/weft/config.toml, else ~/.config/weft/config.toml,
// else the OS-specific config directory.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "weft", "config.toml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "weft", "config.toml")
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "weft", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

// ResolveConfigPath resolves the effective config path from an optional override.
func ResolveConfigPath(explicitConfigPath string) string {
	if strings.TrimSpace(explicitConfigPath) != "" {
		return explicitConfigPath
	}
	return DefaultPath()
}

// CreateDefault creates a commented default config file at path if it
// doesn't exist.
func CreateDefault(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := `# weft configuration

# Default vault name (must exist in [vaults] below)
# default_vault = "notes"

# log_level = "warn"   # debug, info, warn, error

# [vaults]
# notes = "~/notes"

# [engine]
# max_embed_depth = 8
# suggestion_limit = 20

# [watch]
# debounce_ms = 150

# [server]
# addr = ":7878"

# [vault]
# ignore = [".git", ".weft", ".trash"]

# [ui]
# accent = "39"
# code_theme = "monokai"
`

	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
