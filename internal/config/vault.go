package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// VaultConfigPath returns the per-vault config file location.
func VaultConfigPath(vaultPath string) string {
	return filepath.Join(vaultPath, ".weft", "config.toml")
}

// globalOnlyKeys may not appear in a per-vault file.
var globalOnlyKeys = []string{"default_vault", "vaults"}

// ForVault returns base overlaid with <vault>/.weft/config.toml. Keys absent
// from the vault file keep their base values. base is not modified.
func ForVault(base *Config, vaultPath string) (*Config, error) {
	if base == nil {
		base = NewDefault()
	}
	merged := base.clone()

	path := VaultConfigPath(vaultPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return merged, nil
	}

	md, err := toml.DecodeFile(path, merged)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault config %s: %w", path, err)
	}
	for _, key := range globalOnlyKeys {
		if md.IsDefined(key) {
			return nil, fmt.Errorf("vault config %s: %q is only valid in the global config", path, key)
		}
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vault config %s: %w", path, err)
	}
	return merged, nil
}

func (c *Config) clone() *Config {
	out := *c
	if c.Vaults != nil {
		out.Vaults = make(map[string]string, len(c.Vaults))
		for k, v := range c.Vaults {
			out.Vaults[k] = v
		}
	}
	out.Vault.Ignore = append([]string(nil), c.Vault.Ignore...)
	return &out
}
