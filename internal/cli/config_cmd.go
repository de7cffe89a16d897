package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/config"
	"github.com/aidanlsb/weft/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create the weft config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ResolveConfigPath(configPath)
		_, statErr := os.Stat(path)
		existed := statErr == nil

		if _, err := config.CreateDefault(path); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"path":    path,
				"created": !existed,
			}, nil)
			return nil
		}
		if existed {
			fmt.Printf("Config already exists at %s\n", path)
			return nil
		}
		fmt.Println(ui.Checkf("Created %s", path))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Prints the global configuration with defaults filled in. With
--vault-path or --vault, the vault's .weft/config.toml is applied on top.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		effective, path, err := loadGlobalConfigWithPath()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}

		vaultPath := vaultPathFlag
		if vaultPath == "" && vaultName != "" {
			vaultPath, err = effective.GetVaultPath(vaultName)
			if err != nil {
				return handleError(ErrVaultNotFound, err, "")
			}
		}
		if vaultPath != "" {
			effective, err = config.ForVault(effective, vaultPath)
			if err != nil {
				return handleError(ErrConfigInvalid, err, "")
			}
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"path":   path,
				"config": effective,
			}, nil)
			return nil
		}
		fmt.Println(ui.Hint("# " + path))
		return toml.NewEncoder(os.Stdout).Encode(effective)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
