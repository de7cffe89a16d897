package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/config"
	"github.com/aidanlsb/weft/internal/ui"
)

type vaultRow struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	IsDefault bool   `json:"is_default"`
	Exists    bool   `json:"exists"`
}

var (
	vaultAddDefault bool
	vaultAddReplace bool
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the named vaults in the global config",
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured vaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		globalCfg, _, err := loadGlobalConfigWithPath()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}

		rows := make([]vaultRow, 0, len(globalCfg.Vaults))
		for _, name := range globalCfg.VaultNames() {
			path, _ := globalCfg.GetVaultPath(name)
			_, statErr := os.Stat(path)
			rows = append(rows, vaultRow{
				Name:      name,
				Path:      path,
				IsDefault: name == globalCfg.DefaultVault,
				Exists:    statErr == nil,
			})
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"vaults": rows}, &Meta{Count: len(rows)})
			return nil
		}

		if len(rows) == 0 {
			fmt.Println("No vaults configured")
			fmt.Println(ui.Hint("Run 'weft vault add <name> <path>' to add one"))
			return nil
		}
		table := ui.NewTable(3)
		for _, row := range rows {
			marker := ""
			if row.IsDefault {
				marker = ui.Hint("(default)")
			}
			if !row.Exists {
				marker += " " + ui.Warning("missing")
			}
			table.AddRow(ui.Bold.Render(row.Name), row.Path, marker)
		}
		fmt.Print(table.String())
		return nil
	},
}

var vaultAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Add a named vault",
	Long: `Adds a named vault to the global config. The first vault added becomes
the default.

Examples:
  weft vault add notes ~/notes
  weft vault add work /srv/wiki --default`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, rawPath := args[0], args[1]
		globalCfg, path, err := loadGlobalConfigWithPath()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}

		abs, err := filepath.Abs(rawPath)
		if err != nil {
			return handleError(ErrInvalidInput, err, "")
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			return handleErrorMsg(ErrVaultNotFound, fmt.Sprintf("not a directory: %s", abs), "")
		}
		if existing, ok := globalCfg.Vaults[name]; ok && existing != abs && !vaultAddReplace {
			return handleErrorMsg(ErrInvalidInput,
				fmt.Sprintf("vault '%s' already points at %s", name, existing),
				"Use --replace to change it")
		}

		if globalCfg.Vaults == nil {
			globalCfg.Vaults = make(map[string]string)
		}
		globalCfg.Vaults[name] = abs
		if vaultAddDefault || globalCfg.DefaultVault == "" {
			globalCfg.DefaultVault = name
		}
		if err := config.SaveTo(path, globalCfg); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(vaultRow{Name: name, Path: abs, IsDefault: globalCfg.DefaultVault == name, Exists: true}, nil)
			return nil
		}
		fmt.Println(ui.Checkf("Added vault %s %s %s", ui.Bold.Render(name), ui.SymbolArrow, abs))
		return nil
	},
}

var vaultUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		globalCfg, path, err := loadGlobalConfigWithPath()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		vaultPath, err := globalCfg.GetVaultPath(name)
		if err != nil {
			return handleError(ErrVaultNotFound, err, "Run 'weft vault list' to see configured vaults")
		}

		globalCfg.DefaultVault = name
		if err := config.SaveTo(path, globalCfg); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(vaultRow{Name: name, Path: vaultPath, IsDefault: true, Exists: true}, nil)
			return nil
		}
		fmt.Println(ui.Checkf("Default vault is now %s", ui.Bold.Render(name)))
		return nil
	},
}

var vaultRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named vault from the config (files are not touched)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		globalCfg, path, err := loadGlobalConfigWithPath()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		if _, ok := globalCfg.Vaults[name]; !ok {
			return handleErrorMsg(ErrVaultNotFound, fmt.Sprintf("vault '%s' not found", name), "")
		}

		delete(globalCfg.Vaults, name)
		clearedDefault := globalCfg.DefaultVault == name
		if clearedDefault {
			globalCfg.DefaultVault = ""
		}
		if err := config.SaveTo(path, globalCfg); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"removed":         name,
				"cleared_default": clearedDefault,
			}, nil)
			return nil
		}
		fmt.Println(ui.Checkf("Removed vault %s", ui.Bold.Render(name)))
		if clearedDefault {
			fmt.Println(ui.Hint("No default vault is set; run 'weft vault use <name>'"))
		}
		return nil
	},
}

func init() {
	vaultAddCmd.Flags().BoolVar(&vaultAddDefault, "default", false, "Make this the default vault")
	vaultAddCmd.Flags().BoolVar(&vaultAddReplace, "replace", false, "Replace an existing vault with the same name")

	vaultCmd.AddCommand(vaultListCmd, vaultAddCmd, vaultUseCmd, vaultRemoveCmd)
	rootCmd.AddCommand(vaultCmd)
}
