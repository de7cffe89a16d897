// Package cli implements the command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/config"
	"github.com/aidanlsb/weft/internal/ui"
)

var (
	// Global flags
	vaultName     string // Named vault from config
	vaultPathFlag string // Explicit path
	configPath    string
	verbose       bool

	// Resolved values
	resolvedVaultPath  string
	resolvedConfigPath string
	cfg                *config.Config
	logger             = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// setupError is returned from PersistentPreRunE so Execute can report it in
// the JSON envelope.
type setupError struct {
	code       string
	err        error
	suggestion string
}

func (e *setupError) Error() string { return e.err.Error() }

func (e *setupError) Unwrap() error { return e.err }

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "weft - wikilink engine for markdown vaults",
	Long: `weft resolves, renders and maintains [[wikilinks]] across a folder of
markdown notes and attachments.

References are matched by slug, so [[Meeting Notes]], [[meeting-notes]] and
[[MEETING notes]] all reach the same document. Folder prefixes narrow the
match, ![[Note]] embeds a note as a block and !![[Note]] inlines it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip vault resolution for commands that don't need it
		switch cmd.Name() {
		case "vault", "config", "completion", "help", "version":
			return nil
		}
		if cmd.Parent() != nil && (cmd.Parent().Name() == "completion" || cmd.Parent().Name() == "vault" || cmd.Parent().Name() == "config") {
			return nil
		}

		globalCfg, path, err := loadGlobalConfigWithPath()
		if err != nil {
			return &setupError{code: ErrConfigInvalid, err: fmt.Errorf("failed to load config: %w", err)}
		}
		resolvedConfigPath = path

		// Resolve vault path: explicit path > named vault > default
		switch {
		case vaultPathFlag != "":
			resolvedVaultPath = vaultPathFlag
		case vaultName != "":
			resolvedVaultPath, err = globalCfg.GetVaultPath(vaultName)
			if err != nil {
				return &setupError{
					code:       ErrVaultNotFound,
					err:        fmt.Errorf("vault '%s' not found", vaultName),
					suggestion: "Run 'weft vault list' to see configured vaults",
				}
			}
		default:
			resolvedVaultPath, err = globalCfg.GetVaultPath("")
			if err != nil {
				return &setupError{
					code: ErrVaultNotSpecified,
					err: errors.New(`no vault specified

Either:
  1. Use --vault <name> (from config)
  2. Use --vault-path /path/to/vault
  3. Run 'weft vault add <name> <path> --default'`),
				}
			}
		}

		if info, statErr := os.Stat(resolvedVaultPath); statErr != nil || !info.IsDir() {
			return &setupError{code: ErrVaultNotFound, err: fmt.Errorf("vault not found: %s", resolvedVaultPath)}
		}

		cfg, err = config.ForVault(globalCfg, resolvedVaultPath)
		if err != nil {
			return &setupError{code: ErrConfigInvalid, err: err}
		}

		ui.ConfigureTheme(cfg.UI.Accent)
		ui.ConfigureMarkdownCodeTheme(cfg.UI.CodeTheme)
		logger = newLogger(cfg)
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	var setupErr *setupError
	if jsonOutput && errors.As(err, &setupErr) {
		outputError(setupErr.code, setupErr.err.Error(), nil, setupErr.suggestion)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&vaultName, "vault", "v", "", "Named vault from config")
	rootCmd.PersistentFlags().StringVar(&vaultPathFlag, "vault-path", "", "Explicit path to vault directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for script use)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug output to stderr")
}

// newLogger builds the stderr logger. --verbose overrides log_level.
func newLogger(c *config.Config) *slog.Logger {
	level := c.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return newLoggerAt(level)
}

func newLoggerAt(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// getVaultPath returns the resolved vault path.
func getVaultPath() string {
	return resolvedVaultPath
}

// getConfig returns the effective config for the resolved vault.
func getConfig() *config.Config {
	if cfg == nil {
		return config.NewDefault()
	}
	return cfg
}

func loadGlobalConfigWithPath() (*config.Config, string, error) {
	resolvedPath := config.ResolveConfigPath(configPath)

	var loadedCfg *config.Config
	var err error
	if strings.TrimSpace(configPath) != "" {
		loadedCfg, err = config.LoadFrom(configPath)
	} else {
		loadedCfg, err = config.Load()
	}
	if err != nil {
		return nil, "", err
	}
	if loadedCfg == nil {
		loadedCfg = config.NewDefault()
	}

	return loadedCfg, resolvedPath, nil
}
