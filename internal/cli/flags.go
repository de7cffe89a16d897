package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/aidanlsb/weft/internal/wikilink"
)

// modeFlag selects an embed mode by name or by "!" count.
type modeFlag struct {
	mode wikilink.Mode
	set  bool
}

var _ pflag.Value = (*modeFlag)(nil)

func (f *modeFlag) String() string {
	return f.mode.String()
}

func (f *modeFlag) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "link":
		f.mode = wikilink.ModeLink
	case "1", "!", "embed", "block", "block-embed":
		f.mode = wikilink.ModeBlockEmbed
	case "2", "!!", "inline", "inline-embed":
		f.mode = wikilink.ModeInlineEmbed
	default:
		return fmt.Errorf("unknown mode %q (want link, block-embed or inline-embed)", s)
	}
	f.set = true
	return nil
}

func (f *modeFlag) Type() string {
	return "mode"
}

// prefix returns the embed prefix count for the flag, or fallback when the
// flag was not given.
func (f *modeFlag) prefix(fallback int) int {
	if !f.set {
		return fallback
	}
	return len(f.mode.Prefix())
}

func addModeFlag(fs *pflag.FlagSet, f *modeFlag) {
	fs.Var(f, "mode", "Embed mode: link, block-embed or inline-embed (default from \"!\" prefix)")
}
