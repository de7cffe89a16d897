package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/render"
	"github.com/aidanlsb/weft/internal/ui"
)

var (
	renderRef  bool
	renderFrom string
	renderHTML bool
	renderMode modeFlag
)

var renderCmd = &cobra.Command{
	Use:   "render <document>",
	Short: "Render a document with its references and embeds expanded",
	Long: `Renders a document, replacing references with links and expanding
embeds. Cyclic embeds and embeds nested too deeply are replaced by markers.

With --ref, the argument is a reference (as written in --from) and only that
reference is rendered.

Output is styled markdown in a terminal, plain markdown otherwise, HTML with
--html, and the fragment tree with --json.

Examples:
  weft render Home.md
  weft render "![[Recipes#Soup]]" --ref --from Home.md
  weft render Home.md --html > home.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return handleError(ErrVaultNotFound, err, "")
		}

		var frag render.Fragment
		if renderRef {
			origin, err := ws.originID(renderFrom)
			if err != nil {
				return handleError(vaultErrorCode(err), err, "--from must name a document in the vault")
			}
			raw, prefix := splitEmbedPrefix(args[0])
			frag = ws.engine.RenderReference(raw, renderMode.prefix(prefix), origin)
		} else {
			doc, err := ws.lookup(args[0])
			if err != nil {
				return handleError(vaultErrorCode(err), err, "")
			}
			frag = ws.engine.RenderDocument(doc.ID)
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"fragment": frag,
				"markdown": render.Markdown(frag),
			}, nil)
			return nil
		}

		if renderHTML {
			out, err := render.HTML(frag, render.HTMLOptions{})
			if err != nil {
				return handleError(ErrInternal, err, "")
			}
			fmt.Println(out)
			return nil
		}

		fmt.Print(ui.DetectTerminal(os.Stdout).Render(render.Markdown(frag)))
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderRef, "ref", false, "Treat the argument as a reference instead of a document")
	renderCmd.Flags().StringVar(&renderFrom, "from", "", "Document the reference is written in (with --ref)")
	renderCmd.Flags().BoolVar(&renderHTML, "html", false, "Output HTML")
	addModeFlag(renderCmd.Flags(), &renderMode)
	rootCmd.AddCommand(renderCmd)
}
