package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/linkdb"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/ui"
)

var linksLive bool

// linkSource answers link queries from .weft/links.db when it exists and
// --live is not set, and from a fresh scan of the vault otherwise.
type linkSource struct {
	ws *workspace
	db *linkdb.DB
}

func openLinkSource(ws *workspace) (*linkSource, error) {
	src := &linkSource{ws: ws}
	if linksLive {
		return src, nil
	}
	if _, err := os.Stat(linkdb.Path(ws.vault.Root())); err != nil {
		return src, nil
	}
	db, err := linkdb.Open(ws.vault.Root())
	if err != nil {
		return nil, err
	}
	src.db = db
	return src, nil
}

func (s *linkSource) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *linkSource) name() string {
	if s.db != nil {
		return "index"
	}
	return "live"
}

func (s *linkSource) backlinks(id string) ([]model.Link, error) {
	if s.db != nil {
		return s.db.Backlinks(id)
	}
	return s.filter(func(l model.Link) bool { return l.TargetID == id }), nil
}

func (s *linkSource) outlinks(id string) ([]model.Link, error) {
	if s.db != nil {
		return s.db.Outlinks(id)
	}
	return s.filter(func(l model.Link) bool { return l.SourceID == id }), nil
}

func (s *linkSource) unresolved() ([]model.Link, error) {
	if s.db != nil {
		return s.db.Unresolved()
	}
	return s.filter(func(l model.Link) bool { return !l.Resolved() }), nil
}

func (s *linkSource) filter(keep func(model.Link) bool) []model.Link {
	var out []model.Link
	for _, l := range s.ws.engine.Links() {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// runLinkQuery opens the vault, runs query and prints the links.
func runLinkQuery(target string, query func(*linkSource, string) ([]model.Link, error), describe func(target string, links []model.Link)) error {
	start := time.Now()

	ws, err := openWorkspace()
	if err != nil {
		return handleError(ErrVaultNotFound, err, "")
	}
	if target != "" {
		doc, err := ws.lookup(target)
		if err != nil {
			return handleError(vaultErrorCode(err), err, "")
		}
		target = doc.ID
	}

	src, err := openLinkSource(ws)
	if err != nil {
		return handleError(ErrDatabaseError, err, "Run 'weft index' to rebuild the database")
	}
	defer src.Close()

	links, err := query(src, target)
	if err != nil {
		return handleError(ErrDatabaseError, err, "Run 'weft index' to rebuild the database")
	}
	if links == nil {
		links = []model.Link{}
	}
	elapsed := time.Since(start).Milliseconds()

	if isJSONOutput() {
		data := map[string]interface{}{
			"source": src.name(),
			"items":  links,
		}
		if target != "" {
			data["target"] = target
		}
		outputSuccess(data, &Meta{Count: len(links), QueryTimeMs: elapsed})
		return nil
	}

	describe(target, links)
	return nil
}

func printLinks(links []model.Link, docID func(model.Link) string) {
	width := 1
	for _, l := range links {
		if w := len(fmt.Sprint(l.Line)); w > width {
			width = w
		}
	}
	for _, l := range links {
		fmt.Printf("  %s:%s  %s\n", ui.DocID(docID(l)), ui.LineNum(l.Line, width), l.Raw)
	}
}

var backlinksCmd = &cobra.Command{
	Use:   "backlinks <document>",
	Short: "Show references pointing to a document",
	Long: `Shows every reference that resolves to the document.

Answers come from .weft/links.db when it exists (see 'weft index'); --live
scans the vault instead.

Examples:
  weft backlinks people/Freya.md
  weft backlinks people/Freya --live --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLinkQuery(args[0], (*linkSource).backlinks, func(target string, links []model.Link) {
			if len(links) == 0 {
				fmt.Printf("No backlinks found for '%s'\n", target)
				return
			}
			fmt.Printf("%s %s\n\n", ui.Header("Backlinks to "+target), ui.Count(len(links), "reference", "references"))
			printLinks(links, func(l model.Link) string { return l.SourceID })
		})
	},
}

var outlinksCmd = &cobra.Command{
	Use:   "outlinks <document>",
	Short: "Show references written in a document",
	Long: `Shows every reference in the document and what it resolved to.

Examples:
  weft outlinks Home.md
  weft outlinks Home --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLinkQuery(args[0], (*linkSource).outlinks, func(target string, links []model.Link) {
			if len(links) == 0 {
				fmt.Printf("No references in '%s'\n", target)
				return
			}
			fmt.Printf("%s %s\n\n", ui.Header("References in "+target), ui.Count(len(links), "reference", "references"))
			for _, l := range links {
				resolved := ui.Unresolved.Render("unresolved")
				if l.Resolved() {
					resolved = ui.DocID(l.TargetID)
				}
				fmt.Printf("  %s  %s %s %s\n", ui.LineNum(l.Line, 4), l.Raw, ui.SymbolArrow, resolved)
			}
		})
	},
}

var unresolvedCmd = &cobra.Command{
	Use:   "unresolved",
	Short: "List references that match no document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLinkQuery("", func(s *linkSource, _ string) ([]model.Link, error) {
			return s.unresolved()
		}, func(_ string, links []model.Link) {
			if len(links) == 0 {
				fmt.Println(ui.Check("No unresolved references"))
				return
			}
			fmt.Printf("%s %s\n\n", ui.Header("Unresolved references"), ui.Count(len(links), "reference", "references"))
			printLinks(links, func(l model.Link) string { return l.SourceID })
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{backlinksCmd, outlinksCmd, unresolvedCmd} {
		cmd.Flags().BoolVar(&linksLive, "live", false, "Scan the vault instead of reading .weft/links.db")
		rootCmd.AddCommand(cmd)
	}
}
