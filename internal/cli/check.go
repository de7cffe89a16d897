package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/engine"
	"github.com/aidanlsb/weft/internal/index"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/ui"
)

var checkStrict bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report unresolved, ambiguous and broken references",
	Long: `Scans every reference in the vault and reports:

  unresolved      references that match no document
  broken anchors  #heading anchors that match no heading in the target
  ambiguous       references that match several documents (warning; fatal
                  with --strict)

Slugs shared by several documents are listed as warnings.

Examples:
  weft check
  weft check --strict --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		ws, err := openWorkspace()
		if err != nil {
			return handleError(ErrVaultNotFound, err, "")
		}
		report := ws.engine.Check()
		report.Unresolved = nonNilLinks(report.Unresolved)
		report.Ambiguous = nonNilLinks(report.Ambiguous)
		report.BrokenAnchors = nonNilLinks(report.BrokenAnchors)
		if report.Collisions == nil {
			report.Collisions = []index.Collision{}
		}
		elapsed := time.Since(start).Milliseconds()

		failed := !report.OK()
		if checkStrict && len(report.Ambiguous) > 0 {
			failed = true
		}
		issues := len(report.Unresolved) + len(report.BrokenAnchors)
		if checkStrict {
			issues += len(report.Ambiguous)
		}

		if isJSONOutput() {
			if failed {
				return handleErrorWithDetails(ErrCheckFailed,
					fmt.Sprintf("found %d reference problems", issues),
					"Run 'weft suggest' to find the intended targets",
					report)
			}
			outputSuccessWithWarnings(report, checkWarnings(report), &Meta{Count: report.Links, QueryTimeMs: elapsed})
			return nil
		}

		printCheckSection("Unresolved references", report.Unresolved, func(l model.Link) string { return "" })
		printCheckSection("Broken anchors", report.BrokenAnchors, func(l model.Link) string {
			return ui.SymbolArrow + " " + ui.DocID(l.TargetID)
		})
		printCheckSection("Ambiguous references", report.Ambiguous, func(l model.Link) string {
			return ui.SymbolArrow + " " + strings.Join(l.Candidates, ", ")
		})
		if len(report.Collisions) > 0 {
			fmt.Println(ui.Header("Shared slugs"))
			for _, c := range report.Collisions {
				fmt.Printf("  %s  %s\n", ui.Bold.Render(c.Slug), ui.Hint(strings.Join(c.DocumentIDs, ", ")))
			}
			fmt.Println()
		}

		summary := fmt.Sprintf("Checked %d references in %d documents %s",
			report.Links, report.Stats.Documents, ui.Hint(fmt.Sprintf("(%dms)", elapsed)))
		if failed {
			fmt.Println(ui.Error(summary))
			return fmt.Errorf("found %d reference problems", issues)
		}
		fmt.Println(ui.Check(summary))
		return nil
	},
}

func printCheckSection(title string, links []model.Link, detail func(model.Link) string) {
	if len(links) == 0 {
		return
	}
	fmt.Printf("%s %s\n", ui.Header(title), ui.Count(len(links), "reference", "references"))
	for _, l := range links {
		fmt.Printf("  %s:%d  %s %s\n", ui.DocID(l.SourceID), l.Line, l.Raw, detail(l))
	}
	fmt.Println()
}

func checkWarnings(report engine.Report) []Warning {
	var warnings []Warning
	for _, l := range report.Ambiguous {
		warnings = append(warnings, Warning{
			Code:    WarnRefAmbiguous,
			Message: fmt.Sprintf("%s:%d matches %s", l.SourceID, l.Line, strings.Join(l.Candidates, ", ")),
			Ref:     l.Raw,
		})
	}
	for _, c := range report.Collisions {
		warnings = append(warnings, Warning{
			Code:    WarnSlugCollision,
			Message: fmt.Sprintf("slug '%s' is shared by %s", c.Slug, strings.Join(c.DocumentIDs, ", ")),
		})
	}
	return warnings
}

// nonNilLinks keeps empty lists as [] in JSON output.
func nonNilLinks(links []model.Link) []model.Link {
	if links == nil {
		return []model.Link{}
	}
	return links
}

func init() {
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Treat ambiguous references as errors")
	rootCmd.AddCommand(checkCmd)
}
