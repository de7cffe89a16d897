// Command weft resolves, renders and maintains wikilinks in a markdown vault.
package main

import (
	"os"

	"github.com/aidanlsb/weft/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
