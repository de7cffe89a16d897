package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/aidanlsb/weft/internal/engine"
	"github.com/aidanlsb/weft/internal/linkdb"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/vault"
)

// workspace is an opened vault with an engine over it.
type workspace struct {
	vault  *vault.Vault
	engine *engine.Engine
}

func openWorkspace() (*workspace, error) {
	c := getConfig()
	v, err := vault.Open(getVaultPath(), vault.Options{
		Ignore: c.Vault.Ignore,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	eng := engine.New(v, engine.Options{
		Logger:        logger,
		MaxEmbedDepth: c.Engine.MaxEmbedDepth,
	})
	return &workspace{vault: v, engine: eng}, nil
}

// lookup finds the document named by a command-line argument.
func (w *workspace) lookup(arg string) (model.Document, error) {
	return w.vault.Lookup(strings.TrimSpace(arg))
}

// originID returns the document ID for --from. Empty means the vault root.
func (w *workspace) originID(from string) (string, error) {
	if strings.TrimSpace(from) == "" {
		return "", nil
	}
	doc, err := w.lookup(from)
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

// storeLinks replaces the stored link edges with the current ones.
func (w *workspace) storeLinks() (int, error) {
	db, err := linkdb.Open(w.vault.Root())
	if err != nil {
		return 0, err
	}
	defer db.Close()

	links := w.engine.Links()
	if err := db.Replace(links); err != nil {
		return 0, err
	}
	return len(links), nil
}

// refreshStoredLinks updates the link database after a write, but only when
// one already exists. The returned warnings are empty on success.
func (w *workspace) refreshStoredLinks() []Warning {
	if _, err := os.Stat(linkdb.Path(w.vault.Root())); err != nil {
		return nil
	}
	if _, err := w.storeLinks(); err != nil {
		return []Warning{{
			Code:    WarnIndexUpdateFailed,
			Message: fmt.Sprintf("link database not updated: %v (run 'weft index')", err),
		}}
	}
	return nil
}

// splitEmbedPrefix strips leading "!" characters written before "[[" and
// returns them as the embed prefix count.
func splitEmbedPrefix(raw string) (string, int) {
	trimmed := strings.TrimSpace(raw)
	rest := strings.TrimLeft(trimmed, "!")
	if !strings.HasPrefix(rest, "[[") {
		return raw, 0
	}
	return rest, len(trimmed) - len(rest)
}
