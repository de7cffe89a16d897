package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestDetectTerminalOnFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	t.Setenv("NO_COLOR", "")
	got := DetectTerminal(f)
	if got.Styled || got.Width != DefaultTermWidth {
		t.Errorf("DetectTerminal(file) = %+v", got)
	}
	if got := DetectTerminal(nil); got.Styled {
		t.Error("nil file should be plain")
	}
}

func TestTerminalRender(t *testing.T) {
	md := "# Freya\n\nShield maiden of the north.\n\n\n"

	t.Run("plain", func(t *testing.T) {
		got := Terminal{Width: 80}.Render(md)
		if want := "# Freya\n\nShield maiden of the north.\n"; got != want {
			t.Errorf("Render() = %q, want %q", got, want)
		}
	})

	t.Run("styled", func(t *testing.T) {
		got := Terminal{Width: 40, Styled: true}.Render(md)
		plain := ansi.Strip(got)
		if !strings.Contains(plain, "Freya") || !strings.Contains(plain, "Shield maiden") {
			t.Errorf("styled output lost text:\n%s", plain)
		}
		if !strings.HasSuffix(got, "\n") || strings.HasSuffix(got, "\n\n") {
			t.Errorf("expected a single trailing newline, got %q", got)
		}
	})
}
