package cli

import (
	"errors"
	"runtime/debug"
	"testing"

	"github.com/aidanlsb/weft/internal/engine"
	"github.com/aidanlsb/weft/internal/vault"
)

func TestTargetPath(t *testing.T) {
	tests := []struct {
		name     string
		oldPath  string
		arg      string
		slugify  bool
		expected string
	}{
		{"same folder new name", "people/Freya.md", "people/Freya Odinsdottir.md", false, "people/Freya Odinsdottir.md"},
		{"extension added", "Meeting Notes.md", "Meeting Minutes", false, "Meeting Minutes.md"},
		{"dotted stem keeps extension", "notes/Plan.md", "notes/v1.2 plan", false, "notes/v1.2 plan.md"},
		{"trailing slash moves into folder", "Inbox/Idea.md", "projects/", false, "projects/Idea.md"},
		{"pdf keeps extension", "files/Map.pdf", "files/Trail Map", false, "files/Trail Map.pdf"},
		{"extension case folded", "Home.md", "Start.MD", false, "Start.md"},
		{"slug filename", "Meeting Notes.md", "Meeting Minutes", true, "meeting-minutes.md"},
		{"slug filename in folder", "a/Old.md", "b/Project Plan.md", true, "b/project-plan.md"},
		{"cleaned", "Home.md", "./docs//Home", false, "docs/Home.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := targetPath(tt.oldPath, tt.arg, tt.slugify)
			if got != tt.expected {
				t.Errorf("targetPath(%q, %q, %v) = %q, want %q", tt.oldPath, tt.arg, tt.slugify, got, tt.expected)
			}
		})
	}
}

func TestSplitEmbedPrefix(t *testing.T) {
	tests := []struct {
		raw        string
		wantRef    string
		wantPrefix int
	}{
		{"Note", "Note", 0},
		{"[[Note]]", "[[Note]]", 0},
		{"![[Note]]", "[[Note]]", 1},
		{"!![[Note#Intro]]", "[[Note#Intro]]", 2},
		{"  ![[Note]] ", "[[Note]]", 1},
		{"!Note", "!Note", 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ref, prefix := splitEmbedPrefix(tt.raw)
			if ref != tt.wantRef || prefix != tt.wantPrefix {
				t.Errorf("splitEmbedPrefix(%q) = (%q, %d), want (%q, %d)", tt.raw, ref, prefix, tt.wantRef, tt.wantPrefix)
			}
		})
	}
}

func TestRenameWarnings(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		warnings, err := renameWarnings(nil)
		if err != nil || warnings != nil {
			t.Fatalf("renameWarnings(nil) = (%v, %v)", warnings, err)
		}
	})

	t.Run("partial failure becomes warnings", func(t *testing.T) {
		renameErr := &engine.RenameError{Failures: []engine.WriteFailure{
			{DocumentID: "a.md", Err: errors.New("disk full")},
			{DocumentID: "b.md", Err: errors.New("read-only")},
		}}
		warnings, err := renameWarnings(renameErr)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(warnings) != 2 {
			t.Fatalf("expected 2 warnings, got %d", len(warnings))
		}
		if warnings[0].Code != WarnWriteFailed || warnings[0].Ref != "a.md" {
			t.Errorf("unexpected first warning: %+v", warnings[0])
		}
		ids := failedIDs(warnings)
		if len(ids) != 2 || ids[0] != "a.md" || ids[1] != "b.md" {
			t.Errorf("failedIDs = %v", ids)
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		_, err := renameWarnings(vault.ErrExists)
		if !errors.Is(err, vault.ErrExists) {
			t.Fatalf("expected ErrExists, got %v", err)
		}
	})
}

func TestVaultErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{vault.ErrNotFound, ErrFileNotFound},
		{vault.ErrExists, ErrFileExists},
		{vault.ErrOutsideVault, ErrFileOutsideVault},
		{errors.New("permission denied"), ErrFileWriteError},
	}
	for _, tt := range tests {
		if got := vaultErrorCode(tt.err); got != tt.code {
			t.Errorf("vaultErrorCode(%v) = %s, want %s", tt.err, got, tt.code)
		}
	}
}

func TestCurrentVersionInfo(t *testing.T) {
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })

	t.Run("module build info", func(t *testing.T) {
		readBuildInfo = func() (*debug.BuildInfo, bool) {
			return &debug.BuildInfo{
				GoVersion: "go1.23.4",
				Main:      debug.Module{Path: "github.com/aidanlsb/weft", Version: "v0.3.0"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "abc123"},
					{Key: "vcs.modified", Value: "true"},
				},
			}, true
		}
		info := currentVersionInfo()
		if info.Version != "v0.3.0" {
			t.Errorf("Version = %q, want v0.3.0", info.Version)
		}
		if info.Commit != "abc123" || !info.Modified {
			t.Errorf("Commit = %q, Modified = %v", info.Commit, info.Modified)
		}
	})

	t.Run("devel build", func(t *testing.T) {
		readBuildInfo = func() (*debug.BuildInfo, bool) {
			return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
		}
		info := currentVersionInfo()
		if info.Version != "devel" {
			t.Errorf("Version = %q, want devel", info.Version)
		}
		if info.Module != "github.com/aidanlsb/weft" {
			t.Errorf("Module = %q", info.Module)
		}
	})
}

func TestModeFlag(t *testing.T) {
	tests := []struct {
		value   string
		prefix  int
		wantErr bool
	}{
		{"link", 0, false},
		{"0", 0, false},
		{"block-embed", 1, false},
		{"!", 1, false},
		{"Inline", 2, false},
		{"2", 2, false},
		{"sideways", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			var f modeFlag
			err := f.Set(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Set(%q) succeeded", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set(%q): %v", tt.value, err)
			}
			if got := f.prefix(5); got != tt.prefix {
				t.Errorf("prefix = %d, want %d", got, tt.prefix)
			}
		})
	}

	var unset modeFlag
	if got := unset.prefix(1); got != 1 {
		t.Errorf("unset prefix = %d, want fallback 1", got)
	}
}
