package resolver

import (
	"testing"

	"github.com/aidanlsb/weft/internal/index"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/wikilink"
)

func doc(id, path, title string) model.Document {
	return model.Document{ID: id, Path: path, Title: title, Kind: model.KindForPath(path)}
}

func TestResolver(t *testing.T) {
	idx := index.Build([]model.Document{
		doc("freya", "people/Freya.md", ""),
		doc("bifrost", "projects/Bifrost.md", "The Rainbow Bridge"),
		doc("standup", "daily/2025-02-01.md", ""),
	})

	t.Run("resolve by basename", func(t *testing.T) {
		result := ResolveString("Freya", "", idx)
		if result.DocumentID != "freya" {
			t.Errorf("got %q, want %q", result.DocumentID, "freya")
		}
		if result.Ambiguous {
			t.Error("expected not ambiguous")
		}
	})

	t.Run("resolve by title", func(t *testing.T) {
		result := ResolveString("the rainbow bridge", "", idx)
		if result.DocumentID != "bifrost" {
			t.Errorf("got %q, want %q", result.DocumentID, "bifrost")
		}
	})

	t.Run("resolve with folder prefix", func(t *testing.T) {
		result := ResolveString("people/Freya", "", idx)
		if result.DocumentID != "freya" {
			t.Errorf("got %q, want %q", result.DocumentID, "freya")
		}
	})

	t.Run("anchor passes through", func(t *testing.T) {
		result := ResolveString("2025-02-01#standup|Standup", "", idx)
		if result.DocumentID != "standup" {
			t.Fatalf("got %q, want %q", result.DocumentID, "standup")
		}
		if result.Anchor == nil || *result.Anchor != "standup" {
			t.Errorf("anchor = %v", result.Anchor)
		}
	})

	t.Run("not found", func(t *testing.T) {
		result := ResolveString("nonexistent#3", "", idx)
		if result.Resolved() {
			t.Errorf("expected unresolved, got %q", result.DocumentID)
		}
		if result.Anchor == nil || *result.Anchor != "3" {
			t.Errorf("unresolved result should still carry the anchor")
		}
	})

	t.Run("wrong folder", func(t *testing.T) {
		if result := ResolveString("projects/Freya", "", idx); result.Resolved() {
			t.Errorf("expected unresolved, got %q", result.DocumentID)
		}
	})

	t.Run("empty and malformed targets", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "|alias", "#heading", "!!!"} {
			if result := ResolveString(raw, "", idx); result.Resolved() {
				t.Errorf("ResolveString(%q) resolved to %q", raw, result.DocumentID)
			}
		}
	})
}

func TestResolverExplicitExtensionWins(t *testing.T) {
	idx := index.Build([]model.Document{
		doc("md", "refs/Target.md", ""),
		doc("pdf", "refs/Target.pdf", ""),
	})

	result := Resolve(wikilink.Parse("Target.pdf"), "refs", idx)
	if result.DocumentID != "pdf" {
		t.Fatalf("got %q, want pdf", result.DocumentID)
	}
	if result.Ambiguous {
		t.Error("explicit kind should leave a single candidate")
	}

	result = Resolve(wikilink.Parse("Target.md"), "refs", idx)
	if result.DocumentID != "md" {
		t.Fatalf("got %q, want md", result.DocumentID)
	}

	t.Run("no extension is ambiguous with first-inserted default", func(t *testing.T) {
		result := Resolve(wikilink.Parse("Target"), "refs", idx)
		if result.DocumentID != "md" || !result.Ambiguous || len(result.Matches) != 2 {
			t.Fatalf("unexpected result %+v", result)
		}
	})

	t.Run("explicit kind with no match falls back to slug candidates", func(t *testing.T) {
		result := Resolve(wikilink.Parse("Target.png"), "refs", idx)
		if result.DocumentID != "md" || !result.Ambiguous {
			t.Fatalf("unexpected result %+v", result)
		}
	})
}

func TestResolverUnrecognizedExtension(t *testing.T) {
	idx := index.Build([]model.Document{
		doc("report-md", "Report.md", ""),
		doc("report-docx", "docs/Report.docx", ""),
		doc("notes", "v1.2 Notes.md", ""),
	})

	tests := []struct {
		target string
		want   string
	}{
		{"Report.docx", "report-docx"},
		{"report.DOCX", "report-docx"},
		{"docs/Report.docx", "report-docx"},
		{"Report", "report-md"},
		{"Report.xlsx", ""},
		{"v1.2 Notes", "notes"},
		{".docx", ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			result := Resolve(wikilink.Parse(tt.target), "", idx)
			if result.DocumentID != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.target, result.DocumentID, tt.want)
			}
		})
	}
}

func TestResolverFolderScoping(t *testing.T) {
	idx := index.Build([]model.Document{
		doc("a", "a/Note.md", ""),
		doc("b", "b/Note.md", ""),
		doc("deep", "x/y/sub/Note.md", ""),
	})

	t.Run("scoped to a", func(t *testing.T) {
		result := Resolve(wikilink.Parse("a/Note"), "anywhere", idx)
		if result.DocumentID != "a" || result.Ambiguous || len(result.Matches) != 1 {
			t.Fatalf("unexpected result %+v", result)
		}
	})

	t.Run("partial folder suffix", func(t *testing.T) {
		result := Resolve(wikilink.Parse("sub/Note"), "", idx)
		if result.DocumentID != "deep" {
			t.Fatalf("got %q, want deep", result.DocumentID)
		}
	})

	t.Run("absolute requires exact folder", func(t *testing.T) {
		if result := Resolve(wikilink.Parse("/sub/Note"), "", idx); result.Resolved() {
			t.Fatalf("expected unresolved, got %q", result.DocumentID)
		}
		if result := Resolve(wikilink.Parse("/x/y/sub/Note"), "", idx); result.DocumentID != "deep" {
			t.Fatalf("got %q, want deep", result.DocumentID)
		}
	})

	t.Run("relative to origin", func(t *testing.T) {
		if result := Resolve(wikilink.Parse("./Note"), "b", idx); result.DocumentID != "b" {
			t.Fatalf("got %q, want b", result.DocumentID)
		}
		if result := Resolve(wikilink.Parse("../a/Note"), "/b", idx); result.DocumentID != "a" {
			t.Fatalf("got %q, want a", result.DocumentID)
		}
		if result := Resolve(wikilink.Parse("../../Note"), "a", idx); result.Resolved() {
			t.Fatalf("expected escaping path to be unresolved, got %q", result.DocumentID)
		}
	})

	t.Run("unscoped is ambiguous", func(t *testing.T) {
		result := Resolve(wikilink.Parse("Note"), "b", idx)
		if !result.Ambiguous || result.DocumentID != "a" {
			t.Fatalf("unexpected result %+v", result)
		}
		ids := result.MatchIDs()
		if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "deep" {
			t.Fatalf("MatchIDs() = %v", ids)
		}
	})
}

func TestResolverDeterministic(t *testing.T) {
	docs := []model.Document{
		doc("1", "one/Same.md", ""),
		doc("2", "two/Same.md", ""),
		doc("3", "three/Same.md", ""),
	}
	idx := index.Build(docs)
	first := ResolveString("Same", "", idx)
	for i := 0; i < 50; i++ {
		again := ResolveString("Same", "", index.Build(docs))
		if again.DocumentID != first.DocumentID || len(again.Matches) != len(first.Matches) {
			t.Fatalf("resolution changed between runs: %+v vs %+v", first, again)
		}
	}
}

func TestResolveNilIndex(t *testing.T) {
	if result := ResolveString("Note", "", nil); result.Resolved() {
		t.Fatal("expected unresolved with nil index")
	}
}

func TestResolveFrom(t *testing.T) {
	idx := index.Build([]model.Document{
		doc("home", "notes/Home.md", ""),
		doc("other", "notes/Other.md", ""),
		doc("root-other", "Other.md", ""),
	})

	t.Run("uses origin folder for relative targets", func(t *testing.T) {
		result := ResolveFrom(wikilink.Parse("./Other"), "home", idx)
		if result.DocumentID != "other" {
			t.Fatalf("got %q, want other", result.DocumentID)
		}
	})

	t.Run("anchor-only reference points at origin", func(t *testing.T) {
		result := ResolveFrom(wikilink.Parse("#Tasks"), "home", idx)
		if result.DocumentID != "home" || result.AnchorText() != "Tasks" {
			t.Fatalf("unexpected result %+v", result)
		}
	})

	t.Run("unknown origin behaves like the root", func(t *testing.T) {
		result := ResolveFrom(wikilink.Parse("./Other"), "missing", idx)
		if result.DocumentID != "root-other" {
			t.Fatalf("got %q, want root-other", result.DocumentID)
		}
		if result := ResolveFrom(wikilink.Parse("#Tasks"), "missing", idx); result.Resolved() {
			t.Fatalf("expected unresolved, got %q", result.DocumentID)
		}
	})
}
