package suggest

import (
	"reflect"
	"testing"

	"github.com/aidanlsb/weft/internal/index"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/resolver"
	"github.com/aidanlsb/weft/internal/wikilink"
)

func doc(id, path, title string) model.Document {
	return model.Document{ID: id, Path: path, Title: title, Kind: model.KindForPath(path)}
}

func displays(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Display
	}
	return out
}

func TestSuggestEmptyQueryCollapsesFolderNames(t *testing.T) {
	idx := index.Build([]model.Document{
		doc("guide", "docs/examples/Guide.md", ""),
		doc("main", "src/examples/Main.md", ""),
		doc("readme", "Readme.md", ""),
		doc("intro", "docs/Intro.md", ""),
	})

	items := Suggest("", "/docs", idx, 10)

	count := 0
	for _, item := range items {
		if item.Kind == ItemFolder && item.Display == "examples/" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one examples/ entry, got %d in %v", count, displays(items))
	}

	want := []string{"examples/", "src/", "Intro", "Readme"}
	if got := displays(items); !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest() = %v, want %v", got, want)
	}
	if items[0].Path != "docs/examples" {
		t.Errorf("child folder of the origin should come first, got %q", items[0].Path)
	}
}

func TestSuggestTrailingSlash(t *testing.T) {
	idx := index.Build([]model.Document{
		doc("a1", "projects/Alpha.md", ""),
		doc("b1", "projects/archive/Beta.md", ""),
		doc("c1", "people/Carol.md", ""),
	})

	t.Run("lists folder contents", func(t *testing.T) {
		items := Suggest("projects/", "", idx, 0)
		want := []string{"archive/", "Alpha"}
		if got := displays(items); !reflect.DeepEqual(got, want) {
			t.Errorf("Suggest() = %v, want %v", got, want)
		}
	})

	t.Run("partial prefix", func(t *testing.T) {
		items := Suggest("archive/", "", idx, 0)
		if got := displays(items); !reflect.DeepEqual(got, []string{"Beta"}) {
			t.Errorf("Suggest() = %v", got)
		}
	})

	t.Run("root", func(t *testing.T) {
		items := Suggest("/", "people", idx, 0)
		want := []string{"projects/", "people/"}
		if got := displays(items); !reflect.DeepEqual(got, want) {
			t.Errorf("Suggest() = %v, want %v", got, want)
		}
	})

	t.Run("relative", func(t *testing.T) {
		items := Suggest("./", "people", idx, 0)
		if got := displays(items); !reflect.DeepEqual(got, []string{"Carol"}) {
			t.Errorf("Suggest() = %v", got)
		}
	})

	t.Run("unknown folder", func(t *testing.T) {
		if items := Suggest("nowhere/", "", idx, 0); len(items) != 0 {
			t.Errorf("expected nothing, got %v", displays(items))
		}
	})
}

func TestSuggestRanking(t *testing.T) {
	idx := index.Build([]model.Document{
		doc("1", "My Project Notes.md", ""),
		doc("2", "Project.md", ""),
		doc("3", "project-one.md", ""),
		doc("4", "Side Project.md", ""),
		doc("5", "Unrelated.md", ""),
	})

	items := Suggest("proj", "", idx, 0)
	want := []string{"Project", "project-one", "Side Project", "My Project Notes"}
	if got := displays(items); !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest() = %v, want %v", got, want)
	}

	t.Run("limit truncates", func(t *testing.T) {
		items := Suggest("proj", "", idx, 2)
		if got := displays(items); !reflect.DeepEqual(got, []string{"Project", "project-one"}) {
			t.Errorf("Suggest() = %v", got)
		}
	})

	t.Run("hyphen shorthand", func(t *testing.T) {
		items := Suggest("proj-o", "", idx, 0)
		if got := displays(items); !reflect.DeepEqual(got, []string{"project-one"}) {
			t.Errorf("Suggest() = %v", got)
		}
	})

	t.Run("no match", func(t *testing.T) {
		if items := Suggest("zzz", "", idx, 0); len(items) != 0 {
			t.Errorf("expected no items, got %v", displays(items))
		}
	})
}

func TestSuggestDeterministic(t *testing.T) {
	docs := []model.Document{
		doc("1", "a/Note.md", ""),
		doc("2", "b/Note.md", ""),
		doc("3", "c/Notebook.md", ""),
	}
	first := Suggest("note", "", index.Build(docs), 0)
	for i := 0; i < 20; i++ {
		again := Suggest("note", "", index.Build(docs), 0)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("suggestions changed between runs:\n%v\n%v", first, again)
		}
	}
}

func TestSuggestInsertDisambiguates(t *testing.T) {
	idx := index.Build([]model.Document{
		doc("md", "refs/Target.md", ""),
		doc("pdf", "refs/Target.pdf", ""),
		doc("a", "a/Note.md", ""),
		doc("b", "b/Note.md", ""),
		doc("solo", "Solo.md", ""),
	})

	byID := make(map[string]Item)
	for _, item := range Suggest("t", "", idx, 0) {
		byID[item.DocumentID] = item
	}
	for _, item := range Suggest("note", "", idx, 0) {
		byID[item.DocumentID] = item
	}
	for _, item := range Suggest("solo", "", idx, 0) {
		byID[item.DocumentID] = item
	}

	tests := []struct {
		id      string
		display string
		insert  string
	}{
		{"pdf", "Target.pdf", "refs/Target.pdf"},
		{"md", "Target", "refs/Target"},
		{"a", "Note", "a/Note"},
		{"b", "Note", "b/Note"},
		{"solo", "Solo", "Solo"},
	}
	for _, tt := range tests {
		item, ok := byID[tt.id]
		if !ok {
			t.Errorf("missing suggestion for %s", tt.id)
			continue
		}
		if item.Display != tt.display || item.Insert != tt.insert {
			t.Errorf("%s: got display=%q insert=%q, want %q %q", tt.id, item.Display, item.Insert, tt.display, tt.insert)
		}
	}

	t.Run("explicit kind filters", func(t *testing.T) {
		items := Suggest("Target.pdf", "", idx, 0)
		if len(items) != 1 || items[0].DocumentID != "pdf" {
			t.Errorf("Suggest(Target.pdf) = %v", displays(items))
		}
	})
}

func TestSuggestNilIndex(t *testing.T) {
	if items := Suggest("x", "", nil, 5); items != nil {
		t.Fatalf("expected nil, got %v", items)
	}
}

func TestSuggestInsertResolves(t *testing.T) {
	idx := index.Build([]model.Document{
		doc("report", "Report.docx", ""),
		doc("deck", "talks/Deck.pdf", ""),
		doc("guide", "docs/Guide.md", ""),
		doc("guide-old", "archive/Guide.md", ""),
		doc("sheet", "data/Budget.xlsx", "Budget 2025"),
	})

	for _, query := range []string{"", "rep", "deck", "guide", "budget", "data/"} {
		for _, item := range Suggest(query, "docs", idx, 0) {
			if item.Kind != ItemDocument {
				continue
			}
			got := resolver.Resolve(wikilink.Parse(item.Insert), "docs", idx)
			if got.DocumentID != item.DocumentID || got.Ambiguous {
				t.Errorf("query %q: inserting %q resolves to %q (ambiguous=%v), want %q",
					query, item.Insert, got.DocumentID, got.Ambiguous, item.DocumentID)
			}
		}
	}
}
