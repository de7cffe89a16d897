package parser

import (
	"testing"

	"github.com/aidanlsb/weft/internal/wikilink"
)

func TestExtractRefs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string // targets
	}{
		{
			name:    "basic refs",
			content: "Check out [[some/file]] and [[another|Display Text]]",
			want:    []string{"some/file", "another"},
		},
		{
			name:    "refs on multiple lines",
			content: "First [[ref1]] here\nSecond [[ref2]] there",
			want:    []string{"ref1", "ref2"},
		},
		{
			name:    "anchored ref",
			content: "See [[daily/2025-02-01#standup]] for details",
			want:    []string{"daily/2025-02-01"},
		},
		{
			name:    "ignore refs inside fenced code blocks",
			content: "Outside [[ok]]\n\n```go\nthis [[nope]] should not be indexed\n```\n\nAfter [[ok2]]",
			want:    []string{"ok", "ok2"},
		},
		{
			name:    "ignore refs inside blockquoted fenced code blocks",
			content: "Outside [[ok]]\n\n> ```\n> [[nope]]\n> ```\n\nAfter [[ok2]]",
			want:    []string{"ok", "ok2"},
		},
		{
			name:    "ignore refs inside tilde fences",
			content: "Outside [[ok]]\n\n~~~\n[[nope]]\n~~~\n\nAfter [[ok2]]",
			want:    []string{"ok", "ok2"},
		},
		{
			name:    "ignore refs inside inline code",
			content: "Use `[[nope]]` but [[yes]]",
			want:    []string{"yes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRefs(tt.content, 1)

			if len(got) != len(tt.want) {
				t.Fatalf("got %d refs, want %d", len(got), len(tt.want))
			}

			for i, target := range tt.want {
				if got[i].Ref.Target != target {
					t.Errorf("ref[%d].Target = %q, want %q", i, got[i].Ref.Target, target)
				}
				if tt.content[got[i].Start:got[i].End] != got[i].Literal {
					t.Errorf("ref[%d] offsets do not cover literal %q", i, got[i].Literal)
				}
			}
		})
	}
}

func TestExtractRefsModesAndLines(t *testing.T) {
	content := "line one\n![[Block]] and !![[Inline]]\n[[Link]]"
	refs := ExtractRefs(content, 1)
	if len(refs) != 3 {
		t.Fatalf("got %d refs, want 3", len(refs))
	}

	want := []struct {
		mode wikilink.Mode
		line int
	}{
		{wikilink.ModeBlockEmbed, 2},
		{wikilink.ModeInlineEmbed, 2},
		{wikilink.ModeLink, 3},
	}
	for i, w := range want {
		if refs[i].Ref.Mode != w.mode {
			t.Errorf("ref[%d].Mode = %v, want %v", i, refs[i].Ref.Mode, w.mode)
		}
		if refs[i].Line != w.line {
			t.Errorf("ref[%d].Line = %d, want %d", i, refs[i].Line, w.line)
		}
	}
}

func TestExtractBodyRefsSkipsFrontmatter(t *testing.T) {
	content := "---\nrelated: \"[[Hidden]]\"\n---\nBody [[Visible]]"
	refs := ExtractBodyRefs(content)
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	r := refs[0]
	if r.Ref.Target != "Visible" {
		t.Fatalf("target = %q", r.Ref.Target)
	}
	if r.Line != 4 {
		t.Errorf("line = %d, want 4", r.Line)
	}
	if content[r.Start:r.End] != "[[Visible]]" {
		t.Errorf("offsets = %d:%d cover %q", r.Start, r.End, content[r.Start:r.End])
	}
	if content[r.InnerStart:r.InnerStart+len("Visible")] != "Visible" {
		t.Errorf("inner offset wrong")
	}
}
