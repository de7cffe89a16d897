package parser

import (
	"testing"
)

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantTitle   string
		wantNil     bool
		wantEndLine int
		wantBody    string
	}{
		{
			name: "basic frontmatter",
			content: `---
title: Freya of Vanaheim
email: freya@asgard.realm
---
# Freya`,
			wantTitle:   "Freya of Vanaheim",
			wantEndLine: 4,
			wantBody:    "# Freya",
		},
		{
			name:    "no frontmatter",
			content: "# Just a heading\n\nSome content",
			wantNil: true,
		},
		{
			name:        "empty frontmatter still counts as frontmatter",
			content:     "---\n---\n\n# Title\nContent",
			wantEndLine: 2,
			wantBody:    "\n# Title\nContent",
		},
		{
			name:        "non-string title is ignored",
			content:     "---\ntitle: 42\n---\nbody",
			wantEndLine: 3,
			wantBody:    "body",
		},
		{
			name:        "closing delimiter at end of file",
			content:     "---\ntitle: End\n---",
			wantTitle:   "End",
			wantEndLine: 3,
			wantBody:    "",
		},
		{
			name:    "unclosed frontmatter",
			content: "---\ntitle: Open\nbody",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, err := ParseFrontmatter(tt.content)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if fm != nil {
					t.Fatalf("expected nil frontmatter, got %+v", fm)
				}
				return
			}
			if fm == nil {
				t.Fatal("expected frontmatter")
			}
			if fm.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", fm.Title, tt.wantTitle)
			}
			if fm.EndLine != tt.wantEndLine {
				t.Errorf("EndLine = %d, want %d", fm.EndLine, tt.wantEndLine)
			}
			if body := tt.content[fm.BodyOffset:]; body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestParseFrontmatterInvalidYAML(t *testing.T) {
	if _, err := ParseFrontmatter("---\ntitle: [unclosed\n---\nbody"); err == nil {
		t.Fatal("expected YAML error")
	}
	if got := Title("---\ntitle: [unclosed\n---\nbody"); got != "" {
		t.Fatalf("Title() = %q, want empty", got)
	}
}

func TestStripFrontmatter(t *testing.T) {
	body, offset := StripFrontmatter("---\ntitle: x\n---\nHello [[World]]")
	if body != "Hello [[World]]" {
		t.Fatalf("body = %q", body)
	}
	if offset != len("---\ntitle: x\n---\n") {
		t.Fatalf("offset = %d", offset)
	}

	body, offset = StripFrontmatter("plain text")
	if body != "plain text" || offset != 0 {
		t.Fatalf("got %q, %d", body, offset)
	}
}
