package slugs

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Old Note", "old-note"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Multiple   spaces\tand\ttabs", "multiple-spaces-and-tabs"},
		{"Don't Panic!", "dont-panic"},
		{"A - B", "a-b"},
		{"already-a-slug", "already-a-slug"},
		{"UPPER", "upper"},
		{"v1.2 notes", "v12-notes"},
		{"-dash-", "dash"},
		{"", ""},
		{"   ", ""},
		{"!!!", ""},
		{"Café au lait", "cafe-au-lait"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Old Note", "  x  y  ", "Don't Panic!", "a--b", "-", "Привет мир",
		"folder/Note.pdf", "日本語", "tab\there", "ÆØÅ", "a_b_c", "#3",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestHeadingSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Weekly Standup", "weekly-standup"},
		{"#Weekly Standup", "weekly-standup"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"A - B", "a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := HeadingSlug(tt.in); got != tt.want {
				t.Fatalf("HeadingSlug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Freya", "freya"},
		{"My Awesome Project", "my-awesome-project"},
		{"test.md", "test"},
		{"file-name", "file-name"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FileSlug(tt.in); got != tt.want {
				t.Fatalf("FileSlug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
