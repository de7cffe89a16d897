package testutil

import (
	"os"
	"strings"
	"testing"
)

// AssertFileExists fails the test if the file does not exist.
func (v *TestVault) AssertFileExists(relPath string) {
	v.t.Helper()
	if _, err := os.Stat(v.Abs(relPath)); os.IsNotExist(err) {
		v.t.Errorf("expected file to exist: %s", relPath)
	}
}

// AssertFileNotExists fails the test if the file exists.
func (v *TestVault) AssertFileNotExists(relPath string) {
	v.t.Helper()
	if _, err := os.Stat(v.Abs(relPath)); err == nil {
		v.t.Errorf("expected file to not exist: %s", relPath)
	}
}

// AssertFileContains fails the test if the file does not contain the substring.
func (v *TestVault) AssertFileContains(relPath, substr string) {
	v.t.Helper()
	content := v.ReadFile(relPath)
	if !strings.Contains(content, substr) {
		v.t.Errorf("expected file %s to contain %q, got:\n%s", relPath, substr, content)
	}
}

// AssertFileNotContains fails the test if the file contains the substring.
func (v *TestVault) AssertFileNotContains(relPath, substr string) {
	v.t.Helper()
	content := v.ReadFile(relPath)
	if strings.Contains(content, substr) {
		v.t.Errorf("expected file %s to not contain %q, got:\n%s", relPath, substr, content)
	}
}

// AssertResolves runs `weft resolve` and checks the resolved document.
func (v *TestVault) AssertResolves(ref, origin, wantID string) {
	v.t.Helper()
	args := []string{"resolve", ref}
	if origin != "" {
		args = append(args, "--from", origin)
	}
	result := v.RunCLI(args...).MustSucceed(v.t)
	if got := result.DataString("document_id"); got != wantID {
		v.t.Errorf("resolve %q from %q: got %q, want %q\nRaw: %s", ref, origin, got, wantID, result.RawJSON)
	}
}

// AssertBacklinks verifies that a document has the expected number of backlinks.
func (v *TestVault) AssertBacklinks(docID string, expectedCount int) {
	v.t.Helper()
	result := v.RunCLI("backlinks", docID).MustSucceed(v.t)

	results := result.DataList("items")
	if len(results) != expectedCount {
		v.t.Errorf("backlinks for %s: expected %d, got %d\nRaw: %s",
			docID, expectedCount, len(results), result.RawJSON)
	}
}

// AssertHasWarning checks that the result contains a warning with the given code.
func (r *CLIResult) AssertHasWarning(t *testing.T, code string) {
	t.Helper()
	for _, w := range r.Warnings {
		if w.Code == code {
			return
		}
	}
	t.Errorf("expected warning with code %s, got warnings: %+v", code, r.Warnings)
}

// AssertNoWarnings checks that the result has no warnings.
func (r *CLIResult) AssertNoWarnings(t *testing.T) {
	t.Helper()
	if len(r.Warnings) > 0 {
		t.Errorf("expected no warnings, got: %+v", r.Warnings)
	}
}

// AssertResultCount checks that a list in the result has the expected length.
func (r *CLIResult) AssertResultCount(t *testing.T, key string, expected int) {
	t.Helper()
	results := r.DataList(key)
	if len(results) != expected {
		t.Errorf("expected %d %s, got %d\nRaw: %s", expected, key, len(results), r.RawJSON)
	}
}
