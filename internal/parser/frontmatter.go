// Package parser handles the markdown-level concerns of reference handling:
// frontmatter, code regions, headings and reference extraction.
package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter represents parsed frontmatter data.
type Frontmatter struct {
	// Title is the "title" key, trimmed. Empty when absent or not a string.
	Title string

	// Fields are all keys, as decoded by yaml.v3.
	Fields map[string]interface{}

	// Raw is the raw frontmatter content between the delimiters.
	Raw string

	// EndLine is the line of the closing delimiter (1-indexed).
	EndLine int

	// BodyOffset is the byte offset where the body starts.
	BodyOffset int
}

// FrontmatterBounds returns the opening and closing frontmatter line indices.
// It only detects frontmatter when the first line is '---'.
// If frontmatter is present but unclosed, endLine is -1.
func FrontmatterBounds(lines []string) (startLine int, endLine int, ok bool) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return 0, -1, false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return 0, i, true
		}
	}

	return 0, -1, true
}

// ParseFrontmatter parses YAML frontmatter from markdown content.
// Returns nil if no (closed) frontmatter is found.
func ParseFrontmatter(content string) (*Frontmatter, error) {
	lines := strings.Split(content, "\n")

	_, endLine, ok := FrontmatterBounds(lines)
	if !ok || endLine == -1 {
		return nil, nil
	}

	raw := strings.Join(lines[1:endLine], "\n")

	var fields map[string]interface{}
	if err := yaml.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter as YAML: %w", err)
	}
	// An empty document decodes to a nil map; the block still shifts the body.
	if fields == nil {
		fields = map[string]interface{}{}
	}

	fm := &Frontmatter{
		Fields:     fields,
		Raw:        raw,
		EndLine:    endLine + 1,
		BodyOffset: bodyOffset(lines, endLine),
	}
	if title, ok := fields["title"].(string); ok {
		fm.Title = strings.TrimSpace(title)
	}

	return fm, nil
}

// StripFrontmatter returns the body after a closed frontmatter block and the
// byte offset at which it starts. Content without frontmatter is returned as is.
func StripFrontmatter(content string) (body string, offset int) {
	lines := strings.Split(content, "\n")
	_, endLine, ok := FrontmatterBounds(lines)
	if !ok || endLine == -1 {
		return content, 0
	}
	offset = bodyOffset(lines, endLine)
	return content[offset:], offset
}

// bodyOffset is the byte offset of the line after endLine.
func bodyOffset(lines []string, endLine int) int {
	offset := 0
	for i := 0; i <= endLine && i < len(lines); i++ {
		offset += len(lines[i]) + 1
	}
	total := 0
	for i, l := range lines {
		total += len(l)
		if i < len(lines)-1 {
			total++
		}
	}
	if offset > total {
		offset = total
	}
	return offset
}

// Title returns the frontmatter title of content, or "" when there is none or
// the frontmatter cannot be parsed.
func Title(content string) string {
	fm, err := ParseFrontmatter(content)
	if err != nil || fm == nil {
		return ""
	}
	return fm.Title
}
