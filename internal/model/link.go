package model

// Link is a single reference occurrence and what it resolved to.
// It is the unit reported by diagnostics and persisted for backlink queries.
type Link struct {
	// SourceID is the document containing the reference.
	SourceID string `json:"source_id"`

	// Raw is the full literal as written, including "!" prefixes and brackets.
	Raw string `json:"raw"`

	// Target is the reference target as written (without alias or anchor).
	Target string `json:"target"`

	// Anchor is the heading or page anchor, if any.
	Anchor string `json:"anchor,omitempty"`

	// Line is the 1-indexed line of the occurrence.
	Line int `json:"line"`

	// Mode is "link", "block-embed" or "inline-embed".
	Mode string `json:"mode"`

	// TargetID is empty when the reference is unresolved.
	TargetID string `json:"target_id,omitempty"`

	// Ambiguous is true when more than one document matched.
	Ambiguous bool `json:"ambiguous,omitempty"`

	// Candidates lists every matching document ID for ambiguous links.
	Candidates []string `json:"candidates,omitempty"`
}

// Resolved reports whether the link points at a document.
func (l Link) Resolved() bool { return l.TargetID != "" }
