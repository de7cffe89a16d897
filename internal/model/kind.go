package model

import (
	"path"
	"strings"
)

// Kind is the closed set of document kinds the engine understands.
// Only KindMarkdown documents can contain references; every kind can be a target.
type Kind int

const (
	KindOther Kind = iota
	KindMarkdown
	KindPDF
	KindImage
	KindVideo
)

var kindNames = map[Kind]string{
	KindOther:    "other",
	KindMarkdown: "markdown",
	KindPDF:      "pdf",
	KindImage:    "image",
	KindVideo:    "video",
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "other"
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind maps a kind name back to a Kind. Unknown names are KindOther.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == strings.ToLower(strings.TrimSpace(name)) {
			return k
		}
	}
	return KindOther
}

// Paginated reports whether numeric anchors address pages of this kind.
func (k Kind) Paginated() bool {
	return k == KindPDF
}

// extensionKinds lists the file extensions recognized in reference targets.
var extensionKinds = map[string]Kind{
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".pdf":      KindPDF,
	".png":      KindImage,
	".jpg":      KindImage,
	".jpeg":     KindImage,
	".gif":      KindImage,
	".svg":      KindImage,
	".webp":     KindImage,
	".bmp":      KindImage,
	".avif":     KindImage,
	".mp4":      KindVideo,
	".webm":     KindVideo,
	".mov":      KindVideo,
	".mkv":      KindVideo,
	".ogv":      KindVideo,
}

// KindForExtension returns the kind for a file extension (including the dot).
// ok is false when the extension is not one the engine recognizes.
func KindForExtension(ext string) (kind Kind, ok bool) {
	kind, ok = extensionKinds[strings.ToLower(ext)]
	return kind, ok
}

// KindForPath classifies a file by its extension.
func KindForPath(p string) Kind {
	if kind, ok := KindForExtension(path.Ext(p)); ok {
		return kind
	}
	return KindOther
}

// RecognizedExtension returns the trailing extension of name if it is one the
// engine recognizes, or "" otherwise. The returned value is lowercased.
func RecognizedExtension(name string) string {
	ext := path.Ext(name)
	if ext == "" || ext == name {
		return ""
	}
	if _, ok := KindForExtension(ext); !ok {
		return ""
	}
	return strings.ToLower(ext)
}
