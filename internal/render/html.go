package render

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/slugs"
)

// HTMLOptions controls URLs in HTML output.
type HTMLOptions struct {
	// DocumentURL returns the href for a link. Defaults to "/doc/<id>#<anchor-slug>".
	DocumentURL func(f Fragment) string

	// ResourceURL returns the URL of a non-markdown target. Defaults to "/files/<path>".
	ResourceURL func(f Fragment) string
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders f to HTML. Text runs are converted as markdown; inline
// content is spliced into the surrounding text before conversion so it
// leaves no element of its own behind.
func HTML(f Fragment, opts HTMLOptions) (string, error) {
	if opts.DocumentURL == nil {
		opts.DocumentURL = defaultDocumentURL
	}
	if opts.ResourceURL == nil {
		opts.ResourceURL = defaultResourceURL
	}
	w := &htmlWriter{opts: opts}

	switch f.Kind {
	case KindText, KindContent:
		return w.flow([]Fragment{f})
	default:
		return w.element(f)
	}
}

type htmlWriter struct {
	opts HTMLOptions
}

// flow converts a run of fragments as one markdown document. Non-text
// fragments are replaced by placeholder tokens that survive conversion and
// are swapped for their HTML afterwards.
func (w *htmlWriter) flow(frags []Fragment) (string, error) {
	var src strings.Builder
	var tokens []string
	var rendered []string
	var blocks []bool

	var emit func([]Fragment) error
	emit = func(frags []Fragment) error {
		for _, f := range frags {
			switch f.Kind {
			case KindText:
				src.WriteString(f.Text)
			case KindContent:
				if err := emit(f.Children); err != nil {
					return err
				}
			default:
				h, err := w.element(f)
				if err != nil {
					return err
				}
				tok := "weftfrag" + strconv.Itoa(len(tokens)) + "x"
				tokens = append(tokens, tok)
				rendered = append(rendered, h)
				blocks = append(blocks, f.Kind == KindEmbed)
				src.WriteString(tok)
			}
		}
		return nil
	}
	if err := emit(frags); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src.String()), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	out := buf.String()
	for i := len(tokens) - 1; i >= 0; i-- {
		if blocks[i] {
			out = splitParagraph(out, tokens[i], rendered[i])
			continue
		}
		out = strings.ReplaceAll(out, tokens[i], rendered[i])
	}
	return out, nil
}

// splitParagraph replaces tok with block. A <p> cannot hold a block element,
// so a paragraph open around tok is closed before the block and reopened after
// it; the empty paragraphs this leaves are dropped.
func splitParagraph(out, tok, block string) string {
	at := strings.Index(out, tok)
	if at < 0 {
		return out
	}
	before, after := out[:at], out[at+len(tok):]
	if strings.LastIndex(before, "<p>") <= strings.LastIndex(before, "</p>") {
		return before + block + after
	}
	before = strings.TrimRight(before, " \t\n")
	if trimmed, ok := strings.CutSuffix(before, "<p>"); ok {
		before = trimmed
	} else {
		before += "</p>\n"
	}
	after = strings.TrimLeft(after, " \t\n")
	if rest, ok := strings.CutPrefix(after, "</p>"); ok {
		after = rest
	} else {
		after = "\n<p>" + after
	}
	return before + block + after
}

func (w *htmlWriter) element(f Fragment) (string, error) {
	text := html.EscapeString(f.Text)

	switch f.Kind {
	case KindText, KindContent:
		return w.flow([]Fragment{f})
	case KindLink:
		class := "wikilink"
		if f.Ambiguous {
			class += " wikilink-ambiguous"
		}
		return fmt.Sprintf(`<a class="%s" href="%s" data-document-id="%s">%s</a>`,
			class, html.EscapeString(w.opts.DocumentURL(f)), html.EscapeString(f.DocumentID), text), nil
	case KindUnresolved:
		return fmt.Sprintf(`<span class="wikilink wikilink-unresolved" data-target="%s">%s</span>`,
			html.EscapeString(f.Target), text), nil
	case KindCyclic:
		return fmt.Sprintf(`<span class="wikilink-cyclic" data-document-id="%s">cyclic embed: %s</span>`,
			html.EscapeString(f.DocumentID), text), nil
	case KindTooDeep:
		return fmt.Sprintf(`<span class="wikilink-too-deep" data-document-id="%s">embed depth limit reached: %s</span>`,
			html.EscapeString(f.DocumentID), text), nil
	case KindResource:
		return w.resource(f), nil
	case KindEmbed:
		inner, err := w.flow(f.Children)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<div class="wikilink-embed" data-document-id="%s">%s</div>`,
			html.EscapeString(f.DocumentID), inner), nil
	default:
		return "", fmt.Errorf("unknown fragment kind %d", f.Kind)
	}
}

func (w *htmlWriter) resource(f Fragment) string {
	src := html.EscapeString(w.opts.ResourceURL(f))
	text := html.EscapeString(f.Text)

	switch f.DocumentKind {
	case model.KindImage:
		return fmt.Sprintf(`<img class="wikilink-resource" src="%s" alt="%s">`, src, text)
	case model.KindPDF:
		return fmt.Sprintf(`<object class="wikilink-resource" type="application/pdf" data="%s">%s</object>`, src, text)
	case model.KindVideo:
		return fmt.Sprintf(`<video class="wikilink-resource" src="%s" controls>%s</video>`, src, text)
	case model.KindMarkdown, model.KindOther:
		return fmt.Sprintf(`<a class="wikilink-resource" href="%s">%s</a>`, src, text)
	default:
		return text
	}
}

func defaultDocumentURL(f Fragment) string {
	u := "/doc/" + url.PathEscape(f.DocumentID)
	if f.Anchor != "" {
		if _, err := strconv.Atoi(f.Anchor); err == nil {
			u += "#page=" + f.Anchor
		} else {
			u += "#" + slugs.HeadingSlug(f.Anchor)
		}
	}
	return u
}

func defaultResourceURL(f Fragment) string {
	segments := strings.Split(f.Path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	u := "/files/" + strings.Join(segments, "/")
	if f.Page > 0 {
		u += "#page=" + strconv.Itoa(f.Page)
	}
	return u
}
