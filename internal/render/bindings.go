// Package render projects the content document onto static HTML pages.
package render

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	attrContent       = "data-content"
	attrContentFormat = "data-content-format"
	formatMarkdown    = "markdown"
)

// TargetKind says how a bound element receives its value.
type TargetKind int

const (
	// TargetText replaces the element's text content.
	TargetText TargetKind = iota
	// TargetValue sets an input's value attribute or a textarea's text.
	TargetValue
	// TargetLink rewrites a tel: or mailto: anchor's href and text.
	TargetLink
)

func (k TargetKind) String() string {
	switch k {
	case TargetValue:
		return "value"
	case TargetLink:
		return "link"
	default:
		return "text"
	}
}

// Binding ties one element to a dotted content path.
type Binding struct {
	Path     string
	Kind     TargetKind
	Scheme   string
	Markdown bool
	node     *html.Node
}

// Bindings builds the binding table from every [data-content] element of page.
func Bindings(page *goquery.Document) []Binding {
	var out []Binding
	page.Find("[" + attrContent + "]").Each(func(_ int, sel *goquery.Selection) {
		path := strings.TrimSpace(sel.AttrOr(attrContent, ""))
		if path == "" {
			return
		}
		b := Binding{
			Path:     path,
			Markdown: sel.AttrOr(attrContentFormat, "") == formatMarkdown,
			node:     sel.Nodes[0],
		}
		b.Kind, b.Scheme = classify(sel)
		out = append(out, b)
	})
	return out
}

func classify(sel *goquery.Selection) (TargetKind, string) {
	switch sel.Nodes[0].DataAtom {
	case atom.Input, atom.Textarea:
		return TargetValue, ""
	case atom.A:
		if scheme := linkScheme(sel.AttrOr("href", "")); scheme == "tel" || scheme == "mailto" {
			return TargetLink, scheme
		}
	}
	return TargetText, ""
}

func linkScheme(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
