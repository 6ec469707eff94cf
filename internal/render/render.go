package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/uluk20-22520/uluk-site/internal/content"
)

// Options tune one page render.
type Options struct {
	// Lang is stamped on <html lang>; empty leaves the attribute as authored.
	Lang string
	// FAQ selects the item rendered open in #faqList.
	FAQ Accordion
	// Toast is written into #toast and marked shown.
	Toast string
}

// Renderer projects documents onto page markup. It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New returns a Renderer with GitHub-flavoured markdown for markdown targets.
func New() *Renderer {
	return &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render parses page, applies every binding and list renderer for doc, and
// returns the resulting HTML. Falsy values leave their element untouched.
func (r *Renderer) Render(page []byte, doc content.Document, opts Options) ([]byte, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("render: parse page: %w", err)
	}

	if opts.Lang != "" {
		dom.Find("html").SetAttr("lang", opts.Lang)
	}

	index := content.NewIndex(doc)
	for _, b := range Bindings(dom) {
		value, ok := index.Lookup(b.Path)
		if !ok {
			continue
		}
		if err := r.apply(dom.FindNodes(b.node), b, value); err != nil {
			return nil, err
		}
	}

	if err := renderLists(dom, doc, opts.FAQ); err != nil {
		return nil, fmt.Errorf("render: lists: %w", err)
	}

	if opts.Toast != "" {
		dom.Find("#toast").SetText(opts.Toast).AddClass("show")
	}

	out, err := dom.Html()
	if err != nil {
		return nil, fmt.Errorf("render: serialize: %w", err)
	}
	return []byte(out), nil
}

func (r *Renderer) apply(sel *goquery.Selection, b Binding, value string) error {
	switch b.Kind {
	case TargetValue:
		if goquery.NodeName(sel) == "textarea" {
			sel.SetText(value)
		} else {
			sel.SetAttr("value", value)
		}
	case TargetLink:
		sel.SetAttr("href", b.Scheme+":"+value)
		sel.SetText(value)
	default:
		if !b.Markdown {
			sel.SetText(value)
			return nil
		}
		html, err := r.Markdown(value)
		if err != nil {
			return err
		}
		sel.SetHtml(html)
	}
	return nil
}

// Markdown converts src to sanitized HTML.
func (r *Renderer) Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render: markdown: %w", err)
	}
	return strings.TrimSpace(string(r.policy.SanitizeBytes(buf.Bytes()))), nil
}
