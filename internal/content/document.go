// Package content loads, persists and exchanges the site content document.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"
)

// ExportFilename is the download name used for content exports.
const ExportFilename = "content.export.json"

// Document is the whole editable site content. Sections and collections are
// omitted from JSON when absent; a present but empty collection encodes as [].
type Document struct {
	Hero         Hero          `json:"hero,omitzero"`
	About        About         `json:"about,omitzero"`
	Company      Company       `json:"company,omitzero"`
	Services     []Service     `json:"services,omitzero"`
	Cases        []Case        `json:"cases,omitzero"`
	Testimonials []Testimonial `json:"testimonials,omitzero"`
	FAQ          []FAQItem     `json:"faq,omitzero"`
}

type Hero struct {
	Tagline  string `json:"tagline"`
	Subtitle string `json:"subtitle"`
	CTA      string `json:"cta"`
}

type About struct {
	Headline string `json:"headline"`
	Text     string `json:"text"`
}

type Company struct {
	Name     string `json:"name"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
	Telegram string `json:"telegram"`
	Email    string `json:"email"`
}

type Service struct {
	Icon  string `json:"icon"`
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

type Case struct {
	Title    string `json:"title"`
	Task     string `json:"task"`
	Solution string `json:"solution"`
	Result   string `json:"result"`
}

type Testimonial struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type FAQItem struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// ImportError reports import text that is not valid JSON.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string { return "content: invalid JSON: " + e.Err.Error() }

func (e *ImportError) Unwrap() error { return e.Err }

// Decode parses raw leniently. Syntactically invalid JSON is a *ImportError;
// values whose type does not fit the document shape are dropped.
func Decode(raw []byte) (Document, error) {
	var doc Document
	err := json.Unmarshal(raw, &doc)
	if err == nil {
		return doc, nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return doc, nil
	}
	return Document{}, &ImportError{Err: err}
}

// Encode returns compact JSON, as stored.
func Encode(doc Document) ([]byte, error) {
	return marshal(doc, "")
}

// Export returns the document as 2-space indented JSON.
func Export(doc Document) ([]byte, error) {
	return marshal(doc, "  ")
}

func marshal(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Clone returns a deep copy. Nil and empty collections stay distinct.
func (d Document) Clone() Document {
	out := d
	out.Services = slices.Clone(d.Services)
	out.Cases = slices.Clone(d.Cases)
	out.Testimonials = slices.Clone(d.Testimonials)
	out.FAQ = slices.Clone(d.FAQ)
	return out
}

// Lookup resolves a dotted path such as "company.phone" or "services.0.title".
// It reports false for missing segments, non-string leaves and empty strings.
func Lookup(doc Document, path string) (string, bool) {
	return NewIndex(doc).Lookup(path)
}

// Index is the generic JSON tree of a document, built once for many lookups.
type Index struct {
	tree any
}

// NewIndex builds the lookup tree for doc.
func NewIndex(doc Document) Index {
	raw, err := Encode(doc)
	if err != nil {
		return Index{}
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return Index{}
	}
	return Index{tree: tree}
}

// Lookup behaves like the package-level Lookup.
func (ix Index) Lookup(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	current := ix.tree
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return "", false
			}
			current = next
		case []any:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(node) {
				return "", false
			}
			current = node[i]
		default:
			return "", false
		}
	}
	s, ok := current.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
