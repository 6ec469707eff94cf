// Package leads stores contact requests captured by the public form.
package leads

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the ISO 8601 UTC layout of Lead.Date.
const DateLayout = "2006-01-02T15:04:05.000Z"

// ExportFilename is the download name used for lead exports.
const ExportFilename = "leads.export.json"

// Lead is one captured contact request. Field order matches the stored JSON.
type Lead struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Channel string `json:"channel"`
	Comment string `json:"comment"`
	ID      int64  `json:"id"`
	Date    string `json:"date"`
}

// Fields is the user-supplied part of a lead.
type Fields struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Channel string `json:"channel"`
	Comment string `json:"comment"`
}

type normalizer struct {
	policy   *bluemonday.Policy
	maxRunes int
}

func newNormalizer(maxRunes int) normalizer {
	return normalizer{policy: bluemonday.StrictPolicy(), maxRunes: maxRunes}
}

func (n normalizer) fields(f Fields) Fields {
	return Fields{
		Name:    n.value(f.Name),
		Phone:   n.value(f.Phone),
		Service: n.value(f.Service),
		Channel: n.value(f.Channel),
		Comment: n.value(f.Comment),
	}
}

// value strips markup, composes to NFC, trims and caps s. Entities produced by
// the sanitizer are decoded again so stored text stays plain.
func (n normalizer) value(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(n.policy.Sanitize(s))
	s = strings.TrimSpace(norm.NFC.String(s))
	if n.maxRunes > 0 && utf8.RuneCountInString(s) > n.maxRunes {
		s = string([]rune(s)[:n.maxRunes])
		s = strings.TrimSpace(s)
	}
	return s
}
