package httpserver

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/a-h/templ"

	"github.com/uluk20-22520/uluk-site/internal/content"
	"github.com/uluk20-22520/uluk-site/internal/editor"
	custommw "github.com/uluk20-22520/uluk-site/internal/httpserver/middleware"
	"github.com/uluk20-22520/uluk-site/internal/inbox"
	"github.com/uluk20-22520/uluk-site/internal/platform/config"
	"github.com/uluk20-22520/uluk-site/public"
)

type views struct {
	tpl        *template.Template
	lang       string
	csrfHeader string
	csrfField  string
}

func newViews(cfg config.Config) (*views, error) {
	tpl, err := public.Templates(componentFuncs())
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"login", "panel", "form", "confirm", "json"} {
		if tpl.Lookup(name) == nil {
			return nil, fmt.Errorf("httpserver: template %q is missing", name)
		}
	}
	header := cfg.CSRF.HeaderName
	if header == "" {
		header = "X-CSRF-Token"
	}
	field := cfg.CSRF.FieldName
	if field == "" {
		field = "csrf_token"
	}
	return &views{tpl: tpl, lang: cfg.Site.Locale, csrfHeader: header, csrfField: field}, nil
}

// render writes the named template as a templ component.
func (v *views) render(w http.ResponseWriter, r *http.Request, name string, status int, data any) {
	v.component(w, r, templ.FromGoHTML(v.tpl.Lookup(name), data), status)
}

func (v *views) component(w http.ResponseWriter, r *http.Request, c templ.Component, status int) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

type toastView struct {
	Text  string
	Error bool
}

type pageData struct {
	Lang       string
	Title      string
	BasePath   string
	CSRFToken  string
	CSRFHeader string
	CSRFField  string
	Toast      toastView
}

func (v *views) page(r *http.Request, title string) pageData {
	return pageData{
		Lang:       v.lang,
		Title:      title,
		BasePath:   custommw.AdminPrefix(r.Context()),
		CSRFToken:  custommw.CSRFTokenFromContext(r.Context()),
		CSRFHeader: v.csrfHeader,
		CSRFField:  v.csrfField,
		Toast:      toastFromQuery(r),
	}
}

type loginData struct {
	pageData
	Error    string
	Firebase bool
}

type collectionView struct {
	Kind  editor.Kind
	Title string
	Items []editor.Item
}

type leadLabels struct {
	Phone   string
	Service string
	Channel string
	Comment string
}

type panelData struct {
	pageData
	Tab          string
	Draft        content.Document
	Collections  []collectionView
	Inbox        inbox.View
	EmptyText    string
	Labels       leadLabels
	ResetMessage string
	ExportToast  string
	LeadsToast   string
}

type formData struct {
	pageData
	Action string
	Form   editor.Form
}

type confirmData struct {
	pageData
	Action  string
	Message string
	Cancel  string
}

type jsonData struct {
	JSON string
}

var collectionTitles = map[editor.Kind]string{
	editor.KindServices:     "Услуги",
	editor.KindCases:        "Кейсы",
	editor.KindTestimonials: "Отзывы",
	editor.KindFAQ:          "FAQ",
}
