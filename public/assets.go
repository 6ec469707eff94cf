// Package public embeds the site's static assets, page markup and admin templates.
package public

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed static/*
var static embed.FS

//go:embed pages/*.html
var pages embed.FS

//go:embed templates/*.html
var templates embed.FS

// Pages maps public routes to page files.
var Pages = map[string]string{
	"/":         "index.html",
	"/services": "services.html",
	"/cases":    "cases.html",
	"/contacts": "contacts.html",
}

func StaticFS() (fs.FS, error) {
	return fs.Sub(static, "static")
}

// Page returns the raw markup of a page file.
func Page(name string) ([]byte, error) {
	raw, err := pages.ReadFile("pages/" + name)
	if err != nil {
		return nil, fmt.Errorf("public: page %q: %w", name, err)
	}
	return raw, nil
}

// Templates parses the admin templates with funcs added to the defaults.
func Templates(funcs template.FuncMap) (*template.Template, error) {
	base := template.FuncMap{
		"join": strings.Join,
	}
	for name, fn := range funcs {
		base[name] = fn
	}
	tpl, err := template.New("admin").Funcs(base).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("public: parse templates: %w", err)
	}
	return tpl, nil
}
