package httpserver

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

// toastComponent renders the #toast status region shared by admin pages and
// htmx lead responses.
func toastComponent(t toastView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		class := templ.Classes("toast", templ.KV("error", t.Error), templ.KV("show", t.Text != ""))
		_, err := io.WriteString(w, `<div id="toast" class="`+templ.EscapeString(class.String())+
			`" role="status" aria-live="polite">`+templ.EscapeString(t.Text)+`</div>`)
		return err
	})
}

// confirmComponent renders the yes/cancel form posted back with confirm=yes.
func confirmComponent(d confirmData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<form class="admin-section" method="post" action="`+
			templ.EscapeString(string(templ.URL(d.Action)))+`">`+
			`<input type="hidden" name="`+templ.EscapeString(d.CSRFField)+`" value="`+templ.EscapeString(d.CSRFToken)+`">`+
			`<p class="confirm-message">`+templ.EscapeString(d.Message)+`</p>`+
			`<input type="hidden" name="confirm" value="yes">`+
			`<div class="actions">`+
			`<button type="submit" class="btn-danger">Да</button>`+
			`<a class="btn-secondary" href="`+templ.EscapeString(string(templ.URL(d.Cancel)))+`">Отмена</a>`+
			`</div></form>`)
		return err
	})
}

// componentFuncs exposes the components to the html/template pages.
func componentFuncs() template.FuncMap {
	return template.FuncMap{
		"toast": func(t toastView) (template.HTML, error) {
			return templ.ToGoHTML(context.Background(), toastComponent(t))
		},
		"confirmForm": func(d confirmData) (template.HTML, error) {
			return templ.ToGoHTML(context.Background(), confirmComponent(d))
		},
	}
}
