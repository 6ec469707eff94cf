package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/content"
	custommw "github.com/uluk20-22520/uluk-site/internal/httpserver/middleware"
	"github.com/uluk20-22520/uluk-site/internal/leads"
	"github.com/uluk20-22520/uluk-site/internal/platform/requestctx"
	"github.com/uluk20-22520/uluk-site/internal/render"
	"github.com/uluk20-22520/uluk-site/public"
)

const leadSourceForm = "form"

type siteHandlers struct {
	content  *content.Repository
	leads    *leads.Repository
	renderer *render.Renderer
	views    *views
	lang     string
	pages    map[string][]byte
}

func newSiteHandlers(deps Deps, v *views) (*siteHandlers, error) {
	pages := make(map[string][]byte, len(public.Pages))
	for _, file := range public.Pages {
		raw, err := public.Page(file)
		if err != nil {
			return nil, fmt.Errorf("httpserver: %w", err)
		}
		pages[file] = raw
	}
	return &siteHandlers{
		content:  deps.Content,
		leads:    deps.Leads,
		renderer: deps.Renderer,
		views:    v,
		lang:     deps.Config.Site.Locale,
		pages:    pages,
	}, nil
}

// page renders file against the current document on every request.
func (h *siteHandlers) page(file string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderPage(w, r, file, http.StatusOK, toastFromQuery(r).Text)
	}
}

func (h *siteHandlers) renderPage(w http.ResponseWriter, r *http.Request, file string, status int, toast string) {
	doc, _ := h.content.Load(r.Context())
	opts := render.Options{Lang: h.lang, Toast: toast}
	if i, err := strconv.Atoi(r.URL.Query().Get("faq")); err == nil && i >= 0 {
		opts.FAQ = render.OpenAt(i)
	}
	out, err := h.renderer.Render(h.pages[file], doc, opts)
	if err != nil {
		requestctx.Logger(r.Context()).Error("render page failed", zap.String("page", file), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func leadFieldsFromForm(v url.Values) leads.Fields {
	return leads.Fields{
		Name:    v.Get("name"),
		Phone:   v.Get("phone"),
		Service: v.Get("service"),
		Channel: v.Get("channel"),
		Comment: v.Get("comment"),
	}
}

func validLead(f leads.Fields) bool {
	return strings.TrimSpace(f.Name) != "" && strings.TrimSpace(f.Phone) != ""
}

// submitLead captures the public contact form. htmx requests get the toast
// fragment; plain posts are redirected back to the page they came from.
func (h *siteHandlers) submitLead(w http.ResponseWriter, r *http.Request) {
	htmx := custommw.IsHTMXRequest(r.Context())
	file, back := h.refererPage(r)

	if err := r.ParseForm(); err != nil {
		h.leadResult(w, r, htmx, file, http.StatusBadRequest, toastLeadInvalid)
		return
	}
	fields := leadFieldsFromForm(r.PostForm)
	if !validLead(fields) {
		h.leadResult(w, r, htmx, file, http.StatusBadRequest, toastLeadInvalid)
		return
	}
	if _, err := h.leads.Append(r.Context(), fields, leadSourceForm); err != nil {
		requestctx.Logger(r.Context()).Error("append lead failed", zap.Error(err))
		h.leadResult(w, r, htmx, file, storeStatus(err), toastLeadFailed)
		return
	}
	if htmx {
		h.views.component(w, r, toastComponent(toasts[toastLead]), http.StatusOK)
		return
	}
	http.Redirect(w, r, withToast(back, toastLead), http.StatusSeeOther)
}

// leadResult reports a rejected submission. htmx only swaps 2xx responses, so
// the fragment is sent with 200 and the error flag set.
func (h *siteHandlers) leadResult(w http.ResponseWriter, r *http.Request, htmx bool, file string, status int, key string) {
	if htmx {
		h.views.component(w, r, toastComponent(toasts[key]), http.StatusOK)
		return
	}
	h.renderPage(w, r, file, status, toasts[key].Text)
}

// refererPage resolves the public page the form was posted from.
func (h *siteHandlers) refererPage(r *http.Request) (file, path string) {
	if ref, err := url.Parse(r.Referer()); err == nil {
		if f, ok := public.Pages[ref.Path]; ok {
			return f, ref.Path
		}
	}
	return public.Pages["/"], "/"
}
