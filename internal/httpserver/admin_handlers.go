package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/auth"
	"github.com/uluk20-22520/uluk-site/internal/content"
	"github.com/uluk20-22520/uluk-site/internal/editor"
	custommw "github.com/uluk20-22520/uluk-site/internal/httpserver/middleware"
	"github.com/uluk20-22520/uluk-site/internal/inbox"
	"github.com/uluk20-22520/uluk-site/internal/leads"
	"github.com/uluk20-22520/uluk-site/internal/platform/requestctx"
)

const (
	tabContent = "content"
	tabLeads   = "leads"

	titleLogin = "Вход"
	titlePanel = "Админ-панель"
)

type adminHandlers struct {
	content  *content.Repository
	leads    *leads.Repository
	drafts   *editor.Drafts
	gate     *auth.Gate
	views    *views
	base     string
	location *time.Location
	firebase bool
}

// prefix is the base path as used in template links.
func (h *adminHandlers) prefix() string {
	if h.base == "/" {
		return ""
	}
	return h.base
}

func (h *adminHandlers) panelURL(tab, toast string) string {
	target := h.prefix() + "/?tab=" + tab
	if toast == "" {
		return target
	}
	return withToast(target, toast)
}

func (h *adminHandlers) pageData(r *http.Request, title string) pageData {
	return h.views.page(r, title)
}

// formConfirmer answers yes only when the submitted form carries confirm=yes.
func formConfirmer(r *http.Request) editor.Confirmer {
	return editor.Confirmed(r.PostFormValue("confirm") == "yes")
}

func (h *adminHandlers) session(r *http.Request) *auth.Session {
	sess, _ := custommw.SessionFromContext(r.Context())
	return sess
}

func (h *adminHandlers) draft(r *http.Request) *editor.Editor {
	return h.drafts.Get(r.Context(), h.session(r).ID())
}

func (h *adminHandlers) loginForm(w http.ResponseWriter, r *http.Request) {
	if h.gate.Authenticated(h.session(r)) {
		http.Redirect(w, r, h.panelURL(tabContent, ""), http.StatusFound)
		return
	}
	h.renderLogin(w, r, http.StatusOK, "")
}

func (h *adminHandlers) renderLogin(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.views.render(w, r, "login", status, loginData{
		pageData: h.pageData(r, titleLogin),
		Error:    msg,
		Firebase: h.firebase,
	})
}

func (h *adminHandlers) loginSubmit(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	err := h.gate.Login(r.Context(), sess, r.PostFormValue("password"))
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.renderLogin(w, r, http.StatusUnauthorized, textWrongPassword)
		return
	case err != nil:
		requestctx.Logger(r.Context()).Error("admin login failed", zap.Error(err))
		h.renderLogin(w, r, http.StatusServiceUnavailable, textWrongPassword)
		return
	}
	target := h.panelURL(tabContent, "")
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *adminHandlers) logout(w http.ResponseWriter, r *http.Request) {
	if sess := h.session(r); sess != nil {
		h.drafts.Drop(sess.ID())
		h.gate.Logout(sess)
	}
	http.Redirect(w, r, joinPath(h.base, "/login"), http.StatusSeeOther)
}

func (h *adminHandlers) panel(w http.ResponseWriter, r *http.Request) {
	h.renderPanel(w, r, http.StatusOK, toastFromQuery(r))
}

func (h *adminHandlers) renderPanel(w http.ResponseWriter, r *http.Request, status int, toast toastView) {
	ctx := r.Context()
	ed := h.draft(r)

	tab := tabContent
	if r.URL.Query().Get("tab") == tabLeads {
		tab = tabLeads
	}

	collections := make([]collectionView, 0, len(editor.Kinds))
	for _, kind := range editor.Kinds {
		items, _ := ed.Items(kind)
		collections = append(collections, collectionView{Kind: kind, Title: collectionTitles[kind], Items: items})
	}

	list, err := h.leads.List(ctx)
	if err != nil {
		requestctx.Logger(ctx).Error("list leads failed", zap.Error(err))
		if toast.Text == "" {
			toast = toastView{Text: textLeadsFailed, Error: true}
		}
	}

	data := panelData{
		pageData:    h.pageData(r, titlePanel),
		Tab:         tab,
		Draft:       ed.Draft(),
		Collections: collections,
		Inbox:       inbox.Build(list, h.location),
		EmptyText:   inbox.EmptyText,
		Labels: leadLabels{
			Phone:   inbox.LabelPhone,
			Service: inbox.LabelService,
			Channel: inbox.LabelChannel,
			Comment: inbox.LabelComment,
		},
		ResetMessage: editor.ResetMessage,
		ExportToast:  textExported,
		LeadsToast:   textLeadsExported,
	}
	data.Toast = toast
	h.views.render(w, r, "panel", status, data)
}

func (h *adminHandlers) storeFailed(w http.ResponseWriter, r *http.Request, op string, err error) {
	requestctx.Logger(r.Context()).Error(op+" failed", zap.Error(err))
	h.renderPanel(w, r, storeStatus(err), toastView{Text: textStoreFailed, Error: true})
}

func (h *adminHandlers) renderConfirm(w http.ResponseWriter, r *http.Request, msg, cancel string) {
	h.views.render(w, r, "confirm", http.StatusOK, confirmData{
		pageData: h.pageData(r, titlePanel),
		Action:   r.URL.Path,
		Message:  msg,
		Cancel:   cancel,
	})
}

func (h *adminHandlers) saveContent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.draft(r).Save(r.Context(), editor.ScalarsFromForm(r.PostForm)); err != nil {
		h.storeFailed(w, r, "save content", err)
		return
	}
	http.Redirect(w, r, h.panelURL(tabContent, toastSaved), http.StatusSeeOther)
}

func (h *adminHandlers) resetContent(w http.ResponseWriter, r *http.Request) {
	ok, err := h.draft(r).Reset(r.Context(), formConfirmer(r))
	switch {
	case err != nil:
		h.storeFailed(w, r, "reset content", err)
	case !ok:
		h.renderConfirm(w, r, editor.ResetMessage, h.panelURL(tabContent, ""))
	default:
		requestctx.Logger(r.Context()).Info("content reset to default")
		http.Redirect(w, r, h.panelURL(tabContent, toastReset), http.StatusSeeOther)
	}
}

func (h *adminHandlers) exportContent(w http.ResponseWriter, r *http.Request) {
	raw, err := h.draft(r).Export()
	if err != nil {
		h.storeFailed(w, r, "export content", err)
		return
	}
	writeAttachment(w, content.ExportFilename, raw)
}

func (h *adminHandlers) importContent(w http.ResponseWriter, r *http.Request) {
	raw, err := uploadedFile(r, "file")
	if err != nil {
		h.renderPanel(w, r, http.StatusBadRequest, toastView{Text: textImportFailed, Error: true})
		return
	}
	err = h.draft(r).Import(r.Context(), raw)
	var importErr *content.ImportError
	switch {
	case errors.As(err, &importErr):
		requestctx.Logger(r.Context()).Warn("content import rejected", zap.Error(err))
		h.renderPanel(w, r, http.StatusBadRequest, toastView{Text: textImportFailed, Error: true})
	case err != nil:
		h.storeFailed(w, r, "import content", err)
	default:
		requestctx.Logger(r.Context()).Info("content imported", zap.Int("bytes", len(raw)))
		http.Redirect(w, r, h.panelURL(tabContent, toastImported), http.StatusSeeOther)
	}
}

func (h *adminHandlers) contentJSON(w http.ResponseWriter, r *http.Request) {
	raw, err := h.draft(r).RawJSON()
	if err != nil {
		h.storeFailed(w, r, "encode content", err)
		return
	}
	h.views.render(w, r, "json", http.StatusOK, jsonData{JSON: raw})
}

// collectionTarget reads {kind} and the optional {index} route params. Index
// is -1 on the add routes.
func collectionTarget(r *http.Request) (editor.Kind, int, error) {
	kind, err := editor.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", 0, err
	}
	raw := chi.URLParam(r, "index")
	if raw == "" {
		return kind, -1, nil
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("%w: %q", editor.ErrIndexOutOfRange, raw)
	}
	return kind, index, nil
}

func (h *adminHandlers) collectionForm(w http.ResponseWriter, r *http.Request) {
	kind, index, err := collectionTarget(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form, err := h.draft(r).Form(kind, index)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	title := "Добавить: " + collectionTitles[kind]
	if index >= 0 {
		title = "Редактировать: " + collectionTitles[kind]
	}
	h.views.render(w, r, "form", http.StatusOK, formData{
		pageData: h.pageData(r, title),
		Action:   r.URL.Path,
		Form:     form,
	})
}

// answers collects the posted values for every field of form.
func answers(r *http.Request, form editor.Form) editor.Answered {
	rec := make(editor.Answered, len(form.Fields))
	for _, f := range form.Fields {
		rec[f.Name] = r.PostFormValue(f.Name)
	}
	return rec
}

func (h *adminHandlers) collectionAdd(w http.ResponseWriter, r *http.Request) {
	kind, _, err := collectionTarget(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ed := h.draft(r)
	form, err := ed.Form(kind, -1)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, err := ed.Add(kind, answers(r, form)); err != nil {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, h.panelURL(tabContent, ""), http.StatusSeeOther)
}

func (h *adminHandlers) collectionEdit(w http.ResponseWriter, r *http.Request) {
	kind, index, err := collectionTarget(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ed := h.draft(r)
	form, err := ed.Form(kind, index)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, err := ed.Edit(kind, index, answers(r, form)); err != nil {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, h.panelURL(tabContent, ""), http.StatusSeeOther)
}

func (h *adminHandlers) collectionConfirmDelete(w http.ResponseWriter, r *http.Request) {
	kind, index, err := collectionTarget(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, err := h.draft(r).Form(kind, index); err != nil {
		http.NotFound(w, r)
		return
	}
	h.renderConfirm(w, r, editor.ConfirmMessage(kind), h.panelURL(tabContent, ""))
}

func (h *adminHandlers) collectionDelete(w http.ResponseWriter, r *http.Request) {
	kind, index, err := collectionTarget(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ok, err := h.draft(r).Delete(kind, index, formConfirmer(r))
	switch {
	case err != nil:
		http.NotFound(w, r)
	case !ok:
		h.renderConfirm(w, r, editor.ConfirmMessage(kind), h.panelURL(tabContent, ""))
	default:
		http.Redirect(w, r, h.panelURL(tabContent, ""), http.StatusSeeOther)
	}
}

func (h *adminHandlers) exportLeads(w http.ResponseWriter, r *http.Request) {
	raw, err := h.leads.ExportAll(r.Context())
	if err != nil {
		h.storeFailed(w, r, "export leads", err)
		return
	}
	writeAttachment(w, leads.ExportFilename, raw)
}

func (h *adminHandlers) confirmClearLeads(w http.ResponseWriter, r *http.Request) {
	h.renderConfirm(w, r, inbox.ConfirmClear, h.panelURL(tabLeads, ""))
}

func (h *adminHandlers) clearLeads(w http.ResponseWriter, r *http.Request) {
	if !formConfirmer(r).Confirm(inbox.ConfirmClear) {
		h.renderConfirm(w, r, inbox.ConfirmClear, h.panelURL(tabLeads, ""))
		return
	}
	if err := h.leads.Clear(r.Context()); err != nil {
		h.storeFailed(w, r, "clear leads", err)
		return
	}
	requestctx.Logger(r.Context()).Info("leads cleared")
	http.Redirect(w, r, h.panelURL(tabLeads, toastLeadsCleared), http.StatusSeeOther)
}

func leadID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *adminHandlers) confirmDeleteLead(w http.ResponseWriter, r *http.Request) {
	if _, ok := leadID(r); !ok {
		http.NotFound(w, r)
		return
	}
	h.renderConfirm(w, r, inbox.ConfirmDelete, h.panelURL(tabLeads, ""))
}

func (h *adminHandlers) deleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !formConfirmer(r).Confirm(inbox.ConfirmDelete) {
		h.renderConfirm(w, r, inbox.ConfirmDelete, h.panelURL(tabLeads, ""))
		return
	}
	if err := h.leads.Remove(r.Context(), id); err != nil {
		h.storeFailed(w, r, "remove lead", err)
		return
	}
	http.Redirect(w, r, h.panelURL(tabLeads, toastLeadDeleted), http.StatusSeeOther)
}

func writeAttachment(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func uploadedFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, adminBodyLimit))
}
