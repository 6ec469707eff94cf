package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/content"
	"github.com/uluk20-22520/uluk-site/internal/leads"
	"github.com/uluk20-22520/uluk-site/internal/platform/httpx"
	"github.com/uluk20-22520/uluk-site/internal/platform/requestctx"
)

const leadSourceAPI = "api"

type apiHandlers struct {
	content *content.Repository
	leads   *leads.Repository
}

type contentResponse struct {
	Origin   content.Origin   `json:"origin"`
	Document content.Document `json:"content"`
}

func (h *apiHandlers) getContent(w http.ResponseWriter, r *http.Request) {
	doc, origin := h.content.Load(r.Context())
	httpx.WriteJSON(w, http.StatusOK, contentResponse{Origin: origin, Document: doc})
}

func (h *apiHandlers) createLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := httpx.ReadLimitedBody(r, apiBodyLimit)
	switch {
	case errors.Is(err, httpx.ErrBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body too large", http.StatusRequestEntityTooLarge))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		return
	}

	var fields leads.Fields
	if err := json.Unmarshal(body, &fields); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_json", "request body must be a JSON object", http.StatusBadRequest))
		return
	}
	if !validLead(fields) {
		httpx.WriteError(ctx, w, httpx.NewError("validation_failed", "name and phone are required", http.StatusBadRequest).
			WithDetails(map[string]any{"fields": []string{"name", "phone"}}))
		return
	}

	lead, err := h.leads.Append(ctx, fields, leadSourceAPI)
	if err != nil {
		requestctx.Logger(ctx).Error("append lead failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("store_failed", "lead could not be stored", storeStatus(err)))
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, lead)
}
