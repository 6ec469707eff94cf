// Package httpserver serves the public site, the JSON API and the admin panel.
package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/auth"
	"github.com/uluk20-22520/uluk-site/internal/content"
	"github.com/uluk20-22520/uluk-site/internal/editor"
	custommw "github.com/uluk20-22520/uluk-site/internal/httpserver/middleware"
	"github.com/uluk20-22520/uluk-site/internal/leads"
	"github.com/uluk20-22520/uluk-site/internal/platform/config"
	"github.com/uluk20-22520/uluk-site/internal/platform/httpx"
	"github.com/uluk20-22520/uluk-site/internal/platform/observability"
	"github.com/uluk20-22520/uluk-site/internal/render"
	"github.com/uluk20-22520/uluk-site/internal/store"
	"github.com/uluk20-22520/uluk-site/public"
)

const (
	defaultTimeout    = 60 * time.Second
	adminBodyLimit    = 2 << 20
	apiBodyLimit      = 64 << 10
	errorNotFoundCode = "route_not_found"
)

// Deps collects the collaborators of the HTTP surface.
type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Content  *content.Repository
	Leads    *leads.Repository
	Renderer *render.Renderer
	Drafts   *editor.Drafts
	Sessions *auth.Manager
	Gate     *auth.Gate
	// Firebase switches the login form to ID token entry.
	Firebase bool
}

func (d Deps) validate() error {
	var missing []string
	if d.Content == nil {
		missing = append(missing, "content repository")
	}
	if d.Leads == nil {
		missing = append(missing, "lead repository")
	}
	if d.Drafts == nil {
		missing = append(missing, "drafts")
	}
	if d.Sessions == nil {
		missing = append(missing, "session manager")
	}
	if d.Gate == nil {
		missing = append(missing, "auth gate")
	}
	if len(missing) > 0 {
		return fmt.Errorf("httpserver: missing dependencies: %v", missing)
	}
	return nil
}

// New constructs the HTTP server with the middleware stack and embedded assets.
func New(deps Deps) (*http.Server, error) {
	handler, err := NewHandler(deps)
	if err != nil {
		return nil, err
	}
	cfg := deps.Config.Server
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, nil
}

// NewHandler builds the chi router.
func NewHandler(deps Deps) (http.Handler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}

	views, err := newViews(deps.Config)
	if err != nil {
		return nil, err
	}
	site, err := newSiteHandlers(deps, views)
	if err != nil {
		return nil, err
	}
	staticFS, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("httpserver: embed static: %w", err)
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.TraceMiddleware())
	router.Use(observability.Logging(logger, deps.Metrics))
	router.Use(observability.Recover())
	router.Use(chimw.Compress(5))
	router.Use(custommw.HTMX())
	router.Use(chimw.Timeout(defaultTimeout))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(r.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", r.URL.Path), http.StatusNotFound))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(r.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path), http.StatusMethodNotAllowed))
	})

	router.Get("/healthz", healthz)
	router.Handle("/static/*", custommw.Assets(staticFS, "/static/"))

	for path, file := range public.Pages {
		router.Get(path, site.page(file))
	}
	router.Post("/leads", site.submitLead)

	api := &apiHandlers{content: deps.Content, leads: deps.Leads}
	router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.Config.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/content", api.getContent)
		r.Post("/leads", api.createLead)
	})

	mountAdminRoutes(router, deps, views)

	return router, nil
}

func mountAdminRoutes(router chi.Router, deps Deps, views *views) {
	base := custommw.NormalizeBasePath(deps.Config.Admin.BasePath)
	loginPath := joinPath(base, "/login")
	h := &adminHandlers{
		content:  deps.Content,
		leads:    deps.Leads,
		drafts:   deps.Drafts,
		gate:     deps.Gate,
		views:    views,
		base:     base,
		location: deps.Config.Site.Location,
		firebase: deps.Firebase,
	}

	router.Route(base, func(r chi.Router) {
		r.Use(custommw.NoStore())
		r.Use(custommw.AdminMount(base))
		r.Use(chimw.RequestSize(adminBodyLimit))
		r.Use(custommw.Session(deps.Sessions))
		r.Use(custommw.CSRF(custommw.CSRFConfig{
			CookieName: deps.Config.CSRF.CookieName,
			CookiePath: base,
			HeaderName: deps.Config.CSRF.HeaderName,
			FieldName:  deps.Config.CSRF.FieldName,
			Secure:     deps.Config.Session.Secure,
		}))

		r.Get("/login", h.loginForm)
		r.Post("/login", h.loginSubmit)
		r.Post("/logout", h.logout)

		r.Group(func(p chi.Router) {
			p.Use(custommw.RequireAdmin(deps.Gate, loginPath))

			p.Get("/", h.panel)

			p.Post("/content/save", h.saveContent)
			p.Post("/content/reset", h.resetContent)
			p.Get("/content/export", h.exportContent)
			p.Post("/content/import", h.importContent)
			p.Get("/content/json", h.contentJSON)

			p.Route("/collections/{kind}", func(c chi.Router) {
				c.Get("/new", h.collectionForm)
				c.Post("/new", h.collectionAdd)
				c.Get("/{index}/edit", h.collectionForm)
				c.Post("/{index}/edit", h.collectionEdit)
				c.Get("/{index}/delete", h.collectionConfirmDelete)
				c.Post("/{index}/delete", h.collectionDelete)
			})

			p.Get("/leads/export", h.exportLeads)
			p.Get("/leads/clear", h.confirmClearLeads)
			p.Post("/leads/clear", h.clearLeads)
			p.Get("/leads/{id}/delete", h.confirmDeleteLead)
			p.Post("/leads/{id}/delete", h.deleteLead)
		})
	})
}

func joinPath(base, suffix string) string {
	if base == "/" {
		return suffix
	}
	return base + suffix
}

var startTime = time.Now()

func healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// storeStatus maps a repository write error onto an HTTP status.
func storeStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case store.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
