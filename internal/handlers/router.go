package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
)

// RouteRegistrar adds one group's routes under its prefix.
type RouteRegistrar func(r chi.Router)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 60 * time.Second
)

// groups under /api/v1, mounted in this order. A group without routes answers 501.
var apiGroups = []string{"cart", "payment", "admin", "webhooks", "internal"}

type routeGroup struct {
	routes      RouteRegistrar
	middlewares []func(http.Handler) http.Handler
}

type routerConfig struct {
	middlewares  []func(http.Handler) http.Handler
	health       *HealthHandlers
	storeMode    string
	exposeErrors bool
	groups       map[string]*routeGroup
}

type Option func(*routerConfig)

// NewRouter builds the API: probes at the root, feature groups under /api/v1 and JSON
// envelopes for unknown routes and methods.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{middleware.RequestID, middleware.RealIP, middleware.Timeout(requestTimeout)},
		health:      NewHealthHandlers(),
		groups:      map[string]*routeGroup{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	if cfg.storeMode != "" {
		r.Use(storeModeMiddleware(cfg.storeMode))
	}
	if cfg.exposeErrors {
		r.Use(exposeErrorsMiddleware)
	}
	r.Use(cfg.middlewares...)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(httpx.CodeNotFound, "no route for "+req.URL.Path, http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(httpx.CodeMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		for _, name := range apiGroups {
			g := cfg.groups[name]
			if g == nil {
				g = &routeGroup{}
			}
			api.Route("/"+name, func(sub chi.Router) {
				sub.Use(g.middlewares...)
				if g.routes == nil {
					notImplemented(sub, name)
					return
				}
				g.routes(sub)
			})
		}
	})
	return r
}

func withGroup(name string, routes RouteRegistrar, mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		g := cfg.groups[name]
		if g == nil {
			g = &routeGroup{}
			cfg.groups[name] = g
		}
		if routes != nil {
			g.routes = routes
		}
		for _, m := range mw {
			if m != nil {
				g.middlewares = append(g.middlewares, m)
			}
		}
	}
}

// WithMiddlewares appends router-wide middleware after the request id, real ip and timeout layers.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		for _, m := range mw {
			if m != nil {
				cfg.middlewares = append(cfg.middlewares, m)
			}
		}
	}
}

func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		if h != nil {
			cfg.health = h
		}
	}
}

// WithStoreMode sets the X-Store-Mode header on every response and exposes the mode to
// handlers for the storeMode body field.
func WithStoreMode(mode string) Option {
	return func(cfg *routerConfig) { cfg.storeMode = mode }
}

// WithExposeErrors adds the internal cause to 5xx bodies. Local environments only.
func WithExposeErrors(expose bool) Option {
	return func(cfg *routerConfig) { cfg.exposeErrors = expose }
}

func WithCartRoutes(reg RouteRegistrar) Option    { return withGroup("cart", reg) }
func WithPaymentRoutes(reg RouteRegistrar) Option { return withGroup("payment", reg) }
func WithAdminRoutes(reg RouteRegistrar) Option   { return withGroup("admin", reg) }
func WithWebhookRoutes(reg RouteRegistrar) Option { return withGroup("webhooks", reg) }

// WithInternalRoutes mounts the partner-facing group. Pair it with WithInternalMiddlewares
// carrying the OIDC check.
func WithInternalRoutes(reg RouteRegistrar) Option { return withGroup("internal", reg) }

func WithWebhookMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return withGroup("webhooks", nil, mw...)
}

func WithInternalMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return withGroup("internal", nil, mw...)
}

func notImplemented(r chi.Router, name string) {
	reply := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(httpx.CodeNotImplemented, name+" routes not implemented", http.StatusNotImplemented))
	}
	r.HandleFunc("/", reply)
	r.HandleFunc("/*", reply)
}
