package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/gateway-pay/internal/obs"
)

// RouterConfig collects the router collaborators.
type RouterConfig struct {
	Handler        *Handler
	RequestLogger  obs.RequestLogger
	AllowedOrigins []string
	// NotifyMiddleware guards the public notification endpoints (rate limit).
	NotifyMiddleware func(http.Handler) http.Handler
}

// NewRouter assembles the chi router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cfg.RequestLogger.Middleware)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/payments/{gateway}/fields", cfg.Handler.Fields)
		r.Group(func(r chi.Router) {
			if cfg.NotifyMiddleware != nil {
				r.Use(cfg.NotifyMiddleware)
			}
			r.Post("/notify/{gateway}", cfg.Handler.Notify)
		})
	})
	return r
}
