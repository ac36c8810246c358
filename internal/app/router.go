package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	auth "github.com/iwkbu-monitor/iwkbu-monitor/internal/auth"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/observability"
	rekaphttp "github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap/http"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/shared"
	"github.com/iwkbu-monitor/iwkbu-monitor/jobs"
	"github.com/iwkbu-monitor/iwkbu-monitor/report"
	"github.com/iwkbu-monitor/iwkbu-monitor/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Tokens         *shared.TokenIssuer
	AuthHandler    *auth.Handler
	RekapHandler   *rekaphttp.Handler
	ReportHandler  *report.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the dashboard defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Tokens:         params.Tokens,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(RedirectAuthenticated)
		params.AuthHandler.MountRoutes(r)
	})

	r.Route("/api", func(r chi.Router) {
		params.AuthHandler.MountAPI(r)
		r.Group(func(r chi.Router) {
			r.Use(RequireAPIUser)
			params.RekapHandler.MountAPI(r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		params.RekapHandler.MountRoutes(r)
		if params.ReportHandler != nil {
			r.Route("/report", params.ReportHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers keep the stylesheet for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
