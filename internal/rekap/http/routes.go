package rekaphttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/shared"
)

// MountRoutes registers the dashboard pages and exports. Callers put the
// routes behind the session gate.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/", h.handleRekap)
	r.Get("/rekap/anggaran", h.handleAnggaran)
	r.Get("/rekap/kuadran", h.handleKuadran)
	r.Get("/rekap/konversi", h.handleKonversi)
	r.Get("/rekap/kantor/{seq}", h.handleKantor)
	r.Post("/rekap/refresh", h.handleRefresh)
	r.Group(func(gr chi.Router) {
		gr.Use(exportLimiter())
		gr.Get("/rekap/export.csv", h.handleCSV)
		gr.Get("/rekap/export.xlsx", h.handleXLSX)
		gr.Get("/rekap/export.pdf", h.handlePDF)
	})
}

// MountAPI registers the JSON endpoints under the router it is given.
func (h *Handler) MountAPI(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/tables", h.apiTables)
	r.Get("/rekap", h.apiRekap)
	r.Get("/rekap/kantor/{seq}", h.apiKantor)
	r.Post("/rekap/refresh", h.apiRefresh)
}

// exportLimiter caps exports at 10 per minute per user since each one may
// trigger a full fetch of every office.
func exportLimiter() func(http.Handler) http.Handler {
	return httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
}

func rateLimitKey(r *http.Request) (string, error) {
	if user := strings.TrimSpace(shared.UserFromContext(r.Context())); user != "" {
		return "user:" + user, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
