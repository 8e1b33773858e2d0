package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/errors"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/metrics"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/repository"
)

// Pinger reports whether a dependency is reachable. The database pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AnalysisTrigger runs an on-demand analysis for one country. The scheduler
// satisfies it, so manual triggers share its serialization with scheduled
// batches.
type AnalysisTrigger interface {
	RunNow(ctx context.Context, country string) (*analysis.Run, error)
}

// Handler serves the query API over the persisted runs and exposes the
// manual analyze trigger.
type Handler struct {
	repo      repository.RunRepository
	runner    AnalysisTrigger
	countries []string
	db        Pinger
	logger    *slog.Logger
}

// NewHandler wires the API handlers. countries is the configured watch list
// used by the all-countries view and to validate analyze requests.
func NewHandler(repo repository.RunRepository, runner AnalysisTrigger, countries []string, db Pinger, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, runner: runner, countries: countries, db: db, logger: logger}
}

// Routes registers all endpoints on a fresh mux. The auth middleware guards
// only the mutating analyze route.
func (h *Handler) Routes(jwtSecret string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /readyz", h.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/results", h.handleAllResults)
	mux.HandleFunc("GET /api/v1/results/{country}", h.handleCountryResult)
	mux.HandleFunc("GET /api/v1/results/{country}/history", h.handleCountryHistory)
	mux.HandleFunc("GET /api/v1/alerts/{country}", h.handleCountryAlerts)
	mux.Handle("POST /api/v1/analyze/{country}",
		authMiddleware(jwtSecret)(http.HandlerFunc(h.handleAnalyze)))

	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleAllResults returns the latest run per configured country. Countries
// never analyzed are absent from the map rather than null entries.
func (h *Handler) handleAllResults(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repo.LatestAll(r.Context(), h.countries)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing latest runs", "error", err)
		writeError(w, err)
		return
	}

	results := make(map[string]runResponse, len(runs))
	for country, run := range runs {
		results[country] = toRunResponse(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleCountryResult(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")

	run, err := h.repo.Latest(r.Context(), country)
	if err != nil {
		if !repository.IsNotFound(err) {
			h.logger.ErrorContext(r.Context(), "loading latest run", "country", country, "error", err)
		}
		writeError(w, mapRepoError(err, "analysis run"))
		return
	}

	resp := toRunResponse(run)
	if run.ArticleCount != nil && *run.ArticleCount > 0 {
		articles, err := h.repo.ArticlesForRun(r.Context(), run.ID)
		if err != nil {
			h.logger.WarnContext(r.Context(), "loading run articles", "country", country, "error", err)
		} else {
			resp.Articles = articles
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCountryHistory(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")

	runs, err := h.repo.History(r.Context(), country, limitParam(r, 20))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "loading run history", "country", country, "error", err)
		writeError(w, err)
		return
	}

	history := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		history = append(history, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"country": country,
		"runs":    history,
	})
}

func (h *Handler) handleCountryAlerts(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")

	alerts, err := h.repo.AlertsForCountry(r.Context(), country, limitParam(r, 50))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "loading alerts", "country", country, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"country": country,
		"alerts":  toAlertResponses(alerts),
	})
}

// handleAnalyze runs the pipeline synchronously for one watched country.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")
	if !h.watched(country) {
		writeError(w, errors.ErrCountryNotFound)
		return
	}

	run, err := h.runner.RunNow(r.Context(), country)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "manual analyze failed", "country", country, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRunResponse(run))
}

func (h *Handler) watched(country string) bool {
	for _, c := range h.countries {
		if c == country {
			return true
		}
	}
	return false
}

// limitParam reads a positive ?limit= value, falling back to a default and
// capping runaway requests.
func limitParam(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > 500 {
		return 500
	}
	return n
}

func mapRepoError(err error, resource string) error {
	if repository.IsNotFound(err) {
		return errors.NewNotFoundError(resource)
	}
	return err
}
