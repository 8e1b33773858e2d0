package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/errors"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
)

// weeklyFigures is the latest-bucket snapshot surfaced to clients. When a
// stored run predates the latest-bucket column the figures are estimated
// from the yearly totals instead of omitted.
type weeklyFigures struct {
	Events     float64 `json:"events"`
	Fatalities float64 `json:"fatalities"`
	Estimated  bool    `json:"estimated"`
}

type runResponse struct {
	ID            uuid.UUID                `json:"id"`
	Country       string                   `json:"country"`
	RunAt         time.Time                `json:"run_at"`
	Status        string                   `json:"status"`
	HasData       bool                     `json:"has_data"`
	Totals        map[string]float64       `json:"totals"`
	WeeklyFigures *weeklyFigures           `json:"weekly_figures,omitempty"`
	TrendPct      map[string]int           `json:"trend_pct"`
	RecentAlerts  []string                 `json:"recent_alerts"`
	Sentiment     *analysis.SentimentStats `json:"sentiment,omitempty"`
	ArticleCount  *int                     `json:"article_count,omitempty"`
	Articles      []event.Article          `json:"articles,omitempty"`
}

type alertResponse struct {
	ID      uuid.UUID `json:"id"`
	RunID   uuid.UUID `json:"run_id"`
	Country string    `json:"country"`
	RunAt   time.Time `json:"run_at"`
	Source  string    `json:"source"`
	Metric  string    `json:"metric"`
	Text    string    `json:"text"`
}

func toRunResponse(run *analysis.Run) runResponse {
	return runResponse{
		ID:            run.ID,
		Country:       run.Country,
		RunAt:         run.RunAt,
		Status:        run.Status.String(),
		HasData:       run.HasData,
		Totals:        run.Totals,
		WeeklyFigures: figuresFor(run),
		TrendPct:      run.TrendPct,
		RecentAlerts:  run.RecentAlerts,
		Sentiment:     run.Sentiment,
		ArticleCount:  run.ArticleCount,
	}
}

// figuresFor prefers the stored latest bucket and falls back to totals/52 for
// runs persisted before that column existed.
func figuresFor(run *analysis.Run) *weeklyFigures {
	if run.LatestBucket != nil {
		return &weeklyFigures{
			Events:     run.LatestBucket.Values[event.MetricEvents],
			Fatalities: run.LatestBucket.Values[event.MetricFatalities],
		}
	}
	if !run.HasData || len(run.Totals) == 0 {
		return nil
	}
	return &weeklyFigures{
		Events:     run.Totals[event.MetricEvents] / 52,
		Fatalities: run.Totals[event.MetricFatalities] / 52,
		Estimated:  true,
	}
}

func toAlertResponses(alerts []analysis.Alert) []alertResponse {
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertResponse{
			ID:      a.ID,
			RunID:   a.RunID,
			Country: a.Country,
			RunAt:   a.RunAt,
			Source:  string(a.Source),
			Metric:  a.Metric,
			Text:    a.Text,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	appErr := errors.FromError(err)
	writeJSON(w, appErr.StatusCode, map[string]any{"error": map[string]any{
		"code":    appErr.Code,
		"message": appErr.Message,
	}})
}
