package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
)

// RunRepository is the result store: append-only run history with its alerts
// and scored articles. "Latest" always means maximum run_at per country.
type RunRepository interface {
	// Persist inserts a run with its alerts and articles in one
	// transaction. Runs are never updated in place.
	Persist(ctx context.Context, run *analysis.Run, alerts []analysis.Alert, articles []event.Article) error

	// Latest returns the most recent run for a country, or ErrNotFound
	// when the country has never been analyzed.
	Latest(ctx context.Context, country string) (*analysis.Run, error)

	// LatestAll returns the most recent run per country. Countries with no
	// runs are absent from the result, not an error.
	LatestAll(ctx context.Context, countries []string) (map[string]*analysis.Run, error)

	// History returns up to limit runs for a country, newest first.
	History(ctx context.Context, country string, limit int) ([]*analysis.Run, error)

	// AlertsForCountry returns up to limit alerts, newest run first.
	AlertsForCountry(ctx context.Context, country string, limit int) ([]analysis.Alert, error)

	// ArticlesForRun returns a run's articles ordered most negative first.
	ArticlesForRun(ctx context.Context, runID uuid.UUID) ([]event.Article, error)
}
