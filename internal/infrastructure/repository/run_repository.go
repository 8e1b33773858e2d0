package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/database"
)

// runRepository implements RunRepository on PostgreSQL.
type runRepository struct {
	db *database.ConnectionPool
}

// NewRunRepository creates the PostgreSQL result store.
func NewRunRepository(db *database.ConnectionPool) RunRepository {
	return &runRepository{db: db}
}

const runColumns = `id, country, run_at, status, has_data, totals, latest_bucket, trend_pct, recent_alerts, sentiment, article_count`

func (r *runRepository) Persist(ctx context.Context, run *analysis.Run, alerts []analysis.Alert, articles []event.Article) error {
	totals, err := json.Marshal(run.Totals)
	if err != nil {
		return fmt.Errorf("failed to marshal totals: %w", err)
	}
	trend, err := json.Marshal(run.TrendPct)
	if err != nil {
		return fmt.Errorf("failed to marshal trend: %w", err)
	}
	recentAlerts, err := json.Marshal(run.RecentAlerts)
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}
	var latestBucket, sentiment []byte
	if run.LatestBucket != nil {
		if latestBucket, err = json.Marshal(run.LatestBucket); err != nil {
			return fmt.Errorf("failed to marshal latest bucket: %w", err)
		}
	}
	if run.Sentiment != nil {
		if sentiment, err = json.Marshal(run.Sentiment); err != nil {
			return fmt.Errorf("failed to marshal sentiment: %w", err)
		}
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO analysis_runs (`+runColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			run.ID, run.Country, run.RunAt, run.Status.String(), run.HasData,
			totals, latestBucket, trend, recentAlerts, sentiment, run.ArticleCount,
		)
		if err != nil {
			return WrapRepositoryError(fmt.Errorf("failed to insert run: %w", err))
		}

		for _, a := range alerts {
			_, err := tx.Exec(ctx, `
				INSERT INTO alerts (id, run_id, country, run_at, source, metric, text)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				a.ID, a.RunID, a.Country, a.RunAt, string(a.Source), a.Metric, a.Text,
			)
			if err != nil {
				return WrapRepositoryError(fmt.Errorf("failed to insert alert: %w", err))
			}
		}

		for _, art := range articles {
			_, err := tx.Exec(ctx, `
				INSERT INTO articles (run_id, title, snippet, link, published_at, score)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				run.ID, art.Title, art.Snippet, art.Link, art.PublishedAt, art.Score,
			)
			if err != nil {
				return WrapRepositoryError(fmt.Errorf("failed to insert article: %w", err))
			}
		}
		return nil
	})
}

func (r *runRepository) Latest(ctx context.Context, country string) (*analysis.Run, error) {
	row := r.db.Pool().QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM analysis_runs
		WHERE country = $1
		ORDER BY run_at DESC
		LIMIT 1`, country)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return run, nil
}

func (r *runRepository) LatestAll(ctx context.Context, countries []string) (map[string]*analysis.Run, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT DISTINCT ON (country) `+runColumns+`
		FROM analysis_runs
		WHERE country = ANY($1)
		ORDER BY country, run_at DESC`, countries)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest runs: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*analysis.Run, len(countries))
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		result[run.Country] = run
	}
	return result, rows.Err()
}

func (r *runRepository) History(ctx context.Context, country string, limit int) ([]*analysis.Run, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT `+runColumns+`
		FROM analysis_runs
		WHERE country = $1
		ORDER BY run_at DESC
		LIMIT $2`, country, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var runs []*analysis.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *runRepository) AlertsForCountry(ctx context.Context, country string, limit int) ([]analysis.Alert, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, run_id, country, run_at, source, metric, text
		FROM alerts
		WHERE country = $1
		ORDER BY run_at DESC, id
		LIMIT $2`, country, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []analysis.Alert
	for rows.Next() {
		var a analysis.Alert
		var source string
		if err := rows.Scan(&a.ID, &a.RunID, &a.Country, &a.RunAt, &source, &a.Metric, &a.Text); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Source = analysis.AlertSource(source)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *runRepository) ArticlesForRun(ctx context.Context, runID uuid.UUID) ([]event.Article, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT title, snippet, link, published_at, score
		FROM articles
		WHERE run_id = $1
		ORDER BY score ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []event.Article
	for rows.Next() {
		var a event.Article
		if err := rows.Scan(&a.Title, &a.Snippet, &a.Link, &a.PublishedAt, &a.Score); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// scanRun reads one run row. The jsonb columns and article_count tolerate
// NULL so that rows written by older schema versions still read cleanly.
func scanRun(row pgx.Row) (*analysis.Run, error) {
	var (
		run          analysis.Run
		status       string
		totals       []byte
		latestBucket []byte
		trend        []byte
		recentAlerts []byte
		sentiment    []byte
	)
	err := row.Scan(&run.ID, &run.Country, &run.RunAt, &status, &run.HasData,
		&totals, &latestBucket, &trend, &recentAlerts, &sentiment, &run.ArticleCount)
	if err != nil {
		return nil, err
	}

	run.Status, err = analysis.ParseRunStatus(status)
	if err != nil {
		return nil, err
	}

	run.Totals = map[string]float64{}
	if len(totals) > 0 {
		if err := json.Unmarshal(totals, &run.Totals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal totals: %w", err)
		}
	}
	run.TrendPct = map[string]int{}
	if len(trend) > 0 {
		if err := json.Unmarshal(trend, &run.TrendPct); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trend: %w", err)
		}
	}
	run.RecentAlerts = []string{}
	if len(recentAlerts) > 0 {
		if err := json.Unmarshal(recentAlerts, &run.RecentAlerts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recent alerts: %w", err)
		}
	}
	if len(latestBucket) > 0 {
		run.LatestBucket = &analysis.Bucket{}
		if err := json.Unmarshal(latestBucket, run.LatestBucket); err != nil {
			return nil, fmt.Errorf("failed to unmarshal latest bucket: %w", err)
		}
	}
	if len(sentiment) > 0 {
		run.Sentiment = &analysis.SentimentStats{}
		if err := json.Unmarshal(sentiment, run.Sentiment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sentiment: %w", err)
		}
	}
	return &run, nil
}
