package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
)

type MockEventSource struct {
	mock.Mock
}

func (m *MockEventSource) FetchEvents(ctx context.Context, country string, start, end time.Time) ([]event.Record, error) {
	args := m.Called(ctx, country, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.Record), args.Error(1)
}

type MockArticleSource struct {
	mock.Mock
}

func (m *MockArticleSource) FetchArticles(ctx context.Context, country string) ([]event.Article, error) {
	args := m.Called(ctx, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.Article), args.Error(1)
}

type MockSentimentScorer struct {
	mock.Mock
}

func (m *MockSentimentScorer) Score(ctx context.Context, title string) (float64, error) {
	args := m.Called(ctx, title)
	return args.Get(0).(float64), args.Error(1)
}

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, articles []event.Article) (string, error) {
	args := m.Called(ctx, articles)
	return args.String(0), args.Error(1)
}

type MockRunStore struct {
	mock.Mock

	persistedRun      *analysis.Run
	persistedAlerts   []analysis.Alert
	persistedArticles []event.Article
}

func (m *MockRunStore) Persist(ctx context.Context, run *analysis.Run, alerts []analysis.Alert, articles []event.Article) error {
	m.persistedRun = run
	m.persistedAlerts = alerts
	m.persistedArticles = articles
	args := m.Called(ctx, run, alerts, articles)
	return args.Error(0)
}

type MockMetricsCollector struct {
	mock.Mock
}

func (m *MockMetricsCollector) RecordRun(country string, status analysis.RunStatus, duration time.Duration) {
	m.Called(country, status, duration)
}

func (m *MockMetricsCollector) RecordAnomalies(country string, source analysis.AlertSource, count int) {
	m.Called(country, source, count)
}
