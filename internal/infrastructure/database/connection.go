package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/config"
)

// ConnectionPool wraps a pgx pool with a circuit breaker and a periodic
// health check. Result-store writes are append-only, so a single primary
// pool is all the topology this system needs.
type ConnectionPool struct {
	pool    *pgxpool.Pool
	logger  *zap.Logger
	breaker *circuitBreaker

	healthCheckStop chan struct{}
	stopOnce        sync.Once
}

// NewConnectionPool connects to the database and starts the health check
// loop.
func NewConnectionPool(cfg *config.DatabaseConfig, logger *zap.Logger) (*ConnectionPool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cp := &ConnectionPool{
		pool:   pool,
		logger: logger,
		breaker: &circuitBreaker{
			threshold: 10,
			timeout:   30 * time.Second,
		},
		healthCheckStop: make(chan struct{}),
	}
	go cp.healthCheckRoutine()

	logger.Info("database connection pool established",
		zap.Int("max_conns", cfg.MaxOpenConns))
	return cp, nil
}

// Pool exposes the underlying pgx pool for repositories.
func (p *ConnectionPool) Pool() *pgxpool.Pool {
	return p.pool
}

// Ping checks connectivity, honoring the circuit breaker.
func (p *ConnectionPool) Ping(ctx context.Context) error {
	if !p.breaker.allow() {
		return fmt.Errorf("database circuit breaker open")
	}
	err := p.pool.Ping(ctx)
	p.breaker.record(err)
	return err
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error or panic.
func (p *ConnectionPool) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	if !p.breaker.allow() {
		return fmt.Errorf("database circuit breaker open")
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		p.breaker.record(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		p.breaker.record(err)
		return err
	}
	err = tx.Commit(ctx)
	p.breaker.record(err)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close stops the health check loop and closes the pool.
func (p *ConnectionPool) Close() {
	p.stopOnce.Do(func() { close(p.healthCheckStop) })
	p.pool.Close()
}

func (p *ConnectionPool) healthCheckRoutine() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := p.pool.Ping(ctx); err != nil {
				p.logger.Error("database health check failed", zap.Error(err))
				p.breaker.record(err)
			} else {
				p.breaker.record(nil)
			}
			cancel()
		case <-p.healthCheckStop:
			return
		}
	}
}

// circuitBreaker trips after threshold consecutive failures and half-opens
// after the timeout.
type circuitBreaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	threshold   int
	timeout     time.Duration
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.failures < cb.threshold {
		return true
	}
	// Open; allow a single probe after the timeout.
	return time.Since(cb.lastFailure) > cb.timeout
}

func (cb *circuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err == nil {
		cb.failures = 0
		return
	}
	cb.failures++
	cb.lastFailure = time.Now()
}
