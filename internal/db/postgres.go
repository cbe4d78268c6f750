package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cable-backend/internal/config"
)

func Connect(cfg *config.Config) *pgxpool.Pool {
	pool, err := ConnectWithRetry(context.Background(), cfg, 5)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	return pool
}

// ConnectWithRetry opens a pool and pings it, retrying with exponential
// backoff. The database is often still starting when the service comes up.
func ConnectWithRetry(ctx context.Context, cfg *config.Config, attempts int) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
	)

	delay := time.Second
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pool, err := pgxpool.New(ctx, dsn)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		log.Printf("[DB] Connect attempt %d/%d failed: %v", attempt, attempts, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempts, lastErr)
}
