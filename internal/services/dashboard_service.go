package services

import (
	"context"
	"encoding/json"

	"cable-backend/internal/cache"
	"cable-backend/internal/models"
)

type dashboardStore interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// DashboardService serves the landing page counters. The aggregate query
// touches every table, so results are cached in redis for five minutes and
// invalidated by payment and approval writes.
type DashboardService struct {
	Repo dashboardStore
}

func NewDashboardService(repo dashboardStore) *DashboardService {
	return &DashboardService{Repo: repo}
}

func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	if data, ok := cache.GetCachedDashboardStats(ctx); ok {
		var stats models.DashboardStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
	}

	stats, err := s.Repo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		cache.CacheDashboardStats(ctx, data)
	}
	return stats, nil
}
