package services

import (
	"context"
	"time"

	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/repositories"
)

// StatsService serves the admin dashboard.
type StatsService struct {
	statsRepo repositories.IStatsRepository
	window    time.Duration
	nowFunc   func() time.Time
}

// NewStatsService creates a StatsService whose daily series covers window.
func NewStatsService(statsRepo repositories.IStatsRepository, window time.Duration) *StatsService {
	return &StatsService{statsRepo: statsRepo, window: window, nowFunc: time.Now}
}

func (s *StatsService) Dashboard(ctx context.Context, identity models.Identity) (*models.DashboardStats, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}
	since := models.DateOf(s.nowFunc().Add(-s.window))
	return s.statsRepo.Dashboard(ctx, since)
}
