package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/learnflow/lms-service/internal/repositories"
)

type dashboardService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, logger *slog.Logger) DashboardService {
	return &dashboardService{repo: repo, logger: logger}
}

func (s *dashboardService) GetAdminStats(ctx context.Context) (*repositories.AdminStats, error) {
	stats, err := s.repo.Dashboard().GetAdminStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin stats: %w", err)
	}
	return stats, nil
}

func (s *dashboardService) GetUserStats(ctx context.Context, userID string) (*repositories.UserStats, error) {
	stats, err := s.repo.Dashboard().GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}
