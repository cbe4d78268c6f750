package services

import (
	"context"
	"errors"
	"strings"

	"cable-backend/internal/models"
)

type planStore interface {
	Create(ctx context.Context, p *models.Plan) error
	Get(ctx context.Context, id int) (*models.Plan, error)
	GetByName(ctx context.Context, name string) (*models.Plan, error)
	List(ctx context.Context, includeInactive bool) ([]*models.Plan, error)
	Update(ctx context.Context, p *models.Plan) error
	Delete(ctx context.Context, id int) error
}

// PlanService maintains the subscription plan catalogue. Reads are open to
// every authenticated user; mutations are admin only.
type PlanService struct {
	Repo planStore
}

func NewPlanService(repo planStore) *PlanService {
	return &PlanService{Repo: repo}
}

func (s *PlanService) CreatePlan(ctx context.Context, actor models.Actor, req *models.CreatePlanRequest) (*models.Plan, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	if req.Price <= 0 {
		return nil, errors.New("price must be greater than zero")
	}
	if req.ChannelCount < 0 {
		return nil, errors.New("channel_count cannot be negative")
	}

	plan := &models.Plan{
		Name:         name,
		Price:        req.Price,
		ChannelCount: req.ChannelCount,
	}
	if err := s.Repo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) GetPlan(ctx context.Context, id int) (*models.Plan, error) {
	return s.Repo.Get(ctx, id)
}

func (s *PlanService) ListPlans(ctx context.Context, actor models.Actor, includeInactive bool) ([]*models.Plan, error) {
	// The retired part of the catalogue is admin-only detail.
	if includeInactive && !actor.IsAdmin() {
		includeInactive = false
	}
	return s.Repo.List(ctx, includeInactive)
}

// UpdatePlan changes the catalogue entry only. Connections copied the plan
// name and price at assignment time and keep them until the next change.
func (s *PlanService) UpdatePlan(ctx context.Context, actor models.Actor, id int, req *models.UpdatePlanRequest) (*models.Plan, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	plan, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	if req.Price <= 0 {
		return nil, errors.New("price must be greater than zero")
	}
	if req.ChannelCount < 0 {
		return nil, errors.New("channel_count cannot be negative")
	}

	plan.Name = name
	plan.Price = req.Price
	plan.ChannelCount = req.ChannelCount
	plan.IsActive = req.IsActive
	if err := s.Repo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) DeletePlan(ctx context.Context, actor models.Actor, id int) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	return s.Repo.Delete(ctx, id)
}
