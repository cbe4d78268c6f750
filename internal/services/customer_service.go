package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cable-backend/internal/models"
	"cable-backend/internal/timeutil"
)

// customerStore is the slice of the customer repository the service needs.
type customerStore interface {
	Create(ctx context.Context, c *models.Customer, actorID int) error
	Get(ctx context.Context, id int) (*models.Customer, error)
	GetByVC(ctx context.Context, vcNumber string) (*models.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*models.Customer, error)
	List(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error)
	Update(ctx context.Context, c *models.Customer, expectedVersion int, actorID int) error
	Delete(ctx context.Context, id int, actorID int) error
	Areas(ctx context.Context) ([]string, error)
}

type CustomerService struct {
	Repo customerStore
}

func NewCustomerService(repo customerStore) *CustomerService {
	return &CustomerService{Repo: repo}
}

func buildConnections(inputs []*models.ConnectionInput) ([]*models.Connection, error) {
	seen := make(map[string]bool, len(inputs))
	conns := make([]*models.Connection, 0, len(inputs))
	for i, in := range inputs {
		vc := strings.TrimSpace(in.VCNumber)
		if vc == "" {
			return nil, fmt.Errorf("connection %d: vc_number is required", i+1)
		}
		if seen[vc] {
			return nil, fmt.Errorf("connection %d: duplicate vc_number %s", i+1, vc)
		}
		seen[vc] = true

		status := models.StatusActive
		if in.Status != "" {
			parsed, err := models.ParseCustomerStatus(in.Status)
			if err != nil {
				return nil, fmt.Errorf("connection %d: %w", i+1, err)
			}
			status = parsed
		}

		conns = append(conns, &models.Connection{
			ID:                  in.ID,
			VCNumber:            vc,
			PlanName:            strings.TrimSpace(in.PlanName),
			PlanPrice:           in.PlanPrice,
			CustomPlanName:      strings.TrimSpace(in.CustomPlanName),
			CustomPlanPrice:     in.CustomPlanPrice,
			Status:              status,
			PreviousOutstanding: in.PreviousOutstanding,
			CurrentOutstanding:  in.CurrentOutstanding,
			IsPrimary:           in.IsPrimary,
		})
	}
	return conns, nil
}

func (s *CustomerService) CreateCustomer(ctx context.Context, actor models.Actor, req *models.CreateCustomerRequest) (*models.Customer, error) {
	if req.Name == "" || req.Phone == "" || req.Area == "" {
		return nil, errors.New("name, phone and area are required")
	}
	if !actor.CanAccessArea(req.Area) {
		return nil, models.ErrForbidden
	}

	status := models.StatusActive
	if req.Status != "" {
		parsed, err := models.ParseCustomerStatus(req.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	billDueDay := req.BillDueDay
	if billDueDay == 0 {
		billDueDay = 1
	}
	if billDueDay < 1 || billDueDay > 31 {
		return nil, errors.New("bill_due_day must be between 1 and 31")
	}

	joinDate := timeutil.Now()
	if req.JoinDate != "" {
		parsed, err := timeutil.ParseInIST(timeutil.DateLayout, req.JoinDate)
		if err != nil {
			return nil, fmt.Errorf("invalid join_date, expected YYYY-MM-DD: %w", err)
		}
		joinDate = parsed
	}

	conns, err := buildConnections(req.Connections)
	if err != nil {
		return nil, err
	}

	customer := &models.Customer{
		Name:        strings.TrimSpace(req.Name),
		Phone:       strings.TrimSpace(req.Phone),
		Address:     req.Address,
		Area:        req.Area,
		JoinDate:    joinDate,
		BillDueDay:  billDueDay,
		Status:      status,
		Connections: conns,
	}
	models.NormalizeConnections(customer.Connections)
	models.DeriveLegacyFields(customer)

	if err := s.Repo.Create(ctx, customer, actor.UserID); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, actor models.Actor, id int) (*models.Customer, error) {
	customer, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessArea(customer.Area) {
		return nil, models.ErrForbidden
	}
	return customer, nil
}

func (s *CustomerService) SearchByVC(ctx context.Context, actor models.Actor, vcNumber string) (*models.Customer, error) {
	if vcNumber == "" {
		return nil, errors.New("vc_number is required")
	}
	customer, err := s.Repo.GetByVC(ctx, vcNumber)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessArea(customer.Area) {
		return nil, models.ErrForbidden
	}
	return customer, nil
}

func (s *CustomerService) SearchByPhone(ctx context.Context, actor models.Actor, phone string) (*models.Customer, error) {
	if phone == "" {
		return nil, errors.New("phone number is required")
	}
	customer, err := s.Repo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessArea(customer.Area) {
		return nil, models.ErrForbidden
	}
	return customer, nil
}

// ListCustomers scopes employees to their assigned areas; admins see all.
func (s *CustomerService) ListCustomers(ctx context.Context, actor models.Actor, filter models.CustomerFilter) ([]*models.Customer, error) {
	if !actor.IsAdmin() {
		filter.Areas = actor.Areas
		if len(filter.Areas) == 0 {
			return []*models.Customer{}, nil
		}
		if filter.Area != "" && !actor.CanAccessArea(filter.Area) {
			return nil, models.ErrForbidden
		}
	}
	return s.Repo.List(ctx, filter)
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, actor models.Actor, id int, req *models.UpdateCustomerRequest) (*models.Customer, error) {
	if req.Name == "" || req.Phone == "" || req.Area == "" {
		return nil, errors.New("name, phone and area are required")
	}

	existing, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// The actor must be allowed in both the old and the new area.
	if !actor.CanAccessArea(existing.Area) || !actor.CanAccessArea(req.Area) {
		return nil, models.ErrForbidden
	}

	status := existing.Status
	if req.Status != "" {
		parsed, err := models.ParseCustomerStatus(req.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	billDueDay := req.BillDueDay
	if billDueDay == 0 {
		billDueDay = existing.BillDueDay
	}
	if billDueDay < 1 || billDueDay > 31 {
		return nil, errors.New("bill_due_day must be between 1 and 31")
	}

	conns, err := buildConnections(req.Connections)
	if err != nil {
		return nil, err
	}

	customer := &models.Customer{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Phone:       strings.TrimSpace(req.Phone),
		Address:     req.Address,
		Area:        req.Area,
		JoinDate:    existing.JoinDate,
		BillDueDay:  billDueDay,
		Status:      status,
		Connections: conns,
	}
	models.NormalizeConnections(customer.Connections)
	models.DeriveLegacyFields(customer)

	if err := s.Repo.Update(ctx, customer, req.Version, actor.UserID); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

// DeleteCustomer removes a customer and their connections. Admin only.
func (s *CustomerService) DeleteCustomer(ctx context.Context, actor models.Actor, id int) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	return s.Repo.Delete(ctx, id, actor.UserID)
}

// ListAreas returns the distinct collection areas in use.
func (s *CustomerService) ListAreas(ctx context.Context, actor models.Actor) ([]string, error) {
	areas, err := s.Repo.Areas(ctx)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return areas, nil
	}
	var scoped []string
	for _, a := range areas {
		if actor.CanAccessArea(a) {
			scoped = append(scoped, a)
		}
	}
	return scoped, nil
}
