package services

import (
	"context"
	"errors"
	"strings"

	"cable-backend/internal/models"
)

type vcStore interface {
	Create(ctx context.Context, item *models.VCInventoryItem) error
	Get(ctx context.Context, id int) (*models.VCInventoryItem, error)
	GetByNumber(ctx context.Context, vcNumber string) (*models.VCInventoryItem, error)
	List(ctx context.Context, filter models.VCFilter) ([]*models.VCInventoryItem, error)
	ChangeStatus(ctx context.Context, id int, status models.VCStatus, changedBy int, reason string, expectedVersion int) error
	Reassign(ctx context.Context, id int, customerID int, customerName string, changedBy int, expectedVersion int) error
	Release(ctx context.Context, id int, changedBy int, reason string, expectedVersion int) error
	UpdatePackage(ctx context.Context, id int, packageID *int, packageName string, packageAmount float64, expectedVersion int) error
	Delete(ctx context.Context, id int) error
	StatusCounts(ctx context.Context) (map[string]int, error)
}

// VCInventoryService manages the operator's card stock. Mutations are admin
// only; employees propose changes through action requests instead.
type VCInventoryService struct {
	Repo vcStore
}

func NewVCInventoryService(repo vcStore) *VCInventoryService {
	return &VCInventoryService{Repo: repo}
}

func (s *VCInventoryService) CreateItem(ctx context.Context, actor models.Actor, req *models.CreateVCItemRequest) (*models.VCInventoryItem, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	vc := strings.TrimSpace(req.VCNumber)
	if vc == "" {
		return nil, errors.New("vc_number is required")
	}

	item := &models.VCInventoryItem{
		VCNumber:      vc,
		PackageID:     req.PackageID,
		PackageName:   strings.TrimSpace(req.PackageName),
		PackageAmount: req.PackageAmount,
		Status:        models.VCStatusAvailable,
	}
	if err := s.Repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *VCInventoryService) GetItem(ctx context.Context, id int) (*models.VCInventoryItem, error) {
	return s.Repo.Get(ctx, id)
}

func (s *VCInventoryService) GetByNumber(ctx context.Context, vcNumber string) (*models.VCInventoryItem, error) {
	if strings.TrimSpace(vcNumber) == "" {
		return nil, errors.New("vc_number is required")
	}
	return s.Repo.GetByNumber(ctx, vcNumber)
}

func (s *VCInventoryService) ListItems(ctx context.Context, filter models.VCFilter) ([]*models.VCInventoryItem, error) {
	if filter.Status != "" {
		if _, err := models.ParseVCStatus(filter.Status); err != nil {
			return nil, err
		}
	}
	return s.Repo.List(ctx, filter)
}

// ChangeStatus appends to the status trail and sets the current status.
// Re-asserting the current status is allowed.
func (s *VCInventoryService) ChangeStatus(ctx context.Context, actor models.Actor, id int, req *models.ChangeVCStatusRequest) (*models.VCInventoryItem, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	status, err := models.ParseVCStatus(req.Status)
	if err != nil {
		return nil, err
	}

	item, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.ChangeStatus(ctx, id, status, actor.UserID, strings.TrimSpace(req.Reason), item.Version); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

// Reassign moves the VC to another customer. Reassigning to the current
// owner is rejected.
func (s *VCInventoryService) Reassign(ctx context.Context, actor models.Actor, id int, req *models.ReassignVCRequest) (*models.VCInventoryItem, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if req.CustomerID <= 0 {
		return nil, errors.New("customer_id is required")
	}

	item, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.CustomerID != nil && *item.CustomerID == req.CustomerID {
		return nil, errors.New("VC is already assigned to this customer")
	}

	if err := s.Repo.Reassign(ctx, id, req.CustomerID, req.CustomerName, actor.UserID, item.Version); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

// Release returns the VC to stock, closing its open ownership entry.
func (s *VCInventoryService) Release(ctx context.Context, actor models.Actor, id int, reason string) (*models.VCInventoryItem, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}

	item, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.CustomerID == nil {
		return nil, errors.New("VC is not assigned to a customer")
	}

	if reason == "" {
		reason = "released to stock"
	}
	if err := s.Repo.Release(ctx, id, actor.UserID, reason, item.Version); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

func (s *VCInventoryService) UpdatePackage(ctx context.Context, actor models.Actor, id int, req *models.UpdateVCPackageRequest) (*models.VCInventoryItem, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}

	item, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.UpdatePackage(ctx, id, req.PackageID, strings.TrimSpace(req.PackageName), req.PackageAmount, item.Version); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

// DeleteItem removes a VC from stock. Owned VCs cannot be deleted.
func (s *VCInventoryService) DeleteItem(ctx context.Context, actor models.Actor, id int) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}

	item, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.CustomerID != nil {
		return errors.New("VC is assigned to a customer, release it first")
	}
	return s.Repo.Delete(ctx, id)
}

func (s *VCInventoryService) StatusCounts(ctx context.Context) (map[string]int, error) {
	return s.Repo.StatusCounts(ctx)
}
