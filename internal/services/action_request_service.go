package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"

	"cable-backend/internal/metrics"
	"cable-backend/internal/models"
)

type actionRequestStore interface {
	Create(ctx context.Context, ar *models.ActionRequest) error
	Get(ctx context.Context, id int) (*models.ActionRequest, error)
	List(ctx context.Context, filter models.ActionRequestFilter) ([]*models.ActionRequest, error)
	PendingCount(ctx context.Context) (int, error)
	HasPendingForVC(ctx context.Context, customerID int, vcNumber string) (bool, error)
	Reject(ctx context.Context, id int, adminID int, notes string) error
	ApproveWithEffect(ctx context.Context, id int, adminID int, notes string, effect *models.ApprovalEffect) error
}

type requestCustomerStore interface {
	Get(ctx context.Context, id int) (*models.Customer, error)
}

type requestPlanStore interface {
	GetByName(ctx context.Context, name string) (*models.Plan, error)
}

type requestUserStore interface {
	Get(ctx context.Context, id int) (*models.User, error)
}

// ActionRequestService drives the submit/approve/reject workflow. Approvals
// compute the concrete connection change here and hand it to the repository,
// which applies it atomically with the status flip.
type ActionRequestService struct {
	Repo      actionRequestStore
	Customers requestCustomerStore
	Plans     requestPlanStore
	Users     requestUserStore

	validateTOTP func(passcode, secret string) bool
}

func NewActionRequestService(repo actionRequestStore, customers requestCustomerStore, plans requestPlanStore, users requestUserStore) *ActionRequestService {
	return &ActionRequestService{
		Repo:         repo,
		Customers:    customers,
		Plans:        plans,
		Users:        users,
		validateTOTP: totp.Validate,
	}
}

// Submit raises a new pending request against a customer's VC.
func (s *ActionRequestService) Submit(ctx context.Context, actor models.Actor, req *models.SubmitActionRequestRequest) (*models.ActionRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	customer, err := s.Customers.Get(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessArea(customer.Area) {
		return nil, models.ErrForbidden
	}

	conn := customer.ConnectionByVC(req.VCNumber)
	if conn == nil {
		return nil, fmt.Errorf("VC %s does not belong to customer %d", req.VCNumber, req.CustomerID)
	}

	actionType, _ := models.ParseActionType(req.ActionType)
	switch actionType {
	case models.ActionTypeActivation:
		if conn.Status == models.StatusActive {
			return nil, errors.New("connection is already active")
		}
	case models.ActionTypeDeactivation:
		if conn.Status == models.StatusInactive {
			return nil, errors.New("connection is already inactive")
		}
	case models.ActionTypePlanChange:
		plan, err := s.Plans.GetByName(ctx, req.RequestedPlan)
		if err != nil {
			return nil, errors.New("requested plan does not exist")
		}
		if plan.Name == conn.EffectivePlanName() {
			return nil, errors.New("customer is already on the requested plan")
		}
	}

	pending, err := s.Repo.HasPendingForVC(ctx, req.CustomerID, req.VCNumber)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, errors.New("a pending request already exists for this VC")
	}

	ar := &models.ActionRequest{
		CustomerID:    req.CustomerID,
		CustomerName:  customer.Name,
		VCNumber:      req.VCNumber,
		RequestedBy:   actor.UserID,
		ActionType:    actionType,
		CurrentStatus: string(conn.Status),
		CurrentPlan:   conn.EffectivePlanName(),
		RequestedPlan: strings.TrimSpace(req.RequestedPlan),
		Reason:        strings.TrimSpace(req.Reason),
	}
	if err := s.Repo.Create(ctx, ar); err != nil {
		return nil, err
	}

	metrics.ActionRequestsSubmitted.Inc()
	return ar, nil
}

// checkResolvePermission gates resolutions: admin role, and a valid TOTP code
// when the admin has 2FA enabled.
func (s *ActionRequestService) checkResolvePermission(ctx context.Context, actor models.Actor, totpCode string) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	admin, err := s.Users.Get(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if admin.TOTPEnabled {
		if totpCode == "" {
			return errors.New("totp_code is required")
		}
		if !s.validateTOTP(totpCode, admin.TOTPSecret) {
			return errors.New("invalid TOTP code")
		}
	}
	return nil
}

// Approve resolves a pending request and applies its effect to the target
// connection in one transaction. A missing target fails the approval and the
// request stays pending.
func (s *ActionRequestService) Approve(ctx context.Context, actor models.Actor, id int, req *models.ResolveActionRequestRequest) (*models.ActionRequest, error) {
	if err := s.checkResolvePermission(ctx, actor, req.TOTPCode); err != nil {
		return nil, err
	}

	ar, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ar.Status != models.ActionRequestStatusPending {
		return nil, models.ErrNotPending
	}

	effect, err := s.computeEffect(ctx, ar)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.ApproveWithEffect(ctx, id, actor.UserID, strings.TrimSpace(req.AdminNotes), effect); err != nil {
		return nil, err
	}

	metrics.ActionRequestsResolved.WithLabelValues("approved").Inc()
	return s.Repo.Get(ctx, id)
}

// Reject resolves a pending request without side effects. A rejection reason
// is mandatory.
func (s *ActionRequestService) Reject(ctx context.Context, actor models.Actor, id int, req *models.ResolveActionRequestRequest) (*models.ActionRequest, error) {
	if err := s.checkResolvePermission(ctx, actor, req.TOTPCode); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.AdminNotes) == "" {
		return nil, errors.New("admin_notes is required when rejecting a request")
	}

	if err := s.Repo.Reject(ctx, id, actor.UserID, strings.TrimSpace(req.AdminNotes)); err != nil {
		return nil, err
	}

	metrics.ActionRequestsResolved.WithLabelValues("rejected").Inc()
	return s.Repo.Get(ctx, id)
}

// computeEffect resolves the approval's concrete change against current
// state. Plan prices are looked up at approval time, not submission time.
func (s *ActionRequestService) computeEffect(ctx context.Context, ar *models.ActionRequest) (*models.ApprovalEffect, error) {
	customer, err := s.Customers.Get(ctx, ar.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("approval target customer %d: %w", ar.CustomerID, err)
	}
	conn := customer.ConnectionByVC(ar.VCNumber)
	if conn == nil {
		return nil, fmt.Errorf("approval target VC %s on customer %d: %w", ar.VCNumber, ar.CustomerID, models.ErrNotFound)
	}

	effect := &models.ApprovalEffect{
		ConnectionID:  conn.ID,
		CustomerID:    customer.ID,
		VCNumber:      ar.VCNumber,
		HistoryReason: fmt.Sprintf("%s approved (request #%d)", ar.ActionType, ar.ID),
	}

	switch ar.ActionType {
	case models.ActionTypeActivation:
		effect.NewStatus = models.StatusActive
	case models.ActionTypeDeactivation:
		effect.NewStatus = models.StatusInactive
	case models.ActionTypePlanChange:
		plan, err := s.Plans.GetByName(ctx, ar.RequestedPlan)
		if err != nil {
			return nil, fmt.Errorf("requested plan %q: %w", ar.RequestedPlan, models.ErrNotFound)
		}
		effect.NewPlanName = plan.Name
		effect.NewPlanPrice = plan.Price
		effect.OldPlanName = conn.EffectivePlanName()
		effect.OldPlanPrice = conn.EffectivePlanPrice()
	default:
		return nil, fmt.Errorf("unknown action type: %s", ar.ActionType)
	}
	return effect, nil
}

func (s *ActionRequestService) Get(ctx context.Context, actor models.Actor, id int) (*models.ActionRequest, error) {
	ar, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && ar.RequestedBy != actor.UserID {
		return nil, models.ErrForbidden
	}
	return ar, nil
}

// List scopes employees to requests in their assigned areas.
func (s *ActionRequestService) List(ctx context.Context, actor models.Actor, filter models.ActionRequestFilter) ([]*models.ActionRequest, error) {
	if !actor.IsAdmin() {
		filter.Areas = actor.Areas
		if len(filter.Areas) == 0 {
			filter.RequestedBy = actor.UserID
		}
	}
	return s.Repo.List(ctx, filter)
}

func (s *ActionRequestService) PendingCount(ctx context.Context) (int, error) {
	return s.Repo.PendingCount(ctx)
}
