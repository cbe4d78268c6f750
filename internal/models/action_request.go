package models

import (
	"fmt"
	"strings"
	"time"
)

// ActionRequestStatus is the workflow state of an action request.
// Requests start pending; approved and rejected are both terminal.
type ActionRequestStatus string

const (
	ActionRequestStatusPending  ActionRequestStatus = "pending"
	ActionRequestStatusApproved ActionRequestStatus = "approved"
	ActionRequestStatusRejected ActionRequestStatus = "rejected"
)

// ActionType is the change an employee proposes against a customer's VC.
type ActionType string

const (
	ActionTypeActivation   ActionType = "activation"
	ActionTypeDeactivation ActionType = "deactivation"
	ActionTypePlanChange   ActionType = "plan_change"
)

// ParseActionType validates an action type string.
func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionTypeActivation, ActionTypeDeactivation, ActionTypePlanChange:
		return ActionType(s), nil
	default:
		return "", fmt.Errorf("unknown action type: %s", s)
	}
}

// MinReasonLength is the minimum length of a request reason.
const MinReasonLength = 10

// ActionRequest is an employee-raised proposal to change a customer VC's
// status or plan, subject to admin approval.
type ActionRequest struct {
	ID int `json:"id"`

	CustomerID   int    `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	VCNumber     string `json:"vc_number"`

	RequestedBy     int    `json:"requested_by"`
	RequestedByName string `json:"requested_by_name,omitempty"`

	ActionType    ActionType `json:"action_type"`
	CurrentStatus string     `json:"current_status,omitempty"`
	CurrentPlan   string     `json:"current_plan,omitempty"`
	RequestedPlan string     `json:"requested_plan,omitempty"` // only for plan_change

	Reason string `json:"reason"`

	Status      ActionRequestStatus `json:"status"`
	RequestDate time.Time           `json:"request_date"`

	ReviewedBy     *int       `json:"reviewed_by,omitempty"`
	ReviewedByName string     `json:"reviewed_by_name,omitempty"`
	ReviewDate     *time.Time `json:"review_date,omitempty"`
	AdminNotes     string     `json:"admin_notes,omitempty"`
}

// SubmitActionRequestRequest represents the request body for raising an
// action request.
type SubmitActionRequestRequest struct {
	CustomerID    int    `json:"customer_id"`
	VCNumber      string `json:"vc_number"`
	ActionType    string `json:"action_type"`
	RequestedPlan string `json:"requested_plan,omitempty"`
	Reason        string `json:"reason"`
}

// Validate checks the shape of a submission before any store lookups.
func (r *SubmitActionRequestRequest) Validate() error {
	if r.CustomerID <= 0 {
		return fmt.Errorf("customer_id is required")
	}
	if strings.TrimSpace(r.VCNumber) == "" {
		return fmt.Errorf("vc_number is required")
	}
	actionType, err := ParseActionType(r.ActionType)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(r.Reason)) < MinReasonLength {
		return fmt.Errorf("reason must be at least %d characters", MinReasonLength)
	}
	if actionType == ActionTypePlanChange && strings.TrimSpace(r.RequestedPlan) == "" {
		return fmt.Errorf("requested_plan is required for plan change requests")
	}
	if actionType != ActionTypePlanChange && strings.TrimSpace(r.RequestedPlan) != "" {
		return fmt.Errorf("requested_plan is only valid for plan change requests")
	}
	return nil
}

// ResolveActionRequestRequest represents the request body for approving or
// rejecting a pending request. TOTPCode is required when the resolving admin
// has 2FA enabled.
type ResolveActionRequestRequest struct {
	AdminNotes string `json:"admin_notes"`
	TOTPCode   string `json:"totp_code,omitempty"`
}

// ActionRequestFilter narrows action request list queries.
type ActionRequestFilter struct {
	Status      string   `json:"status"`
	CustomerID  int      `json:"customer_id"`
	RequestedBy int      `json:"requested_by"`
	Area        string   `json:"area"`
	Areas       []string `json:"areas,omitempty"` // employee scoping: restrict to these areas
	Limit       int      `json:"limit"`
	Offset      int      `json:"offset"`
}

// ApprovalEffect is the concrete change an approval applies to the target
// connection. The service computes it from the request and current state; the
// repository applies it in the same transaction that flips the request to
// approved, so a missing target fails the whole approval and the request
// stays pending.
type ApprovalEffect struct {
	ConnectionID int
	CustomerID   int
	VCNumber     string

	// NewStatus is set for activation/deactivation.
	NewStatus CustomerStatus

	// NewPlanName/NewPlanPrice are set for plan_change. The old plan snapshot
	// prices the ledger adjustment for the change.
	NewPlanName  string
	NewPlanPrice float64
	OldPlanName  string
	OldPlanPrice float64

	// HistoryReason is recorded on the VC status trail when the VC is in stock.
	HistoryReason string
}

