package models

import "time"

// Audit target types.
const (
	AuditTargetCustomer      = "customer"
	AuditTargetConnection    = "connection"
	AuditTargetVC            = "vc_inventory"
	AuditTargetActionRequest = "action_request"
	AuditTargetPlan          = "plan"
	AuditTargetUser          = "user"
	AuditTargetPayment       = "payment"
	AuditTargetSetting       = "system_setting"
)

type AdminActionLog struct {
	ID          int       `json:"id" db:"id"`
	AdminUserID int       `json:"admin_user_id" db:"admin_user_id"`
	AdminName   string    `json:"admin_name,omitempty" db:"admin_name"`
	AdminEmail  string    `json:"admin_email,omitempty" db:"admin_email"`
	ActionType  string    `json:"action_type" db:"action_type"`
	TargetType  string    `json:"target_type" db:"target_type"`
	TargetID    *int      `json:"target_id,omitempty" db:"target_id"`
	Description string    `json:"description" db:"description"`
	OldValue    *string   `json:"old_value,omitempty" db:"old_value"`
	NewValue    *string   `json:"new_value,omitempty" db:"new_value"`
	IPAddress   *string   `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AdminActionLogFilter narrows audit log listings.
type AdminActionLogFilter struct {
	AdminUserID int        `json:"admin_user_id,omitempty"`
	ActionType  string     `json:"action_type,omitempty"`
	TargetType  string     `json:"target_type,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
}
