package models

import (
	"fmt"
	"time"
)

// VCStatus is the inventory state of a VC (video connection) card.
type VCStatus string

const (
	VCStatusActive    VCStatus = "active"
	VCStatusInactive  VCStatus = "inactive"
	VCStatusAvailable VCStatus = "available" // in stock, not assigned to a customer
)

// ParseVCStatus validates a VC status string.
func ParseVCStatus(s string) (VCStatus, error) {
	switch VCStatus(s) {
	case VCStatusActive, VCStatusInactive, VCStatusAvailable:
		return VCStatus(s), nil
	default:
		return "", fmt.Errorf("unknown vc status: %s", s)
	}
}

// VCInventoryItem is one VC card in the operator's stock, whether assigned to
// a customer or on the shelf.
type VCInventoryItem struct {
	ID       int    `json:"id"`
	VCNumber string `json:"vc_number"`

	CustomerID   *int   `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`

	PackageID     *int    `json:"package_id,omitempty"`
	PackageName   string  `json:"package_name,omitempty"`
	PackageAmount float64 `json:"package_amount"`

	Status VCStatus `json:"status"`

	StatusHistory    []*VCStatusHistoryEntry `json:"status_history,omitempty"`
	OwnershipHistory []*VCOwnershipEntry     `json:"ownership_history,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VCStatusHistoryEntry is one append-only status change record.
type VCStatusHistoryEntry struct {
	ID            int       `json:"id"`
	VCID          int       `json:"vc_id"`
	Status        VCStatus  `json:"status"`
	ChangedAt     time.Time `json:"changed_at"`
	ChangedBy     int       `json:"changed_by"`
	ChangedByName string    `json:"changed_by_name,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// VCOwnershipEntry is one append-only ownership record. EndDate is nil while
// the entry is open; at most one entry per VC is open at a time.
type VCOwnershipEntry struct {
	ID           int        `json:"id"`
	VCID         int        `json:"vc_id"`
	CustomerID   int        `json:"customer_id"`
	CustomerName string     `json:"customer_name"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

// OpenOwnership returns the currently open ownership entry, or nil.
func (v *VCInventoryItem) OpenOwnership() *VCOwnershipEntry {
	for _, e := range v.OwnershipHistory {
		if e.EndDate == nil {
			return e
		}
	}
	return nil
}

// CloseOpenOwnership stamps every open ownership entry with the given end
// time and returns the ids of the closed entries. Closing all open entries
// (rather than just the newest) keeps the at-most-one-open invariant even if
// earlier writes left the history dirty.
func (v *VCInventoryItem) CloseOpenOwnership(now time.Time) []int {
	var closed []int
	for _, e := range v.OwnershipHistory {
		if e.EndDate == nil {
			t := now
			e.EndDate = &t
			closed = append(closed, e.ID)
		}
	}
	return closed
}

// CreateVCItemRequest represents the request body for adding a VC to stock.
type CreateVCItemRequest struct {
	VCNumber      string  `json:"vc_number"`
	PackageID     *int    `json:"package_id,omitempty"`
	PackageName   string  `json:"package_name,omitempty"`
	PackageAmount float64 `json:"package_amount"`
}

// ChangeVCStatusRequest represents the request body for a status change.
type ChangeVCStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ReassignVCRequest represents the request body for moving a VC to another
// customer.
type ReassignVCRequest struct {
	CustomerID   int    `json:"customer_id"`
	CustomerName string `json:"customer_name"`
}

// UpdateVCPackageRequest updates the package assigned to a VC.
type UpdateVCPackageRequest struct {
	PackageID     *int    `json:"package_id,omitempty"`
	PackageName   string  `json:"package_name"`
	PackageAmount float64 `json:"package_amount"`
}

// VCFilter narrows inventory list queries.
type VCFilter struct {
	Status     string `json:"status"`
	CustomerID int    `json:"customer_id"`
	Package    string `json:"package"`
	Search     string `json:"search"` // matches VC number or customer name
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}
