package models

import (
	"fmt"
	"time"
)

// CustomerStatus is the subscription state of a customer or connection.
type CustomerStatus string

const (
	StatusActive   CustomerStatus = "active"
	StatusInactive CustomerStatus = "inactive"
	StatusDemo     CustomerStatus = "demo"
)

// ParseCustomerStatus validates a status string coming from a request body.
func ParseCustomerStatus(s string) (CustomerStatus, error) {
	switch CustomerStatus(s) {
	case StatusActive, StatusInactive, StatusDemo:
		return CustomerStatus(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

type Customer struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Area       string    `json:"area"` // collection area / collector zone
	JoinDate   time.Time `json:"join_date"`
	BillDueDay int       `json:"bill_due_day"` // day of month 1-31

	Status   CustomerStatus `json:"status"`
	IsActive bool           `json:"is_active"`

	// Legacy single-VC mirror fields. Always derived from the primary
	// connection via DeriveLegacyFields; never written directly.
	VCNumber      string  `json:"vc_number,omitempty"`
	PackageName   string  `json:"package_name,omitempty"`
	PackageAmount float64 `json:"package_amount"`

	PreviousOutstanding float64 `json:"previous_outstanding"`
	CurrentOutstanding  float64 `json:"current_outstanding"`

	Connections []*Connection `json:"connections,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Connection is one billable VC line belonging to a customer.
type Connection struct {
	ID         int    `json:"id"`
	CustomerID int    `json:"customer_id"`
	VCNumber   string `json:"vc_number"`

	PlanName  string  `json:"plan_name"`
	PlanPrice float64 `json:"plan_price"`

	// Optional per-connection override of the catalogue plan.
	CustomPlanName  string  `json:"custom_plan_name,omitempty"`
	CustomPlanPrice float64 `json:"custom_plan_price,omitempty"`

	Status CustomerStatus `json:"status"`

	PreviousOutstanding float64 `json:"previous_outstanding"`
	CurrentOutstanding  float64 `json:"current_outstanding"`

	IsPrimary bool `json:"is_primary"`
	Idx       int  `json:"idx"` // ordinal position within the customer

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectivePlanName returns the custom plan name when set, else the
// catalogue plan name.
func (c *Connection) EffectivePlanName() string {
	if c.CustomPlanName != "" {
		return c.CustomPlanName
	}
	return c.PlanName
}

// EffectivePlanPrice returns the custom plan price when a custom plan is set,
// else the catalogue plan price.
func (c *Connection) EffectivePlanPrice() float64 {
	if c.CustomPlanName != "" {
		return c.CustomPlanPrice
	}
	return c.PlanPrice
}

// PrimaryConnection returns the connection marked primary, or nil when the
// customer has no connections.
func (c *Customer) PrimaryConnection() *Connection {
	for _, conn := range c.Connections {
		if conn.IsPrimary {
			return conn
		}
	}
	return nil
}

// ConnectionByVC returns the connection with the given VC number, or nil.
func (c *Customer) ConnectionByVC(vcNumber string) *Connection {
	for _, conn := range c.Connections {
		if conn.VCNumber == vcNumber {
			return conn
		}
	}
	return nil
}

// NormalizeConnections enforces the connection invariants before persisting:
// exactly one primary when any connections exist (the first one marked wins;
// if none is marked, the first connection becomes primary) and ordinals
// reindexed 0..n-1 in slice order.
func NormalizeConnections(conns []*Connection) {
	primarySeen := false
	for i, conn := range conns {
		conn.Idx = i
		if conn.IsPrimary {
			if primarySeen {
				conn.IsPrimary = false
			}
			primarySeen = true
		}
	}
	if !primarySeen && len(conns) > 0 {
		conns[0].IsPrimary = true
	}
}

// DeriveLegacyFields recomputes the customer's legacy top-level fields from
// its connections. This is the single derivation rule for the whole codebase:
//
//   - vc_number, package_name, package_amount, status and is_active mirror
//     the primary connection;
//   - previous/current outstanding are the sums across all connections (a
//     customer owes the total of its lines);
//   - with no connections the mirror fields are cleared, outstanding is
//     zeroed and the customer keeps its stored status.
func DeriveLegacyFields(c *Customer) {
	if len(c.Connections) == 0 {
		c.VCNumber = ""
		c.PackageName = ""
		c.PackageAmount = 0
		c.PreviousOutstanding = 0
		c.CurrentOutstanding = 0
		c.IsActive = c.Status == StatusActive
		return
	}

	var prev, curr float64
	for _, conn := range c.Connections {
		prev += conn.PreviousOutstanding
		curr += conn.CurrentOutstanding
	}
	c.PreviousOutstanding = prev
	c.CurrentOutstanding = curr

	primary := c.PrimaryConnection()
	if primary == nil {
		primary = c.Connections[0]
	}
	c.VCNumber = primary.VCNumber
	c.PackageName = primary.EffectivePlanName()
	c.PackageAmount = primary.EffectivePlanPrice()
	c.Status = primary.Status
	c.IsActive = primary.Status == StatusActive
}

// ConnectionInput is one connection in a customer create/update request.
type ConnectionInput struct {
	ID                  int     `json:"id,omitempty"` // 0 for new connections
	VCNumber            string  `json:"vc_number"`
	PlanName            string  `json:"plan_name"`
	PlanPrice           float64 `json:"plan_price"`
	CustomPlanName      string  `json:"custom_plan_name,omitempty"`
	CustomPlanPrice     float64 `json:"custom_plan_price,omitempty"`
	Status              string  `json:"status"`
	PreviousOutstanding float64 `json:"previous_outstanding"`
	CurrentOutstanding  float64 `json:"current_outstanding"`
	IsPrimary           bool    `json:"is_primary"`
}

// CreateCustomerRequest represents the request body for creating a customer
type CreateCustomerRequest struct {
	Name        string             `json:"name"`
	Phone       string             `json:"phone"`
	Address     string             `json:"address"`
	Area        string             `json:"area"`
	JoinDate    string             `json:"join_date,omitempty"` // YYYY-MM-DD, defaults to today
	BillDueDay  int                `json:"bill_due_day"`
	Status      string             `json:"status,omitempty"`
	Connections []*ConnectionInput `json:"connections"`
}

// UpdateCustomerRequest represents the request body for updating a customer.
// Connections are reconciled by id: missing ids are removed, id 0 entries are
// created, the rest are updated in place.
type UpdateCustomerRequest struct {
	Name        string             `json:"name"`
	Phone       string             `json:"phone"`
	Address     string             `json:"address"`
	Area        string             `json:"area"`
	BillDueDay  int                `json:"bill_due_day"`
	Status      string             `json:"status,omitempty"`
	Connections []*ConnectionInput `json:"connections"`
	Version     int                `json:"version"`
}

// CustomerFilter narrows customer list queries.
type CustomerFilter struct {
	Status string   `json:"status"`
	Area   string   `json:"area"`
	Areas  []string `json:"areas,omitempty"` // employee scoping: restrict to these areas
	Search string   `json:"search"`          // matches name, phone or VC number
	DueDay int      `json:"due_day"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}
