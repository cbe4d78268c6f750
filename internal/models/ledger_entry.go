package models

import "time"

// LedgerEntryType represents the type of ledger entry
type LedgerEntryType string

const (
	LedgerEntryTypeCharge        LedgerEntryType = "CHARGE"         // Monthly plan charge on a connection
	LedgerEntryTypePayment       LedgerEntryType = "PAYMENT"        // Collector-recorded payment (cash/UPI)
	LedgerEntryTypeCredit        LedgerEntryType = "CREDIT"         // Discount/adjustment given
	LedgerEntryTypeRefund        LedgerEntryType = "REFUND"         // Money returned to customer
	LedgerEntryTypeOnlinePayment LedgerEntryType = "ONLINE_PAYMENT" // Online payment via Razorpay
)

// LedgerEntry represents a single entry in the customer billing ledger
type LedgerEntry struct {
	ID              int             `json:"id"`
	CustomerID      int             `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	VCNumber        string          `json:"vc_number,omitempty"`
	EntryType       LedgerEntryType `json:"entry_type"`
	Description     string          `json:"description"`
	Debit           float64         `json:"debit"`           // Money owed (increases balance)
	Credit          float64         `json:"credit"`          // Money paid/credited (decreases balance)
	RunningBalance  float64         `json:"running_balance"` // Balance after this entry
	ReferenceID     *int            `json:"reference_id"`    // payment_id, action_request_id or connection_id
	ReferenceType   string          `json:"reference_type"`  // 'payment', 'action_request', 'connection'
	CreatedByUserID int             `json:"created_by_user_id"`
	CreatedByName   string          `json:"created_by_name"`
	CreatedAt       time.Time       `json:"created_at"`
	Notes           string          `json:"notes"`
}

// CreateLedgerEntryRequest is used when creating a new ledger entry
type CreateLedgerEntryRequest struct {
	CustomerID      int             `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	VCNumber        string          `json:"vc_number"`
	EntryType       LedgerEntryType `json:"entry_type"`
	Description     string          `json:"description"`
	Debit           float64         `json:"debit"`
	Credit          float64         `json:"credit"`
	ReferenceID     *int            `json:"reference_id"`
	ReferenceType   string          `json:"reference_type"`
	CreatedByUserID int             `json:"created_by_user_id"`
	Notes           string          `json:"notes"`
}

// LedgerSummary provides summary statistics for a customer
type LedgerSummary struct {
	CustomerID     int     `json:"customer_id"`
	CustomerName   string  `json:"customer_name"`
	TotalDebit     float64 `json:"total_debit"`     // Total charges
	TotalCredit    float64 `json:"total_credit"`    // Total payments + credits
	CurrentBalance float64 `json:"current_balance"` // Debit - Credit
	EntryCount     int     `json:"entry_count"`
}

// LedgerFilter is used for filtering ledger entries
type LedgerFilter struct {
	CustomerID int             `json:"customer_id"`
	EntryType  LedgerEntryType `json:"entry_type"`
	StartDate  *time.Time      `json:"start_date"`
	EndDate    *time.Time      `json:"end_date"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}
