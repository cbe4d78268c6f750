package models

import "time"

// Payment modes accepted by collectors.
const (
	PaymentModeCash   = "cash"
	PaymentModeUPI    = "upi"
	PaymentModeOnline = "online"
)

type Payment struct {
	ID            int       `json:"id" db:"id"`
	ReceiptNumber string    `json:"receipt_number" db:"receipt_number"`
	CustomerID    int       `json:"customer_id" db:"customer_id"`
	CustomerName  string    `json:"customer_name" db:"customer_name"`
	CustomerPhone string    `json:"customer_phone" db:"customer_phone"`
	VCNumber      string    `json:"vc_number" db:"vc_number"`
	Amount        float64   `json:"amount" db:"amount"`
	PreviousCleared float64 `json:"previous_cleared" db:"previous_cleared"` // portion applied to previous outstanding
	CurrentCleared  float64 `json:"current_cleared" db:"current_cleared"`   // portion applied to current outstanding
	Mode          string    `json:"mode" db:"mode"`
	CollectedBy   int       `json:"collected_by" db:"collected_by"`
	CollectedByName string  `json:"collected_by_name,omitempty" db:"collected_by_name"` // joined from users
	Notes         string    `json:"notes" db:"notes"`
	PaymentDate   time.Time `json:"payment_date" db:"payment_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// CreatePaymentRequest represents the request body for recording a payment
type CreatePaymentRequest struct {
	CustomerID int     `json:"customer_id"`
	VCNumber   string  `json:"vc_number"`
	Amount     float64 `json:"amount"`
	Mode       string  `json:"mode"`
	Notes      string  `json:"notes"`
}

// PaymentFilter narrows payment list queries.
type PaymentFilter struct {
	CustomerID  int        `json:"customer_id"`
	CollectedBy int        `json:"collected_by"`
	Area        string     `json:"area"`
	Areas       []string   `json:"areas,omitempty"` // employee scoping: restrict to these areas
	Mode        string     `json:"mode"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
}

// CollectionSummary aggregates one collector's takings for a day or range.
type CollectionSummary struct {
	CollectorID   int     `json:"collector_id"`
	CollectorName string  `json:"collector_name"`
	PaymentCount  int     `json:"payment_count"`
	CashTotal     float64 `json:"cash_total"`
	UPITotal      float64 `json:"upi_total"`
	OnlineTotal   float64 `json:"online_total"`
	Total         float64 `json:"total"`
}

// PaymentApplication is the balance delta a recorded payment applies to its
// connection. The service computes it with SplitPayment; the repository
// persists payment, connection and ledger together in one transaction.
type PaymentApplication struct {
	ConnectionID int
	CustomerID   int
	NewPrevious  float64
	NewCurrent   float64
}

// SplitPayment applies an amount against the previous-then-current
// outstanding of a connection and returns the cleared portions plus the
// remaining balances. Overpayment beyond both balances is booked against the
// current period (it shows as a negative current outstanding, i.e. credit).
func SplitPayment(amount, previousOutstanding, currentOutstanding float64) (prevCleared, currCleared, newPrev, newCurr float64) {
	prevCleared = amount
	if prevCleared > previousOutstanding {
		prevCleared = previousOutstanding
	}
	if prevCleared < 0 {
		prevCleared = 0
	}
	currCleared = amount - prevCleared
	newPrev = previousOutstanding - prevCleared
	newCurr = currentOutstanding - currCleared
	return prevCleared, currCleared, newPrev, newCurr
}
