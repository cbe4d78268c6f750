package models

// DashboardStats is the aggregate snapshot served on the admin dashboard.
type DashboardStats struct {
	TotalCustomers    int `json:"total_customers"`
	ActiveCustomers   int `json:"active_customers"`
	InactiveCustomers int `json:"inactive_customers"`
	DemoCustomers     int `json:"demo_customers"`

	TotalConnections  int `json:"total_connections"`
	ActiveConnections int `json:"active_connections"`

	VCTotal     int `json:"vc_total"`
	VCActive    int `json:"vc_active"`
	VCInactive  int `json:"vc_inactive"`
	VCAvailable int `json:"vc_available"`

	PendingRequests int `json:"pending_requests"`

	PreviousOutstanding float64 `json:"previous_outstanding"`
	CurrentOutstanding  float64 `json:"current_outstanding"`
	TotalOutstanding    float64 `json:"total_outstanding"`

	TodayCollection   float64 `json:"today_collection"`
	TodayPaymentCount int     `json:"today_payment_count"`
	MonthCollection   float64 `json:"month_collection"`

	AreaSummaries []AreaSummary `json:"area_summaries,omitempty"`
}

// AreaSummary breaks customers and dues down per collection area.
type AreaSummary struct {
	Area            string  `json:"area"`
	CustomerCount   int     `json:"customer_count"`
	ActiveCount     int     `json:"active_count"`
	Outstanding     float64 `json:"outstanding"`
	MonthCollection float64 `json:"month_collection"`
}
