package models

import "time"

// Well-known setting keys.
const (
	SettingOnlinePaymentsEnabled = "online_payments_enabled"
	SettingOnlinePaymentFee      = "online_payment_fee_percent"
	SettingBillingDayOfMonth     = "billing_day_of_month"
	SettingOperatorName          = "operator_name"
	SettingReceiptFooter         = "receipt_footer"

	// Razorpay credentials may live in settings so they can be rotated
	// without a restart; environment values act as the fallback.
	SettingRazorpayKeyID         = "razorpay_key_id"
	SettingRazorpayKeySecret     = "razorpay_key_secret"
	SettingRazorpayWebhookSecret = "razorpay_webhook_secret"
)

type SystemSetting struct {
	ID              int       `json:"id"`
	SettingKey      string    `json:"setting_key"`
	SettingValue    string    `json:"setting_value"`
	Description     string    `json:"description"`
	UpdatedAt       time.Time `json:"updated_at"`
	UpdatedByUserID int       `json:"updated_by_user_id"`
}

type UpdateSettingRequest struct {
	SettingValue string `json:"setting_value"`
}
