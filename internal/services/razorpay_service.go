package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"cable-backend/internal/cache"
	"cable-backend/internal/metrics"
	"cable-backend/internal/models"
)

type gatewayClient interface {
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
	FetchPayment(paymentID string) (map[string]interface{}, error)
}

type razorpayGateway struct {
	client *razorpay.Client
}

func (g razorpayGateway) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return g.client.Order.Create(data, nil)
}

func (g razorpayGateway) FetchPayment(paymentID string) (map[string]interface{}, error) {
	return g.client.Payment.Fetch(paymentID, nil, nil)
}

type onlineTxStore interface {
	Create(ctx context.Context, otx *models.OnlineTransaction) error
	GetByOrderID(ctx context.Context, orderID string) (*models.OnlineTransaction, error)
	Settle(ctx context.Context, orderID string, details *models.OnlineSettlement, payment *models.Payment, app *models.PaymentApplication) error
	MarkFailed(ctx context.Context, orderID, reason string) error
	List(ctx context.Context, filter *models.OnlineTransactionFilter) ([]*models.OnlineTransaction, int, error)
	Summary(ctx context.Context, start, end time.Time) (*models.OnlinePaymentSummary, error)
}

type gatewayCustomerStore interface {
	Get(ctx context.Context, id int) (*models.Customer, error)
	GetByVC(ctx context.Context, vcNumber string) (*models.Customer, error)
}

type settingsReader interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
}

// RazorpayService drives the online payment flow: order creation for the
// subscriber checkout, signature verification, and settlement into the same
// payment plus ledger books the collectors write to.
type RazorpayService struct {
	Transactions onlineTxStore
	Customers    gatewayCustomerStore
	Settings     settingsReader

	envKeyID         string
	envKeySecret     string
	envWebhookSecret string
	defaultFee       float64

	newClient func(keyID, keySecret string) gatewayClient
}

func NewRazorpayService(
	keyID, keySecret, webhookSecret string,
	defaultFeePercent float64,
	transactions onlineTxStore,
	customers gatewayCustomerStore,
	settings settingsReader,
) *RazorpayService {
	return &RazorpayService{
		Transactions:     transactions,
		Customers:        customers,
		Settings:         settings,
		envKeyID:         keyID,
		envKeySecret:     keySecret,
		envWebhookSecret: webhookSecret,
		defaultFee:       defaultFeePercent,
		newClient: func(keyID, keySecret string) gatewayClient {
			return razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
		},
	}
}

func (s *RazorpayService) settingValue(ctx context.Context, key string) string {
	setting, err := s.Settings.Get(ctx, key)
	if err != nil || setting == nil {
		return ""
	}
	return setting.SettingValue
}

// credentials resolves the gateway keys, preferring database settings over
// the environment so keys can be rotated without a restart.
func (s *RazorpayService) credentials(ctx context.Context) (keyID, keySecret, webhookSecret string) {
	keyID = s.settingValue(ctx, models.SettingRazorpayKeyID)
	keySecret = s.settingValue(ctx, models.SettingRazorpayKeySecret)
	webhookSecret = s.settingValue(ctx, models.SettingRazorpayWebhookSecret)

	if keyID == "" {
		keyID = s.envKeyID
	}
	if keySecret == "" {
		keySecret = s.envKeySecret
	}
	if webhookSecret == "" {
		webhookSecret = s.envWebhookSecret
	}
	return keyID, keySecret, webhookSecret
}

// IsEnabled checks the online payment toggle. Credentials are only checked
// when an order is actually created.
func (s *RazorpayService) IsEnabled(ctx context.Context) bool {
	return s.settingValue(ctx, models.SettingOnlinePaymentsEnabled) == "true"
}

func (s *RazorpayService) FeePercent(ctx context.Context) float64 {
	raw := s.settingValue(ctx, models.SettingOnlinePaymentFee)
	if raw == "" {
		return s.defaultFee
	}
	fee, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return s.defaultFee
	}
	return fee
}

// CalculateFee rounds the convenience fee to two decimal places.
func CalculateFee(amount, feePercent float64) float64 {
	return float64(int((amount*feePercent/100)*100+0.5)) / 100
}

// PaymentStatus tells the checkout page whether online payment is available
// and under which public key.
func (s *RazorpayService) PaymentStatus(ctx context.Context) *models.PaymentStatusResponse {
	keyID, _, _ := s.credentials(ctx)
	return &models.PaymentStatusResponse{
		Enabled:    s.IsEnabled(ctx),
		FeePercent: s.FeePercent(ctx),
		KeyID:      keyID,
	}
}

// CreateOrder opens a Razorpay order for a subscriber identified by VC
// number and records the pending transaction.
func (s *RazorpayService) CreateOrder(ctx context.Context, req *models.CreateOnlinePaymentRequest) (*models.CreateOrderResponse, error) {
	if !s.IsEnabled(ctx) {
		return nil, errors.New("online payments are currently disabled")
	}
	if req.VCNumber == "" {
		return nil, errors.New("vc_number is required")
	}
	if req.Amount <= 0 {
		return nil, errors.New("amount must be greater than zero")
	}

	keyID, keySecret, _ := s.credentials(ctx)
	if keyID == "" || keySecret == "" {
		return nil, errors.New("razorpay client not configured")
	}

	customer, err := s.Customers.GetByVC(ctx, req.VCNumber)
	if err != nil {
		return nil, err
	}

	feePercent := s.FeePercent(ctx)
	feeAmount := CalculateFee(req.Amount, feePercent)
	totalAmount := req.Amount + feeAmount
	amountPaise := int(totalAmount*100 + 0.5)

	client := s.newClient(keyID, keySecret)
	order, err := client.CreateOrder(map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  fmt.Sprintf("ord_%d_%d", customer.ID, time.Now().Unix()),
		"notes": map[string]interface{}{
			"customer_id": customer.ID,
			"vc_number":   req.VCNumber,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	orderID, _ := order["id"].(string)
	if orderID == "" {
		return nil, errors.New("razorpay order response missing id")
	}

	otx := &models.OnlineTransaction{
		RazorpayOrderID: orderID,
		CustomerID:      customer.ID,
		CustomerPhone:   customer.Phone,
		CustomerName:    customer.Name,
		VCNumber:        req.VCNumber,
		Amount:          req.Amount,
		FeeAmount:       feeAmount,
		TotalAmount:     totalAmount,
	}
	if err := s.Transactions.Create(ctx, otx); err != nil {
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}

	return &models.CreateOrderResponse{
		OrderID:       orderID,
		Amount:        int(req.Amount*100 + 0.5),
		FeeAmount:     int(feeAmount*100 + 0.5),
		TotalAmount:   amountPaise,
		Currency:      "INR",
		KeyID:         keyID,
		CustomerName:  customer.Name,
		CustomerPhone: customer.Phone,
		FeePercent:    feePercent,
	}, nil
}

// VerifyPayment handles the checkout callback: it checks the signature and
// settles the transaction. A transaction already settled by the webhook is
// returned as-is.
func (s *RazorpayService) VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.OnlineTransaction, error) {
	if !s.verifySignature(ctx, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		_ = s.Transactions.MarkFailed(ctx, req.RazorpayOrderID, "invalid signature")
		return nil, errors.New("invalid payment signature")
	}

	details := &models.OnlineSettlement{
		RazorpayPaymentID: req.RazorpayPaymentID,
		RazorpaySignature: req.RazorpaySignature,
	}
	s.enrichFromGateway(ctx, req.RazorpayPaymentID, details)

	if err := s.settle(ctx, req.RazorpayOrderID, details); err != nil {
		if errors.Is(err, models.ErrNotPending) {
			// Webhook got there first.
			return s.Transactions.GetByOrderID(ctx, req.RazorpayOrderID)
		}
		return nil, err
	}
	return s.Transactions.GetByOrderID(ctx, req.RazorpayOrderID)
}

// verifySignature checks the checkout signature: HMAC-SHA256 of
// "order_id|payment_id" under the key secret.
func (s *RazorpayService) verifySignature(ctx context.Context, orderID, paymentID, signature string) bool {
	_, keySecret, _ := s.credentials(ctx)
	if keySecret == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(keySecret))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the webhook body signature. Verification is
// skipped when no webhook secret is configured.
func (s *RazorpayService) VerifyWebhookSignature(ctx context.Context, body []byte, signature string) bool {
	_, _, webhookSecret := s.credentials(ctx)
	if webhookSecret == "" {
		return true
	}
	h := hmac.New(sha256.New, []byte(webhookSecret))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// enrichFromGateway pulls UTR, method, bank and card details for the
// transaction record. Failures only cost us detail, not the settlement.
func (s *RazorpayService) enrichFromGateway(ctx context.Context, paymentID string, details *models.OnlineSettlement) {
	keyID, keySecret, _ := s.credentials(ctx)
	if keyID == "" || keySecret == "" {
		return
	}
	payment, err := s.newClient(keyID, keySecret).FetchPayment(paymentID)
	if err != nil {
		log.Printf("[Razorpay] Failed to fetch payment details: %v", err)
		return
	}
	applyPaymentEntity(payment, details)
}

// applyPaymentEntity copies the interesting fields out of a Razorpay payment
// entity map.
func applyPaymentEntity(entity map[string]interface{}, details *models.OnlineSettlement) {
	if entity == nil {
		return
	}
	if acquirer, ok := entity["acquirer_data"].(map[string]interface{}); ok {
		for _, key := range []string{"upi_transaction_id", "bank_transaction_id", "rrn"} {
			if utr, ok := acquirer[key].(string); ok && details.UTRNumber == "" {
				details.UTRNumber = utr
			}
		}
	}
	if method, ok := entity["method"].(string); ok {
		details.PaymentMethod = method
	}
	if bank, ok := entity["bank"].(string); ok {
		details.Bank = bank
	}
	if vpa, ok := entity["vpa"].(string); ok {
		details.VPA = vpa
	}
	if card, ok := entity["card"].(map[string]interface{}); ok {
		if last4, ok := card["last4"].(string); ok {
			details.CardLast4 = last4
		}
		if network, ok := card["network"].(string); ok {
			details.CardNetwork = network
		}
	}
}

// settle books the verified payment. The split across previous and current
// outstanding is computed exactly like a collector payment; the repository
// applies everything in one transaction keyed on the pending status.
func (s *RazorpayService) settle(ctx context.Context, orderID string, details *models.OnlineSettlement) error {
	otx, err := s.Transactions.GetByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("transaction not found: %w", err)
	}
	if otx.Status == models.OnlineTxStatusSuccess {
		return models.ErrNotPending
	}

	customer, err := s.Customers.Get(ctx, otx.CustomerID)
	if err != nil {
		return err
	}
	conn := customer.ConnectionByVC(otx.VCNumber)
	if conn == nil {
		conn = customer.PrimaryConnection()
	}
	if conn == nil {
		return fmt.Errorf("customer %d has no connection to settle against", customer.ID)
	}

	prevCleared, currCleared, newPrev, newCurr := models.SplitPayment(
		otx.Amount, conn.PreviousOutstanding, conn.CurrentOutstanding)

	payment := &models.Payment{
		CustomerID:      otx.CustomerID,
		VCNumber:        conn.VCNumber,
		Amount:          otx.Amount,
		PreviousCleared: prevCleared,
		CurrentCleared:  currCleared,
		Mode:            models.PaymentModeOnline,
		CollectedBy:     0, // system
	}
	app := &models.PaymentApplication{
		ConnectionID: conn.ID,
		CustomerID:   customer.ID,
		NewPrevious:  newPrev,
		NewCurrent:   newCurr,
	}

	if err := s.Transactions.Settle(ctx, orderID, details, payment, app); err != nil {
		return err
	}

	metrics.PaymentsRecorded.WithLabelValues(string(models.PaymentModeOnline)).Inc()
	metrics.PaymentAmountCollected.WithLabelValues(string(models.PaymentModeOnline)).Add(otx.Amount)
	cache.InvalidateDashboardCache(ctx)
	return nil
}

// ProcessWebhook dispatches Razorpay webhook events. Unknown events are
// logged and acknowledged so the gateway stops retrying them.
func (s *RazorpayService) ProcessWebhook(ctx context.Context, event string, payload map[string]interface{}) error {
	switch event {
	case "payment.captured":
		return s.handlePaymentCaptured(ctx, payload)
	case "payment.failed":
		return s.handlePaymentFailed(ctx, payload)
	default:
		log.Printf("[Razorpay] Unhandled webhook event: %s", event)
		return nil
	}
}

// webhookEntity digs the payment entity out of the nested webhook payload.
func webhookEntity(payload map[string]interface{}) map[string]interface{} {
	entity := payload
	if p, ok := payload["payment"].(map[string]interface{}); ok {
		entity = p
	}
	if e, ok := entity["entity"].(map[string]interface{}); ok {
		entity = e
	}
	return entity
}

func (s *RazorpayService) handlePaymentCaptured(ctx context.Context, payload map[string]interface{}) error {
	entity := webhookEntity(payload)

	orderID, _ := entity["order_id"].(string)
	paymentID, _ := entity["id"].(string)
	if orderID == "" {
		return errors.New("missing order_id in webhook")
	}

	details := &models.OnlineSettlement{RazorpayPaymentID: paymentID}
	applyPaymentEntity(entity, details)

	err := s.settle(ctx, orderID, details)
	if errors.Is(err, models.ErrNotPending) {
		// Checkout callback got there first.
		log.Printf("[Razorpay] Payment already processed: %s", orderID)
		return nil
	}
	return err
}

func (s *RazorpayService) handlePaymentFailed(ctx context.Context, payload map[string]interface{}) error {
	entity := webhookEntity(payload)

	orderID, _ := entity["order_id"].(string)
	if orderID == "" {
		return nil
	}
	reason := "payment failed"
	if desc, ok := entity["error_description"].(string); ok && desc != "" {
		reason = desc
	}
	return s.Transactions.MarkFailed(ctx, orderID, reason)
}

// ListTransactions returns online transactions for the admin screen.
func (s *RazorpayService) ListTransactions(ctx context.Context, actor models.Actor, filter *models.OnlineTransactionFilter) ([]*models.OnlineTransaction, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, models.ErrForbidden
	}
	return s.Transactions.List(ctx, filter)
}

func (s *RazorpayService) TransactionSummary(ctx context.Context, actor models.Actor, start, end time.Time) (*models.OnlinePaymentSummary, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.Transactions.Summary(ctx, start, end)
}
