package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cable-backend/internal/models"
	"cable-backend/internal/timeutil"
)

type fakeOnlineTxStore struct {
	transactions map[string]*models.OnlineTransaction
	customers    *fakeCustomerGetter
	lastPayment  *models.Payment
	nextID       int
}

func newFakeOnlineTxStore(customers *fakeCustomerGetter) *fakeOnlineTxStore {
	return &fakeOnlineTxStore{
		transactions: map[string]*models.OnlineTransaction{},
		customers:    customers,
		nextID:       1,
	}
}

func (f *fakeOnlineTxStore) Create(ctx context.Context, otx *models.OnlineTransaction) error {
	otx.ID = f.nextID
	f.nextID++
	otx.Status = models.OnlineTxStatusPending
	otx.CreatedAt = timeutil.Now()
	f.transactions[otx.RazorpayOrderID] = otx
	return nil
}

func (f *fakeOnlineTxStore) GetByOrderID(ctx context.Context, orderID string) (*models.OnlineTransaction, error) {
	otx, ok := f.transactions[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return otx, nil
}

func (f *fakeOnlineTxStore) Settle(ctx context.Context, orderID string, details *models.OnlineSettlement, payment *models.Payment, app *models.PaymentApplication) error {
	otx, ok := f.transactions[orderID]
	if !ok || otx.Status != models.OnlineTxStatusPending {
		return models.ErrNotPending
	}

	otx.Status = models.OnlineTxStatusSuccess
	otx.RazorpayPaymentID = details.RazorpayPaymentID
	otx.UTRNumber = details.UTRNumber
	otx.PaymentMethod = details.PaymentMethod
	now := timeutil.Now()
	otx.CompletedAt = &now

	payment.ID = f.nextID
	f.nextID++
	payment.ReceiptNumber = "RCP-000009"
	f.lastPayment = payment
	otx.PaymentID = &payment.ID

	if cust, err := f.customers.Get(ctx, app.CustomerID); err == nil {
		for _, conn := range cust.Connections {
			if conn.ID == app.ConnectionID {
				conn.PreviousOutstanding = app.NewPrevious
				conn.CurrentOutstanding = app.NewCurrent
			}
		}
		models.DeriveLegacyFields(cust)
	}
	return nil
}

func (f *fakeOnlineTxStore) MarkFailed(ctx context.Context, orderID, reason string) error {
	otx, ok := f.transactions[orderID]
	if !ok || otx.Status != models.OnlineTxStatusPending {
		return nil
	}
	otx.Status = models.OnlineTxStatusFailed
	otx.FailureReason = reason
	return nil
}

func (f *fakeOnlineTxStore) List(ctx context.Context, filter *models.OnlineTransactionFilter) ([]*models.OnlineTransaction, int, error) {
	out := make([]*models.OnlineTransaction, 0, len(f.transactions))
	for _, otx := range f.transactions {
		out = append(out, otx)
	}
	return out, len(out), nil
}

func (f *fakeOnlineTxStore) Summary(ctx context.Context, start, end time.Time) (*models.OnlinePaymentSummary, error) {
	return &models.OnlinePaymentSummary{}, nil
}

type fakeGatewayCustomers struct {
	*fakeCustomerGetter
}

func (f fakeGatewayCustomers) GetByVC(ctx context.Context, vcNumber string) (*models.Customer, error) {
	for _, c := range f.customers {
		if c.ConnectionByVC(vcNumber) != nil {
			return c, nil
		}
	}
	return nil, models.ErrNotFound
}

type fakeSettings struct {
	values map[string]string
}

func (f fakeSettings) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.SystemSetting{SettingKey: key, SettingValue: v}, nil
}

type fakeGateway struct {
	orderID       string
	orderErr      error
	paymentEntity map[string]interface{}
	lastOrderData map[string]interface{}
}

func (f *fakeGateway) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	f.lastOrderData = data
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return map[string]interface{}{"id": f.orderID}, nil
}

func (f *fakeGateway) FetchPayment(paymentID string) (map[string]interface{}, error) {
	return f.paymentEntity, nil
}

func sign(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func newRazorpayFixture(enabled bool) (*RazorpayService, *fakeOnlineTxStore, *fakeGateway) {
	customers := &fakeCustomerGetter{customers: map[int]*models.Customer{20: paymentFixtureCustomer()}}
	store := newFakeOnlineTxStore(customers)
	gateway := &fakeGateway{orderID: "order_test123"}

	settings := fakeSettings{values: map[string]string{
		models.SettingOnlinePaymentFee: "2.0",
	}}
	if enabled {
		settings.values[models.SettingOnlinePaymentsEnabled] = "true"
	}

	svc := NewRazorpayService("rzp_test_key", "rzp_test_secret", "whsec", 2.0,
		store, fakeGatewayCustomers{customers}, settings)
	svc.newClient = func(keyID, keySecret string) gatewayClient { return gateway }
	return svc, store, gateway
}

func TestCreateOrder(t *testing.T) {
	t.Run("books a pending transaction with fee in paise", func(t *testing.T) {
		svc, store, gateway := newRazorpayFixture(true)

		resp, err := svc.CreateOrder(context.Background(), &models.CreateOnlinePaymentRequest{
			VCNumber: "VC2001",
			Amount:   350,
		})
		require.NoError(t, err)

		// 350 + 2% fee = 357.00 → 35700 paise
		assert.Equal(t, "order_test123", resp.OrderID)
		assert.Equal(t, 35000, resp.Amount)
		assert.Equal(t, 700, resp.FeeAmount)
		assert.Equal(t, 35700, resp.TotalAmount)
		assert.Equal(t, "INR", resp.Currency)
		assert.Equal(t, "rzp_test_key", resp.KeyID)
		assert.Equal(t, 35700, gateway.lastOrderData["amount"])

		otx := store.transactions["order_test123"]
		require.NotNil(t, otx)
		assert.Equal(t, models.OnlineTxStatusPending, otx.Status)
		assert.Equal(t, 20, otx.CustomerID)
		assert.Equal(t, 350.0, otx.Amount)
		assert.Equal(t, 7.0, otx.FeeAmount)
	})

	t.Run("refuses when the toggle is off", func(t *testing.T) {
		svc, _, _ := newRazorpayFixture(false)

		_, err := svc.CreateOrder(context.Background(), &models.CreateOnlinePaymentRequest{
			VCNumber: "VC2001", Amount: 350,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disabled")
	})

	t.Run("unknown VC is rejected", func(t *testing.T) {
		svc, _, _ := newRazorpayFixture(true)

		_, err := svc.CreateOrder(context.Background(), &models.CreateOnlinePaymentRequest{
			VCNumber: "VC9999", Amount: 350,
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestVerifyPayment(t *testing.T) {
	createOrder := func(t *testing.T, svc *RazorpayService) {
		t.Helper()
		_, err := svc.CreateOrder(context.Background(), &models.CreateOnlinePaymentRequest{
			VCNumber: "VC2001", Amount: 350,
		})
		require.NoError(t, err)
	}

	t.Run("valid signature settles against the connection", func(t *testing.T) {
		svc, store, gateway := newRazorpayFixture(true)
		createOrder(t, svc)
		gateway.paymentEntity = map[string]interface{}{
			"method": "upi",
			"vpa":    "sunita@upi",
			"acquirer_data": map[string]interface{}{
				"upi_transaction_id": "UTR123456",
			},
		}

		otx, err := svc.VerifyPayment(context.Background(), &models.VerifyPaymentRequest{
			RazorpayOrderID:   "order_test123",
			RazorpayPaymentID: "pay_abc",
			RazorpaySignature: sign("rzp_test_secret", "order_test123|pay_abc"),
		})
		require.NoError(t, err)

		assert.Equal(t, models.OnlineTxStatusSuccess, otx.Status)
		assert.Equal(t, "UTR123456", otx.UTRNumber)
		assert.Equal(t, "upi", otx.PaymentMethod)

		// 350 against prev 100 / curr 250 clears both in full.
		require.NotNil(t, store.lastPayment)
		assert.Equal(t, models.PaymentModeOnline, store.lastPayment.Mode)
		assert.Equal(t, 0, store.lastPayment.CollectedBy)
		assert.Equal(t, 100.0, store.lastPayment.PreviousCleared)
		assert.Equal(t, 250.0, store.lastPayment.CurrentCleared)

		cust, _ := store.customers.Get(context.Background(), 20)
		conn := cust.ConnectionByVC("VC2001")
		assert.Equal(t, 0.0, conn.PreviousOutstanding)
		assert.Equal(t, 0.0, conn.CurrentOutstanding)
	})

	t.Run("bad signature marks the transaction failed", func(t *testing.T) {
		svc, store, _ := newRazorpayFixture(true)
		createOrder(t, svc)

		_, err := svc.VerifyPayment(context.Background(), &models.VerifyPaymentRequest{
			RazorpayOrderID:   "order_test123",
			RazorpayPaymentID: "pay_abc",
			RazorpaySignature: "forged",
		})
		require.Error(t, err)
		assert.Equal(t, models.OnlineTxStatusFailed, store.transactions["order_test123"].Status)
	})

	t.Run("second settle returns the settled transaction", func(t *testing.T) {
		svc, _, _ := newRazorpayFixture(true)
		createOrder(t, svc)

		req := &models.VerifyPaymentRequest{
			RazorpayOrderID:   "order_test123",
			RazorpayPaymentID: "pay_abc",
			RazorpaySignature: sign("rzp_test_secret", "order_test123|pay_abc"),
		}
		first, err := svc.VerifyPayment(context.Background(), req)
		require.NoError(t, err)
		second, err := svc.VerifyPayment(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, models.OnlineTxStatusSuccess, second.Status)
		assert.Equal(t, first.PaymentID, second.PaymentID)
	})
}

func TestProcessWebhook(t *testing.T) {
	createOrder := func(t *testing.T, svc *RazorpayService) {
		t.Helper()
		_, err := svc.CreateOrder(context.Background(), &models.CreateOnlinePaymentRequest{
			VCNumber: "VC2001", Amount: 350,
		})
		require.NoError(t, err)
	}

	capturedPayload := map[string]interface{}{
		"payment": map[string]interface{}{
			"entity": map[string]interface{}{
				"id":       "pay_abc",
				"order_id": "order_test123",
				"method":   "netbanking",
				"bank":     "HDFC",
				"acquirer_data": map[string]interface{}{
					"bank_transaction_id": "BANK42",
				},
			},
		},
	}

	t.Run("payment.captured settles the order", func(t *testing.T) {
		svc, store, _ := newRazorpayFixture(true)
		createOrder(t, svc)

		require.NoError(t, svc.ProcessWebhook(context.Background(), "payment.captured", capturedPayload))

		otx := store.transactions["order_test123"]
		assert.Equal(t, models.OnlineTxStatusSuccess, otx.Status)
		assert.Equal(t, "BANK42", otx.UTRNumber)
		assert.Equal(t, "netbanking", otx.PaymentMethod)
	})

	t.Run("replayed capture event is acknowledged", func(t *testing.T) {
		svc, _, _ := newRazorpayFixture(true)
		createOrder(t, svc)

		require.NoError(t, svc.ProcessWebhook(context.Background(), "payment.captured", capturedPayload))
		require.NoError(t, svc.ProcessWebhook(context.Background(), "payment.captured", capturedPayload))
	})

	t.Run("payment.failed records the reason", func(t *testing.T) {
		svc, store, _ := newRazorpayFixture(true)
		createOrder(t, svc)

		payload := map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"order_id":          "order_test123",
					"error_description": "insufficient funds",
				},
			},
		}
		require.NoError(t, svc.ProcessWebhook(context.Background(), "payment.failed", payload))

		otx := store.transactions["order_test123"]
		assert.Equal(t, models.OnlineTxStatusFailed, otx.Status)
		assert.Equal(t, "insufficient funds", otx.FailureReason)
	})

	t.Run("failure after settlement does not clobber it", func(t *testing.T) {
		svc, store, _ := newRazorpayFixture(true)
		createOrder(t, svc)

		require.NoError(t, svc.ProcessWebhook(context.Background(), "payment.captured", capturedPayload))
		require.NoError(t, svc.ProcessWebhook(context.Background(), "payment.failed", map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{"order_id": "order_test123"},
			},
		}))

		assert.Equal(t, models.OnlineTxStatusSuccess, store.transactions["order_test123"].Status)
	})

	t.Run("unknown events are ignored", func(t *testing.T) {
		svc, _, _ := newRazorpayFixture(true)
		assert.NoError(t, svc.ProcessWebhook(context.Background(), "refund.created", map[string]interface{}{}))
	})
}

func TestWebhookSignature(t *testing.T) {
	svc, _, _ := newRazorpayFixture(true)
	body := []byte(`{"event":"payment.captured"}`)

	assert.True(t, svc.VerifyWebhookSignature(context.Background(), body, sign("whsec", string(body))))
	assert.False(t, svc.VerifyWebhookSignature(context.Background(), body, "forged"))
}

func TestCalculateFee(t *testing.T) {
	assert.Equal(t, 7.0, CalculateFee(350, 2.0))
	assert.Equal(t, 2.5, CalculateFee(100, 2.5))
	assert.Equal(t, 0.25, CalculateFee(9.99, 2.5)) // 0.24975 rounds up
}
