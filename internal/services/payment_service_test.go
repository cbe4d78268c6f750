package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cable-backend/internal/models"
)

type fakePaymentStore struct {
	lastPayment *models.Payment
	lastApp     *models.PaymentApplication
	lastFilter  models.PaymentFilter
	charged     int
	listResult  []*models.Payment
	summaries   []*models.CollectionSummary
}

func (f *fakePaymentStore) Record(ctx context.Context, payment *models.Payment, app *models.PaymentApplication) error {
	payment.ID = 1
	payment.ReceiptNumber = "RCP-000001"
	f.lastPayment = payment
	f.lastApp = app
	return nil
}

func (f *fakePaymentStore) Get(ctx context.Context, id int) (*models.Payment, error) {
	if f.lastPayment == nil || f.lastPayment.ID != id {
		return nil, models.ErrNotFound
	}
	return f.lastPayment, nil
}

func (f *fakePaymentStore) GetByReceiptNumber(ctx context.Context, receiptNumber string) (*models.Payment, error) {
	if f.lastPayment == nil || f.lastPayment.ReceiptNumber != receiptNumber {
		return nil, models.ErrNotFound
	}
	return f.lastPayment, nil
}

func (f *fakePaymentStore) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	f.lastFilter = filter
	return f.listResult, nil
}

func (f *fakePaymentStore) CollectionSummaries(ctx context.Context, start, end time.Time) ([]*models.CollectionSummary, error) {
	return f.summaries, nil
}

func (f *fakePaymentStore) PostMonthlyCharges(ctx context.Context, period time.Time) (int, error) {
	return f.charged, nil
}

func paymentFixtureCustomer() *models.Customer {
	c := &models.Customer{
		ID:     20,
		Name:   "Sunita Devi",
		Phone:  "9811122233",
		Area:   "Shastri Nagar",
		Status: models.StatusActive,
		Connections: []*models.Connection{
			{
				ID: 5, CustomerID: 20, VCNumber: "VC2001",
				PlanName: "Basic-50", PlanPrice: 250,
				Status: models.StatusActive, IsPrimary: true, Idx: 0,
				PreviousOutstanding: 100, CurrentOutstanding: 250,
			},
			{
				ID: 6, CustomerID: 20, VCNumber: "VC2002",
				PlanName: "Premium-100", PlanPrice: 450,
				Status: models.StatusActive, IsPrimary: false, Idx: 1,
				PreviousOutstanding: 0, CurrentOutstanding: 450,
			},
		},
	}
	models.DeriveLegacyFields(c)
	return c
}

func newPaymentFixture() (*PaymentService, *fakePaymentStore) {
	customers := &fakeCustomerGetter{customers: map[int]*models.Customer{20: paymentFixtureCustomer()}}
	store := &fakePaymentStore{}
	return NewPaymentService(store, customers, &fakeLedgerStore{}), store
}

func TestRecordPayment(t *testing.T) {
	t.Run("clears previous outstanding before current", func(t *testing.T) {
		svc, store := newPaymentFixture()

		payment, err := svc.RecordPayment(context.Background(), employeeActor, &models.CreatePaymentRequest{
			CustomerID: 20,
			Amount:     150,
			Mode:       models.PaymentModeCash,
		})
		require.NoError(t, err)

		assert.Equal(t, "RCP-000001", payment.ReceiptNumber)
		assert.Equal(t, "VC2001", payment.VCNumber) // defaults to the primary connection
		assert.Equal(t, 100.0, payment.PreviousCleared)
		assert.Equal(t, 50.0, payment.CurrentCleared)

		require.NotNil(t, store.lastApp)
		assert.Equal(t, 5, store.lastApp.ConnectionID)
		assert.Equal(t, 0.0, store.lastApp.NewPrevious)
		assert.Equal(t, 200.0, store.lastApp.NewCurrent)
	})

	t.Run("collects against a named secondary VC", func(t *testing.T) {
		svc, store := newPaymentFixture()

		payment, err := svc.RecordPayment(context.Background(), employeeActor, &models.CreatePaymentRequest{
			CustomerID: 20,
			VCNumber:   "VC2002",
			Amount:     450,
			Mode:       models.PaymentModeUPI,
		})
		require.NoError(t, err)

		assert.Equal(t, "VC2002", payment.VCNumber)
		assert.Equal(t, 0.0, payment.PreviousCleared)
		assert.Equal(t, 450.0, payment.CurrentCleared)
		assert.Equal(t, 6, store.lastApp.ConnectionID)
		assert.Equal(t, 0.0, store.lastApp.NewCurrent)
	})

	t.Run("overpayment leaves a credit balance", func(t *testing.T) {
		svc, store := newPaymentFixture()

		_, err := svc.RecordPayment(context.Background(), employeeActor, &models.CreatePaymentRequest{
			CustomerID: 20,
			Amount:     400,
			Mode:       models.PaymentModeCash,
		})
		require.NoError(t, err)

		assert.Equal(t, 0.0, store.lastApp.NewPrevious)
		assert.Equal(t, -50.0, store.lastApp.NewCurrent)
	})

	t.Run("rejects invalid submissions", func(t *testing.T) {
		svc, _ := newPaymentFixture()
		tests := []struct {
			name    string
			req     *models.CreatePaymentRequest
			wantErr string
		}{
			{
				name:    "zero amount",
				req:     &models.CreatePaymentRequest{CustomerID: 20, Amount: 0, Mode: models.PaymentModeCash},
				wantErr: "amount must be greater than zero",
			},
			{
				name:    "online mode",
				req:     &models.CreatePaymentRequest{CustomerID: 20, Amount: 100, Mode: models.PaymentModeOnline},
				wantErr: "payment gateway",
			},
			{
				name:    "unknown mode",
				req:     &models.CreatePaymentRequest{CustomerID: 20, Amount: 100, Mode: "cheque"},
				wantErr: "unknown payment mode",
			},
			{
				name:    "unknown VC",
				req:     &models.CreatePaymentRequest{CustomerID: 20, VCNumber: "VC9999", Amount: 100, Mode: models.PaymentModeCash},
				wantErr: "does not belong to customer",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.RecordPayment(context.Background(), employeeActor, tt.req)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			})
		}
	})

	t.Run("employee outside the area is forbidden", func(t *testing.T) {
		svc, _ := newPaymentFixture()
		outsider := models.Actor{UserID: 7, Role: models.RoleEmployee, Areas: []string{"Gandhi Road"}}

		_, err := svc.RecordPayment(context.Background(), outsider, &models.CreatePaymentRequest{
			CustomerID: 20, Amount: 100, Mode: models.PaymentModeCash,
		})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestListPaymentsScoping(t *testing.T) {
	t.Run("employee is restricted to assigned areas", func(t *testing.T) {
		svc, store := newPaymentFixture()

		_, err := svc.ListPayments(context.Background(), employeeActor, models.PaymentFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Shastri Nagar"}, store.lastFilter.Areas)
	})

	t.Run("employee without areas sees only own collections", func(t *testing.T) {
		svc, store := newPaymentFixture()
		bare := models.Actor{UserID: 9, Role: models.RoleEmployee}

		_, err := svc.ListPayments(context.Background(), bare, models.PaymentFilter{})
		require.NoError(t, err)
		assert.Equal(t, 9, store.lastFilter.CollectedBy)
	})

	t.Run("employee cannot filter on a foreign area", func(t *testing.T) {
		svc, _ := newPaymentFixture()

		_, err := svc.ListPayments(context.Background(), employeeActor, models.PaymentFilter{Area: "Gandhi Road"})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("admin filter passes through unchanged", func(t *testing.T) {
		svc, store := newPaymentFixture()

		_, err := svc.ListPayments(context.Background(), adminActor, models.PaymentFilter{Area: "Gandhi Road"})
		require.NoError(t, err)
		assert.Equal(t, "Gandhi Road", store.lastFilter.Area)
		assert.Empty(t, store.lastFilter.Areas)
	})
}

func TestPostMonthlyCharges(t *testing.T) {
	t.Run("admin only", func(t *testing.T) {
		svc, _ := newPaymentFixture()

		_, err := svc.PostMonthlyCharges(context.Background(), employeeActor, time.Now())
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("returns the number of charged connections", func(t *testing.T) {
		svc, store := newPaymentFixture()
		store.charged = 12

		n, err := svc.PostMonthlyCharges(context.Background(), adminActor, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 12, n)
	})
}
