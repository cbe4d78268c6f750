package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cable-backend/internal/models"
)

// fakeCustomerStore is a map-backed stand-in for the customer repository.
type fakeCustomerStore struct {
	customers   map[int]*models.Customer
	nextID      int
	listResult  []*models.Customer
	lastFilter  models.CustomerFilter
	listCalled  bool
	lastActorID int
}

func newFakeCustomerStore() *fakeCustomerStore {
	return &fakeCustomerStore{customers: map[int]*models.Customer{}, nextID: 1}
}

func (f *fakeCustomerStore) Create(ctx context.Context, c *models.Customer, actorID int) error {
	c.ID = f.nextID
	f.nextID++
	c.Version = 1
	for i, conn := range c.Connections {
		conn.ID = c.ID*10 + i
		conn.CustomerID = c.ID
	}
	f.customers[c.ID] = c
	f.lastActorID = actorID
	return nil
}

func (f *fakeCustomerStore) Get(ctx context.Context, id int) (*models.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return c, nil
}

func (f *fakeCustomerStore) GetByVC(ctx context.Context, vcNumber string) (*models.Customer, error) {
	for _, c := range f.customers {
		for _, conn := range c.Connections {
			if conn.VCNumber == vcNumber {
				return c, nil
			}
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeCustomerStore) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	for _, c := range f.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeCustomerStore) List(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error) {
	f.listCalled = true
	f.lastFilter = filter
	return f.listResult, nil
}

func (f *fakeCustomerStore) Update(ctx context.Context, c *models.Customer, expectedVersion int, actorID int) error {
	existing, ok := f.customers[c.ID]
	if !ok {
		return models.ErrNotFound
	}
	if existing.Version != expectedVersion {
		return models.ErrVersionConflict
	}
	c.Version = existing.Version + 1
	f.customers[c.ID] = c
	f.lastActorID = actorID
	return nil
}

func (f *fakeCustomerStore) Delete(ctx context.Context, id int, actorID int) error {
	if _, ok := f.customers[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.customers, id)
	f.lastActorID = actorID
	return nil
}

func (f *fakeCustomerStore) Areas(ctx context.Context) ([]string, error) {
	return []string{"Gandhi Road", "Shastri Nagar"}, nil
}

func seedCustomer(t *testing.T, svc *CustomerService, area string) *models.Customer {
	t.Helper()
	created, err := svc.CreateCustomer(context.Background(), adminActor, &models.CreateCustomerRequest{
		Name:  "Ramesh Kumar",
		Phone: "9876543210",
		Area:  area,
		Connections: []*models.ConnectionInput{
			{VCNumber: "VC1001", PlanName: "Basic-50", PlanPrice: 250, PreviousOutstanding: 100, CurrentOutstanding: 250, IsPrimary: true},
			{VCNumber: "VC1002", PlanName: "Premium-100", PlanPrice: 450, CurrentOutstanding: 450},
		},
	})
	require.NoError(t, err)
	return created
}

func TestCreateCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("derives top-level fields from the connections", func(t *testing.T) {
		store := newFakeCustomerStore()
		svc := NewCustomerService(store)

		created := seedCustomer(t, svc, "Shastri Nagar")

		assert.Equal(t, 1, created.ID)
		assert.Equal(t, 1, created.Version)
		assert.Equal(t, "VC1001", created.VCNumber)
		assert.Equal(t, "Basic-50", created.PackageName)
		assert.Equal(t, 250.0, created.PackageAmount)
		assert.Equal(t, 100.0, created.PreviousOutstanding)
		assert.Equal(t, 700.0, created.CurrentOutstanding)
		assert.Equal(t, models.StatusActive, created.Status)
		assert.True(t, created.IsActive)
		assert.Equal(t, 1, created.BillDueDay)
		assert.False(t, created.JoinDate.IsZero())
		assert.Equal(t, adminActor.UserID, store.lastActorID)
	})

	t.Run("first connection becomes primary when none is marked", func(t *testing.T) {
		svc := NewCustomerService(newFakeCustomerStore())

		created, err := svc.CreateCustomer(ctx, adminActor, &models.CreateCustomerRequest{
			Name:  "Sunita Devi",
			Phone: "9811122233",
			Area:  "Shastri Nagar",
			Connections: []*models.ConnectionInput{
				{VCNumber: "VC2001", PlanName: "Basic-50", PlanPrice: 250},
				{VCNumber: "VC2002", PlanName: "Premium-100", PlanPrice: 450},
			},
		})
		require.NoError(t, err)

		assert.True(t, created.Connections[0].IsPrimary)
		assert.False(t, created.Connections[1].IsPrimary)
		assert.Equal(t, 0, created.Connections[0].Idx)
		assert.Equal(t, 1, created.Connections[1].Idx)
		assert.Equal(t, "VC2001", created.VCNumber)
	})

	t.Run("custom plan overrides the copied catalogue plan", func(t *testing.T) {
		svc := NewCustomerService(newFakeCustomerStore())

		created, err := svc.CreateCustomer(ctx, adminActor, &models.CreateCustomerRequest{
			Name:  "Mahesh Gupta",
			Phone: "9822233344",
			Area:  "Gandhi Road",
			Connections: []*models.ConnectionInput{
				{VCNumber: "VC3001", PlanName: "Basic-50", PlanPrice: 250, CustomPlanName: "Sports Pack", CustomPlanPrice: 300, IsPrimary: true},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "Sports Pack", created.PackageName)
		assert.Equal(t, 300.0, created.PackageAmount)
	})

	t.Run("join date is parsed as YYYY-MM-DD", func(t *testing.T) {
		svc := NewCustomerService(newFakeCustomerStore())

		created, err := svc.CreateCustomer(ctx, adminActor, &models.CreateCustomerRequest{
			Name:     "Ramesh Kumar",
			Phone:    "9876543210",
			Area:     "Shastri Nagar",
			JoinDate: "2024-06-15",
			Connections: []*models.ConnectionInput{
				{VCNumber: "VC1001", PlanName: "Basic-50", PlanPrice: 250},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, 2024, created.JoinDate.Year())
		assert.Equal(t, 6, int(created.JoinDate.Month()))
		assert.Equal(t, 15, created.JoinDate.Day())
	})

	t.Run("employee can create inside an assigned area", func(t *testing.T) {
		svc := NewCustomerService(newFakeCustomerStore())

		_, err := svc.CreateCustomer(ctx, employeeActor, &models.CreateCustomerRequest{
			Name:  "Ramesh Kumar",
			Phone: "9876543210",
			Area:  "Shastri Nagar",
			Connections: []*models.ConnectionInput{
				{VCNumber: "VC1001", PlanName: "Basic-50", PlanPrice: 250},
			},
		})
		assert.NoError(t, err)
	})

	t.Run("employee cannot create outside their areas", func(t *testing.T) {
		svc := NewCustomerService(newFakeCustomerStore())

		_, err := svc.CreateCustomer(ctx, employeeActor, &models.CreateCustomerRequest{
			Name:  "Ramesh Kumar",
			Phone: "9876543210",
			Area:  "Gandhi Road",
			Connections: []*models.ConnectionInput{
				{VCNumber: "VC1001", PlanName: "Basic-50", PlanPrice: 250},
			},
		})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		svc := NewCustomerService(newFakeCustomerStore())

		conns := []*models.ConnectionInput{{VCNumber: "VC1001", PlanName: "Basic-50", PlanPrice: 250}}
		cases := []struct {
			name    string
			req     *models.CreateCustomerRequest
			wantErr string
		}{
			{
				name:    "missing name",
				req:     &models.CreateCustomerRequest{Phone: "9876543210", Area: "Shastri Nagar", Connections: conns},
				wantErr: "name, phone and area are required",
			},
			{
				name:    "missing phone",
				req:     &models.CreateCustomerRequest{Name: "Ramesh", Area: "Shastri Nagar", Connections: conns},
				wantErr: "name, phone and area are required",
			},
			{
				name:    "unknown status",
				req:     &models.CreateCustomerRequest{Name: "Ramesh", Phone: "9876543210", Area: "Shastri Nagar", Status: "paused", Connections: conns},
				wantErr: "unknown status",
			},
			{
				name:    "bill due day out of range",
				req:     &models.CreateCustomerRequest{Name: "Ramesh", Phone: "9876543210", Area: "Shastri Nagar", BillDueDay: 32, Connections: conns},
				wantErr: "bill_due_day must be between 1 and 31",
			},
			{
				name:    "bad join date format",
				req:     &models.CreateCustomerRequest{Name: "Ramesh", Phone: "9876543210", Area: "Shastri Nagar", JoinDate: "15-06-2024", Connections: conns},
				wantErr: "invalid join_date",
			},
			{
				name: "connection without vc number",
				req: &models.CreateCustomerRequest{Name: "Ramesh", Phone: "9876543210", Area: "Shastri Nagar", Connections: []*models.ConnectionInput{
					{VCNumber: "VC1001", PlanName: "Basic-50", PlanPrice: 250},
					{VCNumber: "  ", PlanName: "Basic-50", PlanPrice: 250},
				}},
				wantErr: "connection 2: vc_number is required",
			},
			{
				name: "duplicate vc number",
				req: &models.CreateCustomerRequest{Name: "Ramesh", Phone: "9876543210", Area: "Shastri Nagar", Connections: []*models.ConnectionInput{
					{VCNumber: "VC1001", PlanName: "Basic-50", PlanPrice: 250},
					{VCNumber: "VC1001", PlanName: "Premium-100", PlanPrice: 450},
				}},
				wantErr: "connection 2: duplicate vc_number VC1001",
			},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.CreateCustomer(ctx, adminActor, tc.req)
				assert.ErrorContains(t, err, tc.wantErr)
			})
		}
	})
}

func TestGetCustomerScoping(t *testing.T) {
	ctx := context.Background()
	store := newFakeCustomerStore()
	svc := NewCustomerService(store)
	own := seedCustomer(t, svc, "Shastri Nagar")
	foreign, err := svc.CreateCustomer(ctx, adminActor, &models.CreateCustomerRequest{
		Name:  "Mahesh Gupta",
		Phone: "9822233344",
		Area:  "Gandhi Road",
		Connections: []*models.ConnectionInput{
			{VCNumber: "VC3001", PlanName: "Basic-50", PlanPrice: 250},
		},
	})
	require.NoError(t, err)

	t.Run("employee reads own-area customer", func(t *testing.T) {
		got, err := svc.GetCustomer(ctx, employeeActor, own.ID)
		require.NoError(t, err)
		assert.Equal(t, own.ID, got.ID)
	})

	t.Run("employee blocked from foreign-area customer", func(t *testing.T) {
		_, err := svc.GetCustomer(ctx, employeeActor, foreign.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("search by vc applies the same scoping", func(t *testing.T) {
		got, err := svc.SearchByVC(ctx, employeeActor, "VC1001")
		require.NoError(t, err)
		assert.Equal(t, own.ID, got.ID)

		_, err = svc.SearchByVC(ctx, employeeActor, "VC3001")
		assert.ErrorIs(t, err, models.ErrForbidden)

		_, err = svc.SearchByVC(ctx, adminActor, "")
		assert.ErrorContains(t, err, "vc_number is required")
	})

	t.Run("search by phone applies the same scoping", func(t *testing.T) {
		got, err := svc.SearchByPhone(ctx, adminActor, "9822233344")
		require.NoError(t, err)
		assert.Equal(t, foreign.ID, got.ID)

		_, err = svc.SearchByPhone(ctx, employeeActor, "9822233344")
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestListCustomersScoping(t *testing.T) {
	ctx := context.Background()

	t.Run("employee list is forced into assigned areas", func(t *testing.T) {
		store := newFakeCustomerStore()
		svc := NewCustomerService(store)

		_, err := svc.ListCustomers(ctx, employeeActor, models.CustomerFilter{Status: "active"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Shastri Nagar"}, store.lastFilter.Areas)
		assert.Equal(t, "active", store.lastFilter.Status)
	})

	t.Run("employee with no areas sees an empty list", func(t *testing.T) {
		store := newFakeCustomerStore()
		svc := NewCustomerService(store)
		bare := models.Actor{UserID: 9, Role: models.RoleEmployee}

		got, err := svc.ListCustomers(ctx, bare, models.CustomerFilter{})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.False(t, store.listCalled)
	})

	t.Run("employee cannot filter into a foreign area", func(t *testing.T) {
		svc := NewCustomerService(newFakeCustomerStore())

		_, err := svc.ListCustomers(ctx, employeeActor, models.CustomerFilter{Area: "Gandhi Road"})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("admin filter passes through untouched", func(t *testing.T) {
		store := newFakeCustomerStore()
		svc := NewCustomerService(store)

		_, err := svc.ListCustomers(ctx, adminActor, models.CustomerFilter{Area: "Gandhi Road", Search: "ramesh"})
		require.NoError(t, err)
		assert.Equal(t, "Gandhi Road", store.lastFilter.Area)
		assert.Equal(t, "ramesh", store.lastFilter.Search)
		assert.Empty(t, store.lastFilter.Areas)
	})
}

func TestUpdateCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("rewrites the customer and re-derives fields", func(t *testing.T) {
		store := newFakeCustomerStore()
		svc := NewCustomerService(store)
		created := seedCustomer(t, svc, "Shastri Nagar")

		updated, err := svc.UpdateCustomer(ctx, adminActor, created.ID, &models.UpdateCustomerRequest{
			Name:  "Ramesh Kumar",
			Phone: "9876543210",
			Area:  "Shastri Nagar",
			Connections: []*models.ConnectionInput{
				{ID: created.Connections[0].ID, VCNumber: "VC1001", PlanName: "Premium-100", PlanPrice: 450, CurrentOutstanding: 450, IsPrimary: true},
			},
			Version: created.Version,
		})
		require.NoError(t, err)

		assert.Equal(t, 2, updated.Version)
		assert.Equal(t, "Premium-100", updated.PackageName)
		assert.Equal(t, 450.0, updated.PackageAmount)
		assert.Equal(t, 0.0, updated.PreviousOutstanding)
		assert.Equal(t, 450.0, updated.CurrentOutstanding)
		assert.Len(t, updated.Connections, 1)
		assert.Equal(t, created.JoinDate, updated.JoinDate)
		assert.Equal(t, adminActor.UserID, store.lastActorID)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		store := newFakeCustomerStore()
		svc := NewCustomerService(store)
		created := seedCustomer(t, svc, "Shastri Nagar")

		req := &models.UpdateCustomerRequest{
			Name:  "Ramesh Kumar",
			Phone: "9876543210",
			Area:  "Shastri Nagar",
			Connections: []*models.ConnectionInput{
				{VCNumber: "VC1001", PlanName: "Basic-50", PlanPrice: 250},
			},
			Version: created.Version,
		}
		_, err := svc.UpdateCustomer(ctx, adminActor, created.ID, req)
		require.NoError(t, err)

		// Replaying the same request now carries an outdated version.
		_, err = svc.UpdateCustomer(ctx, adminActor, created.ID, req)
		assert.ErrorIs(t, err, models.ErrVersionConflict)
	})

	t.Run("employee cannot move a customer into a foreign area", func(t *testing.T) {
		store := newFakeCustomerStore()
		svc := NewCustomerService(store)
		created := seedCustomer(t, svc, "Shastri Nagar")

		_, err := svc.UpdateCustomer(ctx, employeeActor, created.ID, &models.UpdateCustomerRequest{
			Name:  "Ramesh Kumar",
			Phone: "9876543210",
			Area:  "Gandhi Road",
			Connections: []*models.ConnectionInput{
				{VCNumber: "VC1001", PlanName: "Basic-50", PlanPrice: 250},
			},
			Version: created.Version,
		})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("employee cannot touch a foreign-area customer", func(t *testing.T) {
		store := newFakeCustomerStore()
		svc := NewCustomerService(store)
		created, err := svc.CreateCustomer(ctx, adminActor, &models.CreateCustomerRequest{
			Name:  "Mahesh Gupta",
			Phone: "9822233344",
			Area:  "Gandhi Road",
			Connections: []*models.ConnectionInput{
				{VCNumber: "VC3001", PlanName: "Basic-50", PlanPrice: 250},
			},
		})
		require.NoError(t, err)

		// Even pulling the customer into the employee's own area is refused.
		_, err = svc.UpdateCustomer(ctx, employeeActor, created.ID, &models.UpdateCustomerRequest{
			Name:  "Mahesh Gupta",
			Phone: "9822233344",
			Area:  "Shastri Nagar",
			Connections: []*models.ConnectionInput{
				{VCNumber: "VC3001", PlanName: "Basic-50", PlanPrice: 250},
			},
			Version: created.Version,
		})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("unknown customer", func(t *testing.T) {
		svc := NewCustomerService(newFakeCustomerStore())

		_, err := svc.UpdateCustomer(ctx, adminActor, 99, &models.UpdateCustomerRequest{
			Name:  "Ramesh Kumar",
			Phone: "9876543210",
			Area:  "Shastri Nagar",
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestDeleteCustomer(t *testing.T) {
	ctx := context.Background()
	store := newFakeCustomerStore()
	svc := NewCustomerService(store)
	created := seedCustomer(t, svc, "Shastri Nagar")

	t.Run("employees cannot delete", func(t *testing.T) {
		err := svc.DeleteCustomer(ctx, employeeActor, created.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("admin delete removes the record", func(t *testing.T) {
		err := svc.DeleteCustomer(ctx, adminActor, created.ID)
		require.NoError(t, err)
		assert.Equal(t, adminActor.UserID, store.lastActorID)

		_, err = svc.GetCustomer(ctx, adminActor, created.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestListAreas(t *testing.T) {
	ctx := context.Background()
	svc := NewCustomerService(newFakeCustomerStore())

	t.Run("admin sees every area", func(t *testing.T) {
		areas, err := svc.ListAreas(ctx, adminActor)
		require.NoError(t, err)
		assert.Equal(t, []string{"Gandhi Road", "Shastri Nagar"}, areas)
	})

	t.Run("employee sees only assigned areas", func(t *testing.T) {
		areas, err := svc.ListAreas(ctx, employeeActor)
		require.NoError(t, err)
		assert.Equal(t, []string{"Shastri Nagar"}, areas)
	})
}
