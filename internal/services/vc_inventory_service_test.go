package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cable-backend/internal/models"
	"cable-backend/internal/timeutil"
)

type fakeVCStore struct {
	items       map[int]*models.VCInventoryItem
	nextID      int
	lastFilter  models.VCFilter
	lastVersion int
	lastReason  string
}

func newFakeVCStore() *fakeVCStore {
	return &fakeVCStore{items: map[int]*models.VCInventoryItem{}, nextID: 1}
}

func (f *fakeVCStore) Create(ctx context.Context, item *models.VCInventoryItem) error {
	for _, existing := range f.items {
		if existing.VCNumber == item.VCNumber {
			return models.ErrDuplicate
		}
	}
	item.ID = f.nextID
	f.nextID++
	item.Version = 1
	f.items[item.ID] = item
	return nil
}

func (f *fakeVCStore) Get(ctx context.Context, id int) (*models.VCInventoryItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return item, nil
}

func (f *fakeVCStore) GetByNumber(ctx context.Context, vcNumber string) (*models.VCInventoryItem, error) {
	for _, item := range f.items {
		if item.VCNumber == vcNumber {
			return item, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeVCStore) List(ctx context.Context, filter models.VCFilter) ([]*models.VCInventoryItem, error) {
	f.lastFilter = filter
	out := make([]*models.VCInventoryItem, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeVCStore) locked(id, expectedVersion int) (*models.VCInventoryItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if item.Version != expectedVersion {
		return nil, models.ErrVersionConflict
	}
	f.lastVersion = expectedVersion
	return item, nil
}

func (f *fakeVCStore) ChangeStatus(ctx context.Context, id int, status models.VCStatus, changedBy int, reason string, expectedVersion int) error {
	item, err := f.locked(id, expectedVersion)
	if err != nil {
		return err
	}
	item.Status = status
	item.StatusHistory = append(item.StatusHistory, &models.VCStatusHistoryEntry{
		VCID:      id,
		Status:    status,
		ChangedAt: timeutil.Now(),
		ChangedBy: changedBy,
		Reason:    reason,
	})
	item.Version++
	f.lastReason = reason
	return nil
}

func (f *fakeVCStore) Reassign(ctx context.Context, id int, customerID int, customerName string, changedBy int, expectedVersion int) error {
	item, err := f.locked(id, expectedVersion)
	if err != nil {
		return err
	}
	item.CustomerID = &customerID
	item.CustomerName = customerName
	item.CloseOpenOwnership(timeutil.Now())
	item.OwnershipHistory = append(item.OwnershipHistory, &models.VCOwnershipEntry{
		VCID:         id,
		CustomerID:   customerID,
		CustomerName: customerName,
	})
	item.Version++
	return nil
}

func (f *fakeVCStore) Release(ctx context.Context, id int, changedBy int, reason string, expectedVersion int) error {
	item, err := f.locked(id, expectedVersion)
	if err != nil {
		return err
	}
	item.CustomerID = nil
	item.CustomerName = ""
	item.Status = models.VCStatusAvailable
	item.Version++
	f.lastReason = reason
	return nil
}

func (f *fakeVCStore) UpdatePackage(ctx context.Context, id int, packageID *int, packageName string, packageAmount float64, expectedVersion int) error {
	item, err := f.locked(id, expectedVersion)
	if err != nil {
		return err
	}
	item.PackageID = packageID
	item.PackageName = packageName
	item.PackageAmount = packageAmount
	item.Version++
	return nil
}

func (f *fakeVCStore) Delete(ctx context.Context, id int) error {
	if _, ok := f.items[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeVCStore) StatusCounts(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	for _, item := range f.items {
		counts[string(item.Status)]++
	}
	return counts, nil
}

func seedVCItem(t *testing.T, svc *VCInventoryService) *models.VCInventoryItem {
	t.Helper()
	item, err := svc.CreateItem(context.Background(), adminActor, &models.CreateVCItemRequest{
		VCNumber:      "VC9001",
		PackageName:   "Basic-50",
		PackageAmount: 250,
	})
	require.NoError(t, err)
	return item
}

func TestCreateVCItem(t *testing.T) {
	ctx := context.Background()

	t.Run("new cards enter stock as available", func(t *testing.T) {
		store := newFakeVCStore()
		svc := NewVCInventoryService(store)

		item, err := svc.CreateItem(ctx, adminActor, &models.CreateVCItemRequest{
			VCNumber:      "  VC9001  ",
			PackageName:   "Basic-50",
			PackageAmount: 250,
		})
		require.NoError(t, err)

		assert.Equal(t, "VC9001", item.VCNumber)
		assert.Equal(t, models.VCStatusAvailable, item.Status)
		assert.Nil(t, item.CustomerID)
		assert.Equal(t, 1, item.Version)
	})

	t.Run("duplicate number is refused", func(t *testing.T) {
		store := newFakeVCStore()
		svc := NewVCInventoryService(store)
		seedVCItem(t, svc)

		_, err := svc.CreateItem(ctx, adminActor, &models.CreateVCItemRequest{VCNumber: "VC9001"})
		assert.ErrorIs(t, err, models.ErrDuplicate)
	})

	t.Run("vc number is required", func(t *testing.T) {
		svc := NewVCInventoryService(newFakeVCStore())

		_, err := svc.CreateItem(ctx, adminActor, &models.CreateVCItemRequest{VCNumber: "   "})
		assert.ErrorContains(t, err, "vc_number is required")
	})

	t.Run("employees cannot add stock", func(t *testing.T) {
		svc := NewVCInventoryService(newFakeVCStore())

		_, err := svc.CreateItem(ctx, employeeActor, &models.CreateVCItemRequest{VCNumber: "VC9001"})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestChangeVCStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("appends to the status trail", func(t *testing.T) {
		store := newFakeVCStore()
		svc := NewVCInventoryService(store)
		item := seedVCItem(t, svc)

		updated, err := svc.ChangeStatus(ctx, adminActor, item.ID, &models.ChangeVCStatusRequest{
			Status: "inactive",
			Reason: "  box returned for repair  ",
		})
		require.NoError(t, err)

		assert.Equal(t, models.VCStatusInactive, updated.Status)
		assert.Equal(t, 2, updated.Version)
		require.Len(t, updated.StatusHistory, 1)
		assert.Equal(t, models.VCStatusInactive, updated.StatusHistory[0].Status)
		assert.Equal(t, adminActor.UserID, updated.StatusHistory[0].ChangedBy)
		assert.Equal(t, "box returned for repair", store.lastReason)
		assert.Equal(t, 1, store.lastVersion)
	})

	t.Run("unknown status", func(t *testing.T) {
		svc := NewVCInventoryService(newFakeVCStore())
		item := seedVCItem(t, svc)

		_, err := svc.ChangeStatus(ctx, adminActor, item.ID, &models.ChangeVCStatusRequest{Status: "lost"})
		assert.ErrorContains(t, err, "unknown vc status")
	})

	t.Run("employees cannot change status directly", func(t *testing.T) {
		svc := NewVCInventoryService(newFakeVCStore())
		item := seedVCItem(t, svc)

		_, err := svc.ChangeStatus(ctx, employeeActor, item.ID, &models.ChangeVCStatusRequest{Status: "inactive"})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestReassignVC(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the card to the new owner", func(t *testing.T) {
		store := newFakeVCStore()
		svc := NewVCInventoryService(store)
		item := seedVCItem(t, svc)

		updated, err := svc.Reassign(ctx, adminActor, item.ID, &models.ReassignVCRequest{
			CustomerID:   20,
			CustomerName: "Sunita Devi",
		})
		require.NoError(t, err)

		require.NotNil(t, updated.CustomerID)
		assert.Equal(t, 20, *updated.CustomerID)
		assert.Equal(t, "Sunita Devi", updated.CustomerName)
		require.Len(t, updated.OwnershipHistory, 1)
	})

	t.Run("does not touch the card's status", func(t *testing.T) {
		store := newFakeVCStore()
		svc := NewVCInventoryService(store)
		item := seedVCItem(t, svc)
		require.Equal(t, models.VCStatusAvailable, item.Status)

		updated, err := svc.Reassign(ctx, adminActor, item.ID, &models.ReassignVCRequest{
			CustomerID:   20,
			CustomerName: "Sunita Devi",
		})
		require.NoError(t, err)
		assert.Equal(t, models.VCStatusAvailable, updated.Status)
		assert.Empty(t, updated.StatusHistory)
	})

	t.Run("exactly one ownership entry stays open", func(t *testing.T) {
		store := newFakeVCStore()
		svc := NewVCInventoryService(store)
		item := seedVCItem(t, svc)

		_, err := svc.Reassign(ctx, adminActor, item.ID, &models.ReassignVCRequest{CustomerID: 20, CustomerName: "Sunita Devi"})
		require.NoError(t, err)
		updated, err := svc.Reassign(ctx, adminActor, item.ID, &models.ReassignVCRequest{CustomerID: 21, CustomerName: "Ramesh Yadav"})
		require.NoError(t, err)

		open := 0
		for _, e := range updated.OwnershipHistory {
			if e.EndDate == nil {
				open++
				assert.Equal(t, 21, e.CustomerID)
			}
		}
		assert.Equal(t, 1, open)
	})

	t.Run("reassigning to the current owner is rejected", func(t *testing.T) {
		svc := NewVCInventoryService(newFakeVCStore())
		item := seedVCItem(t, svc)

		_, err := svc.Reassign(ctx, adminActor, item.ID, &models.ReassignVCRequest{CustomerID: 20, CustomerName: "Sunita Devi"})
		require.NoError(t, err)

		_, err = svc.Reassign(ctx, adminActor, item.ID, &models.ReassignVCRequest{CustomerID: 20, CustomerName: "Sunita Devi"})
		assert.ErrorContains(t, err, "already assigned to this customer")
	})

	t.Run("customer id is required", func(t *testing.T) {
		svc := NewVCInventoryService(newFakeVCStore())
		item := seedVCItem(t, svc)

		_, err := svc.Reassign(ctx, adminActor, item.ID, &models.ReassignVCRequest{})
		assert.ErrorContains(t, err, "customer_id is required")
	})

	t.Run("employees cannot reassign", func(t *testing.T) {
		svc := NewVCInventoryService(newFakeVCStore())
		item := seedVCItem(t, svc)

		_, err := svc.Reassign(ctx, employeeActor, item.ID, &models.ReassignVCRequest{CustomerID: 20})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestReleaseVC(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the card to stock", func(t *testing.T) {
		store := newFakeVCStore()
		svc := NewVCInventoryService(store)
		item := seedVCItem(t, svc)
		_, err := svc.Reassign(ctx, adminActor, item.ID, &models.ReassignVCRequest{CustomerID: 20, CustomerName: "Sunita Devi"})
		require.NoError(t, err)

		released, err := svc.Release(ctx, adminActor, item.ID, "")
		require.NoError(t, err)

		assert.Nil(t, released.CustomerID)
		assert.Equal(t, models.VCStatusAvailable, released.Status)
		assert.Equal(t, "released to stock", store.lastReason)
	})

	t.Run("unassigned cards cannot be released", func(t *testing.T) {
		svc := NewVCInventoryService(newFakeVCStore())
		item := seedVCItem(t, svc)

		_, err := svc.Release(ctx, adminActor, item.ID, "")
		assert.ErrorContains(t, err, "not assigned to a customer")
	})
}

func TestUpdateVCPackage(t *testing.T) {
	ctx := context.Background()
	store := newFakeVCStore()
	svc := NewVCInventoryService(store)
	item := seedVCItem(t, svc)

	planID := 3
	updated, err := svc.UpdatePackage(ctx, adminActor, item.ID, &models.UpdateVCPackageRequest{
		PackageID:     &planID,
		PackageName:   "Premium-100",
		PackageAmount: 450,
	})
	require.NoError(t, err)

	require.NotNil(t, updated.PackageID)
	assert.Equal(t, 3, *updated.PackageID)
	assert.Equal(t, "Premium-100", updated.PackageName)
	assert.Equal(t, 450.0, updated.PackageAmount)
	assert.Equal(t, 1, store.lastVersion)
}

func TestDeleteVCItem(t *testing.T) {
	ctx := context.Background()

	t.Run("owned cards must be released first", func(t *testing.T) {
		svc := NewVCInventoryService(newFakeVCStore())
		item := seedVCItem(t, svc)
		_, err := svc.Reassign(ctx, adminActor, item.ID, &models.ReassignVCRequest{CustomerID: 20, CustomerName: "Sunita Devi"})
		require.NoError(t, err)

		err = svc.DeleteItem(ctx, adminActor, item.ID)
		assert.ErrorContains(t, err, "release it first")
	})

	t.Run("stock cards can be deleted", func(t *testing.T) {
		store := newFakeVCStore()
		svc := NewVCInventoryService(store)
		item := seedVCItem(t, svc)

		err := svc.DeleteItem(ctx, adminActor, item.ID)
		require.NoError(t, err)

		_, err = svc.GetItem(ctx, item.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("employees cannot delete", func(t *testing.T) {
		svc := NewVCInventoryService(newFakeVCStore())
		item := seedVCItem(t, svc)

		err := svc.DeleteItem(ctx, employeeActor, item.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestListVCItems(t *testing.T) {
	ctx := context.Background()
	store := newFakeVCStore()
	svc := NewVCInventoryService(store)
	seedVCItem(t, svc)

	t.Run("filter passes through", func(t *testing.T) {
		_, err := svc.ListItems(ctx, models.VCFilter{Status: "available", Search: "VC9"})
		require.NoError(t, err)
		assert.Equal(t, "available", store.lastFilter.Status)
		assert.Equal(t, "VC9", store.lastFilter.Search)
	})

	t.Run("bad status filter is rejected", func(t *testing.T) {
		_, err := svc.ListItems(ctx, models.VCFilter{Status: "lost"})
		assert.ErrorContains(t, err, "unknown vc status")
	})
}
