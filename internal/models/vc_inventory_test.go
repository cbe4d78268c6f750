package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenOwnership(t *testing.T) {
	ended := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	item := &VCInventoryItem{
		OwnershipHistory: []*VCOwnershipEntry{
			{ID: 1, CustomerID: 10, EndDate: &ended},
			{ID: 2, CustomerID: 20},
		},
	}

	open := item.OpenOwnership()
	require.NotNil(t, open)
	assert.Equal(t, 2, open.ID)
	assert.Equal(t, 20, open.CustomerID)

	empty := &VCInventoryItem{}
	assert.Nil(t, empty.OpenOwnership())
}

func TestCloseOpenOwnership(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	ended := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("closes single open entry", func(t *testing.T) {
		item := &VCInventoryItem{
			OwnershipHistory: []*VCOwnershipEntry{
				{ID: 1, EndDate: &ended},
				{ID: 2},
			},
		}

		closed := item.CloseOpenOwnership(now)
		assert.Equal(t, []int{2}, closed)
		require.NotNil(t, item.OwnershipHistory[1].EndDate)
		assert.Equal(t, now, *item.OwnershipHistory[1].EndDate)
		assert.Equal(t, ended, *item.OwnershipHistory[0].EndDate)
		assert.Nil(t, item.OpenOwnership())
	})

	t.Run("closes every open entry in a dirty history", func(t *testing.T) {
		item := &VCInventoryItem{
			OwnershipHistory: []*VCOwnershipEntry{
				{ID: 1},
				{ID: 2, EndDate: &ended},
				{ID: 3},
			},
		}

		closed := item.CloseOpenOwnership(now)
		assert.Equal(t, []int{1, 3}, closed)
		assert.Nil(t, item.OpenOwnership())
	})

	t.Run("no open entries returns nothing", func(t *testing.T) {
		item := &VCInventoryItem{
			OwnershipHistory: []*VCOwnershipEntry{
				{ID: 1, EndDate: &ended},
			},
		}

		assert.Empty(t, item.CloseOpenOwnership(now))
	})
}

func TestParseVCStatus(t *testing.T) {
	for _, valid := range []string{"active", "inactive", "available"} {
		status, err := ParseVCStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, VCStatus(valid), status)
	}

	_, err := ParseVCStatus("retired")
	require.Error(t, err)
}
