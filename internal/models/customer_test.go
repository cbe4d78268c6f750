package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveLegacyFields(t *testing.T) {
	tests := []struct {
		name         string
		customer     *Customer
		wantVC       string
		wantPackage  string
		wantAmount   float64
		wantPrev     float64
		wantCurr     float64
		wantStatus   CustomerStatus
		wantIsActive bool
	}{
		{
			name: "no connections clears mirrors and keeps stored status",
			customer: &Customer{
				Status:              StatusInactive,
				VCNumber:            "VC001",
				PackageName:         "Gold",
				PackageAmount:       399,
				PreviousOutstanding: 120,
				CurrentOutstanding:  399,
			},
			wantVC:       "",
			wantPackage:  "",
			wantAmount:   0,
			wantPrev:     0,
			wantCurr:     0,
			wantStatus:   StatusInactive,
			wantIsActive: false,
		},
		{
			name: "single connection mirrors everything",
			customer: &Customer{
				Status: StatusInactive,
				Connections: []*Connection{
					{
						VCNumber:            "VC100",
						PlanName:            "Silver",
						PlanPrice:           250,
						Status:              StatusActive,
						PreviousOutstanding: 50,
						CurrentOutstanding:  250,
						IsPrimary:           true,
					},
				},
			},
			wantVC:       "VC100",
			wantPackage:  "Silver",
			wantAmount:   250,
			wantPrev:     50,
			wantCurr:     250,
			wantStatus:   StatusActive,
			wantIsActive: true,
		},
		{
			name: "multiple connections sum outstanding and mirror primary identity",
			customer: &Customer{
				Connections: []*Connection{
					{
						VCNumber:            "VC200",
						PlanName:            "Basic",
						PlanPrice:           150,
						Status:              StatusInactive,
						PreviousOutstanding: 100,
						CurrentOutstanding:  150,
					},
					{
						VCNumber:            "VC201",
						PlanName:            "Gold",
						PlanPrice:           399,
						Status:              StatusActive,
						PreviousOutstanding: 20,
						CurrentOutstanding:  399,
						IsPrimary:           true,
					},
				},
			},
			wantVC:       "VC201",
			wantPackage:  "Gold",
			wantAmount:   399,
			wantPrev:     120,
			wantCurr:     549,
			wantStatus:   StatusActive,
			wantIsActive: true,
		},
		{
			name: "custom plan on primary wins over catalogue plan",
			customer: &Customer{
				Connections: []*Connection{
					{
						VCNumber:        "VC300",
						PlanName:        "Gold",
						PlanPrice:       399,
						CustomPlanName:  "Gold (old rate)",
						CustomPlanPrice: 350,
						Status:          StatusActive,
						IsPrimary:       true,
					},
				},
			},
			wantVC:       "VC300",
			wantPackage:  "Gold (old rate)",
			wantAmount:   350,
			wantStatus:   StatusActive,
			wantIsActive: true,
		},
		{
			name: "inactive primary makes customer inactive",
			customer: &Customer{
				Connections: []*Connection{
					{
						VCNumber:  "VC400",
						PlanName:  "Basic",
						PlanPrice: 150,
						Status:    StatusInactive,
						IsPrimary: true,
					},
					{
						VCNumber:  "VC401",
						PlanName:  "Gold",
						PlanPrice: 399,
						Status:    StatusActive,
					},
				},
			},
			wantVC:       "VC400",
			wantPackage:  "Basic",
			wantAmount:   150,
			wantStatus:   StatusInactive,
			wantIsActive: false,
		},
		{
			name: "no primary marked falls back to first connection",
			customer: &Customer{
				Connections: []*Connection{
					{
						VCNumber:  "VC500",
						PlanName:  "Demo",
						PlanPrice: 0,
						Status:    StatusDemo,
					},
				},
			},
			wantVC:       "VC500",
			wantPackage:  "Demo",
			wantAmount:   0,
			wantStatus:   StatusDemo,
			wantIsActive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			DeriveLegacyFields(tt.customer)

			assert.Equal(t, tt.wantVC, tt.customer.VCNumber)
			assert.Equal(t, tt.wantPackage, tt.customer.PackageName)
			assert.Equal(t, tt.wantAmount, tt.customer.PackageAmount)
			assert.Equal(t, tt.wantPrev, tt.customer.PreviousOutstanding)
			assert.Equal(t, tt.wantCurr, tt.customer.CurrentOutstanding)
			assert.Equal(t, tt.wantStatus, tt.customer.Status)
			assert.Equal(t, tt.wantIsActive, tt.customer.IsActive)
		})
	}
}

func TestDeriveLegacyFieldsIsIdempotent(t *testing.T) {
	customer := &Customer{
		Connections: []*Connection{
			{VCNumber: "VC1", PlanName: "Basic", PlanPrice: 150, Status: StatusActive, PreviousOutstanding: 10, CurrentOutstanding: 150, IsPrimary: true},
			{VCNumber: "VC2", PlanName: "Gold", PlanPrice: 399, Status: StatusActive, PreviousOutstanding: 5, CurrentOutstanding: 399},
		},
	}

	DeriveLegacyFields(customer)
	first := *customer
	DeriveLegacyFields(customer)

	assert.Equal(t, first.VCNumber, customer.VCNumber)
	assert.Equal(t, first.PackageName, customer.PackageName)
	assert.Equal(t, first.PackageAmount, customer.PackageAmount)
	assert.Equal(t, first.PreviousOutstanding, customer.PreviousOutstanding)
	assert.Equal(t, first.CurrentOutstanding, customer.CurrentOutstanding)
}

func TestNormalizeConnections(t *testing.T) {
	tests := []struct {
		name        string
		conns       []*Connection
		wantPrimary []bool
		wantIdx     []int
	}{
		{
			name:        "empty slice is a no-op",
			conns:       nil,
			wantPrimary: nil,
			wantIdx:     nil,
		},
		{
			name: "none marked promotes first",
			conns: []*Connection{
				{VCNumber: "A"},
				{VCNumber: "B"},
			},
			wantPrimary: []bool{true, false},
			wantIdx:     []int{0, 1},
		},
		{
			name: "single marked stays",
			conns: []*Connection{
				{VCNumber: "A"},
				{VCNumber: "B", IsPrimary: true},
			},
			wantPrimary: []bool{false, true},
			wantIdx:     []int{0, 1},
		},
		{
			name: "multiple marked keeps only the first",
			conns: []*Connection{
				{VCNumber: "A", IsPrimary: true},
				{VCNumber: "B", IsPrimary: true},
				{VCNumber: "C", IsPrimary: true},
			},
			wantPrimary: []bool{true, false, false},
			wantIdx:     []int{0, 1, 2},
		},
		{
			name: "ordinals reindexed in slice order",
			conns: []*Connection{
				{VCNumber: "A", Idx: 7},
				{VCNumber: "B", Idx: 3, IsPrimary: true},
			},
			wantPrimary: []bool{false, true},
			wantIdx:     []int{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NormalizeConnections(tt.conns)

			require.Len(t, tt.conns, len(tt.wantPrimary))
			primaries := 0
			for i, conn := range tt.conns {
				assert.Equal(t, tt.wantPrimary[i], conn.IsPrimary, "connection %d primary flag", i)
				assert.Equal(t, tt.wantIdx[i], conn.Idx, "connection %d idx", i)
				if conn.IsPrimary {
					primaries++
				}
			}
			if len(tt.conns) > 0 {
				assert.Equal(t, 1, primaries, "exactly one primary")
			}
		})
	}
}

func TestEffectivePlan(t *testing.T) {
	conn := &Connection{PlanName: "Gold", PlanPrice: 399}
	assert.Equal(t, "Gold", conn.EffectivePlanName())
	assert.Equal(t, 399.0, conn.EffectivePlanPrice())

	conn.CustomPlanName = "Negotiated"
	conn.CustomPlanPrice = 300
	assert.Equal(t, "Negotiated", conn.EffectivePlanName())
	assert.Equal(t, 300.0, conn.EffectivePlanPrice())
}

func TestParseCustomerStatus(t *testing.T) {
	for _, valid := range []string{"active", "inactive", "demo"} {
		status, err := ParseCustomerStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, CustomerStatus(valid), status)
	}

	_, err := ParseCustomerStatus("suspended")
	require.Error(t, err)
	_, err = ParseCustomerStatus("")
	require.Error(t, err)
}
