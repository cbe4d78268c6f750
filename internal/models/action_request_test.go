package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitActionRequestValidate(t *testing.T) {
	valid := SubmitActionRequestRequest{
		CustomerID: 12,
		VCNumber:   "VC0042",
		ActionType: "deactivation",
		Reason:     "customer moved out of the service area",
	}

	tests := []struct {
		name    string
		mutate  func(r *SubmitActionRequestRequest)
		wantErr string
	}{
		{
			name:   "valid deactivation",
			mutate: func(r *SubmitActionRequestRequest) {},
		},
		{
			name: "valid plan change",
			mutate: func(r *SubmitActionRequestRequest) {
				r.ActionType = "plan_change"
				r.RequestedPlan = "Gold"
			},
		},
		{
			name:    "missing customer id",
			mutate:  func(r *SubmitActionRequestRequest) { r.CustomerID = 0 },
			wantErr: "customer_id is required",
		},
		{
			name:    "blank vc number",
			mutate:  func(r *SubmitActionRequestRequest) { r.VCNumber = "   " },
			wantErr: "vc_number is required",
		},
		{
			name:    "unknown action type",
			mutate:  func(r *SubmitActionRequestRequest) { r.ActionType = "suspend" },
			wantErr: "unknown action type",
		},
		{
			name:    "reason too short",
			mutate:  func(r *SubmitActionRequestRequest) { r.Reason = "too short" },
			wantErr: "reason must be at least 10 characters",
		},
		{
			name:    "reason of whitespace only",
			mutate:  func(r *SubmitActionRequestRequest) { r.Reason = "              " },
			wantErr: "reason must be at least 10 characters",
		},
		{
			name: "plan change without requested plan",
			mutate: func(r *SubmitActionRequestRequest) {
				r.ActionType = "plan_change"
				r.RequestedPlan = ""
			},
			wantErr: "requested_plan is required",
		},
		{
			name: "requested plan on non plan change",
			mutate: func(r *SubmitActionRequestRequest) {
				r.ActionType = "activation"
				r.RequestedPlan = "Gold"
			},
			wantErr: "requested_plan is only valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseActionType(t *testing.T) {
	for _, valid := range []string{"activation", "deactivation", "plan_change"} {
		at, err := ParseActionType(valid)
		require.NoError(t, err)
		assert.Equal(t, ActionType(valid), at)
	}

	_, err := ParseActionType("delete")
	require.Error(t, err)
}
