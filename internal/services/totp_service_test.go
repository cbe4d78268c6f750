package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cable-backend/internal/models"
)

func newTOTPFixture(t *testing.T) (*TOTPService, *fakeUserStore, *models.User) {
	t.Helper()
	store := newFakeUserStore()
	admin := seedUser(t, store, "owner@example.com", "supersecret", models.RoleAdmin, true)
	svc := NewTOTPService(store)
	svc.validateTOTP = func(passcode, secret string) bool { return passcode == "123456" }
	return svc, store, admin
}

func TestTOTPSetup(t *testing.T) {
	t.Run("generates a provisional secret", func(t *testing.T) {
		svc, store, admin := newTOTPFixture(t)

		resp, err := svc.Setup(context.Background(), admin.Actor())
		require.NoError(t, err)

		assert.NotEmpty(t, resp.Secret)
		assert.Equal(t, "CableAdmin", resp.Issuer)
		assert.Equal(t, "owner@example.com", resp.AccountName)
		assert.True(t, strings.HasPrefix(resp.OTPAuthURL, "otpauth://totp/"))

		stored := store.users[admin.ID]
		assert.Equal(t, resp.Secret, stored.TOTPSecret)
		assert.False(t, stored.TOTPEnabled)
	})

	t.Run("re-running setup rotates the secret", func(t *testing.T) {
		svc, store, admin := newTOTPFixture(t)

		first, err := svc.Setup(context.Background(), admin.Actor())
		require.NoError(t, err)
		second, err := svc.Setup(context.Background(), admin.Actor())
		require.NoError(t, err)

		assert.NotEqual(t, first.Secret, second.Secret)
		assert.Equal(t, second.Secret, store.users[admin.ID].TOTPSecret)
	})

	t.Run("employees cannot set up 2FA", func(t *testing.T) {
		svc, _, _ := newTOTPFixture(t)

		_, err := svc.Setup(context.Background(), employeeActor)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestTOTPEnable(t *testing.T) {
	t.Run("valid code switches 2FA on", func(t *testing.T) {
		svc, store, admin := newTOTPFixture(t)
		_, err := svc.Setup(context.Background(), admin.Actor())
		require.NoError(t, err)

		require.NoError(t, svc.Enable(context.Background(), admin.Actor(), "123456"))

		stored := store.users[admin.ID]
		assert.True(t, stored.TOTPEnabled)
		assert.NotNil(t, stored.TOTPVerifiedAt)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		svc, store, admin := newTOTPFixture(t)
		_, err := svc.Setup(context.Background(), admin.Actor())
		require.NoError(t, err)

		err = svc.Enable(context.Background(), admin.Actor(), "999999")
		assert.ErrorIs(t, err, ErrInvalidTOTPCode)
		assert.False(t, store.users[admin.ID].TOTPEnabled)
	})

	t.Run("enable before setup fails", func(t *testing.T) {
		svc, _, admin := newTOTPFixture(t)

		err := svc.Enable(context.Background(), admin.Actor(), "123456")
		assert.ErrorIs(t, err, ErrNoTOTPSecret)
	})
}

func TestTOTPDisable(t *testing.T) {
	enable := func(t *testing.T, svc *TOTPService, admin *models.User) {
		t.Helper()
		_, err := svc.Setup(context.Background(), admin.Actor())
		require.NoError(t, err)
		require.NoError(t, svc.Enable(context.Background(), admin.Actor(), "123456"))
	}

	t.Run("needs password and a current code", func(t *testing.T) {
		svc, store, admin := newTOTPFixture(t)
		enable(t, svc, admin)

		err := svc.Disable(context.Background(), admin.Actor(), &models.TOTPDisableRequest{
			Password: "supersecret", Code: "123456",
		})
		require.NoError(t, err)

		stored := store.users[admin.ID]
		assert.False(t, stored.TOTPEnabled)
		assert.Empty(t, stored.TOTPSecret)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		svc, _, admin := newTOTPFixture(t)
		enable(t, svc, admin)

		err := svc.Disable(context.Background(), admin.Actor(), &models.TOTPDisableRequest{
			Password: "wrong-password", Code: "123456",
		})
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("disable when not enabled fails", func(t *testing.T) {
		svc, _, admin := newTOTPFixture(t)

		err := svc.Disable(context.Background(), admin.Actor(), &models.TOTPDisableRequest{
			Password: "supersecret", Code: "123456",
		})
		assert.ErrorIs(t, err, ErrTOTPNotEnabled)
	})
}
