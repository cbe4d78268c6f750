package services

import (
	"context"
	"errors"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"cable-backend/internal/auth"
	"cable-backend/internal/models"
)

const totpIssuer = "CableAdmin"

var (
	ErrNoTOTPSecret    = errors.New("2FA setup not initiated")
	ErrInvalidTOTPCode = errors.New("invalid verification code")
	ErrTOTPNotEnabled  = errors.New("2FA is not enabled")
	ErrInvalidPassword = errors.New("invalid password")
)

type totpUserStore interface {
	Get(ctx context.Context, id int) (*models.User, error)
	SetTOTPSecret(ctx context.Context, id int, secret string) error
	EnableTOTP(ctx context.Context, id int) error
	DisableTOTP(ctx context.Context, id int) error
}

// TOTPService manages two-factor setup for admin accounts. Admins with 2FA
// enabled must present a code when resolving action requests.
type TOTPService struct {
	Users totpUserStore

	validateTOTP func(passcode, secret string) bool
}

func NewTOTPService(users totpUserStore) *TOTPService {
	return &TOTPService{
		Users:        users,
		validateTOTP: totp.Validate,
	}
}

// Setup generates a fresh secret and stores it provisionally. The secret
// does not count until Enable confirms the authenticator app with a valid
// code, so re-running Setup before that simply rotates the secret.
func (s *TOTPService) Setup(ctx context.Context, actor models.Actor) (*models.TOTPSetupResponse, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	user, err := s.Users.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		OTPAuthURL:  key.URL(),
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

// Enable confirms the pending secret with a code from the authenticator app
// and switches 2FA on.
func (s *TOTPService) Enable(ctx context.Context, actor models.Actor, code string) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	user, err := s.Users.Get(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return ErrNoTOTPSecret
	}
	if !s.validateTOTP(code, user.TOTPSecret) {
		return ErrInvalidTOTPCode
	}
	return s.Users.EnableTOTP(ctx, user.ID)
}

// Disable turns 2FA off. It needs both the account password and a current
// code, so a stolen session alone cannot weaken the account.
func (s *TOTPService) Disable(ctx context.Context, actor models.Actor, req *models.TOTPDisableRequest) error {
	user, err := s.Users.Get(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return ErrTOTPNotEnabled
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return ErrInvalidPassword
	}
	if !s.validateTOTP(req.Code, user.TOTPSecret) {
		return ErrInvalidTOTPCode
	}
	return s.Users.DisableTOTP(ctx, user.ID)
}

func (s *TOTPService) Status(ctx context.Context, actor models.Actor) (*models.User2FAStatus, error) {
	user, err := s.Users.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &models.User2FAStatus{
		Enabled:   user.TOTPEnabled,
		EnabledAt: user.TOTPVerifiedAt,
	}, nil
}
