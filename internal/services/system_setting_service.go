package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"cable-backend/internal/models"
)

type settingStore interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	List(ctx context.Context) ([]*models.SystemSetting, error)
	Upsert(ctx context.Context, key string, value string, description string, userID int) error
}

// SystemSettingService holds runtime configuration in the database so
// operational toggles survive restarts and never need a deploy.
type SystemSettingService struct {
	Repo settingStore
}

func NewSystemSettingService(repo settingStore) *SystemSettingService {
	return &SystemSettingService{Repo: repo}
}

func (s *SystemSettingService) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	return s.Repo.Get(ctx, key)
}

func (s *SystemSettingService) List(ctx context.Context, actor models.Actor) ([]*models.SystemSetting, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.Repo.List(ctx)
}

// Set writes a setting. Secrets are accepted but never echoed back through
// List/Get handlers, which mask the razorpay secret values.
func (s *SystemSettingService) Set(ctx context.Context, actor models.Actor, key, value, description string) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("setting_key is required")
	}
	switch key {
	case models.SettingOnlinePaymentsEnabled:
		if value != "true" && value != "false" {
			return errors.New("online_payments_enabled must be true or false")
		}
	case models.SettingOnlinePaymentFee:
		fee, err := strconv.ParseFloat(value, 64)
		if err != nil || fee < 0 || fee > 10 {
			return errors.New("online_payment_fee_percent must be a number between 0 and 10")
		}
	case models.SettingBillingDayOfMonth:
		day, err := strconv.Atoi(value)
		if err != nil || day < 1 || day > 28 {
			return errors.New("billing_day_of_month must be between 1 and 28")
		}
	}
	return s.Repo.Upsert(ctx, key, value, description, actor.UserID)
}

// GetBool reads a boolean setting, returning the fallback when unset.
func (s *SystemSettingService) GetBool(ctx context.Context, key string, fallback bool) bool {
	setting, err := s.Repo.Get(ctx, key)
	if err != nil || setting == nil {
		return fallback
	}
	return setting.SettingValue == "true"
}

// GetFloat reads a numeric setting, returning the fallback when unset or
// unparseable.
func (s *SystemSettingService) GetFloat(ctx context.Context, key string, fallback float64) float64 {
	setting, err := s.Repo.Get(ctx, key)
	if err != nil || setting == nil {
		return fallback
	}
	v, err := strconv.ParseFloat(setting.SettingValue, 64)
	if err != nil {
		return fallback
	}
	return v
}

func (s *SystemSettingService) GetInt(ctx context.Context, key string, fallback int) int {
	setting, err := s.Repo.Get(ctx, key)
	if err != nil || setting == nil {
		return fallback
	}
	v, err := strconv.Atoi(setting.SettingValue)
	if err != nil {
		return fallback
	}
	return v
}
