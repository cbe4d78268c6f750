package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cable-backend/internal/auth"
	"cable-backend/internal/cache"
	"cable-backend/internal/models"
)

type userStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	SetActive(ctx context.Context, id int, active bool) error
	Delete(ctx context.Context, id int) error
}

type tokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

type UserService struct {
	Repo       userStore
	JWTManager tokenIssuer
}

func NewUserService(repo userStore, jwtManager tokenIssuer) *UserService {
	return &UserService{
		Repo:       repo,
		JWTManager: jwtManager,
	}
}

// Signup bootstraps the system: the very first account becomes the active
// admin. Once any user exists, accounts are created by admins instead.
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, errors.New("name, email, and password are required")
	}
	if len(req.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	count, err := s.Repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("signup is closed, ask an administrator for an account")
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         req.Name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

// Login authenticates a user and returns a JWT token. Verified credentials
// are cached in redis so repeat logins skip the bcrypt comparison.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user *models.User
	if userID, ok := cache.GetCachedAuth(ctx, email, req.Password); ok {
		cached, err := s.Repo.Get(ctx, int(userID))
		if err == nil {
			user = cached
		}
	}

	if user == nil {
		found, err := s.Repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, errors.New("invalid email or password")
		}
		if !auth.VerifyPassword(found.PasswordHash, req.Password) {
			return nil, errors.New("invalid email or password")
		}
		cache.CacheAuth(ctx, email, req.Password, int64(found.ID))
		user = found
	}

	if !user.IsActive {
		return nil, errors.New("account suspended, contact an administrator")
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

// CreateUser adds a collector or admin account. Admin only.
func (s *UserService) CreateUser(ctx context.Context, actor models.Actor, req *models.CreateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, errors.New("name, email, and password are required")
	}
	if len(req.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	role := req.Role
	if role == "" {
		role = models.RoleEmployee
	}
	if role != models.RoleAdmin && role != models.RoleEmployee {
		return nil, fmt.Errorf("unknown role: %s", role)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, _ := s.Repo.GetByEmail(ctx, email); existing != nil {
		return nil, errors.New("user with this email already exists")
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:          req.Name,
		Email:         email,
		Phone:         req.Phone,
		PasswordHash:  hashedPassword,
		Role:          role,
		AssignedAreas: normalizeAreas(req.AssignedAreas),
		IsActive:      true,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns a user record. Admins can read anyone, employees only
// themselves.
func (s *UserService) GetUser(ctx context.Context, actor models.Actor, id int) (*models.User, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, models.ErrForbidden
	}
	return s.Repo.Get(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, actor models.Actor) ([]*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.Repo.List(ctx)
}

// UpdateUser changes profile, role and area assignment. Admin only. A new
// password, when present, is re-hashed; the old redis credential entry ages
// out on its own TTL.
func (s *UserService) UpdateUser(ctx context.Context, actor models.Actor, id int, req *models.UpdateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	user, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	user.Phone = req.Phone
	if req.Role != "" {
		if req.Role != models.RoleAdmin && req.Role != models.RoleEmployee {
			return nil, fmt.Errorf("unknown role: %s", req.Role)
		}
		if actor.UserID == id && req.Role != models.RoleAdmin {
			return nil, errors.New("cannot remove your own admin role")
		}
		user.Role = req.Role
	}
	user.AssignedAreas = normalizeAreas(req.AssignedAreas)

	if err := s.Repo.Update(ctx, user); err != nil {
		return nil, err
	}

	if req.Password != "" {
		if len(req.Password) < 8 {
			return nil, errors.New("password must be at least 8 characters")
		}
		hashedPassword, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.Repo.UpdatePassword(ctx, id, hashedPassword); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// SetUserActive suspends or restores an account. The auth middleware checks
// the database row per request, so suspension takes effect immediately.
func (s *UserService) SetUserActive(ctx context.Context, actor models.Actor, id int, active bool) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	if actor.UserID == id && !active {
		return errors.New("cannot suspend your own account")
	}
	return s.Repo.SetActive(ctx, id, active)
}

func (s *UserService) DeleteUser(ctx context.Context, actor models.Actor, id int) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	if actor.UserID == id {
		return errors.New("cannot delete your own account")
	}
	return s.Repo.Delete(ctx, id)
}

// normalizeAreas trims entries and drops empties and duplicates, keeping
// the assignment order stable.
func normalizeAreas(areas []string) []string {
	seen := make(map[string]bool, len(areas))
	out := make([]string, 0, len(areas))
	for _, area := range areas {
		area = strings.TrimSpace(area)
		if area == "" || seen[area] {
			continue
		}
		seen[area] = true
		out = append(out, area)
	}
	return out
}
