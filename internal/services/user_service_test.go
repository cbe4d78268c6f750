package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cable-backend/internal/auth"
	"cable-backend/internal/models"
	"cable-backend/internal/timeutil"
)

type fakeUserStore struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int]*models.User{}, nextID: 1}
}

func (f *fakeUserStore) Create(ctx context.Context, u *models.User) error {
	u.ID = f.nextID
	f.nextID++
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserStore) Get(ctx context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUserStore) List(ctx context.Context) ([]*models.User, error) {
	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserStore) Count(ctx context.Context) (int, error) {
	return len(f.users), nil
}

func (f *fakeUserStore) Update(ctx context.Context, u *models.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return models.ErrNotFound
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) SetActive(ctx context.Context, id int, active bool) error {
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id int) error {
	if _, ok := f.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.TOTPSecret = secret
	u.TOTPEnabled = false
	return nil
}

func (f *fakeUserStore) EnableTOTP(ctx context.Context, id int) error {
	u, ok := f.users[id]
	if !ok || u.TOTPSecret == "" {
		return models.ErrNotFound
	}
	u.TOTPEnabled = true
	now := timeutil.Now()
	u.TOTPVerifiedAt = &now
	return nil
}

func (f *fakeUserStore) DisableTOTP(ctx context.Context, id int) error {
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.TOTPEnabled = false
	u.TOTPSecret = ""
	u.TOTPVerifiedAt = nil
	return nil
}

type stubIssuer struct{}

func (stubIssuer) GenerateToken(user *models.User) (string, error) {
	return "test-token", nil
}

func newUserFixture() (*UserService, *fakeUserStore) {
	store := newFakeUserStore()
	return NewUserService(store, stubIssuer{}), store
}

func seedUser(t *testing.T, store *fakeUserStore, email, password, role string, active bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{Name: "Seeded", Email: email, PasswordHash: hash, Role: role, IsActive: active}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestSignup(t *testing.T) {
	t.Run("first user becomes the admin", func(t *testing.T) {
		svc, store := newUserFixture()

		resp, err := svc.Signup(context.Background(), &models.SignupRequest{
			Name: "Owner", Email: "Owner@Example.com", Password: "supersecret",
		})
		require.NoError(t, err)

		assert.Equal(t, "test-token", resp.Token)
		assert.Equal(t, models.RoleAdmin, resp.User.Role)
		assert.True(t, resp.User.IsActive)
		assert.Equal(t, "owner@example.com", resp.User.Email)
		assert.Len(t, store.users, 1)
	})

	t.Run("closed once a user exists", func(t *testing.T) {
		svc, store := newUserFixture()
		seedUser(t, store, "owner@example.com", "supersecret", models.RoleAdmin, true)

		_, err := svc.Signup(context.Background(), &models.SignupRequest{
			Name: "Second", Email: "second@example.com", Password: "supersecret",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signup is closed")
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		svc, _ := newUserFixture()

		_, err := svc.Signup(context.Background(), &models.SignupRequest{
			Name: "Owner", Email: "owner@example.com", Password: "short",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 8 characters")
	})
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials return a token", func(t *testing.T) {
		svc, store := newUserFixture()
		seedUser(t, store, "owner@example.com", "supersecret", models.RoleAdmin, true)

		resp, err := svc.Login(context.Background(), &models.LoginRequest{
			Email: "owner@example.com", Password: "supersecret",
		})
		require.NoError(t, err)
		assert.Equal(t, "test-token", resp.Token)
	})

	t.Run("wrong password is rejected without detail", func(t *testing.T) {
		svc, store := newUserFixture()
		seedUser(t, store, "owner@example.com", "supersecret", models.RoleAdmin, true)

		_, err := svc.Login(context.Background(), &models.LoginRequest{
			Email: "owner@example.com", Password: "wrong-password",
		})
		require.Error(t, err)
		assert.Equal(t, "invalid email or password", err.Error())
	})

	t.Run("unknown email gets the same message", func(t *testing.T) {
		svc, _ := newUserFixture()

		_, err := svc.Login(context.Background(), &models.LoginRequest{
			Email: "ghost@example.com", Password: "supersecret",
		})
		require.Error(t, err)
		assert.Equal(t, "invalid email or password", err.Error())
	})

	t.Run("suspended accounts cannot log in", func(t *testing.T) {
		svc, store := newUserFixture()
		seedUser(t, store, "owner@example.com", "supersecret", models.RoleAdmin, false)

		_, err := svc.Login(context.Background(), &models.LoginRequest{
			Email: "owner@example.com", Password: "supersecret",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "suspended")
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("admin creates an employee with areas", func(t *testing.T) {
		svc, _ := newUserFixture()

		user, err := svc.CreateUser(context.Background(), adminActor, &models.CreateUserRequest{
			Name: "Collector", Email: "collector@example.com", Password: "supersecret",
			AssignedAreas: []string{" Shastri Nagar ", "Gandhi Road", "Shastri Nagar", ""},
		})
		require.NoError(t, err)

		assert.Equal(t, models.RoleEmployee, user.Role)
		assert.Equal(t, []string{"Shastri Nagar", "Gandhi Road"}, user.AssignedAreas)
		assert.True(t, user.IsActive)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		svc, _ := newUserFixture()

		_, err := svc.CreateUser(context.Background(), employeeActor, &models.CreateUserRequest{
			Name: "X", Email: "x@example.com", Password: "supersecret",
		})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		svc, store := newUserFixture()
		seedUser(t, store, "collector@example.com", "supersecret", models.RoleEmployee, true)

		_, err := svc.CreateUser(context.Background(), adminActor, &models.CreateUserRequest{
			Name: "Collector", Email: "Collector@Example.com", Password: "supersecret",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		svc, _ := newUserFixture()

		_, err := svc.CreateUser(context.Background(), adminActor, &models.CreateUserRequest{
			Name: "X", Email: "x@example.com", Password: "supersecret", Role: "superuser",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown role")
	})
}

func TestUpdateUser(t *testing.T) {
	t.Run("admin cannot demote themselves", func(t *testing.T) {
		svc, store := newUserFixture()
		admin := seedUser(t, store, "owner@example.com", "supersecret", models.RoleAdmin, true)
		self := models.Actor{UserID: admin.ID, Role: models.RoleAdmin}

		_, err := svc.UpdateUser(context.Background(), self, admin.ID, &models.UpdateUserRequest{
			Role: models.RoleEmployee,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "own admin role")
	})

	t.Run("reassigning areas replaces the list", func(t *testing.T) {
		svc, store := newUserFixture()
		seedUser(t, store, "owner@example.com", "supersecret", models.RoleAdmin, true)
		emp := seedUser(t, store, "collector@example.com", "supersecret", models.RoleEmployee, true)
		emp.AssignedAreas = []string{"Shastri Nagar"}

		updated, err := svc.UpdateUser(context.Background(), adminActor, emp.ID, &models.UpdateUserRequest{
			AssignedAreas: []string{"Gandhi Road"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Gandhi Road"}, updated.AssignedAreas)
	})
}

func TestSetUserActive(t *testing.T) {
	t.Run("admin cannot suspend themselves", func(t *testing.T) {
		svc, store := newUserFixture()
		admin := seedUser(t, store, "owner@example.com", "supersecret", models.RoleAdmin, true)
		self := models.Actor{UserID: admin.ID, Role: models.RoleAdmin}

		err := svc.SetUserActive(context.Background(), self, admin.ID, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "own account")
	})

	t.Run("suspension flips the stored flag", func(t *testing.T) {
		svc, store := newUserFixture()
		seedUser(t, store, "owner@example.com", "supersecret", models.RoleAdmin, true)
		emp := seedUser(t, store, "collector@example.com", "supersecret", models.RoleEmployee, true)

		require.NoError(t, svc.SetUserActive(context.Background(), adminActor, emp.ID, false))
		assert.False(t, store.users[emp.ID].IsActive)
	})
}
