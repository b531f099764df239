package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/linkvault-api/internal/models"
	"github.com/noah-isme/linkvault-api/internal/repository"
	appErrors "github.com/noah-isme/linkvault-api/pkg/errors"
)

type authRepoStub struct {
	users map[string]*models.User
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{users: make(map[string]*models.User)}
}

func (r *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copy := *user
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := r.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) Create(ctx context.Context, user *models.User) error {
	if _, err := r.FindByEmail(ctx, user.Email); err == nil {
		return repository.ErrDuplicateEmail
	}
	copy := *user
	r.users[user.ID] = &copy
	return nil
}

func (r *authRepoStub) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	user, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Role = role
	return nil
}

// plainHasher keeps auth tests fast; scrypt is covered in pkg/security.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, string, error) {
	return "hash:" + password, "salt", nil
}

func (plainHasher) Verify(password, salt, hash string) bool {
	return salt == "salt" && hash == "hash:"+password
}

func newAuthFixture() (*authRepoStub, *statsStub, *AuthService) {
	repo := newAuthRepoStub()
	stats := &statsStub{}
	svc := NewAuthService(repo, plainHasher{}, nil, stats, nil, AuthConfig{
		Secret:     "test-secret",
		Expiry:     time.Hour,
		Issuer:     "linkvault-test",
		AdminEmail: "Admin@Example.com",
	})
	return repo, stats, svc
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	_, stats, svc := newAuthFixture()

	resp, err := svc.Register(context.Background(), models.RegisterRequest{Name: "  Ada  ", Email: " ADA@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", resp.User.Name)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 1, stats.calls)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@EXAMPLE.com", Password: "secret1"})
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), login.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "nope"})
	requireAppError(t, err, appErrors.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "secret1"})
	requireAppError(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	_, _, svc := newAuthFixture()
	_, err := svc.Register(context.Background(), models.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	cases := []struct {
		name    string
		req     models.RegisterRequest
		message string
	}{
		{name: "short name", req: models.RegisterRequest{Name: " A ", Email: "a@b.co", Password: "secret1"}, message: "Name must be between 2 and 60 characters."},
		{name: "bad email", req: models.RegisterRequest{Name: "Bob", Email: "bob@invalid", Password: "secret1"}, message: "Invalid email address."},
		{name: "short password", req: models.RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "123"}, message: "Password must be between 6 and 128 characters."},
		{name: "long password", req: models.RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: strings.Repeat("x", 129)}, message: "Password must be between 6 and 128 characters."},
		{name: "duplicate email", req: models.RegisterRequest{Name: "Ada Two", Email: "ADA@example.com", Password: "secret1"}, message: "Email already in use."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.req)
			requireAppError(t, err, appErrors.ErrValidation)
			assert.Equal(t, tc.message, appErrors.FromError(err).Message)
		})
	}
}

func TestAuthServiceAdminEmailRegistersAdmin(t *testing.T) {
	_, _, svc := newAuthFixture()
	resp, err := svc.Register(context.Background(), models.RegisterRequest{Name: "Root", Email: "admin@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
}

func TestAuthServiceAuthenticateRejectsBadTokens(t *testing.T) {
	repo, _, svc := newAuthFixture()
	resp, err := svc.Register(context.Background(), models.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "garbage")
	requireAppError(t, err, appErrors.ErrUnauthorized)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{UserID: resp.User.ID}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), forged)
	requireAppError(t, err, appErrors.ErrUnauthorized)

	delete(repo.users, resp.User.ID)
	_, err = svc.Authenticate(context.Background(), resp.Token)
	requireAppError(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceEnsureAdmin(t *testing.T) {
	repo, _, svc := newAuthFixture()

	require.NoError(t, svc.EnsureAdmin(context.Background(), AdminAccount{Email: "Root@Example.com", Password: "admin12345"}))
	seeded, err := repo.FindByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, seeded.Role)
	assert.Equal(t, "Admin", seeded.Name)

	require.NoError(t, svc.EnsureAdmin(context.Background(), AdminAccount{Email: "root@example.com", Password: "admin12345"}))
	assert.Len(t, repo.users, 1)

	_, err = svc.Register(context.Background(), models.RegisterRequest{Name: "Eve", Email: "eve@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.EnsureAdmin(context.Background(), AdminAccount{Email: "eve@example.com"}))
	eve, err := repo.FindByEmail(context.Background(), "eve@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, eve.Role)

	require.Error(t, svc.EnsureAdmin(context.Background(), AdminAccount{Email: "new@example.com"}))
}
