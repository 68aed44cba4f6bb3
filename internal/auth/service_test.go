package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billhive/billhive/internal/platform/httpx"
)

type mockRepository struct {
	users  map[string]*User
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: map[string]*User{}, nextID: 1}
}

func (m *mockRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockRepository) FindByID(_ context.Context, id int64) (*User, error) {
	for _, u := range m.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *mockRepository) Create(_ context.Context, name, email, passwordHash string) (*User, error) {
	if _, ok := m.users[email]; ok {
		return nil, httpx.ErrDuplicate
	}
	u := &User{ID: m.nextID, Name: name, Email: email, PasswordHash: passwordHash, IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.nextID++
	m.users[email] = u
	copied := *u
	return &copied, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, "test-secret", time.Hour)
}

func TestRegisterLoginVerifyRoundTrip(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.True(t, strings.HasPrefix(repo.users["asha@example.com"].PasswordHash, "$2a$"), "password must be bcrypt hashed")

	logged, err := svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "supersecret"})
	require.NoError(t, err)

	identity, err := svc.Verify(ctx, logged.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), identity.UserID)
	assert.Equal(t, "asha@example.com", identity.Email)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc := newTestService(newMockRepository())

	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "supersecret"})
	require.NoError(t, err)
	repo.users["asha@example.com"].IsActive = false

	_, err = svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	repo := newMockRepository()
	ctx := context.Background()

	issued, err := newTestService(repo).Register(ctx, RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "supersecret"})
	require.NoError(t, err)

	other := NewService(repo, "different-secret", time.Hour)
	_, err = other.Verify(ctx, issued.Token)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	repo := newMockRepository()
	ctx := context.Background()

	expired := NewService(repo, "test-secret", -time.Minute)
	issued, err := expired.Register(ctx, RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = newTestService(repo).Verify(ctx, issued.Token)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestService(newMockRepository())

	_, err := svc.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}
