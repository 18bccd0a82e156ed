package service

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	"college-records/internal/infrastructure/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newCredentialService(store *memory.Store) *CredentialService {
	svc := NewCredentialService(store, TokenConfig{Secret: "test-secret", Issuer: "college-records", TTL: time.Hour})
	svc.cost = bcrypt.MinCost
	svc.now = func() time.Time { return today }
	return svc
}

func TestCredentialService_LoginAndParseToken(t *testing.T) {
	ctx := context.Background()
	svc := newCredentialService(memory.NewStore())

	account, err := svc.CreateUser(ctx, &user.CreateUserRequest{Username: "lakshmi", Password: "correct-horse", Role: "teacher"})
	require.NoError(t, err)
	require.NotNil(t, account.PasswordHash)
	assert.NotEqual(t, "correct-horse", *account.PasswordHash)

	_, err = svc.CreateUser(ctx, &user.CreateUserRequest{Username: "lakshmi", Password: "another-one", Role: "teacher"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	login, err := svc.Login(ctx, &user.LoginRequest{Username: "lakshmi", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, today.Add(time.Hour), login.ExpiresAt)

	principal, err := svc.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, principal.UserID)
	assert.True(t, principal.HasRole(user.RoleTeacher))
	assert.False(t, principal.IsAdmin())
}

func TestCredentialService_RejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newCredentialService(store)

	_, err := svc.CreateUser(ctx, &user.CreateUserRequest{Username: "admin", Password: "admin-password", Role: "admin"})
	require.NoError(t, err)
	login, err := svc.Login(ctx, &user.LoginRequest{Username: "admin", Password: "admin-password"})
	require.NoError(t, err)

	expired := newCredentialService(store)
	expired.now = func() time.Time { return today.Add(2 * time.Hour) }
	_, err = expired.ParseToken(login.Token)
	assert.Error(t, err)

	foreign := newCredentialService(store)
	foreign.tokens.Secret = "other-secret"
	_, err = foreign.ParseToken(login.Token)
	assert.Error(t, err)

	_, err = svc.ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestCredentialService_MigratesLegacyPassword(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newCredentialService(store)

	plain := "imported-secret"
	legacy := &user.User{ID: uuid.New(), Username: "anu", Role: user.RoleStudent, LegacyPassword: &plain}
	require.NoError(t, store.Users().Create(ctx, legacy))

	principal, err := svc.Authenticate(ctx, "anu", plain)
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, principal.UserID)

	stored, err := store.Users().GetByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LegacyPassword)
	require.NotNil(t, stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte(plain)))

	// the migrated hash keeps working
	_, err = svc.Authenticate(ctx, "anu", plain)
	assert.NoError(t, err)
}

func TestCredentialService_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newCredentialService(memory.NewStore())

	_, err := svc.CreateUser(ctx, &user.CreateUserRequest{Username: "ravi", Password: "correct-horse", Role: "teacher"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "ravi", "wrong")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Login(ctx, &user.LoginRequest{Username: "ravi", Password: "wrong"})
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}
