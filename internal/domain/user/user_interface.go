package user

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, user *User) error
}

// CredentialService defines the interface for login and token handling
type CredentialService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*Principal, error)
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	ParseToken(token string) (*Principal, error)
}
