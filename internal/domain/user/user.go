package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is a principal role understood by the access rules
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ErrInvalidCredentials is returned for any failed login
var ErrInvalidCredentials = errors.New("invalid username or password")

// User is an identity-layer account. Exactly one of PasswordHash and
// LegacyPassword is set.
type User struct {
	ID             uuid.UUID `json:"id" gorm:"column:user_id;type:uuid;primary_key;default:uuid_generate_v4()"`
	Username       string    `json:"username" gorm:"unique;not null"`
	Role           Role      `json:"role" gorm:"type:text;not null"`
	PasswordHash   *string   `json:"-"`
	LegacyPassword *string   `json:"-"`
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Credential is a closed sum: Hashed or LegacyPlaintext
type Credential interface {
	credential()
}

// Hashed is a bcrypt password hash
type Hashed struct {
	Hash string
}

// LegacyPlaintext is an imported password awaiting migration on next login
type LegacyPlaintext struct {
	Value string
}

func (Hashed) credential()          {}
func (LegacyPlaintext) credential() {}

// Credential returns the stored credential variant.
func (u *User) Credential() (Credential, error) {
	switch {
	case u.PasswordHash != nil && u.LegacyPassword == nil:
		return Hashed{Hash: *u.PasswordHash}, nil
	case u.LegacyPassword != nil && u.PasswordHash == nil:
		return LegacyPlaintext{Value: *u.LegacyPassword}, nil
	}
	return nil, errors.New("user must carry exactly one credential")
}

// SetHashed replaces whatever credential is stored with a hash.
func (u *User) SetHashed(hash string) {
	u.PasswordHash = &hash
	u.LegacyPassword = nil
}

// Principal is the authenticated caller
type Principal struct {
	UserID   uuid.UUID `json:"id"`
	Username string    `json:"username,omitempty"`
	Roles    []Role    `json:"roles"`
}

// HasRole reports whether the principal carries role
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal bypasses ownership checks
func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// LoginRequest represents the request to obtain a token
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=1,max=72"`
}

// LoginResponse carries the issued bearer token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Principal Principal `json:"principal"`
}

// CreateUserRequest represents the request to create a user
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin teacher student"`
}
