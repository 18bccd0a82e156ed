package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	interfaces "college-records/internal/interfaces/infrastructure"
	"college-records/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var _ user.CredentialService = (*CredentialService)(nil)

// TokenConfig holds the bearer token settings
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// CredentialService authenticates users and issues HS256 bearer tokens.
// Legacy plaintext credentials are re-hashed on their first successful login.
type CredentialService struct {
	store  interfaces.Store
	tokens TokenConfig
	cost   int
	now    func() time.Time
}

func NewCredentialService(store interfaces.Store, tokens TokenConfig) *CredentialService {
	return &CredentialService{store: store, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
}

type tokenClaims struct {
	Username string      `json:"username,omitempty"`
	Roles    []user.Role `json:"roles"`
	jwt.RegisteredClaims
}

func (s *CredentialService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	logger.Info("Creating user with username: %s", req.Username)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &user.User{
		ID:       uuid.New(),
		Username: strings.TrimSpace(req.Username),
		Role:     user.Role(req.Role),
	}
	account.SetHashed(string(hash))

	err = s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		existing, err := uow.Users().GetByUsername(ctx, account.Username)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if existing != nil {
			return domain.NewConflictError("user", account.Username, "username already exists")
		}
		return uow.Users().Create(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("User created successfully with ID: %s", account.ID)
	return account, nil
}

// Authenticate verifies the password against whichever credential variant is
// stored. Every failure is reported as ErrInvalidCredentials.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (*user.Principal, error) {
	var principal *user.Principal
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		account, err := uow.Users().GetByUsername(ctx, strings.TrimSpace(username))
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if account == nil {
			return user.ErrInvalidCredentials
		}

		credential, err := account.Credential()
		if err != nil {
			logger.Error("User %s has an invalid credential: %v", account.ID, err)
			return user.ErrInvalidCredentials
		}

		switch c := credential.(type) {
		case user.Hashed:
			if bcrypt.CompareHashAndPassword([]byte(c.Hash), []byte(password)) != nil {
				return user.ErrInvalidCredentials
			}
		case user.LegacyPlaintext:
			if subtle.ConstantTimeCompare([]byte(c.Value), []byte(password)) != 1 {
				return user.ErrInvalidCredentials
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			account.SetHashed(string(hash))
			if err := uow.Users().Update(ctx, account); err != nil {
				return fmt.Errorf("failed to migrate credential: %w", err)
			}
			logger.Info("Legacy credential migrated for user %s", account.ID)
		}

		principal = &user.Principal{UserID: account.ID, Username: account.Username, Roles: []user.Role{account.Role}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return principal, nil
}

func (s *CredentialService) Login(ctx context.Context, req *user.LoginRequest) (*user.LoginResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	principal, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.tokens.TTL)
	claims := tokenClaims{
		Username: principal.Username,
		Roles:    principal.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.UserID.String(),
			Issuer:    s.tokens.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.tokens.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &user.LoginResponse{Token: token, ExpiresAt: expiresAt, Principal: *principal}, nil
}

// ParseToken verifies signature, issuer and expiry and returns the principal
func (s *CredentialService) ParseToken(token string) (*user.Principal, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.tokens.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.tokens.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.New("invalid token: subject is not a user id")
	}
	return &user.Principal{UserID: userID, Username: claims.Username, Roles: claims.Roles}, nil
}
