package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/samirrijal/geoplane/internal/core/domain"
	"github.com/samirrijal/geoplane/internal/core/ports"
	"github.com/samirrijal/geoplane/internal/pkg/auth"
)

// AuthService handles registration, login, and bearer-token validation.
type AuthService struct {
	users  ports.UserRepository
	tokens ports.TokenService
}

// NewAuthService creates a new AuthService.
func NewAuthService(users ports.UserRepository, tokens ports.TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates a new account with a bcrypt-hashed password. A taken
// username fails with domain.ErrDuplicateUsername.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.users.Create(ctx, username, hash)
}

// Login verifies credentials and issues a bearer token. Unknown usernames
// and wrong passwords both fail with domain.ErrInvalidCredentials; no token
// is issued on failure.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return "", domain.ErrInvalidCredentials
	}
	return s.tokens.Issue(user.Username)
}

// ValidateToken returns the username embedded in a valid token.
func (s *AuthService) ValidateToken(token string) (string, error) {
	return s.tokens.Validate(token)
}
