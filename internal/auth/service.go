package auth

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *shared.TokenIssuer
}

// NewService constructs a new Service. tokens may be nil when the JSON API
// is not exposed.
func NewService(repo Repository, tokens *shared.TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken authenticates and returns a bearer token for the JSON API.
func (s *Service) IssueToken(ctx context.Context, username, password string) (string, time.Time, error) {
	if s.tokens == nil {
		return "", time.Time{}, shared.ErrTokenInvalid
	}
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.tokens.Issue(user.Username)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
