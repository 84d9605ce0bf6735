package auth

import (
	"context"
	"time"

	"stokado/internal/core/actor"
	"stokado/internal/core/apperror"
	"stokado/pkg/logger"
)

// Service provides login and user management.
type Service struct {
	repo Repository
	jwt  *JWTService
}

// NewService creates a new auth service.
func NewService(repo Repository, jwt *JWTService) *Service {
	return &Service{repo: repo, jwt: jwt}
}

// TokenPair is the login result.
type TokenPair struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Login verifies credentials and issues an access token. Wrong email and
// wrong password return the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive || !user.CheckPassword(password) {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(user.Actor())
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	user.Touch()
	if err := s.repo.Update(ctx, user); err != nil {
		logger.Warn(ctx, "update last login failed", "user_id", user.ID, "error", err)
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return &TokenPair{AccessToken: token, ExpiresAt: expiresAt}, nil
}

// CreateUser registers a user. Only admins may do this.
func (s *Service) CreateUser(ctx context.Context, email, password, name string, role actor.Role) (*User, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if a.Role != actor.RoleAdmin {
		return nil, apperror.NewForbidden("user management requires admin role")
	}

	user, err := NewUser(email, password, name, role)
	if err != nil {
		return nil, err
	}
	if err := user.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info(ctx, "user created", "user_id", user.ID, "email", user.Email, "role", role)
	return user, nil
}

// ValidateToken resolves the actor from a bearer token.
func (s *Service) ValidateToken(tokenString string) (actor.Actor, error) {
	return s.jwt.ValidateToken(tokenString)
}
