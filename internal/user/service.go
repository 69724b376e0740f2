package user

import (
	"context"
	"errors"

	"campusmarket/internal/apperr"
	"campusmarket/internal/auth"
	"campusmarket/internal/logger"
)

var (
	ErrEmailExists        = apperr.Conflict("Email already registered")
	ErrInvalidCredentials = apperr.Unauthenticated("Invalid email or password")
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	GetByID(ctx context.Context, userID string) (*User, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, *User, error)
}

type service struct {
	repo      Repository
	jwtSecret string
}

func NewService(repo Repository, jwtSecret string) Service {
	return &service{
		repo:      repo,
		jwtSecret: jwtSecret,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, "", "", apperr.Internal("Failed to register user", err)
	}
	if exists {
		return nil, "", "", ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", apperr.Internal("Failed to hash password", err)
	}

	user, err := s.repo.Create(ctx, req.Name, req.Email, passwordHash, req.School, auth.RoleMember)
	if errors.Is(err, ErrDuplicateEmail) {
		return nil, "", "", ErrEmailExists
	}
	if err != nil {
		return nil, "", "", apperr.Internal("Failed to create user", err)
	}

	logger.Info("user registered", "user_id", user.ID)

	return s.issue(user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", apperr.Internal("Failed to log in", err)
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *service) issue(user *User) (*User, string, string, error) {
	accessToken, refreshToken, err := auth.GenerateTokens(user.ID, user.Email, user.Role, s.jwtSecret)
	if err != nil {
		return nil, "", "", apperr.Internal("Failed to generate tokens", err)
	}

	return user, accessToken, refreshToken, nil
}

func (s *service) GetByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("Failed to load user", err)
	}
	return user, nil
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	claims, err := auth.ValidateToken(refreshToken, s.jwtSecret, auth.TokenRefresh)
	if err != nil {
		return "", nil, apperr.Unauthenticated("Invalid or expired refresh token")
	}

	user, err := s.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, err
	}

	newAccessToken, err := auth.GenerateAccessToken(user.ID, user.Email, user.Role, s.jwtSecret)
	if err != nil {
		return "", nil, apperr.Internal("Failed to generate access token", err)
	}

	return newAccessToken, user, nil
}
