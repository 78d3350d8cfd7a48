package services

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"chathub/auth"
	"chathub/domain"
	apperrors "chathub/errors"
	"chathub/repositories"
)

type AuthService struct {
	log    *slog.Logger
	users  repositories.IUserRepository
	issuer *auth.TokenIssuer
}

func NewAuthService(log *slog.Logger, users repositories.IUserRepository, issuer *auth.TokenIssuer) *AuthService {
	return &AuthService{log: log, users: users, issuer: issuer}
}

// AccessExpire reports the configured access token lifetime.
func (s *AuthService) AccessExpire() time.Duration { return s.issuer.AccessExpire() }

// RefreshExpire reports the configured refresh token lifetime.
func (s *AuthService) RefreshExpire() time.Duration { return s.issuer.RefreshExpire() }

// Register creates a local account and returns it with a fresh token pair.
func (s *AuthService) Register(req auth.RegisterRequest) (domain.User, auth.TokenPair, error) {
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, auth.TokenPair{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, auth.TokenPair{}, err
	}

	user, err := s.users.CreateUser(domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Avatar:       req.Avatar,
		Provider:     "local",
		PasswordHash: hash,
	})
	if err != nil {
		return domain.User{}, auth.TokenPair{}, err
	}

	pair, err := s.issuer.GeneratePair(user.ID)
	if err != nil {
		return domain.User{}, auth.TokenPair{}, apperrors.ErrTokenGeneration
	}
	s.log.Info("user registered", slog.String("user_id", user.ID))
	return user, pair, nil
}

// Login checks credentials and returns the user with a fresh token pair.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(req auth.LoginRequest) (domain.User, auth.TokenPair, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return domain.User{}, auth.TokenPair{}, err
	}

	user, err := s.users.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return domain.User{}, auth.TokenPair{}, apperrors.ErrInvalidCredentials
	}
	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, auth.TokenPair{}, apperrors.ErrInvalidCredentials
	}

	pair, err := s.issuer.GeneratePair(user.ID)
	if err != nil {
		return domain.User{}, auth.TokenPair{}, apperrors.ErrTokenGeneration
	}
	s.log.Info("user logged in", slog.String("user_id", user.ID))
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *AuthService) Refresh(refreshToken string) (domain.User, string, error) {
	claims, err := s.issuer.ValidateRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return domain.User{}, "", apperrors.Unauthorized("refresh token expired")
		}
		return domain.User{}, "", apperrors.Unauthorized("invalid refresh token")
	}
	user, err := s.users.GetUser(claims.ID)
	if err != nil {
		return domain.User{}, "", apperrors.Unauthorized("unknown user")
	}
	access, err := s.issuer.GenerateAccess(user.ID)
	if err != nil {
		return domain.User{}, "", apperrors.ErrTokenGeneration
	}
	return user, access, nil
}
