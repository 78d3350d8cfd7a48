package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims carries the user id as sole identity claim, plus the token type
// so a refresh token can never pass for an access token.
type Claims struct {
	ID        string    `json:"id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is the short-lived access token and the longer-lived refresh
// token handed to clients as two named cookies.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenIssuer mints and verifies the session token pair.
type TokenIssuer struct {
	secretKey     []byte
	accessExpire  time.Duration
	refreshExpire time.Duration
}

func NewTokenIssuer(secretKey string, accessExpire, refreshExpire time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secretKey:     []byte(secretKey),
		accessExpire:  accessExpire,
		refreshExpire: refreshExpire,
	}
}

func (s *TokenIssuer) GeneratePair(userID string) (TokenPair, error) {
	now := time.Now()
	accessExpiresAt := now.Add(s.accessExpire)

	access, err := s.generate(userID, AccessToken, accessExpiresAt)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.generate(userID, RefreshToken, now.Add(s.refreshExpire))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: accessExpiresAt}, nil
}

// GenerateAccess mints a fresh access token only, used by the refresh path.
func (s *TokenIssuer) GenerateAccess(userID string) (string, error) {
	return s.generate(userID, AccessToken, time.Now().Add(s.accessExpire))
}

func (s *TokenIssuer) generate(userID string, tokenType TokenType, expiresAt time.Time) (string, error) {
	claims := &Claims{
		ID:        userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chathub",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

func (s *TokenIssuer) ValidateAccess(tokenString string) (*Claims, error) {
	return s.validate(tokenString, AccessToken)
}

func (s *TokenIssuer) ValidateRefresh(tokenString string) (*Claims, error) {
	return s.validate(tokenString, RefreshToken)
}

func (s *TokenIssuer) AccessExpire() time.Duration  { return s.accessExpire }
func (s *TokenIssuer) RefreshExpire() time.Duration { return s.refreshExpire }

func (s *TokenIssuer) validate(tokenString string, expected TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != expected {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
