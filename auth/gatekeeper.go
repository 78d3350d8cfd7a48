package auth

import (
	"net/http"
	"strings"

	"chathub/domain"
	apperrors "chathub/errors"
)

const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

// UserResolver turns a verified token claim into a known user.
type UserResolver interface {
	GetUser(id string) (domain.User, error)
}

// Session is the resolved identity of one authenticated connection.
// It is immutable after construction and passed to every handler; no
// component receives a connection without one.
type Session struct {
	User domain.User

	// FreshAccessToken is set when the access token was minted from the
	// refresh fallback; the caller must hand it back to the client.
	FreshAccessToken string
}

// Gatekeeper authenticates incoming connections from cookie-carried tokens.
type Gatekeeper struct {
	issuer *TokenIssuer
	users  UserResolver
}

func NewGatekeeper(issuer *TokenIssuer, users UserResolver) *Gatekeeper {
	return &Gatekeeper{issuer: issuer, users: users}
}

// Authenticate resolves an identity from the handshake request.
//
// A valid access token wins; otherwise a valid refresh token resolves the
// identity and mints a replacement access token. Anything else is an
// authentication failure and the caller must close the connection.
func (g *Gatekeeper) Authenticate(r *http.Request) (Session, error) {
	access := cookieValue(r, AccessCookieName)
	refresh := cookieValue(r, RefreshCookieName)
	return g.AuthenticateTokens(access, refresh)
}

// AuthenticateTokens is the header-independent core of Authenticate.
func (g *Gatekeeper) AuthenticateTokens(access, refresh string) (Session, error) {
	if access != "" {
		if claims, err := g.issuer.ValidateAccess(access); err == nil {
			user, err := g.users.GetUser(claims.ID)
			if err != nil {
				return Session{}, apperrors.Unauthorized("unknown user")
			}
			return Session{User: user}, nil
		}
	}

	if refresh != "" {
		claims, err := g.issuer.ValidateRefresh(refresh)
		if err != nil {
			return Session{}, apperrors.Unauthorized("authentication required")
		}
		user, err := g.users.GetUser(claims.ID)
		if err != nil {
			return Session{}, apperrors.Unauthorized("unknown user")
		}
		fresh, err := g.issuer.GenerateAccess(user.ID)
		if err != nil {
			return Session{}, apperrors.Internal(err)
		}
		return Session{User: user, FreshAccessToken: fresh}, nil
	}

	return Session{}, apperrors.Unauthorized("authentication required")
}

func cookieValue(r *http.Request, name string) string {
	if r == nil {
		return ""
	}
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
