package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"chathub/auth"
	apperrors "chathub/errors"
)

type sessionContextKey struct{}

// SessionFrom returns the authenticated session stored by RequireAuth.
func SessionFrom(ctx context.Context) (auth.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(auth.Session)
	return session, ok
}

// RequireAuth authenticates the request from its cookies. When the access
// token had to be re-minted from the refresh token, the new access token is
// set back as a cookie before the handler runs.
func RequireAuth(log *slog.Logger, gatekeeper *auth.Gatekeeper, accessTTL time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := gatekeeper.Authenticate(r)
			if err != nil {
				writeError(log, w, apperrors.Unauthorized("authentication required"))
				return
			}
			if session.FreshAccessToken != "" {
				setTokenCookie(w, auth.AccessCookieName, session.FreshAccessToken, accessTTL)
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func setTokenCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
