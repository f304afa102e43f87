package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/bitematch/internal/auth"
	"github.com/dukerupert/bitematch/internal/model"
)

const SessionCookieName = "bitematch_session"

// EnsureIdentity resolves the session cookie to an auth.Identity. Requests
// without a valid session get a fresh guest identity and a new cookie, so
// every handler behind it can rely on auth.FromContext.
func EnsureIdentity(gw *auth.Gateway, secureCookie bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				token = cookie.Value
			}

			user, sess, created, err := gw.EnsureAnonymous(r.Context(), token)
			if err != nil {
				logger.Error("ensure identity", "error", err)
				writeError(w, http.StatusInternalServerError, "could not establish session")
				return
			}
			if created {
				SetSessionCookie(w, sess, secureCookie)
			}

			id := auth.Identity{
				UserID:    user.ID,
				SessionID: sess.ID,
				Anonymous: user.Anonymous,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func SetSessionCookie(w http.ResponseWriter, sess *model.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
