package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/bitematch/internal/auth"
	"github.com/dukerupert/bitematch/internal/database"
	"github.com/dukerupert/bitematch/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupGateway(t *testing.T) (*auth.Gateway, *store.SessionStore, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	us := store.NewUserStore(db)
	ss := store.NewSessionStore(db, time.Hour)
	return auth.NewGateway(us, ss, discardLogger()), ss, us
}

func TestEnsureIdentityCreatesGuest(t *testing.T) {
	gw, _, _ := setupGateway(t)

	var got auth.Identity
	handler := EnsureIdentity(gw, false, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected Identity in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/deck", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.UserID == 0 || !got.Anonymous {
		t.Errorf("identity = %+v, want anonymous guest", got)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName {
		t.Fatalf("cookies = %v, want one %s cookie", cookies, SessionCookieName)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
}

func TestEnsureIdentityReusesSession(t *testing.T) {
	gw, ss, us := setupGateway(t)

	u, _ := us.CreateAnonymous()
	sess, _ := ss.Create(u.ID)

	var got auth.Identity
	handler := EnsureIdentity(gw, false, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/deck", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got.UserID != u.ID || got.SessionID != sess.ID {
		t.Errorf("identity = %+v, want user %d session %d", got, u.ID, sess.ID)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no new cookie for an existing session")
	}
}

func TestEnsureIdentityInvalidTokenGetsNewGuest(t *testing.T) {
	gw, _, _ := setupGateway(t)

	handler := EnsureIdentity(gw, true, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected replacement cookie, got %v", cookies)
	}
	if cookies[0].Value == "invalid-token" {
		t.Error("cookie should carry a new token")
	}
	if !cookies[0].Secure {
		t.Error("cookie should be Secure when configured")
	}
}

func TestClearSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, false)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("cookies = %+v, want expired cookie", cookies)
	}
}
