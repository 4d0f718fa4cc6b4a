package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/rolodex/internal/auth"
	"github.com/dukerupert/rolodex/internal/database"
	"github.com/dukerupert/rolodex/internal/model"
	"github.com/dukerupert/rolodex/internal/store"
	"github.com/dukerupert/rolodex/internal/token"
)

func setupAuthMiddleware(t *testing.T) (*token.Service, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return token.NewService([]byte("test-secret"), time.Hour), store.NewUserStore(db)
}

func loginTestUser(t *testing.T, tokens *token.Service, users *store.UserStore, email string) (*model.User, string) {
	t.Helper()
	u, err := users.Create(email, "hash", "avatar", "verif-"+email)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	tok, err := tokens.Issue(u.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if err := users.SetToken(u.ID, tok); err != nil {
		t.Fatalf("set token: %v", err)
	}
	return u, tok
}

func authedRequest(tok string) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req
}

func rejectingHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})
}

func TestRequireAuthNoHeader(t *testing.T) {
	tokens, users := setupAuthMiddleware(t)

	handler := RequireAuth(tokens, users)(rejectingHandler(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(""))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	tokens, users := setupAuthMiddleware(t)
	handler := RequireAuth(tokens, users)(rejectingHandler(t))

	for _, header := range []string{"sometoken", "Basic abc", "Bearer "} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	tokens, users := setupAuthMiddleware(t)

	handler := RequireAuth(tokens, users)(rejectingHandler(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("not-a-real-token"))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	_, users := setupAuthMiddleware(t)
	expired := token.NewService([]byte("test-secret"), -1*time.Minute)
	verifier := token.NewService([]byte("test-secret"), time.Hour)

	_, stale := loginTestUser(t, expired, users, "a@x.com")

	handler := RequireAuth(verifier, users)(rejectingHandler(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(stale))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	tokens, users := setupAuthMiddleware(t)
	u, tok := loginTestUser(t, tokens, users, "a@x.com")

	var gotID int64
	handler := RequireAuth(tokens, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = auth.UserID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(tok))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotID != u.ID {
		t.Errorf("context user = %d, want %d", gotID, u.ID)
	}
}

func TestRequireAuthSupersededToken(t *testing.T) {
	tokens, users := setupAuthMiddleware(t)
	u, first := loginTestUser(t, tokens, users, "a@x.com")

	// A second login stores a new token, revoking the first even
	// though it is still cryptographically valid and unexpired.
	second, err := tokens.Issue(u.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if second == first {
		t.Fatal("expected distinct tokens")
	}
	if err := users.SetToken(u.ID, second); err != nil {
		t.Fatalf("set token: %v", err)
	}

	handler := RequireAuth(tokens, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(first))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("superseded token: status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(second))
	if rec.Code != http.StatusOK {
		t.Errorf("current token: status = %d, want 200", rec.Code)
	}
}

func TestRequireAuthAfterLogout(t *testing.T) {
	tokens, users := setupAuthMiddleware(t)
	u, tok := loginTestUser(t, tokens, users, "a@x.com")

	if err := users.ClearToken(u.ID); err != nil {
		t.Fatalf("clear token: %v", err)
	}

	handler := RequireAuth(tokens, users)(rejectingHandler(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(tok))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthUnknownUser(t *testing.T) {
	tokens, users := setupAuthMiddleware(t)

	tok, err := tokens.Issue(9999)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	handler := RequireAuth(tokens, users)(rejectingHandler(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(tok))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
