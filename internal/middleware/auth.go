package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/rolodex/internal/auth"
	"github.com/dukerupert/rolodex/internal/store"
	"github.com/dukerupert/rolodex/internal/token"
)

// RequireAuth validates the bearer token and populates the request
// context with the resolved user. A token that verifies
// cryptographically is still rejected unless it equals the token
// stored on the user record; that equality check is the revocation
// mechanism for logout and superseded logins.
func RequireAuth(tokens *token.Service, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			userID, err := tokens.Verify(raw)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByID(userID)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}

			if user.Token == nil || *user.Token != raw {
				unauthorized(w)
				return
			}

			ctx := auth.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(rest)
	if tok == "" {
		return "", false
	}
	return tok, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": "Not authorized"})
}
