package middleware

import (
	"context"
	"net/http"

	"pairchat/internal/auth"
)

type contextKey string

const (
	UserKey     contextKey = "user_id"
	UsernameKey contextKey = "username"
)

// CredentialVerifier is the slice of the auth service the middleware needs.
// The interface keeps this package decoupled from auth's internals.
type CredentialVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

type AuthMiddleware struct {
	verifier CredentialVerifier
}

func NewAuthMiddleware(v CredentialVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: v}
}

// Handle rejects any request without a valid credential before the handler
// runs. For the websocket route that means a rejected upgrade never sends an
// application frame: the handshake fails at the HTTP layer.
func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := am.verifier.Verify(auth.TokenFromRequest(r))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, identity.UserID)
		ctx = context.WithValue(ctx, UsernameKey, identity.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext recovers what Handle stored. ok is false when the
// middleware didn't run for this request.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	userID, ok := ctx.Value(UserKey).(string)
	username, ok2 := ctx.Value(UsernameKey).(string)
	if !ok || !ok2 || userID == "" {
		return auth.Identity{}, false
	}
	return auth.Identity{UserID: userID, Username: username}, true
}
