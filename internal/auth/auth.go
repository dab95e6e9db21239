package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized covers every credential failure: missing, malformed,
// expired, bad signature. Callers never learn which one it was, and neither
// does the client.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is what a verified credential resolves to. Immutable for the
// lifetime of whatever was authenticated with it.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service issues and verifies the opaque session credential (an HS256 JWT).
// Verify is a pure function of the token and the secret; no state is touched.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (s *Service) Issue(id Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   id.UserID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "pairchat",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
		},
	})

	return token.SignedString(s.secret)
}

func (s *Service) Verify(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.UserID == "" {
		return Identity{}, ErrUnauthorized
	}

	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// TTL reports how long issued credentials stay valid; the handlers use it for
// the cookie max-age.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// TokenFromRequest pulls the raw credential out of a request: the "token"
// cookie first (what the browser client sends on the websocket upgrade), then
// a bearer Authorization header as fallback for non-browser clients.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie("token"); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return ""
}
