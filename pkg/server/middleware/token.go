package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
)

// TokenAuthenticator is middleware that verifies HS256 bearer tokens and
// attaches the caller's identity to the request context.
type TokenAuthenticator struct {
	secret []byte
	leeway time.Duration
}

// NewTokenAuthenticator creates a new bearer token middleware
func NewTokenAuthenticator(secret string) *TokenAuthenticator {
	return &TokenAuthenticator{secret: []byte(secret), leeway: 30 * time.Second}
}

// Middleware returns an HTTP middleware that validates bearer tokens
func (a *TokenAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "Authorization missing")
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			unauthorized(w, "Malformed authorization header")
			return
		}

		id, err := a.Verify(strings.TrimSpace(tokenString))
		if err != nil {
			log.WithError(err).Debug("bearer token rejected")
			unauthorized(w, "Invalid token")
			return
		}
		id.WithRemoteIP(remoteIP(r))

		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

// Verify parses and verifies tokenString and returns the identity it
// carries.
func (a *TokenAuthenticator) Verify(tokenString string) (*identity.Identity, error) {
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("no signing secret configured")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(a.leeway), jwt.WithIssuedAt())
	if err != nil {
		return nil, err
	}

	subject, _ := claims.GetSubject()
	id := identity.New(subject, identity.ClaimsFromMap(claims))
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

// SignToken produces an HS256 token for subject carrying claims. Token
// issuance belongs to the identity provider; this exists for tests and
// local tooling.
func SignToken(secret, subject string, claims identity.Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	mc := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	for k, values := range claims {
		switch len(values) {
		case 0:
		case 1:
			mc[k] = values[0]
		default:
			mc[k] = values
		}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString([]byte(secret))
}

func remoteIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tenant-authz"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(msg))
}
