package identity

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Well-known claim types.
const (
	ClaimEmail = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	ClaimRole  = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
)

// Claims holds the verified claims of a caller. A claim type may carry
// several values.
type Claims map[string][]string

// Get returns the first non-empty value of the claim type. The bool is false
// when the claim is absent or blank, so callers never confuse a missing
// claim with an empty one.
func (c Claims) Get(claimType string) (string, bool) {
	for _, v := range c[claimType] {
		if v = strings.TrimSpace(v); v != "" {
			return v, true
		}
	}
	return "", false
}

// Has reports whether the claim type carries value.
func (c Claims) Has(claimType, value string) bool {
	for _, v := range c[claimType] {
		if v == value {
			return true
		}
	}
	return false
}

// Add appends a value to the claim type.
func (c Claims) Add(claimType, value string) Claims {
	c[claimType] = append(c[claimType], value)
	return c
}

// ClaimsFromMap converts decoded token claims. Strings and arrays of scalars
// are kept; nested objects are dropped.
func ClaimsFromMap(m map[string]any) Claims {
	claims := make(Claims, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			claims[k] = []string{val}
		case []string:
			claims[k] = append([]string(nil), val...)
		case []any:
			for _, item := range val {
				if s, ok := scalar(item); ok {
					claims[k] = append(claims[k], s)
				}
			}
		default:
			if s, ok := scalar(val); ok {
				claims[k] = []string{s}
			}
		}
	}
	return claims
}

func scalar(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool, float64, int, int64, float32:
		return fmt.Sprint(val), true
	default:
		return "", false
	}
}

// Identity represents the authenticated caller of a request.
type Identity struct {
	// Subject is the token subject, if any.
	Subject   string
	Claims    Claims
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Request context
	RemoteIP net.IP
}

// New creates an Identity for subject with the given claims.
func New(subject string, claims Claims) *Identity {
	if claims == nil {
		claims = Claims{}
	}
	return &Identity{Subject: subject, Claims: claims}
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// WithLifetime sets the token issue and expiry times.
func (i *Identity) WithLifetime(issuedAt, expiresAt time.Time) *Identity {
	i.IssuedAt = issuedAt
	i.ExpiresAt = expiresAt
	return i
}

// Claim is Claims.Get on a possibly nil identity.
func (i *Identity) Claim(claimType string) (string, bool) {
	if i == nil {
		return "", false
	}
	return i.Claims.Get(claimType)
}

// HasRole reports whether roleClaim carries role.
func (i *Identity) HasRole(roleClaim, role string) bool {
	if i == nil {
		return false
	}
	return i.Claims.Has(roleClaim, role)
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
