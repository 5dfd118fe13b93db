package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the service bearer credential attached to worker
// calls. The credential authenticates the gateway itself and is never
// part of the signed user payload, so it can rotate independently of
// user identities.
type TokenSource interface {
	Token() (string, error)
}

// StaticTokenSource returns a fixed, externally issued token.
type StaticTokenSource string

func (s StaticTokenSource) Token() (string, error) {
	if s == "" {
		return "", fmt.Errorf("service token not configured")
	}
	return string(s), nil
}

// ServiceTokenSource mints short-lived HS256 service tokens and caches
// them until shortly before expiry.
type ServiceTokenSource struct {
	secret    []byte
	serviceID string
	ttl       time.Duration

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewServiceTokenSource constructs a minting token source. TTL defaults
// to one hour.
func NewServiceTokenSource(secret []byte, serviceID string, ttl time.Duration) (*ServiceTokenSource, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("service token secret is required")
	}
	if serviceID == "" {
		return nil, fmt.Errorf("service id is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ServiceTokenSource{secret: secret, serviceID: serviceID, ttl: ttl}, nil
}

func (s *ServiceTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.token != "" && now.Before(s.expires.Add(-time.Minute)) {
		return s.token, nil
	}

	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   s.serviceID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("mint service token: %w", err)
	}

	s.token = token
	s.expires = expires
	return token, nil
}
