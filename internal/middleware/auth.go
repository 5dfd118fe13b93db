package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/pkg/logger"
)

type contextKey string

const callerPrincipalKey contextKey = "caller_principal"

// CallerPrincipal returns the authenticated caller principal from the
// request context, or empty if the request was unauthenticated.
func CallerPrincipal(ctx context.Context) string {
	if v, ok := ctx.Value(callerPrincipalKey).(string); ok {
		return v
	}
	return ""
}

// WithCallerPrincipal stores the caller principal on the context.
// Exposed for tests.
func WithCallerPrincipal(ctx context.Context, principal account.Principal) context.Context {
	return context.WithValue(ctx, callerPrincipalKey, string(principal))
}

type callerClaims struct {
	Principal string `json:"principal"`
	jwt.RegisteredClaims
}

// BearerAuth validates HS256 bearer tokens carrying the caller's
// principal claim and stores that principal on the request context.
type BearerAuth struct {
	secret    []byte
	skipPaths map[string]bool
	log       *logger.Logger
}

// NewBearerAuth creates the auth middleware. Paths in skipPaths bypass
// authentication (health, metrics, read-only balance).
func NewBearerAuth(secret []byte, skipPaths []string, log *logger.Logger) *BearerAuth {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &BearerAuth{secret: secret, skipPaths: skip, log: log}
}

func (a *BearerAuth) skip(path string) bool {
	if a.skipPaths[path] {
		return true
	}
	for prefix := range a.skipPaths {
		if strings.HasSuffix(prefix, "/") && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Handler returns the middleware handler function.
func (a *BearerAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		claims, err := a.validate(token)
		if err != nil {
			a.log.WithContext(r.Context()).WithError(err).Warn("bearer token rejected")
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), callerPrincipalKey, claims.Principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *BearerAuth) validate(tokenString string) (*callerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &callerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*callerClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Principal == "" && claims.Subject != "" {
		claims.Principal = claims.Subject
	}
	return claims, nil
}

// MintCallerToken issues a bearer token for a principal. Used by tests
// and local tooling.
func MintCallerToken(secret []byte, principal account.Principal) (string, error) {
	claims := callerClaims{
		Principal:        string(principal),
		RegisteredClaims: jwt.RegisteredClaims{Subject: string(principal)},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
