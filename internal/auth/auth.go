// Package auth resolves the caller identity from a bearer ID token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"finease/internal/core"
	"finease/internal/log"
)

// Unauthenticated failures. Both match core.ErrUnauthenticated.
var (
	ErrTokenNotFound = fmt.Errorf("%w: token not found", core.ErrUnauthenticated)
	ErrInvalidToken  = fmt.Errorf("%w: invalid token", core.ErrUnauthenticated)
)

// Identity is the verified caller. Email is the owner key of every record.
type Identity struct {
	Email   string
	Subject string
}

// Verifier checks an ID token with its issuer.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrTokenNotFound
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// Authenticate verifies the request's bearer token. Verifier failures are
// reported as ErrInvalidToken; the cause is only logged.
func Authenticate(r *http.Request, v Verifier) (Identity, error) {
	token, err := BearerToken(r)
	if err != nil {
		return Identity{}, err
	}
	id, err := v.Verify(r.Context(), token)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).DebugContext(r.Context(),
			"Token verification failed", log.FieldError, err.Error())
		return Identity{}, ErrInvalidToken
	}
	if id.Email == "" {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

// Middleware authenticates every request and stores the identity in the
// request context. Failures are passed to onError.
func Middleware(v Verifier, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := Authenticate(r, v)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// emailClaim reads a non-empty "email" claim.
func emailClaim(claims map[string]any) (string, error) {
	email, _ := claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return "", errors.New("token has no email claim")
	}
	return email, nil
}
