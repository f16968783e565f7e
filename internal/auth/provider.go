package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoCredential means no usable access token is available right now. The
// caller must not attempt a remote call without one.
var ErrNoCredential = errors.New("no credential available")

// CredentialProvider resolves the access token for one upstream call. The
// token is looked up at every invocation and never cached across calls; it
// may change between queries after a re-authentication.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticProvider serves a fixed access token, typically from configuration.
type StaticProvider struct {
	token string
}

func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: strings.TrimSpace(token)}
}

func (p *StaticProvider) Token(context.Context) (string, error) {
	return vet(p.token)
}

type ctxKey struct{}

// WithToken attaches a request-scoped bearer token to the context.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, token)
}

// TokenFromContext returns the request-scoped token, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(ctxKey{}).(string)
	return token, ok && token != ""
}

// ContextProvider prefers the token carried on the request context and falls
// back to another provider when the request brought none.
type ContextProvider struct {
	fallback CredentialProvider
}

func NewContextProvider(fallback CredentialProvider) *ContextProvider {
	return &ContextProvider{fallback: fallback}
}

func (p *ContextProvider) Token(ctx context.Context) (string, error) {
	if token, ok := TokenFromContext(ctx); ok {
		return vet(token)
	}
	if p.fallback == nil {
		return "", ErrNoCredential
	}
	return p.fallback.Token(ctx)
}

// vet rejects empty tokens and JWTs whose exp claim has already passed, so a
// call that is guaranteed to be refused never leaves the process. Tokens that
// are not JWTs pass through untouched; the upstream service is the authority
// on those.
func vet(token string) (string, error) {
	if token == "" {
		return "", ErrNoCredential
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return token, nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return token, nil
	}
	if exp.Before(time.Now()) {
		return "", ErrNoCredential
	}
	return token, nil
}
