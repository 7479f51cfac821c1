package middleware

import (
	"context"

	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

type contextKey string

const principalContextKey contextKey = "principal"

// WithPrincipal injects the resolved principal into the context.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal from the context.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	v := ctx.Value(principalContextKey)
	if v == nil {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}
