package auth

import "context"

type ctxKey struct{}

var ctxKeyIdentity = ctxKey{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext returns nil when the request is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	if v := ctx.Value(ctxKeyIdentity); v != nil {
		if id, ok := v.(*Identity); ok {
			return id
		}
	}
	return nil
}
