package authz

import "context"

type profileContextKey struct{}

// ContextWithProfile stores the authenticated profile in context.
func ContextWithProfile(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, profileContextKey{}, p)
}

// ProfileFromContext extracts the authenticated profile from context. The
// second return value is false for anonymous requests.
func ProfileFromContext(ctx context.Context) (Profile, bool) {
	p, ok := ctx.Value(profileContextKey{}).(Profile)
	return p, ok
}
