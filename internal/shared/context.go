package shared

import "context"

type (
	sessionContextKey struct{}
	userContextKey    struct{}
)

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithUser records the authenticated username, from a session or a
// bearer token.
func ContextWithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userContextKey{}, username)
}

// UserFromContext returns the authenticated username, empty for guests.
func UserFromContext(ctx context.Context) string {
	if user, ok := ctx.Value(userContextKey{}).(string); ok && user != "" {
		return user
	}
	return SessionFromContext(ctx).User()
}
