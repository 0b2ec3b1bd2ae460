package actor

import "context"

type actorContextKey struct{}

// ContextWithActor attaches the resolved actor to the context for the
// duration of one request. Nothing caches it across requests: role and
// status can change between requests, and stale privilege is a security bug.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, &a)
}

// FromContext extracts the resolved actor from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	v, ok := ctx.Value(actorContextKey{}).(*Actor)
	if !ok || v == nil {
		return Actor{}, false
	}
	return *v, true
}
