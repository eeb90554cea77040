package middleware

import "context"

type actorKey struct{}

// Actor is the authenticated caller behind a request.
type Actor struct {
	UserID string
	Role   string
}

func withActor(ctx context.Context, a Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext reports the caller seeded by Auth, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

func UserIDFromContext(ctx context.Context) string {
	a, _ := ActorFromContext(ctx)
	return a.UserID
}

func RoleFromContext(ctx context.Context) string {
	a, _ := ActorFromContext(ctx)
	return a.Role
}

// WithUserID sets the caller's user id, keeping any role already present.
func WithUserID(ctx context.Context, userID string) context.Context {
	a, _ := ActorFromContext(ctx)
	a.UserID = userID
	return withActor(ctx, a)
}

// WithRole sets the caller's role, keeping any user id already present.
func WithRole(ctx context.Context, role string) context.Context {
	a, _ := ActorFromContext(ctx)
	a.Role = role
	return withActor(ctx, a)
}
