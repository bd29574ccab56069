package app

import (
	"context"
	"strings"
)

// anonymousActor is recorded for mutations whose context names nobody.
const anonymousActor = "anonymous"

// Actor identifies who a mutation is attributed to in the activity ledger.
type Actor struct {
	ID string
}

type actorKey struct{}

// WithActor returns ctx carrying actor. Surrounding whitespace in the id is dropped.
func WithActor(ctx context.Context, actor Actor) context.Context {
	actor.ID = strings.TrimSpace(actor.ID)
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom reports the actor stored in ctx. A blank id counts as absent.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor, actor.ID != ""
}

// attributedTo names the actor for one mutation, falling back to anonymousActor.
func attributedTo(ctx context.Context) string {
	if actor, ok := ActorFrom(ctx); ok {
		return actor.ID
	}
	return anonymousActor
}
