package gate

import "context"

// permitKey scopes a held permit to one pool identity, so nesting across
// different pools stays independent.
type permitKey struct{ pool *Pool }

// withPermit binds pm as the permit the current task holds for pool. The
// binding lives for the dynamic extent of the gated call that created it.
func withPermit(ctx context.Context, pool *Pool, pm *Permit) context.Context {
	return context.WithValue(ctx, permitKey{pool: pool}, pm)
}

// heldPermit reports the permit ctx already holds for pool, or nil.
func heldPermit(ctx context.Context, pool *Pool) *Permit {
	pm, _ := ctx.Value(permitKey{pool: pool}).(*Permit)
	return pm
}
