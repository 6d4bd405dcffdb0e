// Package runctx provides run-scoped values (e.g. run_id) set by the engine.
package runctx

import "context"

// Each value gets its own key type. Empty values of a single type
// would compare equal and the two keys would collide.
type runIDKey struct{}
type documentKey struct{}

// SetRunID stores the run_id in the context.
func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the run_id from context, or "" if not set.
func RunID(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey{}).(string)
	return v
}

// SetDocument stores the document identifier in the context.
func SetDocument(ctx context.Context, doc string) context.Context {
	return context.WithValue(ctx, documentKey{}, doc)
}

// Document returns the document identifier from context, or "" if not set.
func Document(ctx context.Context) string {
	v, _ := ctx.Value(documentKey{}).(string)
	return v
}
