package session

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Batch looks up several usernames at once, each with its own orchestrator
// from newOrchestrator. At most limit lookups run concurrently; every
// lookup is still sequential internally. States come back in input order,
// once every lookup and its on-done hooks have finished.
func Batch(ctx context.Context, newOrchestrator func() *Orchestrator, queries []string, limit int) []State {
	if limit < 1 {
		limit = 1
	}

	states := make([]State, len(queries))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, query := range queries {
		g.Go(func() error {
			// A failed lookup is a result, not an error that should stop the others.
			o := newOrchestrator()
			states[i] = o.Run(gCtx, query)
			o.Wait()
			return nil
		})
	}

	_ = g.Wait()
	return states
}
