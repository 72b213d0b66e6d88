package evalset

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

// RunFunc executes the evaluation pipeline for one card. i is the
// card's index in the batch so callers can write results into a
// preallocated slice without locking.
type RunFunc func(ctx context.Context, i int, card domain.StructureCard) error

// Runner fans a batch of cards out over a bounded worker set. The
// pipeline itself stays pure; concurrency lives only here at the
// caller level.
type Runner struct {
	Concurrency int
}

// Run executes fn for every card, at most Concurrency at a time.
// The first error cancels the remaining work via ctx.
func (r Runner) Run(ctx context.Context, cards []domain.StructureCard, fn RunFunc) error {
	limit := r.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, card := range cards {
		i, card := i, card
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i, card)
		})
	}
	return g.Wait()
}
