package ringbench

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Fleet runs multiple Workers concurrently and collects their results.
// Workers share no ring state, per the concurrency model; Fleet only
// coordinates lifecycle (start together, stop together on first fatal
// error, collect all results).
type Fleet struct {
	workers []*Worker
}

// NewFleet wraps an already-constructed set of workers for joint execution.
func NewFleet(workers ...*Worker) *Fleet {
	return &Fleet{workers: workers}
}

// Run starts every worker and waits for all of them to finish. If any
// worker exits with ExitFatal, the remaining workers are asked to stop
// (via Worker.Stop) so a single bad device doesn't leave the fleet running
// indefinitely; Run still waits for their results before returning.
func (f *Fleet) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, len(f.workers))

	g, gctx := errgroup.WithContext(ctx)
	for i, w := range f.workers {
		i, w := i, w
		g.Go(func() error {
			res, err := w.Run(gctx)
			results[i] = res
			if res.ExitReason == ExitFatal {
				for _, sibling := range f.workers {
					sibling.Stop()
				}
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// Stop signals every worker in the fleet to stop.
func (f *Fleet) Stop() {
	for _, w := range f.workers {
		w.Stop()
	}
}
