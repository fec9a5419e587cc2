package pool

import (
	"context"
	"sync"
)

// WorkerFunc processes a single item and may return an error.
type WorkerFunc[T any] func(ctx context.Context, item T) error

// Run processes items concurrently with at most numWorkers goroutines and
// returns the errors that occurred, in no particular order. Cancelling the
// context stops the feed; items already handed to a worker still finish.
func Run[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T]) []error {
	if numWorkers < 1 {
		numWorkers = 1
	}

	tasks := make(chan T)
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				if ctx.Err() != nil {
					continue // drain without processing
				}
				if err := workerFunc(ctx, item); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case tasks <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()

	return errs
}
