/**
 * @description
 * Bounded concurrency executor for the ingestion pipeline.
 * A fixed pool of workers drains a shared index cursor, so at most
 * `concurrency` operations are in flight and results come back in input
 * order regardless of completion order.
 *
 * @dependencies
 * - standard "context"
 * - standard "sync", "sync/atomic"
 *
 * @notes
 * - The first worker error cancels the pool and is returned; callers that
 *   want partial-failure tolerance wrap their worker to return an
 *   error-tagged result instead of an error.
 */

package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
)

// RunBounded runs worker over items with at most concurrency in flight.
// results[i] always corresponds to items[i].
func RunBounded[T, R any](ctx context.Context, items []T, concurrency int, worker func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		cursor   atomic.Int64
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	cursor.Store(-1)

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1))
				if i >= len(items) {
					return
				}
				if ctx.Err() != nil {
					return
				}
				res, err := worker(ctx, items[i])
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				results[i] = res
			}
		}()
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
