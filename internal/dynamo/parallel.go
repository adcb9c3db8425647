package dynamo

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the worker count used when a caller asks for zero.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// ParallelFor splits [0, n) into contiguous chunks of at least minChunk
// items and runs fn on each chunk concurrently. It returns once every chunk
// has finished, with the first error any chunk reported.
func ParallelFor(ctx context.Context, n, workers, minChunk int, fn func(ctx context.Context, start, end int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || workers == 1 {
		return fn(ctx, 0, n)
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunkSize {
		s, e := start, start+chunkSize
		if e > n {
			e = n
		}
		g.Go(func() error {
			return fn(gctx, s, e)
		})
	}

	return g.Wait()
}
