package secant

import (
	"context"
	"sync"
)

// DefaultWorkers is the pool size used by grid searches.
const DefaultWorkers = 4

// ParallelFor calls fn(i) for every i in [0, n) on at most workers
// goroutines. Indices not yet started when ctx is canceled are skipped.
// With workers <= 1 the loop runs on the calling goroutine.
func ParallelFor(ctx context.Context, n, workers int, fn func(i int)) {
	if workers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return
			}
			fn(i)
		}
		return
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
}
