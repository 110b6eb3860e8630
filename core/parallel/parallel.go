package parallel

import (
	"runtime"
	"sync"
)

// ResolveNJobs maps a scikit-learn style n_jobs value to a worker count.
// -1 means all CPUs, -2 all but one and so on; 0 is treated as 1.
func ResolveNJobs(nJobs int) int {
	switch {
	case nJobs > 0:
		return nJobs
	case nJobs == 0:
		return 1
	default:
		n := runtime.NumCPU() + 1 + nJobs
		if n < 1 {
			n = 1
		}
		return n
	}
}

// ParallelizeN divides items into contiguous ranges and runs fn on each range
// concurrently, with the worker count taken from nJobs (see ResolveNJobs).
// With a single worker fn runs on the calling goroutine.
func ParallelizeN(items, nJobs int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := ResolveNJobs(nJobs)
	if numWorkers > items {
		numWorkers = items
	}
	if numWorkers == 1 {
		fn(0, items)
		return
	}

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
