// Package parallel splits row ranges across goroutines for batch work such as
// scoring large prediction inputs.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the row count at or below which
// ParallelizeWithThreshold runs sequentially.
const DefaultThreshold = 1024

// Workers returns the number of goroutines Parallelize uses for items rows.
func Workers(items int) int {
	n := runtime.GOMAXPROCS(0)
	if n > items {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Parallelize splits [0, items) into contiguous ranges, one per worker, and
// calls fn on each range concurrently. It returns after every call has
// finished. Ranges never overlap, so fn may write to disjoint rows of a
// shared output without locking.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := Workers(items)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold calls fn(0, items) directly when items does not
// exceed threshold, and Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
