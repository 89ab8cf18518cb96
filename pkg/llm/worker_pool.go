package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultPoolConcurrency = 8

// WorkerPool bounds the number of concurrent provider calls. A semaphore
// limits outstanding requests; results stream back as they complete so new
// requests start immediately.
type WorkerPool struct {
	maxConcurrent int
	logger        *zap.Logger
}

// NewWorkerPool creates a pool allowing maxConcurrent simultaneous calls.
// Non-positive values fall back to the default of 8.
func NewWorkerPool(maxConcurrent int, logger *zap.Logger) *WorkerPool {
	if maxConcurrent < 1 {
		maxConcurrent = defaultPoolConcurrency
	}
	return &WorkerPool{
		maxConcurrent: maxConcurrent,
		logger:        logger.Named("llm-worker-pool"),
	}
}

// WorkItem is one unit of work.
type WorkItem[T any] struct {
	ID      string // for logging and result correlation
	Execute func(ctx context.Context) (T, error)
}

// WorkResult is the outcome of one work item.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process runs all items with bounded parallelism and returns results in
// completion order. Failed items do not stop the rest; each result carries
// its own error.
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	pool.logger.Debug("Processing work items",
		zap.Int("items", len(items)),
		zap.Int("max_concurrent", pool.maxConcurrent))

	resultsChan := make(chan WorkResult[T], len(items))
	sem := make(chan struct{}, pool.maxConcurrent)

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item WorkItem[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				var zero T
				resultsChan <- WorkResult[T]{ID: item.ID, Result: zero, Err: ctx.Err()}
				return
			}

			result, err := item.Execute(ctx)
			resultsChan <- WorkResult[T]{ID: item.ID, Result: result, Err: err}
		}(item)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]WorkResult[T], 0, len(items))
	completed := 0
	for result := range resultsChan {
		results = append(results, result)
		completed++
		if onProgress != nil {
			onProgress(completed, len(items))
		}
	}

	return results
}
