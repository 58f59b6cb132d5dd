package filter

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of goroutines evaluating chunks
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workerCount = workers
		}
	}
}

// WithBatchSize sets the chunk size. Smaller inputs are evaluated inline.
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator implements both Evaluator and BatchEvaluator.
// Matches are always returned in input order.
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
}

var (
	_ Evaluator      = (*ConcurrentEvaluator)(nil)
	_ BatchEvaluator = (*ConcurrentEvaluator)(nil)
)

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the items matching filter
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, items []ItemInfo) ([]ItemInfo, error) {
	if len(items) == 0 {
		return []ItemInfo{}, nil
	}
	if len(items) < e.batchSize || !filter.IsThreadSafe() {
		return matchAll(filter, items), ctx.Err()
	}

	chunkSize := max(len(items)/e.workerCount, e.batchSize)
	chunks := make([][]ItemInfo, (len(items)+chunkSize-1)/chunkSize)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)
	for i := range chunks {
		start := i * chunkSize
		end := min(start+chunkSize, len(items))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks[i] = matchAll(filter, items[start:end])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]ItemInfo, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out, nil
}

// EvaluateBatch runs each filter over items. A filter whose evaluation is
// cancelled is left out of the result.
func (e *ConcurrentEvaluator) EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, items []ItemInfo) (map[string][]ItemInfo, error) {
	results := make(map[string][]ItemInfo, len(filters))
	if len(filters) == 0 || len(items) == 0 {
		return results, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.workerCount)
	for name, filter := range filters {
		g.Go(func() error {
			matches, err := e.Evaluate(ctx, filter, items)
			if err != nil {
				return nil
			}
			mu.Lock()
			results[name] = matches
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func matchAll(filter CompiledFilter, items []ItemInfo) []ItemInfo {
	matches := make([]ItemInfo, 0, len(items)/10)
	for _, item := range items {
		if filter.Evaluate(item) {
			matches = append(matches, item)
		}
	}
	return matches
}
