package executor

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs independent operations with bounded parallelism.
// The evaluator uses it to instantiate the rules of one round
// concurrently.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a new worker pool
// workerCount: number of worker goroutines (0 = use NumCPU)
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// ExecuteParallel executes operation on all inputs using the pool.
// Results are returned in the same order as inputs (order-preserving).
// On failure the error of the lowest failing index is returned and the
// results are discarded.
func (p *WorkerPool) ExecuteParallel(
	ctx Context,
	inputs []interface{},
	operation func(Context, interface{}) (interface{}, error),
) ([]interface{}, error) {
	if len(inputs) == 0 {
		return []interface{}{}, nil
	}

	results := make([]interface{}, len(inputs))
	errs := make([]error, len(inputs))

	var g errgroup.Group
	g.SetLimit(p.workerCount)
	for i := range inputs {
		i := i
		g.Go(func() error {
			results[i], errs[i] = operation(ctx, inputs[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("parallel execution failed at index %d: %w", i, err)
		}
	}
	return results, nil
}

// GetWorkerCount returns the number of worker goroutines
func (p *WorkerPool) GetWorkerCount() int {
	return p.workerCount
}
