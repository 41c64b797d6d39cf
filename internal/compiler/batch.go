package compiler

import (
	"context"
	"runtime"
	"sync"

	"github.com/roach88/flatc/internal/ir"
)

// UnitResult is the outcome of one unit in a batch. Exactly one of Result
// and Err is set.
type UnitResult struct {
	Unit   string
	Result *Result
	Err    error
}

// CompileAll lowers independent units in parallel. Each unit runs its own
// pipeline over its own declaration list, so nothing is shared between
// workers. A failing unit is reported in its slot and never stops the
// others; cancelling ctx stops scheduling, and units not yet started
// report ctx.Err().
//
// Results are in the order of units. workers <= 0 means GOMAXPROCS.
func CompileAll(ctx context.Context, units []*ir.Unit, workers int, opts ...Option) []UnitResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(units))

	results := make([]UnitResult, len(units))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := Compile(ctx, units[i], opts...)
				results[i] = UnitResult{Unit: units[i].Name, Result: res, Err: err}
			}
		}()
	}

	next := 0
schedule:
	for ; next < len(units); next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break schedule
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(units); i++ {
		results[i] = UnitResult{Unit: units[i].Name, Err: ctx.Err()}
	}
	return results
}
