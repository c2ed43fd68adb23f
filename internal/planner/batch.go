package planner

import (
	"context"
	"runtime"
	"sync"

	"tradedesk/internal/models"
)

// Result is the outcome of evaluating one setup of a batch.
type Result struct {
	Index  int
	Report *Report
	Setup  models.TradeSetup
	Err    error
}

// EvaluateAll evaluates setups on a fixed pool of workers and returns one
// Result per setup, in input order. A failing setup does not stop the others.
// If workers <= 0, it defaults to runtime.NumCPU().
func (p *Planner) EvaluateAll(ctx context.Context, setups []models.TradeSetup, account *Account, workers int) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(setups) {
		workers = len(setups)
	}

	results := make([]Result, len(setups))
	tasks := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				res := Result{Index: i}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Report, res.Setup, res.Err = p.Evaluate(setups[i], account)
				}
				results[i] = res
			}
		}()
	}

	for i := range setups {
		tasks <- i
	}
	close(tasks)
	wg.Wait()

	return results
}
