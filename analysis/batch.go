package analysis

import (
	"context"
	"fmt"
	"sync"
)

func batchFileName(batchID int) string {
	return fmt.Sprintf("batch_%d_results.json", batchID)
}

// runBatch fans the batch's rows out over a bounded worker pool and collects
// the successful results in completion order. Rows that produced no result
// are already recorded on prog and are dropped here.
func (a *Analyzer) runBatch(ctx context.Context, rows []Row, batchID int, prog *progressTracker) []AnalysisResult {
	a.log.Printf("batch %d: processing %d row(s)", batchID, len(rows))

	sem := make(chan struct{}, a.opts.MaxWorkers)
	resCh := make(chan *AnalysisResult, len(rows))

	wg := sync.WaitGroup{}
	for _, row := range rows {
		wg.Add(1)
		go func(row Row) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			resCh <- a.processItem(ctx, row, batchID, prog)
		}(row)
	}
	wg.Wait()
	close(resCh)

	results := make([]AnalysisResult, 0, len(rows))
	for r := range resCh {
		if r != nil {
			results = append(results, *r)
		}
	}
	a.log.Printf("batch %d: %d of %d row(s) succeeded", batchID, len(results), len(rows))
	return results
}
