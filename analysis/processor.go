package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/quartzbyte/citation-audit/analysis/fileutils"
)

// progressTracker is the shared accumulator for one run: a completed-count
// counter plus the append-only failure list. It is injected into every
// worker; the lock is held only for the increment/append itself.
type progressTracker struct {
	mu        sync.Mutex
	completed int
	failures  []FailureRecord
}

func (p *progressTracker) addCompleted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	return p.completed
}

func (p *progressTracker) addFailure(rec FailureRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, rec)
}

func (p *progressTracker) failureList() []FailureRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]FailureRecord, len(p.failures))
	copy(out, p.failures)
	return out
}

func itemFileName(batchID, rowIndex int) string {
	return fmt.Sprintf("batch_%d_item_%d.json", batchID, rowIndex)
}

// processItem runs the full pipeline for one row: prompt, retried API call,
// result tagging, per-item persistence, progress accounting. It never
// returns an error; a row that produces no result is recorded on prog and
// reported as nil. Rows cut short by a cancelled context are reported as
// nil without a failure record; they belong to the rerun, not this run.
func (a *Analyzer) processItem(ctx context.Context, row Row, batchID int, prog *progressTracker) *AnalysisResult {
	itemID := fmt.Sprintf("%d_%d", batchID, row.Index)

	prompt := BuildPrompt(row, a.opts.MislabelAnalysis)
	result := a.retry.call(ctx, prompt, itemID)
	if result == nil {
		prog.addFailure(FailureRecord{
			BatchID:      batchID,
			RowIndex:     row.Index,
			ErrorMessage: "retry loop produced no result",
		})
		return nil
	}

	// An error under a cancelled context is the interruption itself, not a
	// verdict on the row. Dropping it unpersisted leaves the batch
	// uncheckpointed, so a resumed run retries the row.
	if result.Failed() && ctx.Err() != nil {
		return nil
	}

	result.OriginalData = &OriginalData{
		Index:           row.Index,
		TargetDatasetID: row.TargetDatasetID,
		ArticleID:       row.ArticleID,
		Type:            row.Type,
	}

	// Per-item file first, so partial batch progress survives a crash.
	// A write failure does not drop the result, but it is recorded so the
	// failure list reflects the lost artifact.
	path := filepath.Join(a.opts.OutputDir, itemFileName(batchID, row.Index))
	if err := fileutils.WriteJSONFileAtomic(path, result); err != nil {
		a.log.Printf("write item file %s: %v", path, err)
		prog.addFailure(FailureRecord{
			BatchID:      batchID,
			RowIndex:     row.Index,
			ErrorMessage: fmt.Sprintf("write item file: %v", err),
		})
	}

	n := prog.addCompleted()
	a.log.Printf("completed %d item(s)", n)
	return result
}
