package analysis

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunBatch_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const workers = 3
	var inFlight, peak int64
	c := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return `{"original_classification": "Primary"}`, nil
	})

	opts := testOptions(t.TempDir())
	opts.MaxWorkers = workers
	a := New(c, opts, discardLogger())

	rows := make([]Row, 12)
	for i := range rows {
		rows[i] = Row{Index: i, TargetDatasetID: fmt.Sprintf("DS%d", i)}
	}

	prog := &progressTracker{}
	results := a.runBatch(context.Background(), rows, 0, prog)
	if len(results) != len(rows) {
		t.Fatalf("results=%d", len(results))
	}
	if got := atomic.LoadInt64(&peak); got > workers {
		t.Fatalf("peak concurrency %d, want <= %d", got, workers)
	}
}

func TestRunBatch_AttachesOriginalData(t *testing.T) {
	t.Parallel()

	a := New(okCompleter(), testOptions(t.TempDir()), discardLogger())
	rows := []Row{{Index: 4, TargetDatasetID: "DS4", ArticleID: "PMC4", Type: "Primary"}}

	prog := &progressTracker{}
	results := a.runBatch(context.Background(), rows, 2, prog)
	if len(results) != 1 {
		t.Fatalf("results=%d", len(results))
	}
	od := results[0].OriginalData
	if od == nil {
		t.Fatalf("OriginalData is nil")
	}
	if od.Index != 4 || od.TargetDatasetID != "DS4" || od.ArticleID != "PMC4" || od.Type != "Primary" {
		t.Fatalf("OriginalData=%+v", od)
	}
}

func TestItemAndBatchFileNames(t *testing.T) {
	t.Parallel()

	if got := itemFileName(3, 17); got != "batch_3_item_17.json" {
		t.Fatalf("itemFileName=%q", got)
	}
	if got := batchFileName(3); got != "batch_3_results.json" {
		t.Fatalf("batchFileName=%q", got)
	}
}
