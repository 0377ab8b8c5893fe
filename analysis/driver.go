package analysis

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quartzbyte/citation-audit/analysis/fileutils"
)

const checkpointFileName = "checkpoint.json"

// Options are the scalar knobs of one run. Zero values fall back to the
// defaults the original deployment used.
type Options struct {
	OutputDir        string
	FinalResultsPath string
	// Model is recorded in run metadata; the Completer owns the actual
	// model selection.
	Model            string
	MaxWorkers       int
	MaxRetries       int
	BatchSize        int
	MislabelAnalysis bool
	// BackoffUnit scales the 2^attempt transport-failure backoff.
	BackoffUnit time.Duration
}

func (o Options) withDefaults() Options {
	if o.OutputDir == "" {
		o.OutputDir = "temp_results"
	}
	if o.FinalResultsPath == "" {
		o.FinalResultsPath = "final_analysis_results.json"
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = 5
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.BackoffUnit <= 0 {
		o.BackoffUnit = time.Second
	}
	return o
}

// Analyzer drives the whole pipeline: dataset loading and validation,
// sequential batch execution with an internally concurrent worker pool,
// checkpointing, and final aggregation.
type Analyzer struct {
	opts  Options
	retry *retryingClient
	log   *log.Logger
}

func New(completer Completer, opts Options, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.Default()
	}
	opts = opts.withDefaults()
	return &Analyzer{
		opts: opts,
		retry: &retryingClient{
			completer:   completer,
			maxRetries:  opts.MaxRetries,
			backoffUnit: opts.BackoffUnit,
			log:         logger,
		},
		log: logger,
	}
}

// AnalyzeDataset processes the whole input table in fixed-size batches,
// starting at startBatch (0 for a fresh run, lastCompleted+1 when
// resuming). Load and validation failures are fatal; everything after that
// degrades to recorded failures and the run keeps going.
func (a *Analyzer) AnalyzeDataset(ctx context.Context, inputPath string, startBatch int) (*FinalResults, error) {
	a.log.Printf("analyzing dataset %s", inputPath)

	ds, err := ReadDataset(inputPath)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	a.log.Printf("loaded %d row(s)", len(ds.Rows))

	if missing := ds.MissingColumns(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	if err := os.MkdirAll(a.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir output dir: %w", err)
	}

	prog := &progressTracker{}
	var allResults []AnalysisResult

	// Earlier batches are trusted by file presence alone; their results are
	// folded back in so the final summary covers the whole dataset.
	if startBatch > 0 {
		existing, loadFailures := LoadExistingResults(a.opts.OutputDir)
		for _, rec := range loadFailures {
			a.log.Printf("batch %d: results file unreadable: %s", rec.BatchID, rec.ErrorMessage)
			prog.addFailure(rec)
		}
		allResults = append(allResults, existing...)
		a.log.Printf("resume: loaded %d existing result(s)", len(existing))
	}

	rows := ds.Rows
	totalBatches := (len(rows) + a.opts.BatchSize - 1) / a.opts.BatchSize

	for batchID := startBatch; batchID < totalBatches; batchID++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("run interrupted before batch %d (checkpoint is the resume point): %w", batchID, ctx.Err())
		}

		start := batchID * a.opts.BatchSize
		end := start + a.opts.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		a.log.Printf("processing batch %d/%d (rows %d-%d)", batchID+1, totalBatches, start, end)

		batchResults := a.runBatch(ctx, rows[start:end], batchID, prog)

		// An interrupted batch is not done: writing its results file or
		// checkpoint would mark it completed and a resumed run would skip
		// its unprocessed rows forever.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("run interrupted during batch %d (checkpoint is the resume point): %w", batchID, ctx.Err())
		}

		if len(batchResults) > 0 {
			path := filepath.Join(a.opts.OutputDir, batchFileName(batchID))
			if err := fileutils.WriteJSONFileAtomic(path, batchResults); err != nil {
				a.log.Printf("write batch results %s: %v", path, err)
			}
			allResults = append(allResults, batchResults...)
		}

		checkpoint := Checkpoint{
			LastCompletedBatch: batchID,
			TotalCompleted:     len(allResults),
			FailedItems:        prog.failureList(),
			Timestamp:          nowISO8601(),
		}
		cpPath := filepath.Join(a.opts.OutputDir, checkpointFileName)
		if err := fileutils.WriteJSONFileAtomic(cpPath, checkpoint); err != nil {
			a.log.Printf("write checkpoint %s: %v", cpPath, err)
		}
	}

	failures := prog.failureList()
	final := &FinalResults{
		Summary:         Summarize(allResults, a.opts.MislabelAnalysis),
		DetailedResults: allResults,
		FailedItems:     failures,
		Metadata: RunMetadata{
			RunID:          uuid.NewString(),
			Model:          a.opts.Model,
			TotalProcessed: len(allResults),
			TotalFailed:    len(failures),
			ProcessingTime: nowISO8601(),
			BatchSize:      a.opts.BatchSize,
			MaxWorkers:     a.opts.MaxWorkers,
		},
	}

	a.log.Printf("analysis complete: %d processed, %d failed", len(allResults), len(failures))
	if err := fileutils.WriteJSONFileAtomic(a.opts.FinalResultsPath, final); err != nil {
		return final, fmt.Errorf("write final results: %w", err)
	}
	return final, nil
}
