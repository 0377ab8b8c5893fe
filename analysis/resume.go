package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/quartzbyte/citation-audit/analysis/fileutils"
)

// LoadCheckpoint reads the checkpoint file from outputDir.
func LoadCheckpoint(outputDir string) (Checkpoint, error) {
	b, err := os.ReadFile(filepath.Join(outputDir, checkpointFileName))
	if err != nil {
		return Checkpoint{}, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, nil
}

// ResumeStartBatch derives the batch a resumed run should start at. A
// missing checkpoint is a user-visible error: there is nothing to resume.
func ResumeStartBatch(outputDir string) (int, error) {
	cp, err := LoadCheckpoint(outputDir)
	if err != nil {
		return 0, fmt.Errorf("no resumable run in %s: %w", outputDir, err)
	}
	return cp.LastCompletedBatch + 1, nil
}

// LoadExistingResults scans outputDir for per-batch results files and
// returns their contents in batch order. Files that fail to parse are not
// silently skipped; each one is reported as a batch-level FailureRecord
// (row index -1) so a truncated file can't under-count unnoticed.
func LoadExistingResults(outputDir string) ([]AnalysisResult, []FailureRecord) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, []FailureRecord{{BatchID: -1, RowIndex: -1, ErrorMessage: fmt.Sprintf("read output dir: %v", err)}}
	}

	var names []string
	for _, e := range entries {
		// Strict batch_<id>_results.json match; a final results file
		// written into the output dir also ends in _results.json.
		if !e.IsDir() && strings.HasSuffix(e.Name(), "_results.json") && batchIDFromFileName(e.Name()) >= 0 {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return batchIDFromFileName(names[i]) < batchIDFromFileName(names[j]) })

	var results []AnalysisResult
	var failures []FailureRecord
	for _, name := range names {
		batchID := batchIDFromFileName(name)
		b, err := os.ReadFile(filepath.Join(outputDir, name))
		if err != nil {
			failures = append(failures, FailureRecord{BatchID: batchID, RowIndex: -1, ErrorMessage: fmt.Sprintf("read %s: %v", name, err)})
			continue
		}
		var batch []AnalysisResult
		if err := json.Unmarshal(b, &batch); err != nil {
			failures = append(failures, FailureRecord{BatchID: batchID, RowIndex: -1, ErrorMessage: fmt.Sprintf("parse %s: %v", name, err)})
			continue
		}
		results = append(results, batch...)
	}
	return results, failures
}

func batchIDFromFileName(name string) int {
	var id int
	if _, err := fmt.Sscanf(name, "batch_%d_results.json", &id); err != nil {
		return -1
	}
	return id
}

// Reaggregate rebuilds the summary and final results file purely from the
// batch artifacts already on disk, without any API calls. Useful after a
// run whose final write failed, or to recompute the summary in a different
// analysis mode.
func Reaggregate(outputDir, finalPath string, mislabelAnalysis bool) (*FinalResults, error) {
	results, loadFailures := LoadExistingResults(outputDir)

	failures := loadFailures
	if cp, err := LoadCheckpoint(outputDir); err == nil {
		failures = append(cp.FailedItems, loadFailures...)
	}

	final := &FinalResults{
		Summary:         Summarize(results, mislabelAnalysis),
		DetailedResults: results,
		FailedItems:     failures,
		Metadata: RunMetadata{
			RunID:          uuid.NewString(),
			TotalProcessed: len(results),
			TotalFailed:    len(failures),
			ProcessingTime: nowISO8601(),
		},
	}
	if err := fileutils.WriteJSONFileAtomic(finalPath, final); err != nil {
		return final, fmt.Errorf("write final results: %w", err)
	}
	return final, nil
}
