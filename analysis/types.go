// Package analysis implements a batch pipeline that classifies dataset
// citations by sending each row of a tabular input to an LLM and persisting
// structured JSON verdicts, with checkpointed resume across process restarts.
package analysis

import "time"

// Row is one record of the input table. Index is the row's position within
// the full dataset and stays stable across batches and resumed runs.
type Row struct {
	Index           int
	TargetDatasetID string
	ArticleID       string
	AggregatedText  string
	Type            string
}

// OriginalData ties a result back to the row it was produced from.
type OriginalData struct {
	Index           int    `json:"index"`
	TargetDatasetID string `json:"target_dataset_id"`
	ArticleID       string `json:"article_id"`
	Type            string `json:"type"`
}

// ErrJSONParseFailed is the error tag stored on a result when the model
// response never yielded parseable JSON within the retry budget.
const ErrJSONParseFailed = "json_parse_failed"

// AnalysisResult is the verdict for one row. Exactly one of two variants is
// populated: the classification fields on success, or Error (plus
// RawResponse for parse failures) when the row degraded to a recorded
// failure. Use Failed to discriminate; don't probe individual fields.
type AnalysisResult struct {
	TargetDatasetID        string   `json:"target_dataset_id,omitempty"`
	ArticleID              string   `json:"article_id,omitempty"`
	OriginalClassification string   `json:"original_classification,omitempty"`
	AnalysisReason         string   `json:"analysis_reason,omitempty"`
	SupportingKeywords     []string `json:"supporting_keywords,omitempty"`
	ContextPattern         string   `json:"context_pattern,omitempty"`

	// Extended-mode fields; IsCorrectClassification is a pointer so an
	// absent correctness judgment is distinguishable from an explicit false.
	IsCorrectClassification *bool   `json:"is_correct_classification,omitempty"`
	SuggestedClassification string  `json:"suggested_classification,omitempty"`
	ConfidenceScore         float64 `json:"confidence_score,omitempty"`

	// Failure variant. Error is ErrJSONParseFailed or the transport error
	// message from the final attempt.
	Error       string `json:"error,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`
	ItemID      string `json:"item_id,omitempty"`

	OriginalData *OriginalData `json:"original_data,omitempty"`
}

// Failed reports whether r is the error-tagged variant.
func (r *AnalysisResult) Failed() bool {
	return r.Error != ""
}

// CorrectClassification treats a missing correctness judgment as correct.
func (r *AnalysisResult) CorrectClassification() bool {
	return r.IsCorrectClassification == nil || *r.IsCorrectClassification
}

// FailureRecord captures a row that produced no AnalysisResult at all.
// RowIndex is -1 for batch-level failures (e.g. a corrupted batch file
// discovered while resuming).
type FailureRecord struct {
	BatchID      int    `json:"batch_id"`
	RowIndex     int    `json:"row_index"`
	ErrorMessage string `json:"error_message"`
}

// Checkpoint is the sole durable resume anchor, overwritten after every
// batch. If it names batch N as last completed, every batch <= N has its
// results file on disk (or produced no successful results).
type Checkpoint struct {
	LastCompletedBatch int             `json:"last_completed_batch"`
	TotalCompleted     int             `json:"total_completed"`
	FailedItems        []FailureRecord `json:"failed_items"`
	Timestamp          string          `json:"timestamp"`
}

// KeywordCount is one entry of the top-keyword frequency table, ordered by
// descending count with ties broken by first encounter.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// AccuracyAnalysis breaks down the model's correctness judgments. Only
// produced in mislabel-analysis mode.
type AccuracyAnalysis struct {
	TotalAnalyzed            int `json:"total_analyzed"`
	CorrectClassifications   int `json:"correct_classifications"`
	IncorrectClassifications int `json:"incorrect_classifications"`
}

// Summary is derived once at the end of a run from the full result list.
type Summary struct {
	Error                      string              `json:"error,omitempty"`
	ClassificationDistribution map[string]int      `json:"classification_distribution,omitempty"`
	TopKeywords                []KeywordCount      `json:"top_keywords,omitempty"`
	ContextPatternsByType      map[string][]string `json:"context_patterns_by_type,omitempty"`
	Accuracy                   *AccuracyAnalysis   `json:"accuracy_analysis,omitempty"`
}

// RunMetadata describes one run of the pipeline.
type RunMetadata struct {
	RunID          string `json:"run_id"`
	Model          string `json:"model"`
	TotalProcessed int    `json:"total_processed"`
	TotalFailed    int    `json:"total_failed"`
	ProcessingTime string `json:"processing_time"`
	BatchSize      int    `json:"batch_size"`
	MaxWorkers     int    `json:"max_workers"`
}

// FinalResults is the shape of the final results file.
type FinalResults struct {
	Summary         Summary          `json:"summary"`
	DetailedResults []AnalysisResult `json:"detailed_results"`
	FailedItems     []FailureRecord  `json:"failed_items"`
	Metadata        RunMetadata      `json:"metadata"`
}

func nowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}
