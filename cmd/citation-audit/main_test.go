package main

import (
	"bytes"
	"flag"
	"strings"
	"testing"

	"github.com/quartzbyte/citation-audit/analysis"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("citation-audit", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{"-in", "rows.csv"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.OutDir != "temp_results" {
		t.Fatalf("OutDir=%q", cfg.OutDir)
	}
	if cfg.FinalPath != "final_analysis_results.json" {
		t.Fatalf("FinalPath=%q", cfg.FinalPath)
	}
	if cfg.Workers != 5 || cfg.BatchSize != 50 || cfg.Retries != 5 {
		t.Fatalf("workers/batch/retries=%d/%d/%d", cfg.Workers, cfg.BatchSize, cfg.Retries)
	}
	if !cfg.Mislabel || !cfg.Thinking {
		t.Fatalf("expected mislabel and thinking enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("citation-audit", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "rows.parquet",
		"-out", "work",
		"-final", "final.json",
		"-model", "glm-4.5-air",
		"-workers", "3",
		"-batch-size", "10",
		"-retries", "2",
		"-temperature", "0.1",
		"-max-tokens", "4000",
		"-mislabel-analysis=false",
		"-thinking=false",
		"-resume",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Model != "glm-4.5-air" {
		t.Fatalf("Model=%q", cfg.Model)
	}
	if cfg.Workers != 3 || cfg.BatchSize != 10 || cfg.Retries != 2 {
		t.Fatalf("workers/batch/retries=%d/%d/%d", cfg.Workers, cfg.BatchSize, cfg.Retries)
	}
	if cfg.Temperature != 0.1 || cfg.MaxTokens != 4000 {
		t.Fatalf("temperature/max-tokens=%v/%d", cfg.Temperature, cfg.MaxTokens)
	}
	if cfg.Mislabel || cfg.Thinking {
		t.Fatalf("expected mislabel and thinking disabled")
	}
	if !cfg.Resume {
		t.Fatalf("Resume=false")
	}
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing input", func(c *Config) { c.Input = "" }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"negative retries", func(c *Config) { c.Retries = -1 }},
		{"temperature out of range", func(c *Config) { c.Temperature = 2.5 }},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }},
		{"resume with start-batch", func(c *Config) { c.Resume = true; c.StartBatch = 3 }},
	}
	for _, tc := range cases {
		cfg := defaultConfig()
		cfg.Input = "rows.csv"
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestValidate_ReaggregateWithoutInput(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Reaggregate = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	final := &analysis.FinalResults{
		Summary: analysis.Summary{
			ClassificationDistribution: map[string]int{"Primary": 3, "Secondary": 1},
			TopKeywords:                []analysis.KeywordCount{{Keyword: "we collected", Count: 3}},
			Accuracy: &analysis.AccuracyAnalysis{
				TotalAnalyzed:            4,
				CorrectClassifications:   3,
				IncorrectClassifications: 1,
			},
		},
		Metadata: analysis.RunMetadata{
			RunID:          "run-1",
			Model:          "glm-4.5",
			TotalProcessed: 4,
			TotalFailed:    1,
		},
	}

	var buf bytes.Buffer
	printReport(&buf, final, true)
	out := buf.String()

	for _, want := range []string{
		"processed: 4",
		"failed: 1",
		"success rate: 80.0%",
		"Primary",
		"(75.0%)",
		"accuracy:  75.0%",
		"we collected",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReport_SummaryError(t *testing.T) {
	t.Parallel()

	final := &analysis.FinalResults{
		Summary:  analysis.Summary{Error: "no results"},
		Metadata: analysis.RunMetadata{TotalProcessed: 0, TotalFailed: 0},
	}

	var buf bytes.Buffer
	printReport(&buf, final, false)
	if !strings.Contains(buf.String(), "no results") {
		t.Fatalf("report missing summary error:\n%s", buf.String())
	}
}
