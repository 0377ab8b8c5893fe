package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/quartzbyte/citation-audit/analysis"
)

func main() {
	// Missing .env is fine; flags and real env vars still apply.
	_ = godotenv.Load(".env")

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger, closeLog, err := buildLogger(cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	defer closeLog()

	if cfg.Reaggregate {
		final, err := analysis.Reaggregate(cfg.OutDir, cfg.FinalPath, cfg.Mislabel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		printReport(os.Stdout, final, cfg.Mislabel)
		return
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GLM_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("ZHIPU_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing GLM_API_KEY or ZHIPU_API_KEY (or pass -api-key)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startBatch := cfg.StartBatch
	if cfg.Resume {
		startBatch, err = analysis.ResumeStartBatch(cfg.OutDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		logger.Printf("resuming from batch %d", startBatch)
	}

	client, err := analysis.NewGLMClient(analysis.GLMClientOptions{
		APIKey:      apiKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Thinking:    cfg.Thinking,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	analyzer := analysis.New(client, analysis.Options{
		OutputDir:        cfg.OutDir,
		FinalResultsPath: cfg.FinalPath,
		Model:            cfg.Model,
		MaxWorkers:       cfg.Workers,
		MaxRetries:       cfg.Retries,
		BatchSize:        cfg.BatchSize,
		MislabelAnalysis: cfg.Mislabel,
	}, logger)

	final, err := analyzer.AnalyzeDataset(ctx, cfg.Input, startBatch)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	printReport(os.Stdout, final, cfg.Mislabel)
}

func buildLogger(logFile string) (*log.Logger, func(), error) {
	if logFile == "" {
		return log.New(os.Stderr, "", log.LstdFlags), func() {}, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open -log-file: %w", err)
	}
	logger := log.New(io.MultiWriter(os.Stderr, f), "", log.LstdFlags)
	return logger, func() { _ = f.Close() }, nil
}

func printReport(w io.Writer, final *analysis.FinalResults, mislabel bool) {
	meta := final.Metadata
	total := meta.TotalProcessed + meta.TotalFailed

	fmt.Fprintln(w, "=== Analysis Report ===")
	fmt.Fprintf(w, "run_id: %s\n", meta.RunID)
	fmt.Fprintf(w, "model: %s\n", meta.Model)
	fmt.Fprintf(w, "processed: %d\n", meta.TotalProcessed)
	fmt.Fprintf(w, "failed: %d\n", meta.TotalFailed)
	if total > 0 {
		fmt.Fprintf(w, "success rate: %.1f%%\n", 100*float64(meta.TotalProcessed)/float64(total))
	}

	sum := final.Summary
	if sum.Error != "" {
		fmt.Fprintf(w, "summary: %s\n", sum.Error)
		return
	}

	if len(sum.ClassificationDistribution) > 0 {
		fmt.Fprintln(w, "\nClassification distribution:")
		var classified int
		for _, n := range sum.ClassificationDistribution {
			classified += n
		}
		classes := make([]string, 0, len(sum.ClassificationDistribution))
		for c := range sum.ClassificationDistribution {
			classes = append(classes, c)
		}
		sort.Strings(classes)
		for _, c := range classes {
			n := sum.ClassificationDistribution[c]
			fmt.Fprintf(w, "  %-10s %5d (%.1f%%)\n", c, n, 100*float64(n)/float64(classified))
		}
	}

	if mislabel && sum.Accuracy != nil {
		acc := sum.Accuracy
		fmt.Fprintln(w, "\nOriginal classification accuracy:")
		fmt.Fprintf(w, "  analyzed:  %d\n", acc.TotalAnalyzed)
		fmt.Fprintf(w, "  correct:   %d\n", acc.CorrectClassifications)
		fmt.Fprintf(w, "  incorrect: %d\n", acc.IncorrectClassifications)
		if acc.TotalAnalyzed > 0 {
			fmt.Fprintf(w, "  accuracy:  %.1f%%\n", 100*float64(acc.CorrectClassifications)/float64(acc.TotalAnalyzed))
		}
	}

	if len(sum.TopKeywords) > 0 {
		fmt.Fprintln(w, "\nTop keywords:")
		limit := len(sum.TopKeywords)
		if limit > 10 {
			limit = 10
		}
		for _, kc := range sum.TopKeywords[:limit] {
			fmt.Fprintf(w, "  %-30s %d\n", kc.Keyword, kc.Count)
		}
	}
}
