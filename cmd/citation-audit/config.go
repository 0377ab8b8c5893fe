package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
)

type Config struct {
	Input     string
	OutDir    string
	FinalPath string
	LogFile   string

	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Thinking    bool

	Workers    int
	BatchSize  int
	Retries    int
	StartBatch int

	Mislabel    bool
	Resume      bool
	Reaggregate bool
}

func (c Config) Validate() error {
	if c.Input == "" && !c.Reaggregate {
		return errors.New("missing -in")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	if c.FinalPath == "" {
		return errors.New("missing -final")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.Workers < 0 {
		return errors.New("workers must be >= 0")
	}
	if c.BatchSize < 0 {
		return errors.New("batch-size must be >= 0")
	}
	if c.Retries < 0 {
		return errors.New("retries must be >= 0")
	}
	if c.StartBatch < 0 {
		return errors.New("start-batch must be >= 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("temperature must be in [0, 2]")
	}
	if c.MaxTokens <= 0 {
		return errors.New("max-tokens must be > 0")
	}
	if c.Resume && c.StartBatch > 0 {
		return errors.New("-resume and -start-batch are mutually exclusive")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutDir:      "temp_results",
		FinalPath:   "final_analysis_results.json",
		Model:       "glm-4.5",
		Temperature: 0.3,
		MaxTokens:   10000,
		Thinking:    true,
		Workers:     5,
		BatchSize:   50,
		Retries:     5,
		Mislabel:    true,
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.Input, "in", cfg.Input, "Input dataset (.csv, .tsv, .xlsx or .parquet) with columns target_dataset_id, article_id, aggregated_text, type")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for per-item/per-batch results and the checkpoint")
	fs.StringVar(&cfg.FinalPath, "final", cfg.FinalPath, "Path for the final results JSON file")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Optional log file (log lines go to stderr and this file)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model to use (e.g. glm-4.5)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "OpenAI-compatible API base URL (default: ZhipuAI endpoint)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "API key (overrides GLM_API_KEY / ZHIPU_API_KEY env vars)")
	fs.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "Sampling temperature; lower values give more consistent verdicts")
	fs.IntVar(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, "Max output tokens per completion")
	fs.BoolVar(&cfg.Thinking, "thinking", cfg.Thinking, "Enable the model's reasoning mode")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Max concurrent rows within a batch")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Rows per batch")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Max attempts per row")
	fs.IntVar(&cfg.StartBatch, "start-batch", 0, "Batch to start from (manual resume)")
	fs.BoolVar(&cfg.Mislabel, "mislabel-analysis", cfg.Mislabel, "Also ask the model whether the original classification is correct")
	fs.BoolVar(&cfg.Resume, "resume", false, "Resume from the checkpoint in -out")
	fs.BoolVar(&cfg.Reaggregate, "reaggregate", false, "Rebuild the final results file from on-disk batch results without calling the API")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Input != "" {
		cfg.Input = filepath.Clean(cfg.Input)
	}
	cfg.OutDir = filepath.Clean(cfg.OutDir)
	cfg.FinalPath = filepath.Clean(cfg.FinalPath)
	if cfg.LogFile != "" {
		cfg.LogFile = filepath.Clean(cfg.LogFile)
	}
	return cfg, nil
}
