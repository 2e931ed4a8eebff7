// Package config holds the corpus builder's configuration, read from flags
// with environment-variable fallbacks.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for a corpus build.
type Config struct {
	// InputPath is the newline-delimited record file.
	InputPath string

	// InputFormat is "json" (raw upstream payload) or "checkpoint"
	// (intermediate lines from a prior pass).
	InputFormat string

	// OutputPath is the corpus row file; the schema descriptor is written
	// alongside it with a ".schema" suffix.
	OutputPath string

	// CheckpointPath, when set, receives one checkpoint line per surviving
	// group.
	CheckpointPath string

	// VocabPath is the SQLite database holding the global n-gram frequency
	// table between passes.
	VocabPath string

	// CorpusName is recorded in the schema descriptor.
	CorpusName string

	// Grouping is "author", "time", or "none".
	Grouping string

	// BucketWidth is the time-bucket size under time grouping.
	BucketWidth time.Duration

	// MaxNgram is the longest n-gram length generated.
	MaxNgram int

	// MinNgramCount prunes n-grams occurring fewer times corpus-wide.
	MinNgramCount int

	// PreserveCase disables token lower-casing.
	PreserveCase bool

	// Stem reduces tokens to their English stems.
	Stem bool

	// Filter strings; empty means match everything. The Exact variants are
	// the case-sensitive twins.
	PostFilter       string
	PostFilterExact  string
	GroupFilter      string
	GroupFilterExact string

	// Workers bounds the parallel group-and-combine stage. Zero means one
	// per CPU.
	Workers int
}

// SchemaPath returns where the companion schema descriptor goes.
func (c *Config) SchemaPath() string { return c.OutputPath + ".schema" }

// Load parses command-line flags, falling back to environment variables for
// deployment-style settings.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("tweetcorpus", flag.ContinueOnError)

	fs.StringVar(&cfg.InputPath, "input", "", "input record file (newline-delimited)")
	fs.StringVar(&cfg.InputFormat, "format", "json", "input line format: json or checkpoint")
	fs.StringVar(&cfg.OutputPath, "output", "", "corpus output file")
	fs.StringVar(&cfg.CheckpointPath, "checkpoint", "", "optional checkpoint output file for merged groups")
	fs.StringVar(&cfg.VocabPath, "vocab-db", envOrDefault("TWEETCORPUS_VOCAB_DB", ""), "SQLite vocabulary database (default <output>.vocab.db)")
	fs.StringVar(&cfg.CorpusName, "name", "tweetcorpus", "corpus name recorded in the schema descriptor")
	fs.StringVar(&cfg.Grouping, "group-by", "author", "grouping mode: author, time, or none")
	fs.DurationVar(&cfg.BucketWidth, "bucket-width", 24*time.Hour, "time bucket width under -group-by=time")
	fs.IntVar(&cfg.MaxNgram, "max-ngram", 1, "maximum n-gram length")
	fs.IntVar(&cfg.MinNgramCount, "min-count", 1, "minimum corpus-wide n-gram occurrence count")
	fs.BoolVar(&cfg.PreserveCase, "preserve-case", false, "keep token case instead of lower-casing")
	fs.BoolVar(&cfg.Stem, "stem", false, "stem tokens with the English snowball stemmer")
	fs.StringVar(&cfg.PostFilter, "filter", "", "post-level filter expression (case-folding)")
	fs.StringVar(&cfg.PostFilterExact, "filter-exact", "", "post-level filter expression (case-sensitive)")
	fs.StringVar(&cfg.GroupFilter, "group-filter", "", "group-level filter expression (case-folding)")
	fs.StringVar(&cfg.GroupFilterExact, "group-filter-exact", "", "group-level filter expression (case-sensitive)")
	fs.IntVar(&cfg.Workers, "workers", envIntOrDefault("TWEETCORPUS_WORKERS", 0), "parallel workers (0 = one per CPU)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.InputPath == "" {
		return nil, fmt.Errorf("-input is required")
	}
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("-output is required")
	}
	if cfg.VocabPath == "" {
		cfg.VocabPath = cfg.OutputPath + ".vocab.db"
	}
	if cfg.MaxNgram < 1 {
		return nil, fmt.Errorf("-max-ngram must be at least 1, got %d", cfg.MaxNgram)
	}
	if cfg.MinNgramCount < 1 {
		return nil, fmt.Errorf("-min-count must be at least 1, got %d", cfg.MinNgramCount)
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
