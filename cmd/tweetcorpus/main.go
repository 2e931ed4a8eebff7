package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corpustools/tweetcorpus/internal/config"
	"github.com/corpustools/tweetcorpus/internal/corpus"
	"github.com/corpustools/tweetcorpus/internal/domain"
	"github.com/corpustools/tweetcorpus/internal/normalize"
	"github.com/corpustools/tweetcorpus/internal/pipeline"
	"github.com/corpustools/tweetcorpus/internal/query"
	"github.com/corpustools/tweetcorpus/internal/sqlite"
	"github.com/corpustools/tweetcorpus/internal/tokenize"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	format, err := normalize.ParseFormat(cfg.InputFormat)
	if err != nil {
		return err
	}

	mode, err := domain.ParseGroupingMode(cfg.Grouping)
	if err != nil {
		return err
	}
	keyFn, err := domain.KeyFor(mode, cfg.BucketWidth.Milliseconds())
	if err != nil {
		return err
	}

	// Filter expressions are compiled before any data is read; a malformed
	// filter aborts here.
	folding := query.NewFoldingParser()
	exact := query.NewExactParser()
	opts := pipeline.Options{
		Normalizer:    normalize.New(format),
		Tokenizer:     newTokenizer(cfg),
		Key:           keyFn,
		MinNgramCount: cfg.MinNgramCount,
		Workers:       cfg.Workers,
	}
	if opts.PostFilter, err = parseOptional(folding, cfg.PostFilter); err != nil {
		return err
	}
	if opts.PostFilterExact, err = parseOptional(exact, cfg.PostFilterExact); err != nil {
		return err
	}
	if opts.GroupFilter, err = parseOptional(folding, cfg.GroupFilter); err != nil {
		return err
	}
	if opts.GroupFilterExact, err = parseOptional(exact, cfg.GroupFilterExact); err != nil {
		return err
	}

	var vocab *sqlite.VocabStore
	if cfg.MinNgramCount > 1 {
		vocab, err = sqlite.Open(cfg.VocabPath)
		if err != nil {
			return err
		}
		defer vocab.Close()
	}

	if cfg.CheckpointPath != "" {
		ckpt, err := os.Create(cfg.CheckpointPath)
		if err != nil {
			return fmt.Errorf("create checkpoint file: %w", err)
		}
		defer ckpt.Close()
		opts.Checkpoint = ckpt
	}

	writer, err := corpus.NewWriter(cfg.OutputPath)
	if err != nil {
		return err
	}

	src, err := pipeline.OpenFile(cfg.InputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling run", "signal", sig)
		cancel()
	}()

	var p *pipeline.Pipeline
	if vocab != nil {
		if err := vocab.Reset(ctx); err != nil {
			return err
		}
		p, err = pipeline.New(opts, vocab, writer, logger)
	} else {
		p, err = pipeline.New(opts, nil, writer, logger)
	}
	if err != nil {
		return err
	}

	started := time.Now()
	if err := p.Run(ctx, src); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	if err := corpus.WriteSchema(cfg.SchemaPath(), corpus.SchemaInfo{
		CorpusName:        cfg.CorpusName,
		GroupingMode:      mode,
		BucketWidthMillis: cfg.BucketWidth.Milliseconds(),
	}); err != nil {
		return err
	}

	if vocab != nil {
		if err := vocab.SaveSummary(ctx, p.Counters.Snapshot()); err != nil {
			return err
		}
	}

	logger.Info("corpus build complete",
		"output", cfg.OutputPath,
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	return nil
}

func newTokenizer(cfg *config.Config) *tokenize.Tokenizer {
	opts := []tokenize.Option{tokenize.WithMaxN(cfg.MaxNgram)}
	if cfg.PreserveCase {
		opts = append(opts, tokenize.WithPreserveCase())
	}
	if cfg.Stem {
		opts = append(opts, tokenize.WithStemming())
	}
	return tokenize.New(opts...)
}

func parseOptional(p *query.Parser, s string) (query.Expr, error) {
	if s == "" {
		return nil, nil
	}
	return p.Parse(s)
}
