// streamcap captures raw post records from a websocket firehose and appends
// them as newline-delimited lines to a file, producing the corpus builder's
// input.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		streamURL string
		outPath   string
	)
	flag.StringVar(&streamURL, "url", envOrDefault("STREAMCAP_URL", ""), "websocket record stream URL")
	flag.StringVar(&outPath, "output", "", "capture file to append records to")
	flag.Parse()

	if streamURL == "" {
		return fmt.Errorf("-url is required (or set STREAMCAP_URL)")
	}
	if outPath == "" {
		return fmt.Errorf("-output is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open capture file: %w", err)
	}
	defer f.Close()
	out := bufio.NewWriter(f)
	defer out.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	sub := newCaptureSubscriber(streamURL, out, logger)
	if err := sub.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
