package main

import (
	"bufio"
	"bytes"
	"log/slog"

	"github.com/corpustools/tweetcorpus/internal/firehose"
)

// newCaptureSubscriber wires a firehose subscriber that appends each record
// as one line of the capture file. Embedded newlines are flattened so a
// record always stays a single line.
func newCaptureSubscriber(url string, out *bufio.Writer, logger *slog.Logger) *firehose.Subscriber {
	handler := func(record []byte) error {
		record = bytes.ReplaceAll(record, []byte("\n"), []byte(" "))
		if _, err := out.Write(record); err != nil {
			return err
		}
		return out.WriteByte('\n')
	}
	return firehose.NewSubscriber(url, handler, logger)
}
