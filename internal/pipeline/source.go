package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// maxLineBytes caps a single input record. Tweets are small; checkpoint
// lines for large groups are not.
const maxLineBytes = 16 << 20

// LineSource adapts a reader of newline-delimited records to domain.Source.
type LineSource struct {
	sc     *bufio.Scanner
	closer io.Closer
}

// NewLineSource wraps an arbitrary reader. Close is a no-op unless the
// reader needs closing.
func NewLineSource(r io.Reader) *LineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineBytes)
	src := &LineSource{sc: sc}
	if c, ok := r.(io.Closer); ok {
		src.closer = c
	}
	return src
}

// OpenFile opens a record file as a LineSource.
func OpenFile(path string) (*LineSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	return NewLineSource(f), nil
}

// Next returns the next record line, or io.EOF at clean end of input.
func (s *LineSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		return nil, io.EOF
	}
	// Scanner reuses its buffer; hand out a copy.
	line := make([]byte, len(s.sc.Bytes()))
	copy(line, s.sc.Bytes())
	return line, nil
}

// Close closes the underlying reader when it is closable.
func (s *LineSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
