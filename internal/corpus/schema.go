package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/corpustools/tweetcorpus/internal/domain"
)

// SchemaInfo is the corpus-level fixed metadata recorded alongside the rows.
type SchemaInfo struct {
	CorpusName   string
	GroupingMode domain.GroupingMode

	// BucketWidthMillis is only meaningful under time grouping.
	BucketWidthMillis int64
}

// WriteSchema writes the companion schema descriptor: the row field names on
// the first line, then one fixed key/value pair per line.
func WriteSchema(path string, info SchemaInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create schema file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	fmt.Fprintln(bw, strings.Join(fieldNames, "\t"))
	fmt.Fprintf(bw, "corpus-name\t%s\n", info.CorpusName)
	fmt.Fprintf(bw, "grouping\t%s\n", info.GroupingMode)
	if info.GroupingMode == domain.GroupByTime {
		fmt.Fprintf(bw, "bucket-width-millis\t%s\n", strconv.FormatInt(info.BucketWidthMillis, 10))
	}
	// The author field only names a real aggregate owner under author
	// grouping; under any other mode it is whichever operand survived.
	fmt.Fprintf(bw, "author-authoritative\t%t\n", info.GroupingMode == domain.GroupByAuthor)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}
	return nil
}
