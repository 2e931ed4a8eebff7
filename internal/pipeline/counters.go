package pipeline

import (
	"log/slog"
	"sync/atomic"
)

// Counters tracks per-record drop reasons. Drops never abort the batch; they
// are counted here and reported at run end.
type Counters struct {
	BadRecords    atomic.Int64 // unparseable input lines
	BadTimestamps atomic.Int64 // records whose timestamp failed validity
	Duplicates    atomic.Int64 // repeated post ids
	PostFiltered  atomic.Int64 // posts rejected by the post-level filter
	GroupFiltered atomic.Int64 // groups rejected by the group-level filter
	PostsKept     atomic.Int64
	GroupsWritten atomic.Int64
}

// Snapshot returns the current counter values keyed by name.
func (c *Counters) Snapshot() map[string]int64 {
	return map[string]int64{
		"bad_records":    c.BadRecords.Load(),
		"bad_timestamps": c.BadTimestamps.Load(),
		"duplicates":     c.Duplicates.Load(),
		"post_filtered":  c.PostFiltered.Load(),
		"group_filtered": c.GroupFiltered.Load(),
		"posts_kept":     c.PostsKept.Load(),
		"groups_written": c.GroupsWritten.Load(),
	}
}

// Report logs the run summary.
func (c *Counters) Report(logger *slog.Logger) {
	logger.Info("run summary",
		"bad_records", c.BadRecords.Load(),
		"bad_timestamps", c.BadTimestamps.Load(),
		"duplicates", c.Duplicates.Load(),
		"post_filtered", c.PostFiltered.Load(),
		"group_filtered", c.GroupFiltered.Load(),
		"posts_kept", c.PostsKept.Load(),
		"groups_written", c.GroupsWritten.Load(),
	)
}
