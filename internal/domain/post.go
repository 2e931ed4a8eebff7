package domain

// CountMap records how many times each item (mention, hashtag, URL) was seen.
// Merging two maps sums counts key-wise, so the map forms a commutative monoid
// and can be combined in any order.
type CountMap map[string]int

// Merge returns a new map holding the key-wise sum of m and other. Neither
// input is modified.
func (m CountMap) Merge(other CountMap) CountMap {
	out := make(CountMap, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] += v
	}
	return out
}

// Clone returns an independent copy of m.
func (m CountMap) Clone() CountMap {
	out := make(CountMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Coordinate is a geographic point that may be unknown. Latitude and
// longitude are only meaningful when Known is true, which keeps the
// "latitude known iff longitude known" invariant structural.
type Coordinate struct {
	Lat   float64
	Long  float64
	Known bool
}

// Before gives a deterministic total order over coordinates, used only for
// tie-breaking during merges.
func (c Coordinate) Before(other Coordinate) bool {
	if c.Lat != other.Lat {
		return c.Lat < other.Lat
	}
	return c.Long < other.Long
}

// Post is one normalized social-media item. A Post doubles as a Group:
// merging two Posts yields another Post whose PostCount records how many
// originals were folded in. Values are treated as immutable; every pipeline
// stage produces new values rather than mutating in place.
type Post struct {
	// ID is the upstream unique identifier, used for deduplication.
	ID string

	// Author is the posting account's handle. After merging under anything
	// other than author grouping, the retained author is arbitrary.
	Author string

	// MinTime and MaxTime bound the timestamps (unix millis) of all posts
	// folded into this value. They are equal until the first merge.
	MinTime int64
	MaxTime int64

	// Coord is the best-known location, GeoTime the timestamp (unix millis)
	// at which that location was observed.
	Coord   Coordinate
	GeoTime int64

	// Followers and Following are the maxima observed across merged posts.
	Followers int
	Following int

	// PostCount is the number of original posts folded into this value.
	PostCount int

	// Texts holds the body text of every merged post. Concatenation order
	// across repeated merges is not guaranteed.
	Texts []string

	Mentions        CountMap
	RetweetMentions CountMap
	Hashtags        CountMap
	URLs            CountMap
}

// HasValidTime reports whether the post carries a usable timestamp.
// Unparseable upstream timestamps are normalized to 0 and rejected here
// rather than silently accepted.
func (p Post) HasValidTime() bool {
	return p.MinTime > 0
}
