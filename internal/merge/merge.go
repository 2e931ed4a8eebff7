// Package merge implements the pairwise combine used by the grouped
// aggregation stage. Combine is associative and commutative (text ordering
// excepted), which is the contract the parallel group-and-combine primitive
// relies on: partial aggregates may be folded in any pairing and partition
// order.
package merge

import "github.com/corpustools/tweetcorpus/internal/domain"

// Combine folds two posts sharing a grouping key into one. Neither input is
// modified. Callers must only pair posts with equal keys; that precondition
// is the grouping stage's responsibility, not a data error.
func Combine(a, b domain.Post) domain.Post {
	// Identity and author come from the operand with the smaller id, making
	// the choice deterministic and order-independent. Outside author
	// grouping the retained author is arbitrary and flagged as
	// non-authoritative in the corpus schema.
	lead := a
	if b.ID < a.ID {
		lead = b
	}

	out := domain.Post{
		ID:        lead.ID,
		Author:    lead.Author,
		MinTime:   min(a.MinTime, b.MinTime),
		MaxTime:   max(a.MaxTime, b.MaxTime),
		Followers: max(a.Followers, b.Followers),
		Following: max(a.Following, b.Following),
		PostCount: a.PostCount + b.PostCount,

		Mentions:        a.Mentions.Merge(b.Mentions),
		RetweetMentions: a.RetweetMentions.Merge(b.RetweetMentions),
		Hashtags:        a.Hashtags.Merge(b.Hashtags),
		URLs:            a.URLs.Merge(b.URLs),
	}

	out.Texts = make([]string, 0, len(a.Texts)+len(b.Texts))
	out.Texts = append(out.Texts, a.Texts...)
	out.Texts = append(out.Texts, b.Texts...)

	out.Coord, out.GeoTime = combineGeo(a, b)
	return out
}

// combineGeo picks the surviving coordinate: the known one if only one side
// has a location, the one observed earlier if both do. With neither known
// the geo timestamp still takes the min so it stays order-independent.
func combineGeo(a, b domain.Post) (domain.Coordinate, int64) {
	switch {
	case !a.Coord.Known && !b.Coord.Known:
		return domain.Coordinate{}, min(a.GeoTime, b.GeoTime)
	case a.Coord.Known && !b.Coord.Known:
		return a.Coord, a.GeoTime
	case !a.Coord.Known && b.Coord.Known:
		return b.Coord, b.GeoTime
	}

	if a.GeoTime != b.GeoTime {
		if a.GeoTime < b.GeoTime {
			return a.Coord, a.GeoTime
		}
		return b.Coord, b.GeoTime
	}
	// Equal observation times: break the tie on the coordinate itself so the
	// result does not depend on argument order.
	if b.Coord.Before(a.Coord) {
		return b.Coord, b.GeoTime
	}
	return a.Coord, a.GeoTime
}
