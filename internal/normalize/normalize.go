// Package normalize decodes raw input lines into domain posts. A line is
// either an upstream JSON payload or a checkpoint line written by a prior
// pass. Failures are typed so the pipeline can count drop reasons without
// aborting the batch.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/corpustools/tweetcorpus/internal/domain"
)

// Reason classifies why a record was rejected.
type Reason string

const (
	ReasonBadJSON       Reason = "bad_json"
	ReasonMissingID     Reason = "missing_id"
	ReasonBadCheckpoint Reason = "bad_checkpoint"
)

// RecordError is the typed per-record failure. It never aborts the batch;
// the pipeline drops the record and bumps the matching counter.
type RecordError struct {
	Reason Reason
	Err    error
}

func (e *RecordError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Format selects the input line encoding.
type Format string

const (
	FormatJSON       Format = "json"
	FormatCheckpoint Format = "checkpoint"
)

// ParseFormat validates a format string from configuration.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCheckpoint:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown input format %q (want json or checkpoint)", s)
}

// Normalizer converts raw lines into posts.
type Normalizer struct {
	format Format
}

// New returns a Normalizer for the given line format.
func New(format Format) *Normalizer {
	return &Normalizer{format: format}
}

// Normalize decodes one line. Errors are always *RecordError.
func (n *Normalizer) Normalize(line []byte) (domain.Post, error) {
	if n.format == FormatCheckpoint {
		p, err := domain.DecodeCheckpoint(string(line))
		if err != nil {
			return domain.Post{}, &RecordError{Reason: ReasonBadCheckpoint, Err: err}
		}
		return p, nil
	}
	return fromJSON(line)
}

// rawStatus mirrors the subset of the upstream status payload we keep.
type rawStatus struct {
	IDStr     string `json:"id_str"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	User      struct {
		ScreenName     string `json:"screen_name"`
		FollowersCount int    `json:"followers_count"`
		FriendsCount   int    `json:"friends_count"`
	} `json:"user"`
	Geo *struct {
		Coordinates []float64 `json:"coordinates"` // [lat, long]
	} `json:"geo"`
	Entities  rawEntities `json:"entities"`
	Retweeted *struct {
		Entities rawEntities `json:"entities"`
	} `json:"retweeted_status"`
}

type rawEntities struct {
	UserMentions []struct {
		ScreenName string `json:"screen_name"`
	} `json:"user_mentions"`
	Hashtags []struct {
		Text string `json:"text"`
	} `json:"hashtags"`
	URLs []struct {
		ExpandedURL string `json:"expanded_url"`
		URL         string `json:"url"`
	} `json:"urls"`
}

// createdAtFormat is the upstream timestamp format
// ("Wed Sep 05 20:31:44 +0000 2012").
const createdAtFormat = time.RubyDate

func fromJSON(line []byte) (domain.Post, error) {
	var raw rawStatus
	if err := json.Unmarshal(line, &raw); err != nil {
		return domain.Post{}, &RecordError{Reason: ReasonBadJSON, Err: err}
	}
	if raw.IDStr == "" {
		return domain.Post{}, &RecordError{Reason: ReasonMissingID, Err: fmt.Errorf("record has no id_str")}
	}

	// Unparseable timestamps become 0 here and are rejected by the validity
	// predicate downstream, so the drop is counted rather than silent.
	var millis int64
	if ts, err := time.Parse(createdAtFormat, raw.CreatedAt); err == nil {
		millis = ts.UnixMilli()
	}

	p := domain.Post{
		ID:              raw.IDStr,
		Author:          strings.ToLower(raw.User.ScreenName),
		MinTime:         millis,
		MaxTime:         millis,
		GeoTime:         millis,
		Followers:       raw.User.FollowersCount,
		Following:       raw.User.FriendsCount,
		PostCount:       1,
		Texts:           []string{flattenText(raw.Text)},
		Mentions:        domain.CountMap{},
		RetweetMentions: domain.CountMap{},
		Hashtags:        domain.CountMap{},
		URLs:            domain.CountMap{},
	}

	if raw.Geo != nil && len(raw.Geo.Coordinates) == 2 {
		p.Coord = domain.Coordinate{Lat: raw.Geo.Coordinates[0], Long: raw.Geo.Coordinates[1], Known: true}
	}

	for _, m := range raw.Entities.UserMentions {
		if m.ScreenName != "" {
			p.Mentions[strings.ToLower(m.ScreenName)]++
		}
	}
	for _, h := range raw.Entities.Hashtags {
		if h.Text != "" {
			p.Hashtags[strings.ToLower(h.Text)]++
		}
	}
	for _, u := range raw.Entities.URLs {
		link := u.ExpandedURL
		if link == "" {
			link = u.URL
		}
		if link != "" {
			p.URLs[link]++
		}
	}
	if raw.Retweeted != nil {
		for _, m := range raw.Retweeted.Entities.UserMentions {
			if m.ScreenName != "" {
				p.RetweetMentions[strings.ToLower(m.ScreenName)]++
			}
		}
	}
	return p, nil
}

// flattenText strips the characters that would corrupt the tab-separated
// checkpoint and corpus formats.
func flattenText(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return ' '
		}
		return r
	}, s)
}
