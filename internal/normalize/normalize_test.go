package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpustools/tweetcorpus/internal/domain"
)

const sampleJSON = `{
	"id_str": "815",
	"text": "hello\tworld\ncheck http://t.co/x",
	"created_at": "Wed Sep 05 20:31:44 +0000 2012",
	"user": {
		"screen_name": "Alice",
		"followers_count": 42,
		"friends_count": 17
	},
	"geo": {"coordinates": [10.5, -20.25]},
	"entities": {
		"user_mentions": [{"screen_name": "Bob"}, {"screen_name": "Bob"}],
		"hashtags": [{"text": "News"}],
		"urls": [{"url": "http://t.co/x", "expanded_url": "http://example.com/full"}]
	},
	"retweeted_status": {
		"entities": {
			"user_mentions": [{"screen_name": "Carol"}]
		}
	}
}`

func TestNormalizeJSON(t *testing.T) {
	n := New(FormatJSON)
	p, err := n.Normalize([]byte(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "815", p.ID)
	assert.Equal(t, "alice", p.Author, "author handle is lower-cased")
	assert.Equal(t, p.MinTime, p.MaxTime, "unmerged post has equal bounds")
	assert.Equal(t, int64(1346877104000), p.MinTime)
	assert.Equal(t, 42, p.Followers)
	assert.Equal(t, 17, p.Following)
	assert.Equal(t, 1, p.PostCount)
	assert.True(t, p.HasValidTime())

	require.True(t, p.Coord.Known)
	assert.Equal(t, 10.5, p.Coord.Lat)
	assert.Equal(t, -20.25, p.Coord.Long)
	assert.Equal(t, p.MinTime, p.GeoTime)

	assert.Equal(t, domain.CountMap{"bob": 2}, p.Mentions)
	assert.Equal(t, domain.CountMap{"carol": 1}, p.RetweetMentions)
	assert.Equal(t, domain.CountMap{"news": 1}, p.Hashtags)
	assert.Equal(t, domain.CountMap{"http://example.com/full": 1}, p.URLs)

	require.Len(t, p.Texts, 1)
	assert.Equal(t, "hello world check http://t.co/x", p.Texts[0], "tabs and newlines flattened")
}

func TestNormalizeBadJSON(t *testing.T) {
	n := New(FormatJSON)
	_, err := n.Normalize([]byte(`{not json`))
	require.Error(t, err)

	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, ReasonBadJSON, recErr.Reason)
}

func TestNormalizeMissingID(t *testing.T) {
	n := New(FormatJSON)
	_, err := n.Normalize([]byte(`{"text": "no id here"}`))

	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, ReasonMissingID, recErr.Reason)
}

func TestNormalizeBadTimestampIsNotFatal(t *testing.T) {
	n := New(FormatJSON)
	p, err := n.Normalize([]byte(`{"id_str": "1", "text": "x", "created_at": "not a date"}`))
	require.NoError(t, err, "a bad timestamp is dropped by the validity predicate, not here")
	assert.Equal(t, int64(0), p.MinTime)
	assert.False(t, p.HasValidTime())
}

func TestNormalizeCheckpoint(t *testing.T) {
	orig := domain.Post{
		ID:              "22",
		Author:          "bob",
		MinTime:         100,
		MaxTime:         100,
		GeoTime:         100,
		Followers:       1,
		Following:       2,
		PostCount:       1,
		Texts:           []string{"hi there"},
		Mentions:        domain.CountMap{},
		RetweetMentions: domain.CountMap{},
		Hashtags:        domain.CountMap{},
		URLs:            domain.CountMap{},
	}
	n := New(FormatCheckpoint)
	p, err := n.Normalize([]byte(domain.EncodeCheckpoint(orig)))
	require.NoError(t, err)
	assert.Equal(t, orig, p)

	_, err = n.Normalize([]byte("not a checkpoint line"))
	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, ReasonBadCheckpoint, recErr.Reason)
}

func TestParseFormat(t *testing.T) {
	for _, ok := range []string{"json", "checkpoint"} {
		_, err := ParseFormat(ok)
		assert.NoError(t, err)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}
