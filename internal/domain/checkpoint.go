package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Checkpoint lines carry a Group between pipeline passes as tab-separated
// metadata followed by the free text. The text is placed last, behind the
// textMarker field, so it may itself contain tabs.
//
// Count-map keys and n-gram words are percent-escaped so that ':' can serve
// as the key/count separator: '%' becomes "%25" and ':' becomes "%3A".

const textMarker = "text::"

// EscapeWord applies the boundary escaping contract to a map key or n-gram
// word.
func EscapeWord(w string) string {
	w = strings.ReplaceAll(w, "%", "%25")
	return strings.ReplaceAll(w, ":", "%3A")
}

// UnescapeWord reverses EscapeWord.
func UnescapeWord(w string) string {
	w = strings.ReplaceAll(w, "%3A", ":")
	return strings.ReplaceAll(w, "%25", "%")
}

// EncodeCountMap renders a count map as space-separated key:count pairs with
// keys escaped. Key order is unspecified.
func EncodeCountMap(m CountMap) string {
	if len(m) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, EscapeWord(k)+":"+strconv.Itoa(v))
	}
	return strings.Join(pairs, " ")
}

// DecodeCountMap parses the EncodeCountMap format.
func DecodeCountMap(s string) (CountMap, error) {
	m := make(CountMap)
	if s == "" {
		return m, nil
	}
	for _, pair := range strings.Split(s, " ") {
		i := strings.LastIndex(pair, ":")
		if i < 0 {
			return nil, fmt.Errorf("count map entry %q has no count", pair)
		}
		n, err := strconv.Atoi(pair[i+1:])
		if err != nil {
			return nil, fmt.Errorf("count map entry %q: %w", pair, err)
		}
		m[UnescapeWord(pair[:i])] = n
	}
	return m, nil
}

// Encode renders the coordinate as its two serialized fields, both empty
// when the coordinate is unknown.
func (c Coordinate) Encode() (lat, long string) {
	if !c.Known {
		return "", ""
	}
	return strconv.FormatFloat(c.Lat, 'f', -1, 64), strconv.FormatFloat(c.Long, 'f', -1, 64)
}

func decodeCoord(lat, long string) (Coordinate, error) {
	if lat == "" && long == "" {
		return Coordinate{}, nil
	}
	if lat == "" || long == "" {
		return Coordinate{}, fmt.Errorf("latitude and longitude must both be present or both absent")
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("bad latitude %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(long, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("bad longitude %q: %w", long, err)
	}
	return Coordinate{Lat: la, Long: lo, Known: true}, nil
}

// checkpointFields is the number of tab-separated fields before the text,
// including the marker.
const checkpointFields = 15

// EncodeCheckpoint serializes p as one checkpoint line (without trailing
// newline). Text body must not contain newlines; the normalizer guarantees
// that.
func EncodeCheckpoint(p Post) string {
	lat, long := p.Coord.Encode()
	fields := []string{
		p.ID,
		p.Author,
		strconv.FormatInt(p.MinTime, 10),
		strconv.FormatInt(p.MaxTime, 10),
		strconv.FormatInt(p.GeoTime, 10),
		lat,
		long,
		strconv.Itoa(p.Followers),
		strconv.Itoa(p.Following),
		strconv.Itoa(p.PostCount),
		EncodeCountMap(p.Mentions),
		EncodeCountMap(p.RetweetMentions),
		EncodeCountMap(p.Hashtags),
		EncodeCountMap(p.URLs),
		textMarker,
		strings.Join(p.Texts, "\t"),
	}
	return strings.Join(fields, "\t")
}

// DecodeCheckpoint parses one checkpoint line back into a Post.
func DecodeCheckpoint(line string) (Post, error) {
	parts := strings.SplitN(line, "\t", checkpointFields+1)
	if len(parts) < checkpointFields {
		return Post{}, fmt.Errorf("checkpoint line has %d fields, want at least %d", len(parts), checkpointFields)
	}
	if parts[14] != textMarker {
		return Post{}, fmt.Errorf("checkpoint line missing %q marker, got %q", textMarker, parts[14])
	}

	var p Post
	p.ID = parts[0]
	p.Author = parts[1]

	var err error
	if p.MinTime, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
		return Post{}, fmt.Errorf("bad min timestamp %q: %w", parts[2], err)
	}
	if p.MaxTime, err = strconv.ParseInt(parts[3], 10, 64); err != nil {
		return Post{}, fmt.Errorf("bad max timestamp %q: %w", parts[3], err)
	}
	if p.GeoTime, err = strconv.ParseInt(parts[4], 10, 64); err != nil {
		return Post{}, fmt.Errorf("bad geo timestamp %q: %w", parts[4], err)
	}
	if p.Coord, err = decodeCoord(parts[5], parts[6]); err != nil {
		return Post{}, err
	}
	if p.Followers, err = strconv.Atoi(parts[7]); err != nil {
		return Post{}, fmt.Errorf("bad follower count %q: %w", parts[7], err)
	}
	if p.Following, err = strconv.Atoi(parts[8]); err != nil {
		return Post{}, fmt.Errorf("bad following count %q: %w", parts[8], err)
	}
	if p.PostCount, err = strconv.Atoi(parts[9]); err != nil {
		return Post{}, fmt.Errorf("bad post count %q: %w", parts[9], err)
	}
	if p.Mentions, err = DecodeCountMap(parts[10]); err != nil {
		return Post{}, fmt.Errorf("mentions: %w", err)
	}
	if p.RetweetMentions, err = DecodeCountMap(parts[11]); err != nil {
		return Post{}, fmt.Errorf("retweet mentions: %w", err)
	}
	if p.Hashtags, err = DecodeCountMap(parts[12]); err != nil {
		return Post{}, fmt.Errorf("hashtags: %w", err)
	}
	if p.URLs, err = DecodeCountMap(parts[13]); err != nil {
		return Post{}, fmt.Errorf("urls: %w", err)
	}

	if len(parts) > checkpointFields && parts[15] != "" {
		p.Texts = strings.Split(parts[15], "\t")
	}
	return p, nil
}
