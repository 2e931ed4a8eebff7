package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Time literals accept colon-separated human input like "2020:01:01:0000UTC",
// "2011:10:02:1230pm:EST", or "2020:06:05" with missing components defaulting
// to their minimum. Anything that does not fit that shape falls through to
// dateparse, which covers the common free-form date formats.

// zoneOffsets maps the timezone abbreviations the upstream data actually
// uses. time.LoadLocation wants full IANA names, so these stay fixed offsets.
var zoneOffsets = map[string]int{
	"UTC": 0,
	"GMT": 0,
	"Z":   0,
	"EST": -5 * 3600,
	"EDT": -4 * 3600,
	"CST": -6 * 3600,
	"CDT": -5 * 3600,
	"MST": -7 * 3600,
	"MDT": -6 * 3600,
	"PST": -8 * 3600,
	"PDT": -7 * 3600,
}

// ParseTimeLiteral converts a filter-language time literal into unix millis.
func ParseTimeLiteral(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty time literal")
	}
	if millis, ok := parseColonTime(s); ok {
		return millis, nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("unrecognized time literal: %w", err)
	}
	return t.UnixMilli(), nil
}

// parseColonTime handles the native "YYYY[:MM[:DD[:time-of-day][:zone]]]"
// shape. It reports ok=false when the literal does not fit, so the caller can
// try the free-form fallback.
func parseColonTime(s string) (int64, bool) {
	loc := time.UTC

	// A trailing run of letters (or a numeric ±HHMM) is the timezone; am/pm
	// belongs to the time-of-day and is handled below.
	rest := s
	if m := regexp.MustCompile(`[+-]\d{4}$`).FindString(rest); m != "" {
		sign := 1
		if m[0] == '-' {
			sign = -1
		}
		hh, _ := strconv.Atoi(m[1:3])
		mm, _ := strconv.Atoi(m[3:5])
		loc = time.FixedZone(m, sign*(hh*3600+mm*60))
		rest = rest[:len(rest)-len(m)]
	} else if m := regexp.MustCompile(`[A-Za-z]+$`).FindString(rest); m != "" {
		upper := strings.ToUpper(m)
		if upper != "AM" && upper != "PM" {
			off, ok := zoneOffsets[upper]
			if !ok {
				return 0, false
			}
			loc = time.FixedZone(upper, off)
			rest = rest[:len(rest)-len(m)]
		}
	}
	rest = strings.TrimSuffix(rest, ":")

	parts := strings.Split(rest, ":")
	if len(parts[0]) != 4 {
		return 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}

	month, day := 1, 1
	hour, minute, second := 0, 0, 0

	idx := 1
	if idx < len(parts) && len(parts[idx]) <= 2 {
		if month, err = strconv.Atoi(parts[idx]); err != nil || month < 1 || month > 12 {
			return 0, false
		}
		idx++
	}
	if idx < len(parts) && len(parts[idx]) <= 2 {
		if day, err = strconv.Atoi(parts[idx]); err != nil || day < 1 || day > 31 {
			return 0, false
		}
		idx++
	}
	if idx < len(parts) {
		tod := strings.Join(parts[idx:], ":")
		if hour, minute, second, err = parseTimeOfDay(tod); err != nil {
			return 0, false
		}
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	return t.UnixMilli(), true
}

// parseTimeOfDay accepts "HHMM", "HHMMSS", "HH", "HH:MM", "HH:MM:SS", each
// with an optional am/pm suffix selecting the 12-hour clock.
func parseTimeOfDay(s string) (hour, minute, second int, err error) {
	lower := strings.ToLower(s)
	meridian := ""
	if strings.HasSuffix(lower, "am") || strings.HasSuffix(lower, "pm") {
		meridian = lower[len(lower)-2:]
		s = s[:len(s)-2]
	}

	digits := strings.ReplaceAll(s, ":", "")
	if digits == "" || len(digits) > 6 || len(digits)%2 == 1 && len(digits) != 1 {
		return 0, 0, 0, fmt.Errorf("bad time of day %q", s)
	}
	if _, err := strconv.Atoi(digits); err != nil {
		return 0, 0, 0, fmt.Errorf("bad time of day %q", s)
	}

	read := func(i int) int {
		if 2*i+2 > len(digits) {
			return 0
		}
		n, _ := strconv.Atoi(digits[2*i : 2*i+2])
		return n
	}
	if len(digits) == 1 {
		hour, _ = strconv.Atoi(digits)
	} else {
		hour, minute, second = read(0), read(1), read(2)
	}

	switch meridian {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, fmt.Errorf("time of day %q out of range", s)
	}
	return hour, minute, second, nil
}

var offsetPart = regexp.MustCompile(`[+-]?\d+[dhms]`)

// ParseOffset parses a signed interval offset such as "1h", "-30m", or
// "1d12h" into a millisecond delta. Quantities are summed, so mixed signs
// are allowed.
func ParseOffset(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty offset")
	}
	matched := 0
	var total int64
	for _, part := range offsetPart.FindAllString(s, -1) {
		matched += len(part)
		unit := part[len(part)-1]
		n, err := strconv.ParseInt(part[:len(part)-1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad offset quantity %q: %w", part, err)
		}
		switch unit {
		case 'd':
			total += n * 24 * 3600 * 1000
		case 'h':
			total += n * 3600 * 1000
		case 'm':
			total += n * 60 * 1000
		case 's':
			total += n * 1000
		}
	}
	if matched != len(s) {
		return 0, fmt.Errorf("malformed offset %q (want e.g. 1h, -30m, 2d6h)", s)
	}
	return total, nil
}
