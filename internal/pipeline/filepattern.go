// Package pipeline plans and executes differential pipeline runs.
package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// File path patterns may embed date placeholders, finest first wins:
//
//	{YYYY} {MM} {DD} {HH} {mm}
//
// A pattern with placeholders is time-partitioned: each matching object
// carries a timestamp inferred from its path, and ingestion windows
// select objects by that timestamp.

// Granularity is the finest time unit a pattern resolves.
type Granularity int

// Granularities, coarse to fine.
const (
	GranNone Granularity = iota
	GranYear
	GranMonth
	GranDay
	GranHour
	GranMinute
)

var placeholders = []struct {
	token string
	gran  Granularity
	width int
}{
	{"{YYYY}", GranYear, 4},
	{"{MM}", GranMonth, 2},
	{"{DD}", GranDay, 2},
	{"{HH}", GranHour, 2},
	{"{mm}", GranMinute, 2},
}

// HasDatePattern reports whether the path contains any date placeholder.
func HasDatePattern(path string) bool {
	return PatternGranularity(path) != GranNone
}

// PatternGranularity returns the finest placeholder present in the path.
func PatternGranularity(path string) Granularity {
	finest := GranNone
	for _, p := range placeholders {
		if strings.Contains(path, p.token) && p.gran > finest {
			finest = p.gran
		}
	}
	return finest
}

// ToWildcard replaces each date placeholder with ?-wildcards of the
// placeholder's width, producing a listable glob.
func ToWildcard(path string) string {
	for _, p := range placeholders {
		path = strings.ReplaceAll(path, p.token, strings.Repeat("?", p.width))
	}
	return path
}

// Truncate rounds t down to the granularity, in UTC.
func Truncate(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	switch g {
	case GranYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case GranMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case GranDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case GranHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case GranMinute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	default:
		return t
	}
}

// TimestampExtractor parses object timestamps out of pattern-relative
// paths.
type TimestampExtractor struct {
	re    *regexp.Regexp
	order []Granularity // granularity of each capture group, in order
}

// NewTimestampExtractor compiles the pattern into a matcher with one
// capture group per placeholder. Non-placeholder glob characters match
// loosely.
func NewTimestampExtractor(pattern string) (*TimestampExtractor, error) {
	var b strings.Builder
	var order []Granularity
	b.WriteString("^")
	for i := 0; i < len(pattern); {
		matched := false
		for _, p := range placeholders {
			if strings.HasPrefix(pattern[i:], p.token) {
				fmt.Fprintf(&b, `(\d{%d})`, p.width)
				order = append(order, p.gran)
				i += len(p.token)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		switch c := pattern[i]; c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i += 2
			} else {
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &TimestampExtractor{re: re, order: order}, nil
}

// Timestamp infers the UTC timestamp encoded in a pattern-relative path.
// Missing components default to the start of their range.
func (x *TimestampExtractor) Timestamp(rel string) (time.Time, bool) {
	m := x.re.FindStringSubmatch(rel)
	if m == nil {
		return time.Time{}, false
	}
	year, month, day, hour, minute := 0, 1, 1, 0, 0
	for i, g := range x.order {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return time.Time{}, false
		}
		switch g {
		case GranYear:
			year = n
		case GranMonth:
			month = n
		case GranDay:
			day = n
		case GranHour:
			hour = n
		case GranMinute:
			minute = n
		}
	}
	if year == 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
}

// InWindow reports whether ts falls in [since, until). A nil since is an
// open lower bound; a nil until is an open upper bound.
func InWindow(ts time.Time, since, until *time.Time) bool {
	if since != nil && ts.Before(*since) {
		return false
	}
	if until != nil && !ts.Before(*until) {
		return false
	}
	return true
}

// ParseSince parses an adapter's configured ingestion lower bound:
// "2006-01-02", "2006-01-02 15:04:05", or RFC 3339.
func ParseSince(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid since %q", s)
}
