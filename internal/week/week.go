// Package week buckets calendar dates into fixed Jan-1-origin weeks.
//
// Week 1 of a year always starts on January 1 and every following week is
// seven days long, so week boundaries do not line up with weekdays and the
// numbering is not ISO-8601. December 30/31 fall into week 53.
package week

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxWeek is the last bucket index of any year.
	MaxWeek = 53

	invalidKey = "invalid"
)

// Key identifies one (year, week) bucket. The zero Key is the invalid sentinel.
type Key struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// Invalid is returned for dates that cannot be bucketed.
var Invalid = Key{}

// KeyOf returns the bucket for the calendar date of t, read in t's own
// location so that no UTC shift moves the date across midnight.
func KeyOf(t time.Time) Key {
	if t.IsZero() {
		return Invalid
	}
	w := (t.YearDay()-1)/7 + 1
	if w < 1 {
		w = 1
	}
	if w > MaxWeek {
		w = MaxWeek
	}
	return Key{Year: t.Year(), Week: w}
}

// KeyOfString parses s with ParseDate and buckets it.
func KeyOfString(s string) Key {
	t, ok := ParseDate(s)
	if !ok {
		return Invalid
	}
	return KeyOf(t)
}

// Valid reports whether k is a real bucket.
func (k Key) Valid() bool {
	return k.Year > 0 && k.Week >= 1 && k.Week <= MaxWeek
}

// String renders the bucket as "2025-3W".
func (k Key) String() string {
	if !k.Valid() {
		return invalidKey
	}
	return fmt.Sprintf("%04d-%dW", k.Year, k.Week)
}

// Less orders keys by year, then week.
func (k Key) Less(o Key) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Week < o.Week
}

// Next returns the following bucket.
func (k Key) Next() Key {
	if k.Week >= MaxWeek {
		return Key{Year: k.Year + 1, Week: 1}
	}
	return Key{Year: k.Year, Week: k.Week + 1}
}

// Start returns the first calendar day of the bucket.
func (k Key) Start() time.Time {
	return time.Date(k.Year, time.January, 1+(k.Week-1)*7, 0, 0, 0, 0, time.UTC)
}

// End returns the last date of the bucket. Week 53 ends on December 31.
func (k Key) End() time.Time {
	end := k.Start().AddDate(0, 0, 6)
	if last := time.Date(k.Year, time.December, 31, 0, 0, 0, 0, time.UTC); end.After(last) {
		return last
	}
	return end
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKey parses the output of Key.String.
func ParseKey(s string) (Key, bool) {
	s = strings.TrimSpace(s)
	year, rest, ok := strings.Cut(s, "-")
	if !ok || !strings.HasSuffix(rest, "W") {
		return Invalid, false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Invalid, false
	}
	w, err := strconv.Atoi(strings.TrimSuffix(rest, "W"))
	if err != nil {
		return Invalid, false
	}
	k := Key{Year: y, Week: w}
	if !k.Valid() {
		return Invalid, false
	}
	return k, true
}

// Range enumerates every bucket of `years` consecutive years starting at
// startYear, followed by week 1 of the next year. Used as a stable chart axis.
func Range(startYear, years int) []Key {
	if years <= 0 {
		return nil
	}
	keys := make([]Key, 0, years*MaxWeek+1)
	for y := startYear; y < startYear+years; y++ {
		for w := 1; w <= MaxWeek; w++ {
			keys = append(keys, Key{Year: y, Week: w})
		}
	}
	return append(keys, Key{Year: startYear + years, Week: 1})
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006.01.02",
	"20060102",
}

// ParseDate reads a calendar date, ignoring any time-of-day suffix
// ("2025-03-10 14:00:00", "2025-03-10T14:00:00+09:00"). The result is midnight
// UTC of that civil date; the written date is never shifted.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date returns the civil date of t as midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
