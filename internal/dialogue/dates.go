package dialogue

import (
	"strings"
	"time"
)

// DefaultLayouts are the date forms accepted from users, tried in order.
// Single-digit layout elements also accept zero-padded input.
var DefaultLayouts = []string{
	"2.1.2006",
	"2.1.06",
	"2006-1-2",
	"2/1/2006",
	"2.1.2006 15:04",
	"2006-1-2 15:04",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// DateParser turns user input into calendar days in a fixed location.
type DateParser struct {
	layouts []string
	loc     *time.Location
}

// NewDateParser returns a parser for layouts (DefaultLayouts when empty) in loc
// (time.Local when nil).
func NewDateParser(layouts []string, loc *time.Location) DateParser {
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	if loc == nil {
		loc = time.Local
	}
	return DateParser{layouts: layouts, loc: loc}
}

// Parse returns midnight of the parsed day. Any time of day is dropped.
func (p DateParser) Parse(input string) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range p.layouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return Day(t, p.loc), true
		}
	}
	return time.Time{}, false
}

// Day truncates t to midnight of its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
