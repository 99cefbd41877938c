// Package datewindow resolves a day or day-range argument into an inclusive
// instant window in a fixed civil timezone.
package datewindow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned for unparseable date arguments. Callers treat
// it as fatal before any network activity.
var ErrInvalidDate = errors.New("invalid date input")

// DefaultLocation is the civil timezone tender publication dates refer to.
const DefaultLocation = "Europe/Madrid"

// dayLayout is the accepted calendar-day format.
const dayLayout = "2006-01-02"

// Window is an inclusive [Start, End] instant pair. Start is 00:00:00 local
// time on the first day and End is 23:59:59 local time on the last day.
type Window struct {
	Start time.Time
	End   time.Time
}

// Resolve parses "YYYY-MM-DD" or "YYYY-MM-DD,YYYY-MM-DD" into a Window in
// the given location.
func Resolve(arg string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}

	first, last, found := strings.Cut(arg, ",")
	if !found {
		last = first
	}

	start, err := parseDay(strings.TrimSpace(first), loc)
	if err != nil {
		return Window{}, err
	}

	end, err := parseDay(strings.TrimSpace(last), loc)
	if err != nil {
		return Window{}, err
	}

	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: range end %q before start %q", ErrInvalidDate, last, first)
	}

	return Window{
		Start: start,
		End:   end.AddDate(0, 0, 1).Add(-time.Second),
	}, nil
}

// Contains reports inclusive membership of an instant in the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ContainsPtr is Contains for optional instants. A nil instant is never
// inside any window: items whose date could not be resolved are dropped.
func (w Window) ContainsPtr(t *time.Time) bool {
	if t == nil {
		return false
	}
	return w.Contains(*t)
}

// Days enumerates the ISO day strings covered by the window, ascending.
func (w Window) Days() []string {
	var days []string
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dayLayout))
	}
	return days
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(dayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD day", ErrInvalidDate, s)
	}
	return d, nil
}
