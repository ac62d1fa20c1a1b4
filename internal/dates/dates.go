// Package dates holds the pure date/time helpers used by the source
// transformers: naive-datetime conversion of API timestamps, Swedish
// free-text date recognition and the "today" cutoff used to separate
// past from future events.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layouts for the naive local strings stored on model.Event.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// monthNames maps time.Month-1 to the lowercase Swedish month name, as it
// appears both in scraped text and in calendar page URLs.
var monthNames = [12]string{
	"januari",
	"februari",
	"mars",
	"april",
	"maj",
	"juni",
	"juli",
	"augusti",
	"september",
	"oktober",
	"november",
	"december",
}

var monthIndex = func() map[string]time.Month {
	m := make(map[string]time.Month, len(monthNames))
	for i, name := range monthNames {
		m[name] = time.Month(i + 1)
	}
	return m
}()

// MonthName returns the lowercase Swedish name of m.
func MonthName(m time.Month) string {
	return monthNames[m-1]
}

var (
	isoDateTimeRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T(\d{2}):(\d{2})`)
	isoDateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// Naive converts an ISO-8601-like timestamp to a naive local string by
// taking the wall-clock components verbatim, without timezone math; the
// upstream APIs report local times with a decorative offset. A timestamp at
// exactly midnight is collapsed to its date, marking an all-day event. If no
// time can be isolated the leading date substring is returned, and if not
// even that matches, the input is passed through unchanged.
func Naive(ts string) string {
	if m := isoDateTimeRe.FindStringSubmatch(ts); m != nil {
		if m[2] == "00" && m[3] == "00" {
			return m[1]
		}
		return m[1] + "T" + m[2] + ":" + m[3]
	}
	if d := isoDateRe.FindString(ts); d != "" {
		return d
	}
	return ts
}

// Date is a plain calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// At renders the date with a start time attached.
func (d Date) At(c Clock) string {
	return fmt.Sprintf("%sT%02d:%02d", d.String(), c.Hour, c.Minute)
}

// Add renders the date at c shifted by delta, rolling over day boundaries.
func (d Date) Add(c Clock, delta time.Duration) string {
	t := time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, time.UTC).Add(delta)
	return t.Format(DateTimeLayout)
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

var (
	monthAlt     = strings.Join(monthNames[:], "|")
	monthFirstRe = regexp.MustCompile(`(?i)(` + monthAlt + `)\s+(\d{1,2})\b,?\s*(\d{4})?`)
	dayFirstRe   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + monthAlt + `),?\s*(\d{4})?`)
	clockTimeRe  = regexp.MustCompile(`(?i)kl[.\s]*(\d{1,2})[.:,](\d{2})`)
)

// ParseSwedish recovers a calendar date from free text containing a Swedish
// month name, in either "juni 19, 2025" or "19 juni 2025" order. When the
// year is absent, refYear is assumed. The second return value is false when
// no date can be recovered; callers drop such records rather than guessing.
func ParseSwedish(text string, refYear int) (Date, bool) {
	var monthName, dayStr, yearStr string
	if m := monthFirstRe.FindStringSubmatch(text); m != nil {
		monthName, dayStr, yearStr = m[1], m[2], m[3]
	} else if m := dayFirstRe.FindStringSubmatch(text); m != nil {
		dayStr, monthName, yearStr = m[1], m[2], m[3]
	} else {
		return Date{}, false
	}

	month, ok := monthIndex[strings.ToLower(monthName)]
	if !ok {
		return Date{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return Date{}, false
	}
	year := refYear
	if yearStr != "" {
		year, _ = strconv.Atoi(yearStr)
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// FindClock searches text for a "kl. 18.00" style time marker and returns
// the clock time it names.
func FindClock(text string) (Clock, bool) {
	m := clockTimeRe.FindStringSubmatch(text)
	if m == nil {
		return Clock{}, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return Clock{}, false
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil || minute > 59 {
		return Clock{}, false
	}
	return Clock{Hour: hour, Minute: minute}, true
}

// Midnight returns the local midnight that starts now's day. Everything with
// a start date before this instant counts as history.
func Midnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// DayString formats t's calendar date in the feed's date layout. Comparing
// an event's StartDate against this string with plain string ordering is a
// correct chronological comparison: "2025-06-12T18:30" sorts after
// "2025-06-12" and before "2025-06-13".
func DayString(t time.Time) string {
	return t.Format(DateLayout)
}
