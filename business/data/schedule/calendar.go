package schedule

import (
	"strconv"
	"time"
)

// weekdayOf returns time.Weekday for a YYYYMMDD-encoded date.
func weekdayOf(date int) time.Weekday {
	y := date / 10000
	m := (date / 100) % 100
	d := date % 100
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC).Weekday()
}

// parseGTFSDate parses an 8-digit YYYYMMDD string into its integer
// form, suitable for weekdayOf and range comparisons. GTFS dates are
// always this shape; a malformed value parses to 0, which compares
// false against any real calendar row.
func parseGTFSDate(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// DateToYYYYMMDD formats a time.Time as the integer GTFS expects.
func DateToYYYYMMDD(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
