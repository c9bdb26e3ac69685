package processor

import (
	"strconv"
	"strings"
	"time"

	"github.com/OpenTransitTools/darwin-bridge/business/data/darwinxml"
)

// london is loaded once at package init; a failure to find the
// Europe/London database is a deployment problem severe enough to
// fail fast rather than silently mis-localize every trip's start
// date.
var london *time.Location

func init() {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		panic("processor: loading Europe/London: " + err.Error())
	}
	london = loc
}

// parseSSD parses a schedule start date (YYYY-MM-DD). On failure it
// falls back to today in UTC, per §4.4.1 step 1.
func parseSSD(ssd string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", ssd, time.UTC)
	if err != nil {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	return t
}

// parseHHMM parses Darwin's HH:MM forecast format, accepting hour
// values of 24 or greater as a next-day rollover (the redesigned
// behavior from §9): it returns the day offset separately so the
// caller can apply it against whichever base date is in play.
func parseHHMM(s string) (hour, minute, dayOffset int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || m < 0 || m > 59 {
		return 0, 0, 0, false
	}
	dayOffset = h / 24
	h = h % 24
	return h, m, dayOffset, true
}

// parseForecastTime implements parse_time: prefer `at` over `et`,
// build a naive ssd+HH:MM:00 datetime, and interpret it as UTC. This
// is an intentional known limitation carried over unlocalized per
// §9's resolved decision — only start_date computation localizes to
// Europe/London.
func parseForecastTime(f *darwinxml.Forecast, ssd time.Time) (int64, bool) {
	if f == nil {
		return 0, false
	}
	raw := f.AT
	if raw == "" {
		raw = f.ET
	}
	if raw == "" {
		return 0, false
	}
	hour, minute, dayOffset, ok := parseHHMM(raw)
	if !ok {
		return 0, false
	}
	t := time.Date(ssd.Year(), ssd.Month(), ssd.Day()+dayOffset, hour, minute, 0, 0, time.UTC)
	return t.Unix(), true
}

// localizeStartDate computes the YYYYMMDD start_date for a trip: ssd
// midnight plus the trip's first-departure seconds, interpreted in
// Europe/London. Ambiguous wall clocks (DST fall-back) resolve to the
// later of the two occurrences; invalid wall clocks (spring-forward
// gap) fall back to the naive, unlocalized date.
func localizeStartDate(ssd time.Time, firstDepartureSeconds int) string {
	day := ssd.AddDate(0, 0, firstDepartureSeconds/86400)
	secOfDay := firstDepartureSeconds % 86400
	hour := secOfDay / 3600
	minute := (secOfDay % 3600) / 60
	second := secOfDay % 60

	y, m, d := day.Date()
	local := localize(y, int(m), d, hour, minute, second)
	return local.Format("20060102")
}

// localize resolves a Europe/London wall clock to a concrete instant,
// verifying its own round-trip rather than relying on any undocumented
// tie-break in time.Date.
func localize(y, m, d, hh, mm, ss int) time.Time {
	cand := time.Date(y, time.Month(m), d, hh, mm, ss, 0, london)
	if !sameWallClock(cand, y, m, d, hh, mm, ss) {
		// spring-forward gap: this wall clock never existed in
		// Europe/London; use the naive date as given.
		return time.Date(y, time.Month(m), d, hh, mm, ss, 0, time.UTC)
	}
	if earlier := cand.Add(-time.Hour); sameWallClock(earlier, y, m, d, hh, mm, ss) {
		return cand // cand is already the later of an ambiguous pair
	}
	if later := cand.Add(time.Hour); sameWallClock(later, y, m, d, hh, mm, ss) {
		return later // cand was the earlier of an ambiguous pair; prefer later
	}
	return cand
}

func sameWallClock(t time.Time, y, m, d, hh, mm, ss int) bool {
	lt := t.In(london)
	return lt.Year() == y && int(lt.Month()) == m && lt.Day() == d &&
		lt.Hour() == hh && lt.Minute() == mm && lt.Second() == ss
}
