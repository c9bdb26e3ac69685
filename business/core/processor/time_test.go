package processor

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/OpenTransitTools/darwin-bridge/business/data/darwinxml"
)

func TestParseHHMM_Rollover(t *testing.T) {
	is := is.New(t)

	h, m, day, ok := parseHHMM("09:05")
	is.True(ok)
	is.Equal(h, 9)
	is.Equal(m, 5)
	is.Equal(day, 0)

	h, m, day, ok = parseHHMM("25:10")
	is.True(ok)
	is.Equal(h, 1)
	is.Equal(m, 10)
	is.Equal(day, 1)

	_, _, _, ok = parseHHMM("not-a-time")
	is.True(!ok)
}

func TestParseForecastTime_PrefersActualOverEstimate(t *testing.T) {
	is := is.New(t)
	ssd := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	v, ok := parseForecastTime(&darwinxml.Forecast{ET: "09:10", AT: "09:05"}, ssd)
	is.True(ok)
	is.Equal(v, time.Date(2026, 7, 31, 9, 5, 0, 0, time.UTC).Unix())
}

func TestLocalizeStartDate_OrdinaryDay(t *testing.T) {
	is := is.New(t)
	ssd := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	got := localizeStartDate(ssd, 9*3600) // 09:00
	is.Equal(got, "20260731")
}

// 2026-03-29 is a UK spring-forward date: clocks jump from 01:00 to
// 02:00, so 01:30 never exists as a wall clock. localize falls back to
// the naive date rather than erroring.
func TestLocalize_SpringForwardGapFallsBackToNaive(t *testing.T) {
	is := is.New(t)
	got := localize(2026, 3, 29, 1, 30, 0)
	is.Equal(got.Year(), 2026)
	is.Equal(int(got.Month()), 3)
	is.Equal(got.Day(), 29)
}

// 2026-10-25 is a UK fall-back date: 01:30 occurs twice. localize must
// deterministically prefer the later occurrence.
func TestLocalize_FallBackAmbiguityPrefersLater(t *testing.T) {
	is := is.New(t)
	got := localize(2026, 10, 25, 1, 30, 0)

	// The later occurrence of 01:30 London time is 01:30 local = 01:30
	// BST-1h = the second hour, i.e. 01:30 UTC. The earlier occurrence
	// is 00:30 UTC. Confirm we picked the later instant.
	earlierInstant := time.Date(2026, 10, 25, 0, 30, 0, 0, time.UTC)
	is.True(got.After(earlierInstant))
}
