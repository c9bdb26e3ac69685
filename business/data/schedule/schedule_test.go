package schedule

import (
	"testing"

	"github.com/matryer/is"
)

func buildTestIndex() *Index {
	data := &GtfsData{
		TiplocMap: map[string]string{"PADTON": "stop_pad", "RDNGSTN": "stop_rdg"},
		UIDIndex: map[string][]string{
			"L12345": {"trip_weekday", "trip_saturday"},
		},
		Trips: map[string]*Trip{
			"trip_weekday": {
				TripID:    "trip_weekday",
				ServiceID: "WKDY",
				StopTimes: []StopTime{
					{StopID: "stop_pad", StopSequence: 1, DepartureSeconds: 32400},
					{StopID: "stop_rdg", StopSequence: 2, DepartureSeconds: 33300},
				},
			},
			"trip_saturday": {
				TripID:    "trip_saturday",
				ServiceID: "SAT",
				StopTimes: []StopTime{
					{StopID: "stop_pad", StopSequence: 1, DepartureSeconds: 36000},
				},
			},
		},
		Calendar: map[string]Calendar{
			"WKDY": {Weekday: 0b0111110, StartDate: 20260101, EndDate: 20261231}, // Mon-Fri
			"SAT":  {Weekday: 0b1000000, StartDate: 20260101, EndDate: 20261231},
		},
		CalendarDates: map[string][]CalendarException{
			"WKDY": {{Date: 20260101, Add: false}}, // New Year's Day removed even though it's a weekday
		},
	}
	idx := NewIndex()
	idx.Swap(data)
	return idx
}

func TestFindTripID_WeekdayCalendar(t *testing.T) {
	is := is.New(t)
	idx := buildTestIndex()

	// 2026-07-31 is a Friday.
	tripID, ok := idx.FindTripID("L12345", 20260731)
	is.True(ok)
	is.Equal(tripID, "trip_weekday")
}

func TestFindTripID_SaturdayCalendar(t *testing.T) {
	is := is.New(t)
	idx := buildTestIndex()

	// 2026-08-01 is a Saturday.
	tripID, ok := idx.FindTripID("L12345", 20260801)
	is.True(ok)
	is.Equal(tripID, "trip_saturday")
}

func TestFindTripID_CalendarDateExceptionWins(t *testing.T) {
	is := is.New(t)
	idx := buildTestIndex()

	// 2026-01-01 is a Thursday (a WKDY weekday) but is removed by a
	// calendar_dates DELETE exception, and SAT isn't active either.
	_, ok := idx.FindTripID("L12345", 20260101)
	is.True(!ok)
}

func TestFindTripID_OutOfRange(t *testing.T) {
	is := is.New(t)
	idx := buildTestIndex()

	_, ok := idx.FindTripID("L12345", 20270102)
	is.True(!ok)
}

func TestGetStopID(t *testing.T) {
	is := is.New(t)
	idx := buildTestIndex()

	stopID, ok := idx.GetStopID("PADTON")
	is.True(ok)
	is.Equal(stopID, "stop_pad")

	_, ok = idx.GetStopID("UNKNOWN")
	is.True(!ok)
}

func TestGetTripStartTime(t *testing.T) {
	is := is.New(t)
	idx := buildTestIndex()

	secs, ok := idx.GetTripStartTime("trip_weekday")
	is.True(ok)
	is.Equal(secs, 32400)
}

func TestHasDataEmptyIndex(t *testing.T) {
	is := is.New(t)
	idx := NewIndex()
	is.True(!idx.HasData())
}
