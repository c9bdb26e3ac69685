// Package schedule maintains the hot-swappable static GTFS index: the
// TIPLOC→stop map, the uid→trip-candidate index, each trip's ordered
// stop sequence and earliest departure, and the service-calendar
// tables used to pick which candidate trip is active on a given date.
package schedule

import "sync/atomic"

// StopTime is one row of a trip's ordered stop sequence.
type StopTime struct {
	StopID       string
	StopSequence int
	// DepartureSeconds is seconds-since-midnight of the scheduled
	// departure (arrival if no departure is published), used to
	// derive a trip's start time.
	DepartureSeconds int
}

// Trip is C2's per-trip record: the service it runs under and its
// ordered stop times.
type Trip struct {
	TripID    string
	ServiceID string
	StopTimes []StopTime
}

// Calendar is a GTFS calendar.txt row: a weekday bitmask (bit i set
// for time.Weekday(i)) and a validity window, both inclusive,
// expressed as YYYYMMDD integers for cheap comparison.
type Calendar struct {
	Weekday   uint8
	StartDate int
	EndDate   int
}

// CalendarException is one calendar_dates.txt row.
type CalendarException struct {
	Date int
	Add  bool // true = ADD (exception_type 1), false = DELETE (exception_type 2)
}

// GtfsData is one immutable, fully-built static index. A new GtfsData
// is built off to the side by the refresh loop and swapped into the
// Index atomically; nothing ever mutates a GtfsData in place once
// built.
type GtfsData struct {
	TiplocMap         map[string]string // stop id or stop code -> stop id
	UIDIndex          map[string][]string // uid -> trip ids, insertion order
	Trips             map[string]*Trip
	Calendar          map[string]Calendar
	CalendarDates     map[string][]CalendarException
}

func newGtfsData() *GtfsData {
	return &GtfsData{
		TiplocMap:     make(map[string]string),
		UIDIndex:      make(map[string][]string),
		Trips:         make(map[string]*Trip),
		Calendar:      make(map[string]Calendar),
		CalendarDates: make(map[string][]CalendarException),
	}
}

// Index is the hot-swappable cell holding the current GtfsData. The
// zero value is ready to use and starts out empty (has_data() false)
// so lookups during startup, before the first load completes, are
// simply misses rather than a special-cased nil check at every call
// site.
type Index struct {
	cell atomic.Pointer[GtfsData]
}

// NewIndex returns an Index pre-populated with an empty GtfsData.
func NewIndex() *Index {
	idx := &Index{}
	idx.cell.Store(newGtfsData())
	return idx
}

// Swap atomically replaces the served index. Readers that are
// mid-call against the old value are unaffected; they hold a pointer
// to an immutable struct.
func (idx *Index) Swap(data *GtfsData) {
	idx.cell.Store(data)
}

func (idx *Index) current() *GtfsData {
	if d := idx.cell.Load(); d != nil {
		return d
	}
	return newGtfsData()
}

// HasData reports whether any static feed has ever loaded
// successfully.
func (idx *Index) HasData() bool {
	d := idx.current()
	return d != nil && len(d.Trips) > 0
}

// GetStopID resolves a TIPLOC (or GTFS stop code) to a stop id via
// exact match only.
func (idx *Index) GetStopID(tiploc string) (string, bool) {
	d := idx.current()
	stopID, ok := d.TiplocMap[tiploc]
	return stopID, ok
}

// FindTripID walks the uid's candidate trips and returns the first
// whose service is active on date (YYYYMMDD as int).
func (idx *Index) FindTripID(uid string, date int) (string, bool) {
	d := idx.current()
	for _, tripID := range d.UIDIndex[uid] {
		trip, ok := d.Trips[tripID]
		if !ok {
			continue
		}
		if serviceActive(d, trip.ServiceID, date) {
			return tripID, true
		}
	}
	return "", false
}

// GetTripStops returns a trip's ordered stop sequence.
func (idx *Index) GetTripStops(tripID string) ([]StopTime, bool) {
	d := idx.current()
	trip, ok := d.Trips[tripID]
	if !ok {
		return nil, false
	}
	return trip.StopTimes, true
}

// GetTripStartTime returns the earliest departure, in seconds since
// midnight, across a trip's stop times.
func (idx *Index) GetTripStartTime(tripID string) (int, bool) {
	d := idx.current()
	trip, ok := d.Trips[tripID]
	if !ok || len(trip.StopTimes) == 0 {
		return 0, false
	}
	earliest := trip.StopTimes[0].DepartureSeconds
	for _, st := range trip.StopTimes[1:] {
		if st.DepartureSeconds < earliest {
			earliest = st.DepartureSeconds
		}
	}
	return earliest, true
}

// serviceActive implements the calendar_dates-first, then
// calendar-weekday-and-range algorithm.
func serviceActive(d *GtfsData, serviceID string, date int) bool {
	for _, exc := range d.CalendarDates[serviceID] {
		if exc.Date == date {
			return exc.Add
		}
	}
	cal, ok := d.Calendar[serviceID]
	if !ok {
		return false
	}
	if date < cal.StartDate || date > cal.EndDate {
		return false
	}
	weekday := weekdayOf(date)
	return cal.Weekday&(1<<uint(weekday)) != 0
}
