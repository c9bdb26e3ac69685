package schedule

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spkg/bom"
)

func init() {
	// LazyCSVReader tolerates the sloppy quoting real-world GTFS
	// feeds ship with; bom.NewReader strips a leading unicode BOM if
	// present. Both are set process-wide, matching how every caller
	// of gocsv in this lineage configures it.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

type stopCSV struct {
	StopID   string `csv:"stop_id"`
	StopCode string `csv:"stop_code"`
}

type tripCSV struct {
	TripID    string `csv:"trip_id"`
	ServiceID string `csv:"service_id"`
}

type stopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}

type calendarCSV struct {
	ServiceID string `csv:"service_id"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Monday    int8   `csv:"monday"`
	Tuesday   int8   `csv:"tuesday"`
	Wednesday int8   `csv:"wednesday"`
	Thursday  int8   `csv:"thursday"`
	Friday    int8   `csv:"friday"`
	Saturday  int8   `csv:"saturday"`
	Sunday    int8   `csv:"sunday"`
}

type calendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int    `csv:"exception_type"`
}

// requiredFiles mirrors the zip-file-discovery idiom of scanning the
// archive once and keying candidate entries by base name, tolerating
// agencies that (incorrectly) nest feed files under a subdirectory.
var requiredFiles = []string{"stops.txt", "trips.txt", "stop_times.txt"}

// LoadZip parses a GTFS static feed from an in-memory zip archive and
// returns a fully built GtfsData. At least one of calendar.txt or
// calendar_dates.txt must be present; stops.txt, trips.txt, and
// stop_times.txt are always required.
func LoadZip(buf []byte) (*GtfsData, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, errors.Wrap(err, "opening gtfs zip")
	}

	files := map[string]io.ReadCloser{
		"stops.txt":          nil,
		"trips.txt":          nil,
		"stop_times.txt":     nil,
		"calendar.txt":       nil,
		"calendar_dates.txt": nil,
	}
	defer func() {
		for _, rc := range files {
			if rc != nil {
				_ = rc.Close()
			}
		}
	}()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		parts := strings.Split(f.Name, "/")
		name := parts[len(parts)-1]
		if _, want := files[name]; !want {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", f.Name)
		}
		files[name] = rc
	}

	for _, name := range requiredFiles {
		if files[name] == nil {
			return nil, errors.Errorf("gtfs feed missing %s", name)
		}
	}
	if files["calendar.txt"] == nil && files["calendar_dates.txt"] == nil {
		return nil, errors.New("gtfs feed missing both calendar.txt and calendar_dates.txt")
	}

	data := newGtfsData()

	if err := loadStops(data, files["stops.txt"]); err != nil {
		return nil, errors.Wrap(err, "parsing stops.txt")
	}
	if files["calendar.txt"] != nil {
		if err := loadCalendar(data, files["calendar.txt"]); err != nil {
			return nil, errors.Wrap(err, "parsing calendar.txt")
		}
	}
	if files["calendar_dates.txt"] != nil {
		if err := loadCalendarDates(data, files["calendar_dates.txt"]); err != nil {
			return nil, errors.Wrap(err, "parsing calendar_dates.txt")
		}
	}
	tripOrder, err := loadTrips(data, files["trips.txt"])
	if err != nil {
		return nil, errors.Wrap(err, "parsing trips.txt")
	}
	if err := loadStopTimes(data, files["stop_times.txt"]); err != nil {
		return nil, errors.Wrap(err, "parsing stop_times.txt")
	}

	buildUIDIndex(data, tripOrder)

	for _, trip := range data.Trips {
		sort.SliceStable(trip.StopTimes, func(i, j int) bool {
			return trip.StopTimes[i].StopSequence < trip.StopTimes[j].StopSequence
		})
	}

	return data, nil
}

func loadStops(data *GtfsData, r io.Reader) error {
	var rows []*stopCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return err
	}
	for _, s := range rows {
		if s.StopID == "" {
			continue
		}
		data.TiplocMap[s.StopID] = s.StopID
		if s.StopCode != "" {
			data.TiplocMap[s.StopCode] = s.StopID
		}
	}
	return nil
}

func loadCalendar(data *GtfsData, r io.Reader) error {
	var rows []*calendarCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return err
	}
	for _, c := range rows {
		var mask uint8
		for bit, v := range []int8{c.Sunday, c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday} {
			if v == 1 {
				mask |= 1 << uint(bit)
			}
		}
		data.Calendar[c.ServiceID] = Calendar{
			Weekday:   mask,
			StartDate: parseGTFSDate(c.StartDate),
			EndDate:   parseGTFSDate(c.EndDate),
		}
	}
	return nil
}

func loadCalendarDates(data *GtfsData, r io.Reader) error {
	var rows []*calendarDateCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return err
	}
	for _, c := range rows {
		data.CalendarDates[c.ServiceID] = append(data.CalendarDates[c.ServiceID], CalendarException{
			Date: parseGTFSDate(c.Date),
			Add:  c.ExceptionType == 1,
		})
	}
	return nil
}

// loadTrips parses trips.txt and returns trip ids in file order, used
// afterwards to build the uid index with insertion order preserved.
func loadTrips(data *GtfsData, r io.Reader) ([]string, error) {
	var rows []*tripCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, err
	}
	order := make([]string, 0, len(rows))
	for _, t := range rows {
		if t.TripID == "" {
			continue
		}
		data.Trips[t.TripID] = &Trip{TripID: t.TripID, ServiceID: t.ServiceID}
		order = append(order, t.TripID)
	}
	return order, nil
}

func loadStopTimes(data *GtfsData, r io.Reader) error {
	return gocsv.UnmarshalToCallbackWithError(r, func(st *stopTimeCSV) error {
		trip, ok := data.Trips[st.TripID]
		if !ok {
			return nil // unknown trip_id rows are skipped rather than fatal
		}
		seconds := secondsFromGTFSTime(st.DepartureTime)
		if seconds < 0 {
			seconds = secondsFromGTFSTime(st.ArrivalTime)
		}
		if seconds < 0 {
			seconds = 0
		}
		trip.StopTimes = append(trip.StopTimes, StopTime{
			StopID:           st.StopID,
			StopSequence:     st.StopSequence,
			DepartureSeconds: seconds,
		})
		return nil
	})
}

// buildUIDIndex takes the uid as the prefix before the first
// underscore in trip_id, preserving trips.txt's insertion order
// within each uid's candidate list.
func buildUIDIndex(data *GtfsData, tripOrderInFile []string) {
	for _, tripID := range tripOrderInFile {
		uid := tripID
		if idx := strings.IndexByte(tripID, '_'); idx >= 0 {
			uid = tripID[:idx]
		}
		data.UIDIndex[uid] = append(data.UIDIndex[uid], tripID)
	}
}

// secondsFromGTFSTime parses an HH:MM:SS GTFS time (hour may exceed
// 23 for past-midnight service) into seconds since midnight. Returns
// -1 if the value can't be parsed, which callers treat as "absent".
func secondsFromGTFSTime(s string) int {
	if s == "" {
		return -1
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return -1
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return -1
	}
	return h*3600 + m*60 + sec
}
