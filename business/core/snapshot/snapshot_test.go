package snapshot

import (
	"os"
	"testing"

	"github.com/matryer/is"

	logger "log"

	"github.com/OpenTransitTools/darwin-bridge/business/data/tripstate"
)

// A written snapshot, restored into a fresh State, reproduces the same
// trip updates, vehicle positions, and platform rows it started with.
func TestWriteThenRestoreRoundTrip(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	log := logger.New(os.Stdout, "", 0)

	state := tripstate.New()
	arrival := int64(1785000000)
	entity := state.GetOrCreateEntity("trip_1")
	entity.Lock()
	entity.TripUpdate = &tripstate.TripUpdate{
		TripID:       "trip_1",
		StartDate:    "20260731",
		VehicleLabel: "1A01",
		StopTimeUpdates: []tripstate.StopTimeUpdate{
			{StopID: "stop_pad", StopSequence: 1, HasSequence: true, Arrival: &arrival},
		},
	}
	entity.Unlock()

	vp := state.GetOrCreateEntity(tripstate.VPKey("trip_1"))
	vp.Lock()
	vp.VehiclePosition = &tripstate.VehiclePosition{
		TripID: "trip_1",
		StopID: "stop_pad",
		Label:  "1A01",
		Carriages: []tripstate.CarriageDetail{
			{ID: "rid1", Label: "1A01", Sequence: 1},
		},
	}
	vp.Unlock()

	state.UpsertPlatform("trip_1", tripstate.PlatformInfo{StopID: "stop_pad", StopSequence: 1, Platform: "4"})

	w := &Writer{State: state, Dir: dir, Log: log}
	is.NoErr(w.WriteOnce())

	restored := tripstate.New()
	Restore(dir, restored, log)

	re, ok := restored.LoadEntity("trip_1")
	is.True(ok)
	re.Lock()
	is.Equal(re.TripUpdate.TripID, "trip_1")
	is.Equal(re.TripUpdate.StartDate, "20260731")
	is.Equal(re.TripUpdate.VehicleLabel, "1A01")
	is.Equal(len(re.TripUpdate.StopTimeUpdates), 1)
	is.Equal(re.TripUpdate.StopTimeUpdates[0].StopID, "stop_pad")
	is.True(re.TripUpdate.StopTimeUpdates[0].Arrival != nil)
	is.Equal(*re.TripUpdate.StopTimeUpdates[0].Arrival, arrival)
	re.Unlock()

	rvp, ok := restored.LoadEntity(tripstate.VPKey("trip_1"))
	is.True(ok)
	rvp.Lock()
	is.Equal(rvp.VehiclePosition.Label, "1A01")
	is.Equal(len(rvp.VehiclePosition.Carriages), 1)
	rvp.Unlock()

	platforms := restored.GetPlatforms("trip_1")
	is.Equal(len(platforms), 1)
	is.Equal(platforms[0].Platform, "4")
}

func TestRestoreToleratesMissingFiles(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	log := logger.New(os.Stdout, "", 0)

	state := tripstate.New()
	Restore(dir, state, log)

	count := 0
	state.RangeEntities(func(string, *tripstate.Entity) bool { count++; return true })
	is.Equal(count, 0)
}
