package gc

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/OpenTransitTools/darwin-bridge/business/data/tripstate"
)

func epoch(t time.Time) *int64 {
	v := t.Unix()
	return &v
}

// Scenario 6: a trip whose last stop-time activity is older than the
// threshold is evicted, along with its platform list and any rid
// mapping that pointed at it; the vehicle-position sidecar key is left
// untouched.
func TestSweep_RemovesExpiredTrip(t *testing.T) {
	is := is.New(t)
	state := tripstate.New()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	stale := state.GetOrCreateEntity("trip_stale")
	stale.Lock()
	stale.TripUpdate = &tripstate.TripUpdate{
		TripID: "trip_stale",
		StopTimeUpdates: []tripstate.StopTimeUpdate{
			{StopID: "stop_a", Departure: epoch(now.Add(-2 * time.Hour))},
		},
	}
	stale.Unlock()
	state.UpsertPlatform("trip_stale", tripstate.PlatformInfo{StopID: "stop_a", StopSequence: 1, Platform: "3"})
	state.SetRidToTrip("rid_stale", "trip_stale")

	vp := state.GetOrCreateEntity(tripstate.VPKey("trip_stale"))
	vp.Lock()
	vp.VehiclePosition = &tripstate.VehiclePosition{TripID: "trip_stale"}
	vp.Unlock()

	fresh := state.GetOrCreateEntity("trip_fresh")
	fresh.Lock()
	fresh.TripUpdate = &tripstate.TripUpdate{
		TripID: "trip_fresh",
		StopTimeUpdates: []tripstate.StopTimeUpdate{
			{StopID: "stop_a", Departure: epoch(now.Add(5 * time.Minute))},
		},
	}
	fresh.Unlock()

	c := &Collector{State: state, Threshold: time.Hour}
	removed := c.Sweep(now)
	is.Equal(removed, 1)

	_, ok := state.LoadEntity("trip_stale")
	is.True(!ok)
	is.Equal(len(state.GetPlatforms("trip_stale")), 0)
	_, ok = state.GetTripIDForRid("rid_stale")
	is.True(!ok)

	// The VP sidecar key is a distinct trip_updates entry, never swept.
	_, ok = state.LoadEntity(tripstate.VPKey("trip_stale"))
	is.True(ok)

	_, ok = state.LoadEntity("trip_fresh")
	is.True(ok)
}

func TestSweep_EntityWithNoTimesIsPreserved(t *testing.T) {
	is := is.New(t)
	state := tripstate.New()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	e := state.GetOrCreateEntity("trip_no_times")
	e.Lock()
	e.TripUpdate = &tripstate.TripUpdate{TripID: "trip_no_times"}
	e.Unlock()

	c := &Collector{State: state, Threshold: time.Hour}
	removed := c.Sweep(now)
	is.Equal(removed, 0)

	_, ok := state.LoadEntity("trip_no_times")
	is.True(ok)
}
