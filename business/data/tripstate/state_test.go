package tripstate

import (
	"testing"

	"github.com/matryer/is"
)

func TestGetOrCreateEntityIsIdempotent(t *testing.T) {
	is := is.New(t)
	s := New()

	a := s.GetOrCreateEntity("trip_1")
	b := s.GetOrCreateEntity("trip_1")
	is.True(a == b)

	_, ok := s.LoadEntity("trip_1")
	is.True(ok)

	s.DeleteEntity("trip_1")
	_, ok = s.LoadEntity("trip_1")
	is.True(!ok)
}

func TestUpsertPlatformReplacesBySequence(t *testing.T) {
	is := is.New(t)
	s := New()

	s.UpsertPlatform("trip_1", PlatformInfo{StopID: "stop_a", StopSequence: 2, Platform: "4"})
	s.UpsertPlatform("trip_1", PlatformInfo{StopID: "stop_b", StopSequence: 1, Platform: "2"})
	s.UpsertPlatform("trip_1", PlatformInfo{StopID: "stop_a", StopSequence: 2, Platform: "5"})

	got := s.GetPlatforms("trip_1")
	is.Equal(len(got), 2)
	is.Equal(got[0].StopSequence, 1)
	is.Equal(got[0].Platform, "2")
	is.Equal(got[1].StopSequence, 2)
	is.Equal(got[1].Platform, "5")
}

func TestGetPlatformsReturnsACopy(t *testing.T) {
	is := is.New(t)
	s := New()
	s.UpsertPlatform("trip_1", PlatformInfo{StopID: "stop_a", StopSequence: 1, Platform: "4"})

	got := s.GetPlatforms("trip_1")
	got[0].Platform = "mutated"

	again := s.GetPlatforms("trip_1")
	is.Equal(again[0].Platform, "4")
}

func TestRidToTripRoundTrip(t *testing.T) {
	is := is.New(t)
	s := New()

	_, ok := s.GetTripIDForRid("rid_1")
	is.True(!ok)

	s.SetRidToTrip("rid_1", "trip_1")
	tripID, ok := s.GetTripIDForRid("rid_1")
	is.True(ok)
	is.Equal(tripID, "trip_1")

	s.DeleteRid("rid_1")
	_, ok = s.GetTripIDForRid("rid_1")
	is.True(!ok)
}

func TestVPKey(t *testing.T) {
	is := is.New(t)
	is.Equal(VPKey("trip_1"), "trip_1_VP")
}
