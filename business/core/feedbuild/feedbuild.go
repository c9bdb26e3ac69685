// Package feedbuild converts the in-memory trip projection into a
// GTFS-Realtime FeedMessage. It is the single place that knows how to
// translate tripstate's plain Go structs into the protobuf wire
// types; both the snapshot writer (C5) and the HTTP egress (C8) share
// it so the two never drift.
package feedbuild

import (
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/OpenTransitTools/darwin-bridge/business/data/tripstate"
)

// Build returns a fresh FeedMessage containing every current
// trip_updates entry, with gtfs_realtime_version "2.0" and a current
// header timestamp.
func Build(state *tripstate.State) *gtfs.FeedMessage {
	version := "2.0"
	ts := uint64(time.Now().Unix())
	incrementality := gtfs.FeedHeader_FULL_DATASET

	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: &version,
			Incrementality:      &incrementality,
			Timestamp:           &ts,
		},
	}

	state.RangeEntities(func(key string, e *tripstate.Entity) bool {
		e.Lock()
		entity := entityFor(key, e)
		e.Unlock()
		if entity != nil {
			msg.Entity = append(msg.Entity, entity)
		}
		return true
	})

	return msg
}

func entityFor(key string, e *tripstate.Entity) *gtfs.FeedEntity {
	id := key
	switch {
	case e.TripUpdate != nil:
		return &gtfs.FeedEntity{Id: &id, TripUpdate: convertTripUpdate(e.TripUpdate)}
	case e.VehiclePosition != nil:
		return &gtfs.FeedEntity{Id: &id, Vehicle: convertVehiclePosition(e.VehiclePosition)}
	default:
		return nil
	}
}

func convertTripUpdate(tu *tripstate.TripUpdate) *gtfs.TripUpdate {
	tripID := tu.TripID
	startDate := tu.StartDate
	out := &gtfs.TripUpdate{
		Trip: &gtfs.TripDescriptor{TripId: &tripID, StartDate: &startDate},
	}
	if tu.VehicleLabel != "" {
		label := tu.VehicleLabel
		out.Vehicle = &gtfs.VehicleDescriptor{Label: &label}
	}
	for _, stu := range tu.StopTimeUpdates {
		out.StopTimeUpdate = append(out.StopTimeUpdate, convertStopTimeUpdate(stu))
	}
	return out
}

func convertStopTimeUpdate(stu tripstate.StopTimeUpdate) *gtfs.TripUpdate_StopTimeUpdate {
	stopID := stu.StopID
	o := &gtfs.TripUpdate_StopTimeUpdate{StopId: &stopID}
	if stu.HasSequence {
		seq := uint32(stu.StopSequence)
		o.StopSequence = &seq
	}
	if stu.Arrival != nil {
		t := *stu.Arrival
		o.Arrival = &gtfs.TripUpdate_StopTimeEvent{Time: &t}
	}
	if stu.Departure != nil {
		t := *stu.Departure
		o.Departure = &gtfs.TripUpdate_StopTimeEvent{Time: &t}
	}
	return o
}

func convertVehiclePosition(vp *tripstate.VehiclePosition) *gtfs.VehiclePosition {
	tripID := vp.TripID
	out := &gtfs.VehiclePosition{
		Trip: &gtfs.TripDescriptor{TripId: &tripID},
	}
	if vp.StopID != "" {
		stopID := vp.StopID
		out.StopId = &stopID
	}
	if vp.Label != "" {
		label := vp.Label
		out.Vehicle = &gtfs.VehicleDescriptor{Label: &label}
	}
	for _, c := range vp.Carriages {
		id := c.ID
		label := c.Label
		seq := uint32(c.Sequence)
		out.MultiCarriageDetails = append(out.MultiCarriageDetails, &gtfs.VehiclePosition_CarriageDetails{
			Id:               &id,
			Label:            &label,
			CarriageSequence: &seq,
		})
	}
	return out
}
