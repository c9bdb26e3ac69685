// Package processor implements C4: folding a decoded Push Port frame
// into the shared trip state, using the static schedule index to
// resolve TIPLOCs and disambiguate loop routes.
package processor

import (
	"strings"

	"github.com/OpenTransitTools/darwin-bridge/business/data/darwinxml"
	"github.com/OpenTransitTools/darwin-bridge/business/data/schedule"
	"github.com/OpenTransitTools/darwin-bridge/business/data/tripstate"
)

// Process is the fold engine's single entry point. It iterates each
// update variant in the fixed order required by §4.4: TrainStatus,
// TrainOrder, StationMessage, Loading, Formation. The ScheduleRecord
// is never consulted.
func Process(pp *darwinxml.PushPort, state *tripstate.State, idx *schedule.Index) {
	if pp == nil || pp.UpdateRecord == nil {
		return
	}
	ur := pp.UpdateRecord

	for _, ts := range ur.TrainStatus {
		foldTrainStatus(ts, state, idx)
	}
	for _, to := range ur.TrainOrder {
		foldTrainOrder(to, state, idx)
	}
	for _, ow := range ur.StationMessage {
		foldStationMessage(ow, state)
	}
	for _, l := range ur.AllLoading() {
		foldLoading(l, state)
	}
	for _, f := range ur.Formation {
		foldFormation(f, state)
	}
}

func foldTrainStatus(ts darwinxml.TrainStatus, state *tripstate.State, idx *schedule.Index) {
	ssd := parseSSD(ts.SSD)
	date := schedule.DateToYYYYMMDD(ssd)

	tripID, ok := idx.FindTripID(ts.UID, date)
	if !ok {
		// Unresolvable: this message cannot be correlated to a trip.
		return
	}

	state.SetRidToTrip(ts.RID, tripID)

	tripStops, _ := idx.GetTripStops(tripID)

	entity := state.GetOrCreateEntity(tripID)
	entity.Lock()
	defer entity.Unlock()

	if entity.TripUpdate == nil {
		startDate := ssd.Format("20060102")
		if secs, ok := idx.GetTripStartTime(tripID); ok {
			startDate = localizeStartDate(ssd, secs)
		}
		entity.TripUpdate = &tripstate.TripUpdate{TripID: tripID, StartDate: startDate}
	}
	tu := entity.TripUpdate

	cursor := 0
	for _, loc := range ts.Locations {
		if loc.TPL == "" {
			continue
		}
		stopID, ok := idx.GetStopID(loc.TPL)
		if !ok {
			continue
		}

		sequence, hasSeq := matchSequence(tripStops, &cursor, stopID)

		if loc.Platform != nil {
			suppressed := boolVal(loc.Platform.PlatSup) || boolVal(loc.Suppr)
			number := strings.TrimSpace(loc.Platform.Number)
			if !suppressed && number != "" && hasSeq {
				state.UpsertPlatform(tripID, tripstate.PlatformInfo{
					StopID:       stopID,
					StopSequence: sequence,
					Platform:     number,
				})
			}
		}

		if hasForecast(loc.Arrival) || hasForecast(loc.Departure) || hasForecast(loc.Pass) {
			stu := tripstate.StopTimeUpdate{StopID: stopID, StopSequence: sequence, HasSequence: hasSeq}
			if v, ok := parseForecastTime(loc.Arrival, ssd); ok {
				stu.Arrival = &v
			}
			if v, ok := parseForecastTime(loc.Departure, ssd); ok {
				stu.Departure = &v
			}
			upsertStopTime(tu, stu)
		}
	}

	sortStopTimeUpdates(tu.StopTimeUpdates)
}

// matchSequence implements the forward greedy scan for loop
// disambiguation: it looks for stopID starting at *cursor, and on a
// hit advances the cursor past the match.
func matchSequence(stops []schedule.StopTime, cursor *int, stopID string) (int, bool) {
	for i := *cursor; i < len(stops); i++ {
		if stops[i].StopID == stopID {
			*cursor = i + 1
			return stops[i].StopSequence, true
		}
	}
	return 0, false
}

// upsertStopTime replaces the entry matching stu's key (sequence if
// known, else stop id) or appends it.
func upsertStopTime(tu *tripstate.TripUpdate, stu tripstate.StopTimeUpdate) {
	for i := range tu.StopTimeUpdates {
		existing := tu.StopTimeUpdates[i]
		var match bool
		if stu.HasSequence && existing.HasSequence {
			match = existing.StopSequence == stu.StopSequence
		} else {
			match = existing.StopID == stu.StopID
		}
		if match {
			tu.StopTimeUpdates[i] = stu
			return
		}
	}
	tu.StopTimeUpdates = append(tu.StopTimeUpdates, stu)
}

// sortStopTimeUpdates sorts ascending by sequence; absent sequences
// sort as 0 and cluster at the head, per §4.4.1 step 6.
func sortStopTimeUpdates(stus []tripstate.StopTimeUpdate) {
	for i := 1; i < len(stus); i++ {
		for j := i; j > 0 && stus[j-1].StopSequence > stus[j].StopSequence; j-- {
			stus[j-1], stus[j] = stus[j], stus[j-1]
		}
	}
}

func hasForecast(f *darwinxml.Forecast) bool {
	return f != nil && (f.ET != "" || f.AT != "")
}

func boolVal(b *bool) bool {
	return b != nil && *b
}

func foldTrainOrder(to darwinxml.TrainOrder, state *tripstate.State, idx *schedule.Index) {
	if to.Set == nil {
		return
	}
	slots := []struct {
		slot     *darwinxml.TrainOrderSlot
		sequence int
	}{
		{to.Set.First, 1},
		{to.Set.Second, 2},
		{to.Set.Third, 3},
	}

	stopID, stopKnown := idx.GetStopID(to.Tiploc)

	for _, s := range slots {
		if s.slot == nil || s.slot.RID == nil || s.slot.RID.Value == "" {
			continue
		}
		rid := s.slot.RID.Value
		tripID, ok := state.GetTripIDForRid(rid)
		if !ok {
			continue
		}

		entity := state.GetOrCreateEntity(tripstate.VPKey(tripID))
		entity.Lock()
		if entity.VehiclePosition == nil {
			entity.VehiclePosition = &tripstate.VehiclePosition{TripID: tripID}
		}
		vp := entity.VehiclePosition
		if stopKnown {
			vp.StopID = stopID
		}
		upsertCarriage(vp, tripstate.CarriageDetail{
			ID:       rid,
			Label:    s.slot.TrainID,
			Sequence: s.sequence,
		})
		entity.Unlock()
	}
}

func upsertCarriage(vp *tripstate.VehiclePosition, cd tripstate.CarriageDetail) {
	for i := range vp.Carriages {
		if vp.Carriages[i].Sequence == cd.Sequence {
			vp.Carriages[i] = cd
			sortCarriages(vp.Carriages)
			return
		}
	}
	vp.Carriages = append(vp.Carriages, cd)
	sortCarriages(vp.Carriages)
}

func sortCarriages(cs []tripstate.CarriageDetail) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j-1].Sequence > cs[j].Sequence; j-- {
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}

func foldStationMessage(ow darwinxml.StationMessage, state *tripstate.State) {
	if ow.ID == "" {
		return
	}
	state.SetStationMessage(ow.ID, ow.Category+": "+ow.Body)
}

// foldLoading resolves rid to trip_id and acknowledges the message;
// no state mutation happens until the upstream schema stabilizes
// (§4.4.6, a deliberate placeholder).
func foldLoading(l darwinxml.Loading, state *tripstate.State) {
	_, _ = state.GetTripIDForRid(l.RID)
}

func foldFormation(f darwinxml.Formation, state *tripstate.State) {
	numbers := make([]string, 0, len(f.Coach))
	for _, c := range f.Coach {
		numbers = append(numbers, c.Number)
	}
	label := strings.Join(numbers, "-")

	tripID, ok := state.GetTripIDForRid(f.RID)
	if !ok {
		return
	}

	entity := state.GetOrCreateEntity(tripID)
	entity.Lock()
	if entity.TripUpdate == nil {
		entity.TripUpdate = &tripstate.TripUpdate{TripID: tripID}
	}
	entity.TripUpdate.VehicleLabel = label
	entity.Unlock()

	vpEntity := state.GetOrCreateEntity(tripstate.VPKey(tripID))
	vpEntity.Lock()
	if vpEntity.VehiclePosition == nil {
		vpEntity.VehiclePosition = &tripstate.VehiclePosition{TripID: tripID}
	}
	vpEntity.VehiclePosition.Label = label
	vpEntity.Unlock()
}
