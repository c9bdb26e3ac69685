// Package tripstate holds the process's shared, concurrently accessed
// projection: per-trip stop-time updates, per-trip vehicle positions,
// the v2 platform table, the rid-to-trip map, and station messages.
// Each of the four maps is independent; no cross-map transaction ever
// exists, and no global lock guards any of them. Concurrent readers
// never block on each other, and a write to one key never blocks a
// write to a different key.
package tripstate

import "sync"

// StopTimeUpdate is one stop-level entry within a TripUpdate.
type StopTimeUpdate struct {
	StopID       string
	StopSequence int
	HasSequence  bool
	Arrival      *int64 // epoch seconds
	Departure    *int64 // epoch seconds
}

// CarriageDetail is one vehicle within a formation, sorted by
// Sequence within its owning VehiclePosition.
type CarriageDetail struct {
	ID       string
	Label    string
	Sequence int
}

// VehiclePosition is the formation sidecar stored under
// "{trip_id}_VP".
type VehiclePosition struct {
	TripID    string
	StopID    string
	Label     string
	Carriages []CarriageDetail
}

// TripUpdate is the public projection of one trip.
type TripUpdate struct {
	TripID          string
	StartDate       string
	VehicleLabel    string
	StopTimeUpdates []StopTimeUpdate
}

// Entity is a trip_updates map value: it holds either a TripUpdate or
// a VehiclePosition, never both, per §4's invariant that a
// "{trip_id}_VP" key is always a VehiclePosition and a bare trip_id
// key is always a TripUpdate. Mu guards in-place mutation of whichever
// field is populated; the map itself only needs to synchronize
// creation and deletion of the entity.
type Entity struct {
	mu              sync.Mutex
	TripUpdate      *TripUpdate
	VehiclePosition *VehiclePosition
}

// Lock/Unlock expose the entry-level exclusion to callers that need
// to read-modify-write the entity's contents (C4's fold steps, C5's
// snapshot clone). The map lookup itself requires no lock; only the
// entity's internals do.
func (e *Entity) Lock()   { e.mu.Lock() }
func (e *Entity) Unlock() { e.mu.Unlock() }

type platformEntry struct {
	mu      sync.Mutex
	entries []PlatformInfo
}

// PlatformInfo is one row of the v2 platform table.
type PlatformInfo struct {
	StopID       string
	StopSequence int
	Platform     string
}

// State is the container for C3's four concurrent maps.
type State struct {
	tripUpdates     sync.Map // trip_key (string) -> *Entity
	platforms       sync.Map // trip_id (string) -> *platformEntry
	ridToTrip       sync.Map // rid (string) -> trip_id (string)
	stationMessages sync.Map // message id (string) -> text (string)
}

// New returns an empty State.
func New() *State {
	return &State{}
}

// VPKey derives the trip_updates key for a trip's vehicle-position
// sidecar.
func VPKey(tripID string) string {
	return tripID + "_VP"
}

// GetOrCreateEntity returns the Entity at key, creating an empty one
// if absent. The caller is responsible for populating exactly one of
// TripUpdate/VehiclePosition under the returned lock.
func (s *State) GetOrCreateEntity(key string) *Entity {
	actual, _ := s.tripUpdates.LoadOrStore(key, &Entity{})
	return actual.(*Entity)
}

// LoadEntity returns the Entity at key without creating one.
func (s *State) LoadEntity(key string) (*Entity, bool) {
	v, ok := s.tripUpdates.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Entity), true
}

// DeleteEntity removes a trip_updates key.
func (s *State) DeleteEntity(key string) {
	s.tripUpdates.Delete(key)
}

// RangeEntities calls fn for every trip_updates entry. fn must not
// block for long; it runs while other goroutines may be concurrently
// inserting or deleting unrelated keys.
func (s *State) RangeEntities(fn func(key string, e *Entity) bool) {
	s.tripUpdates.Range(func(k, v interface{}) bool {
		return fn(k.(string), v.(*Entity))
	})
}

// SetRidToTrip records rid -> trip_id. The processor calls it for
// every resolvable TrainStatus of that rid; later calls simply
// overwrite, matching last-writer-wins for a non-authoritative map.
func (s *State) SetRidToTrip(rid, tripID string) {
	s.ridToTrip.Store(rid, tripID)
}

// GetTripIDForRid resolves a previously registered rid.
func (s *State) GetTripIDForRid(rid string) (string, bool) {
	v, ok := s.ridToTrip.Load(rid)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// DeleteRid removes a single rid mapping.
func (s *State) DeleteRid(rid string) {
	s.ridToTrip.Delete(rid)
}

// RangeRidToTrip calls fn for every rid -> trip_id entry.
func (s *State) RangeRidToTrip(fn func(rid, tripID string) bool) {
	s.ridToTrip.Range(func(k, v interface{}) bool {
		return fn(k.(string), v.(string))
	})
}

// UpsertPlatform replaces the entry matching info.StopSequence, or
// appends it, then re-sorts by sequence. Suppressed platforms are
// never passed here by the caller — see the processor.
func (s *State) UpsertPlatform(tripID string, info PlatformInfo) {
	actual, _ := s.platforms.LoadOrStore(tripID, &platformEntry{})
	pe := actual.(*platformEntry)

	pe.mu.Lock()
	defer pe.mu.Unlock()

	replaced := false
	for i := range pe.entries {
		if pe.entries[i].StopSequence == info.StopSequence {
			pe.entries[i] = info
			replaced = true
			break
		}
	}
	if !replaced {
		pe.entries = append(pe.entries, info)
	}
	sortPlatforms(pe.entries)
}

// GetPlatforms returns a copy of tripID's platform list.
func (s *State) GetPlatforms(tripID string) []PlatformInfo {
	v, ok := s.platforms.Load(tripID)
	if !ok {
		return nil
	}
	pe := v.(*platformEntry)
	pe.mu.Lock()
	defer pe.mu.Unlock()
	out := make([]PlatformInfo, len(pe.entries))
	copy(out, pe.entries)
	return out
}

// DeletePlatforms removes tripID's whole platform list.
func (s *State) DeletePlatforms(tripID string) {
	s.platforms.Delete(tripID)
}

// RangePlatforms calls fn with a copy of each trip's platform list.
func (s *State) RangePlatforms(fn func(tripID string, entries []PlatformInfo) bool) {
	s.platforms.Range(func(k, v interface{}) bool {
		pe := v.(*platformEntry)
		pe.mu.Lock()
		cp := make([]PlatformInfo, len(pe.entries))
		copy(cp, pe.entries)
		pe.mu.Unlock()
		return fn(k.(string), cp)
	})
}

// SetStationMessage stores "{category}: {body}" under id, last
// writer wins.
func (s *State) SetStationMessage(id, text string) {
	s.stationMessages.Store(id, text)
}

// RangeStationMessages calls fn for every station message.
func (s *State) RangeStationMessages(fn func(id, text string) bool) {
	s.stationMessages.Range(func(k, v interface{}) bool {
		return fn(k.(string), v.(string))
	})
}

func sortPlatforms(entries []PlatformInfo) {
	// insertion sort: platform lists are short (a handful of stops
	// per trip) so this avoids pulling in sort.Slice's reflection
	// overhead for what is, in practice, a tiny list kept sorted
	// incrementally.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].StopSequence > entries[j].StopSequence; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}
