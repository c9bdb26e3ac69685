// Package snapshot implements C5: periodic durable writes of the
// trip-update projection and the v2 platform table, and restoring
// both on startup.
package snapshot

import (
	"bytes"
	"encoding/gob"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"

	"github.com/OpenTransitTools/darwin-bridge/business/core/feedbuild"
	"github.com/OpenTransitTools/darwin-bridge/business/data/tripstate"
)

const (
	tripsFileName     = "trips.pb"
	platformsFileName = "platforms_v2.bin"
)

// Writer owns the periodic snapshot worker.
type Writer struct {
	State    *tripstate.State
	Dir      string
	Interval time.Duration
	Log      *log.Logger
}

// Run writes a snapshot every Interval until shutdown is closed.
// Snapshots are not awaited at process shutdown; the periodic cadence
// is what provides restart tolerance.
func (w *Writer) Run(shutdown <-chan struct{}) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			if err := w.WriteOnce(); err != nil {
				w.Log.Printf("snapshot write failed, will retry next tick: %v", err)
			}
		}
	}
}

// WriteOnce writes both files, each atomically-at-file-granularity
// via a temp file plus rename within Dir.
func (w *Writer) WriteOnce() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}

	feed := feedbuild.Build(w.State)
	tripsBytes, err := proto.Marshal(feed)
	if err != nil {
		return err
	}
	if err := atomicWrite(w.Dir, tripsFileName, tripsBytes); err != nil {
		return err
	}

	platforms := map[string][]tripstate.PlatformInfo{}
	w.State.RangePlatforms(func(tripID string, entries []tripstate.PlatformInfo) bool {
		platforms[tripID] = entries
		return true
	})
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(platforms); err != nil {
		return err
	}
	return atomicWrite(w.Dir, platformsFileName, buf.Bytes())
}

func atomicWrite(dir, name string, data []byte) error {
	tmpPath := filepath.Join(dir, "."+name+"-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(dir, name))
}

// Restore reads both files from dir, if present, and re-inserts trip
// entities under their entity id. Decode failures are logged and
// ignored: a partial restore is acceptable because the stream will
// repopulate missing state.
func Restore(dir string, state *tripstate.State, logger *log.Logger) {
	restoreTrips(dir, state, logger)
	restorePlatforms(dir, state, logger)
}

func restoreTrips(dir string, state *tripstate.State, logger *log.Logger) {
	path := filepath.Join(dir, tripsFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Printf("snapshot restore: reading %s: %v", path, err)
		}
		return
	}

	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(raw, &feed); err != nil {
		logger.Printf("snapshot restore: decoding %s: %v", path, err)
		return
	}

	for _, fe := range feed.Entity {
		if fe.Id == nil {
			continue
		}
		entity := state.GetOrCreateEntity(*fe.Id)
		entity.Lock()
		switch {
		case fe.TripUpdate != nil:
			entity.TripUpdate = restoreTripUpdate(fe.TripUpdate)
		case fe.Vehicle != nil:
			entity.VehiclePosition = restoreVehiclePosition(fe.Vehicle)
		}
		entity.Unlock()
	}
}

func restoreTripUpdate(tu *gtfs.TripUpdate) *tripstate.TripUpdate {
	out := &tripstate.TripUpdate{}
	if tu.Trip != nil {
		if tu.Trip.TripId != nil {
			out.TripID = *tu.Trip.TripId
		}
		if tu.Trip.StartDate != nil {
			out.StartDate = *tu.Trip.StartDate
		}
	}
	if tu.Vehicle != nil && tu.Vehicle.Label != nil {
		out.VehicleLabel = *tu.Vehicle.Label
	}
	for _, stu := range tu.StopTimeUpdate {
		var s tripstate.StopTimeUpdate
		if stu.StopId != nil {
			s.StopID = *stu.StopId
		}
		if stu.StopSequence != nil {
			s.StopSequence = int(*stu.StopSequence)
			s.HasSequence = true
		}
		if stu.Arrival != nil && stu.Arrival.Time != nil {
			t := *stu.Arrival.Time
			s.Arrival = &t
		}
		if stu.Departure != nil && stu.Departure.Time != nil {
			t := *stu.Departure.Time
			s.Departure = &t
		}
		out.StopTimeUpdates = append(out.StopTimeUpdates, s)
	}
	return out
}

func restoreVehiclePosition(vp *gtfs.VehiclePosition) *tripstate.VehiclePosition {
	out := &tripstate.VehiclePosition{}
	if vp.Trip != nil && vp.Trip.TripId != nil {
		out.TripID = *vp.Trip.TripId
	}
	if vp.StopId != nil {
		out.StopID = *vp.StopId
	}
	if vp.Vehicle != nil && vp.Vehicle.Label != nil {
		out.Label = *vp.Vehicle.Label
	}
	for _, cd := range vp.MultiCarriageDetails {
		var c tripstate.CarriageDetail
		if cd.Id != nil {
			c.ID = *cd.Id
		}
		if cd.Label != nil {
			c.Label = *cd.Label
		}
		if cd.CarriageSequence != nil {
			c.Sequence = int(*cd.CarriageSequence)
		}
		out.Carriages = append(out.Carriages, c)
	}
	return out
}

func restorePlatforms(dir string, state *tripstate.State, logger *log.Logger) {
	path := filepath.Join(dir, platformsFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Printf("snapshot restore: reading %s: %v", path, err)
		}
		return
	}

	var platforms map[string][]tripstate.PlatformInfo
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&platforms); err != nil {
		logger.Printf("snapshot restore: decoding %s: %v", path, err)
		return
	}

	for tripID, entries := range platforms {
		for _, info := range entries {
			state.UpsertPlatform(tripID, info)
		}
	}
}
