// Package gc implements C6: eviction of trips whose last observed
// activity is older than a configured threshold.
package gc

import (
	"log"
	"time"

	"github.com/OpenTransitTools/darwin-bridge/business/data/tripstate"
)

// Collector periodically walks trip_updates and removes trips that
// have gone stale.
type Collector struct {
	State     *tripstate.State
	Threshold time.Duration
	Interval  time.Duration
	Log       *log.Logger
}

// Run loops on Interval until shutdown is closed.
func (c *Collector) Run(shutdown <-chan struct{}) {
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			n := c.Sweep(time.Now())
			if n > 0 {
				c.Log.Printf("gc: removed %d expired trips", n)
			}
		}
	}
}

// Sweep runs a single collection pass and returns the number of trips
// removed. Entities with no extractable times are preserved
// unconditionally, and a TrainOrder-only vehicle-position sidecar
// ("{trip_id}_VP") is never itself a collection candidate — only keys
// holding a TripUpdate are considered, matching the walk's scope.
func (c *Collector) Sweep(now time.Time) int {
	nowUnix := now.Unix()
	threshold := int64(c.Threshold / time.Second)

	var toRemove []string
	c.State.RangeEntities(func(key string, e *tripstate.Entity) bool {
		e.Lock()
		tu := e.TripUpdate
		var lastActivity *int64
		if tu != nil {
			for _, stu := range tu.StopTimeUpdates {
				maxInto(&lastActivity, stu.Arrival)
				maxInto(&lastActivity, stu.Departure)
			}
		}
		e.Unlock()

		if tu != nil && lastActivity != nil && *lastActivity+threshold < nowUnix {
			toRemove = append(toRemove, key)
		}
		return true
	})

	if len(toRemove) == 0 {
		return 0
	}

	removed := make(map[string]struct{}, len(toRemove))
	for _, tripID := range toRemove {
		c.State.DeleteEntity(tripID)
		c.State.DeletePlatforms(tripID)
		removed[tripID] = struct{}{}
	}

	var staleRids []string
	c.State.RangeRidToTrip(func(rid, tripID string) bool {
		if _, stale := removed[tripID]; stale {
			staleRids = append(staleRids, rid)
		}
		return true
	})
	for _, rid := range staleRids {
		c.State.DeleteRid(rid)
	}

	return len(toRemove)
}

func maxInto(dst **int64, candidate *int64) {
	if candidate == nil {
		return
	}
	if *dst == nil || *candidate > **dst {
		*dst = candidate
	}
}
