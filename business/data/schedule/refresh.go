package schedule

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/OpenTransitTools/darwin-bridge/foundation/httpclient"
)

// Refresher owns the background hourly reload of the static index: it
// downloads the configured feed to a temp file, parses it off to the
// side, and swaps the built index into Index atomically. Failures at
// any step log and leave the previous index in service.
type Refresher struct {
	URL      string
	Index    *Index
	Interval time.Duration
	Log      *log.Logger
}

// LoadInitial runs one synchronous load at startup. Failure is
// non-fatal: the periodic updater will retry.
func (r *Refresher) LoadInitial(ctx context.Context) {
	if err := r.reload(ctx); err != nil {
		r.Log.Printf("initial gtfs load failed (will retry): %v", err)
	}
}

// Run loops on Interval until shutdown is closed, reloading the feed
// each tick.
func (r *Refresher) Run(ctx context.Context, shutdown <-chan struct{}) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			if err := r.reload(ctx); err != nil {
				r.Log.Printf("gtfs refresh failed, keeping previous index: %v", err)
			} else {
				r.Log.Printf("gtfs index refreshed")
			}
		}
	}
}

func (r *Refresher) reload(ctx context.Context) error {
	tmp, err := os.CreateTemp("", "gtfs-*.zip")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := httpclient.DownloadRemoteFile(ctx, tmpPath, r.URL); err != nil {
		return err
	}

	buf, err := os.ReadFile(tmpPath)
	if err != nil {
		return err
	}

	data, err := LoadZip(buf)
	if err != nil {
		return err
	}

	r.Index.Swap(data)
	return nil
}
