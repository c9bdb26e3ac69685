// Package bridge wires together the Darwin ingress, the stream
// processor, the static schedule index, the shared trip state, the
// background workers (GTFS refresh, snapshot, GC), and the HTTP
// egress into one supervised process.
package bridge

import (
	"context"
	logger "log"
	"os"
	"sync"
	"time"

	"github.com/OpenTransitTools/darwin-bridge/business/core/gc"
	"github.com/OpenTransitTools/darwin-bridge/business/core/snapshot"
	"github.com/OpenTransitTools/darwin-bridge/business/data/schedule"
	"github.com/OpenTransitTools/darwin-bridge/business/data/tripstate"
)

// Config bundles everything StartServices needs to bring the system
// up. Fields map directly to the environment contract.
type Config struct {
	DarwinUser string
	DarwinPass string
	DarwinHost string
	DarwinPort int

	GTFSURL string

	HTTPPort int

	DataDir string

	GCThreshold      time.Duration
	GCInterval       time.Duration
	SnapshotInterval time.Duration
	GTFSRefresh      time.Duration
}

// StartServices brings up every worker and blocks until shutdownSignal
// fires, then stops them all and waits for a clean exit. This
// generalizes the three-worker supervisor this lineage has always
// used to six: GTFS refresh, snapshot writer, garbage collector,
// STOMP ingress, and the HTTP server, plus this goroutine itself
// waiting on the OS signal.
func StartServices(log *logger.Logger, cfg Config, shutdownSignal chan os.Signal) {
	wg := sync.WaitGroup{}

	state := tripstate.New()
	index := schedule.NewIndex()

	snapshot.Restore(cfg.DataDir, state, log)

	refresher := &schedule.Refresher{
		URL:      cfg.GTFSURL,
		Index:    index,
		Interval: cfg.GTFSRefresh,
		Log:      log,
	}
	refresher.LoadInitial(context.Background())

	snapshotWriter := &snapshot.Writer{
		State:    state,
		Dir:      cfg.DataDir,
		Interval: cfg.SnapshotInterval,
		Log:      log,
	}
	collector := &gc.Collector{
		State:     state,
		Threshold: cfg.GCThreshold,
		Interval:  cfg.GCInterval,
		Log:       log,
	}
	ingress := &Ingress{
		Host:  cfg.DarwinHost,
		Port:  cfg.DarwinPort,
		User:  cfg.DarwinUser,
		Pass:  cfg.DarwinPass,
		State: state,
		Index: index,
		Log:   log,
	}

	refreshShutdown := make(chan struct{})
	snapshotShutdown := make(chan struct{})
	gcShutdown := make(chan struct{})
	ingressShutdown := make(chan struct{})
	webShutdown := make(chan struct{})

	wg.Add(5)
	go func() { defer wg.Done(); refresher.Run(context.Background(), refreshShutdown) }()
	go func() { defer wg.Done(); snapshotWriter.Run(snapshotShutdown) }()
	go func() { defer wg.Done(); collector.Run(gcShutdown) }()
	go func() { defer wg.Done(); ingress.Run(ingressShutdown) }()
	go func() { defer wg.Done(); runWebService(log, state, index, cfg.HTTPPort, webShutdown) }()

	<-shutdownSignal
	log.Printf("exiting on shutdown signal, stopping subroutines")
	close(refreshShutdown)
	close(snapshotShutdown)
	close(gcShutdown)
	close(ingressShutdown)
	close(webShutdown)
	wg.Wait()
	log.Printf("subroutines stopped, exiting")
}
