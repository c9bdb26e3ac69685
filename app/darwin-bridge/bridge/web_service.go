package bridge

import (
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"google.golang.org/protobuf/proto"

	"github.com/OpenTransitTools/darwin-bridge/business/core/feedbuild"
	"github.com/OpenTransitTools/darwin-bridge/business/data/schedule"
	"github.com/OpenTransitTools/darwin-bridge/business/data/tripstate"
)

// defaultHandler answers the root path so load balancers have
// something to probe besides the real endpoints.
type defaultHandler struct{}

func (defaultHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

type healthHandler struct {
	state *tripstate.State
	index *schedule.Index
}

func (h healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	count := 0
	h.state.RangeEntities(func(string, *tripstate.Entity) bool { count++; return true })

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"has_gtfs_data": h.index.HasData(),
		"trip_count":    count,
	})
}

type gtfsRTHandler struct {
	log   *logger.Logger
	state *tripstate.State
}

func (h gtfsRTHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	feed := feedbuild.Build(h.state)
	data, err := proto.Marshal(feed)
	if err != nil {
		h.log.Printf("marshaling gtfs-rt feed: %v", err)
		http.Error(w, "error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	if _, err := w.Write(data); err != nil {
		h.log.Printf("writing gtfs-rt response: %v", err)
	}
}

// legacyPlatformHandler serves the v1 platform endpoint (TIPLOC-keyed,
// not trip-keyed). It is retained only as an HTTP read surface and
// always returns an empty JSON object: no v1 table is kept (§9).
type legacyPlatformHandler struct{}

func (legacyPlatformHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{})
}

type platformEntryJSON struct {
	StopID   string `json:"stop_id"`
	Sequence int    `json:"sequence"`
	Platform string `json:"platform"`
}

type platformsV2Handler struct {
	log   *logger.Logger
	state *tripstate.State
}

func (h platformsV2Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	out := map[string][]platformEntryJSON{}
	h.state.RangePlatforms(func(tripID string, entries []tripstate.PlatformInfo) bool {
		rows := make([]platformEntryJSON, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, platformEntryJSON{StopID: e.StopID, Sequence: e.StopSequence, Platform: e.Platform})
		}
		out[tripID] = rows
		return true
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.log.Printf("writing platforms-v2 response: %v", err)
	}
}

func createServer(log *logger.Logger, state *tripstate.State, index *schedule.Index, port int) *http.Server {
	r := mux.NewRouter()
	r.Handle("/", defaultHandler{})
	r.Handle("/healthz", healthHandler{state: state, index: index})
	r.Handle("/gtfs-rt", gtfsRTHandler{log: log, state: state})
	r.Handle("/platforms", legacyPlatformHandler{})
	r.Handle("/platforms-v2", platformsV2Handler{log: log, state: state})

	return &http.Server{
		Addr:         strings.Join([]string{"0.0.0.0", strconv.Itoa(port)}, ":"),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
		Handler:      r,
	}
}

// runWebService starts the HTTP server and terminates it on shutdown.
func runWebService(log *logger.Logger, state *tripstate.State, index *schedule.Index, port int, shutdown <-chan struct{}) {
	srv := createServer(log, state, index, port)
	log.Printf("starting http server on port %d", port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server ended: %s", err)
		}
	}()

	<-shutdown
	log.Printf("stopping http server on shutdown signal")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("error shutting down http server: %s", err)
	}
}
