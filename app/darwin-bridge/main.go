package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"

	"github.com/OpenTransitTools/darwin-bridge/app/darwin-bridge/bridge"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "DARWIN_BRIDGE : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	// Best-effort: a local .env is a convenience for development, not
	// a requirement, so a missing file is not an error.
	_ = godotenv.Load()

	var cfg struct {
		conf.Version
		Args   conf.Args
		Port   int `conf:"default:3000"`
		Darwin struct {
			User string `conf:"required,noprint"`
			Pass string `conf:"required,noprint"`
			Host string `conf:"default:darwin-dist-44ae45.nationalrail.co.uk"`
			Port int    `conf:"default:61613"`
		}
		GTFS struct {
			Url                    string `conf:"default:"`
			RefreshIntervalSeconds int    `conf:"default:3600"`
		}
		Data struct {
			Dir string `conf:"default:./data"`
		}
		GC struct {
			ThresholdSeconds int `conf:"default:3600"`
			IntervalSeconds  int `conf:"default:300"`
		}
		Snapshot struct {
			IntervalSeconds int `conf:"default:60"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Bridge Darwin Push Port updates into a GTFS-Realtime feed"
	const prefix = ""
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	bridge.StartServices(log, bridge.Config{
		DarwinUser: cfg.Darwin.User,
		DarwinPass: cfg.Darwin.Pass,
		DarwinHost: cfg.Darwin.Host,
		DarwinPort: cfg.Darwin.Port,

		GTFSURL: cfg.GTFS.Url,

		HTTPPort: cfg.Port,
		DataDir:  cfg.Data.Dir,

		GCThreshold:      time.Duration(cfg.GC.ThresholdSeconds) * time.Second,
		GCInterval:       time.Duration(cfg.GC.IntervalSeconds) * time.Second,
		SnapshotInterval: time.Duration(cfg.Snapshot.IntervalSeconds) * time.Second,
		GTFSRefresh:      time.Duration(cfg.GTFS.RefreshIntervalSeconds) * time.Second,
	}, shutdown)

	return nil
}
