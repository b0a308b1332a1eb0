package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oriumgames/catacombs"
	"github.com/oriumgames/catacombs/dfworld"
	"github.com/oriumgames/catacombs/hud"
	"github.com/oriumgames/catacombs/internal/logger"
)

func main() {
	var (
		replayPath  string
		serveAddr   string
		connectAddr string
		hudAddr     string
		dataDir     string
		patternsURL string
		roomsURL    string
		mayorURL    string
		local       string
		tickDelay   time.Duration
	)
	flag.StringVar(&replayPath, "replay", "", "JSON lines event log to replay (- for stdin)")
	flag.StringVar(&serveAddr, "serve", "", "run a Dragonfly server on this address and track the -local player in it")
	flag.StringVar(&connectAddr, "connect", "", "join a Bedrock server at this address as -local and track the run from its packets")
	flag.StringVar(&hudAddr, "hud", "", "address to serve the HUD WebSocket feed on, e.g. :8080")
	flag.StringVar(&dataDir, "data", "data", "directory for caches and run history")
	flag.StringVar(&patternsURL, "patterns", catacombs.PatternDocumentURL, "pattern document URL (empty for built-in patterns)")
	flag.StringVar(&roomsURL, "rooms", catacombs.RoomDatabaseURL, "room database URL (empty to run without room data)")
	flag.StringVar(&mayorURL, "mayor", catacombs.ElectionURL, "election resource URL (empty to skip the mayor bonus)")
	flag.StringVar(&local, "local", "", "name of the tracked player")
	flag.DurationVar(&tickDelay, "tick-delay", 0, "delay after each replayed tick, 50ms for real time")
	flag.Parse()

	log := logger.Init()
	if err := run(log, options{
		replayPath:  replayPath,
		serveAddr:   serveAddr,
		connectAddr: connectAddr,
		hudAddr:     hudAddr,
		dataDir:     dataDir,
		patternsURL: patternsURL,
		roomsURL:    roomsURL,
		mayorURL:    mayorURL,
		local:       local,
		tickDelay:   tickDelay,
	}); err != nil {
		log.WithError(err).Fatal("catacombs: exiting")
	}
}

type options struct {
	replayPath  string
	serveAddr   string
	connectAddr string
	hudAddr     string
	dataDir     string
	patternsURL string
	roomsURL    string
	mayorURL    string
	local       string
	tickDelay   time.Duration
}

func run(log *logrus.Logger, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.serveAddr != "" && opts.connectAddr != "" {
		return errors.New("-serve and -connect cannot be combined")
	}
	if opts.replayPath != "" && (opts.serveAddr != "" || opts.connectAddr != "") {
		return errors.New("-replay cannot be combined with -serve or -connect")
	}
	if (opts.serveAddr != "" || opts.connectAddr != "") && opts.local == "" {
		return errors.New("-local is required to pick the tracked player")
	}

	cfg := catacombs.DefaultConfig()
	cacheDir := filepath.Join(opts.dataDir, "cache")
	popts := []catacombs.ProviderOption{catacombs.WithProviderLogger(log)}
	if opts.patternsURL != "" {
		cfg.Patterns = catacombs.NewURLProvider[catacombs.PatternDocument]("patterns", opts.patternsURL, filepath.Join(cacheDir, "patterns.json"), popts...)
	}
	if opts.roomsURL != "" {
		roomOpts := append(popts, catacombs.WithCacheLimit(24*60*60_000))
		cfg.Rooms = catacombs.NewURLProvider[[]catacombs.RoomData]("rooms", opts.roomsURL, filepath.Join(cacheDir, "rooms.json"), roomOpts...)
	}
	if opts.mayorURL != "" {
		cfg.Mayor = catacombs.NewURLProvider[catacombs.MayorDocument]("mayor", opts.mayorURL, "", popts...)
	}
	cfg.History = catacombs.OpenLocalStore(opts.dataDir, filepath.Join(opts.dataDir, "backup"), "history.json", catacombs.DefaultHistory, log)

	var (
		tracker *catacombs.Tracker
		svc     *catacombs.Service
		driver  *dfworld.Driver
		world   = catacombs.NewMemoryWorld()
		roster  = catacombs.NewStaticRoster(opts.local)
	)
	if opts.serveAddr != "" {
		driver = dfworld.NewDriver(nil, opts.local, cfg, log)
		tracker, svc = driver.Tracker(), driver.Service()
	} else {
		tracker = catacombs.NewBuilder().
			World(world).
			Roster(roster).
			Logger(log).
			Init()
		svc = catacombs.NewService(tracker, cfg)
	}
	tracker.Dungeon().
		On270Score(func(e catacombs.EventScore) {
			log.WithField("score", e.Score.Score).Info("270 score reached")
		}).
		On300Score(func(e catacombs.EventScore) {
			log.WithField("score", e.Score.Score).Info("300 score reached")
		})
	tracker.Scanner().OnRoomEnter(func(e catacombs.EventRoomEnter) {
		if e.Room != nil {
			log.WithField("room", e.Room.Name()).Debug("entered room")
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	if opts.hudAddr != "" {
		h := hud.NewHub(log)
		svc.OnSnapshot(h.Publish)
		srv := &http.Server{Addr: opts.hudAddr, Handler: h.Handler()}
		g.Go(func() error {
			log.WithField("addr", opts.hudAddr).Info("serving HUD feed")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if opts.replayPath == "" {
		g.Go(func() error {
			return svc.Run(gctx)
		})
		switch {
		case driver != nil:
			g.Go(func() error {
				return serve(gctx, log, driver, opts.serveAddr)
			})
		case opts.connectAddr != "":
			g.Go(func() error {
				return connect(gctx, log, svc, opts.connectAddr, opts.local)
			})
		}
		return g.Wait()
	}

	g.Go(func() error {
		defer stop()
		if err := svc.Load(gctx); err != nil {
			return err
		}
		in := os.Stdin
		if opts.replayPath != "-" {
			f, err := os.Open(opts.replayPath)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		r := &replayer{svc: svc, world: world, roster: roster, delay: opts.tickDelay}
		lines, err := r.run(gctx, in)
		svc.Persist()
		if err != nil {
			return err
		}

		snap := svc.Snapshot()
		log.WithFields(logrus.Fields{
			"lines": lines,
			"floor": snap.Floor,
			"score": snap.Score.Score,
			"rooms": len(snap.Rooms),
			"time":  snap.Time,
		}).Info("replay finished")
		return nil
	})
	return g.Wait()
}
