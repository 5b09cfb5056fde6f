package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/venuemap/explorer/internal/config"
	"github.com/venuemap/explorer/internal/dispatcher"
	"github.com/venuemap/explorer/internal/influx"
	"github.com/venuemap/explorer/internal/intent"
	"github.com/venuemap/explorer/internal/logging"
	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/venuemap/explorer/internal/monitor"
	"github.com/venuemap/explorer/internal/queue"
	"github.com/venuemap/explorer/internal/server"
	"github.com/venuemap/explorer/internal/surface/websocket"
	"github.com/venuemap/explorer/pkg/core"
	"golang.org/x/sync/errgroup"
)

// serve wires the controller to the websocket surface and the HTTP API and
// runs until ctx is cancelled.
func serve(ctx context.Context) error {
	mapCfg := config.GetMapConfig()
	srvCfg := config.GetServerConfig()
	imgCfg := config.GetImageryConfig()
	for _, cfg := range []any{mapCfg, srvCfg, imgCfg} {
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	center := core.Coordinate{Lat: mapCfg.CenterLat, Lng: mapCfg.CenterLng}
	hub := websocket.NewHub(center, Logger)
	defer hub.Close()

	notes := queue.NewBounded[mapctl.Notification](srvCfg.NotificationCap)
	notifier := mapctl.NotifierFunc(func(n mapctl.Notification) {
		if dropped := notes.Push(n); dropped > 0 {
			Logger.Debug("Dropped old notifications", "count", dropped)
		}
		hub.Notify(n)
	})

	opts := []mapctl.Option{
		mapctl.WithLogger(Logger),
		mapctl.WithNotifier(notifier),
	}
	if svc.imagery != nil {
		opts = append(opts, mapctl.WithImagery(svc.imagery))
	}

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backupPath := logging.SessionFile(config.GetString("logsDir"), AppName, "rounds.lp.gz", SessionStartTime)
		im := influx.NewManager(logging.NewZerolog(LogFile, config.GetString("logLevel"), "influx"), influxCfg, backupPath)
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := im.Connect(connectCtx)
		cancel()
		if err != nil {
			Logger.Warn("Query round metrics disabled", "error", err)
		} else {
			defer func() {
				if err := im.Close(); err != nil {
					Logger.Warn("Failed to close influx manager", "error", err)
				}
			}()
			opts = append(opts, mapctl.WithObserver(im))
		}
	}

	ctl, err := mapctl.New(controllerConfig(mapCfg, imgCfg), svc.searcher, hub, hub, opts...)
	if err != nil {
		return fmt.Errorf("creating map controller: %w", err)
	}
	defer ctl.Wait()

	d, err := dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	defer d.Close()
	intent.Register(d, ctl, intent.Options{
		QueryTimeout: srvCfg.QueryTimeout,
		QueryBuffer:  srvCfg.IntentBuffer,
	})
	hub.SetDispatcher(d)

	mon := monitor.NewService(monitor.Dependencies{
		Store:      svc.store,
		Snapshot:   ctl.Snapshot,
		Pending:    notes.Len,
		Clients:    hub.Clients,
		StatusPath: filepath.Join(config.GetString("logsDir"), "status.json"),
		Interval:   time.Minute,
		Logger:     Logger,
	})
	if err := mon.Start(ctx); err != nil {
		return err
	}
	defer mon.Stop()

	srv := server.New(srvCfg, d, ctl, notes, Logger,
		server.WithWebsocket(hub),
		server.WithMetrics(OTelProvider.Collect),
	)

	g, gctx := errgroup.WithContext(ctx)
	if q, ok := initialQuery(mapCfg); ok {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, srvCfg.QueryTimeout)
			defer cancel()
			report, err := ctl.RunQuery(qctx, q)
			if err != nil {
				Logger.Warn("Initial query failed", "near", q.Near, "error", err)
				return nil
			}
			Logger.Info("Initial query finished", "generation", report.Generation, "markers", report.Succeeded)
			return nil
		})
	}
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	return g.Wait()
}
