package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/venuemap/explorer/internal/config"
	"github.com/venuemap/explorer/internal/dispatcher"
	"github.com/venuemap/explorer/internal/export"
	"github.com/venuemap/explorer/internal/intent"
	"github.com/venuemap/explorer/internal/logging"
	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/venuemap/explorer/internal/panel"
	"github.com/venuemap/explorer/internal/surface/headless"
	"github.com/venuemap/explorer/internal/venue"
	"github.com/venuemap/explorer/pkg/core"
)

// newHeadlessController builds a controller over an in-process surface for
// the commands that have no browser attached.
func newHeadlessController(svc *services) (*mapctl.Controller, error) {
	mapCfg := config.GetMapConfig()
	imgCfg := config.GetImageryConfig()
	for _, cfg := range []any{mapCfg, imgCfg} {
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}

	surf := headless.New(core.Coordinate{Lat: mapCfg.CenterLat, Lng: mapCfg.CenterLng})
	opts := []mapctl.Option{
		mapctl.WithLogger(Logger),
		mapctl.WithNotifier(mapctl.NotifierFunc(func(n mapctl.Notification) {
			Logger.Info("Notification", "kind", n.Kind, "generation", n.Generation, "message", n.Message)
		})),
	}
	if svc.imagery != nil {
		opts = append(opts, mapctl.WithImagery(svc.imagery))
	}
	ctl, err := mapctl.New(controllerConfig(mapCfg, imgCfg), svc.searcher, surf, surf, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating map controller: %w", err)
	}
	return ctl, nil
}

// runPanel drives the terminal list panel.
func runPanel(ctx context.Context) error {
	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctl, err := newHeadlessController(svc)
	if err != nil {
		return err
	}
	defer ctl.Wait()

	srvCfg := config.GetServerConfig()
	d, err := dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	defer d.Close()
	intent.Register(d, ctl, intent.Options{
		QueryTimeout: srvCfg.QueryTimeout,
		QueryBuffer:  srvCfg.IntentBuffer,
	})

	if q, ok := initialQuery(config.GetMapConfig()); ok {
		go func() {
			if _, err := ctl.RunQuery(ctx, q); err != nil {
				Logger.Warn("Initial query failed", "error", err)
			}
		}()
	}

	_, err = tea.NewProgram(panel.New(ctl, d), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("panel: %w", err)
	}
	return nil
}

// runExport runs a single query and writes the resulting markers to file.
func runExport(ctx context.Context, text, file string) error {
	q := venue.ParseQueryText(text)
	if q.Near == "" {
		return fmt.Errorf("export: empty query text")
	}
	if !strings.EqualFold(filepath.Ext(file), ".xlsx") {
		file += ".xlsx"
	}

	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctl, err := newHeadlessController(svc)
	if err != nil {
		return err
	}

	srvCfg := config.GetServerConfig()
	qctx, cancel := context.WithTimeout(ctx, srvCfg.QueryTimeout)
	defer cancel()
	report, err := ctl.RunQuery(qctx, q)
	if err != nil {
		return fmt.Errorf("export query: %w", err)
	}
	ctl.Wait()

	entries := ctl.Entries()
	if len(entries) == 0 {
		return fmt.Errorf("export: no venues found for %q", text)
	}

	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := export.Write(f, entries); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	Logger.Info("Exported markers", "file", file, "count", len(entries), "failed", report.Failed)
	fmt.Printf("wrote %d venues to %s\n", len(entries), file)
	return nil
}
