package main

import (
	"fmt"

	"github.com/venuemap/explorer/internal/config"
	"github.com/venuemap/explorer/internal/imagery"
	"github.com/venuemap/explorer/internal/logging"
	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/venuemap/explorer/internal/storage"
	"github.com/venuemap/explorer/internal/venue"
	"github.com/venuemap/explorer/pkg/core"
)

// services are the dependencies shared by every command.
type services struct {
	store    storage.Backend
	searcher venue.Searcher
	imagery  imagery.Provider
}

func (s *services) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		Logger.Warn("Failed to close venue cache", "error", err)
	}
}

func newServices() (*services, error) {
	fsCfg := config.GetFoursquareConfig()
	if err := config.Validate(fsCfg); err != nil {
		return nil, fmt.Errorf("foursquare: %w", err)
	}

	storageCfg := config.GetStorageConfig()
	if err := config.Validate(storageCfg); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	store, err := createStorageBackend(storageCfg)
	if err != nil {
		return nil, err
	}

	client := venue.New(venue.Config{
		BaseURL:           fsCfg.BaseURL,
		ClientID:          fsCfg.ClientID,
		ClientSecret:      fsCfg.ClientSecret,
		Version:           fsCfg.Version,
		Mode:              fsCfg.Mode,
		Timeout:           fsCfg.Timeout,
		RequestsPerSecond: fsCfg.RequestsPerSecond,
		Burst:             fsCfg.Burst,
	}, Logger)

	s := &services{
		store:    store,
		searcher: venue.NewCachingClient(client, store, Logger),
	}

	imgCfg := config.GetImageryConfig()
	switch {
	case !imgCfg.Enabled:
		Logger.Info("Street-level imagery disabled")
	case imgCfg.APIKey == "":
		Logger.Warn("Street-level imagery enabled without an API key, skipping lookups")
	default:
		s.imagery = imagery.NewStreetView(imagery.Config{
			BaseURL: imgCfg.BaseURL,
			APIKey:  imgCfg.APIKey,
			Radius:  imgCfg.Radius,
			Timeout: imgCfg.Timeout,
		}, Logger)
	}
	return s, nil
}

func createStorageBackend(cfg config.StorageConfig) (storage.Backend, error) {
	backend, err := storage.NewBackend(cfg, logging.NewZerolog(LogFile, config.GetString("logLevel"), "database"))
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		_ = backend.Close()
		return nil, err
	}
	Logger.Info("Venue cache initialized", "type", cfg.Type, "ttl", cfg.TTL)
	return backend, nil
}

// controllerConfig maps the map and imagery settings onto the controller.
func controllerConfig(m config.MapConfig, img config.ImageryConfig) mapctl.Config {
	cfg := mapctl.DefaultConfig()
	cfg.Center = core.Coordinate{Lat: m.CenterLat, Lng: m.CenterLng}
	if m.Width > 0 {
		cfg.Width = m.Width
	}
	if m.Height > 0 {
		cfg.Height = m.Height
	}
	if m.Breakpoint > 0 {
		cfg.Breakpoint = m.Breakpoint
	}
	if m.Checkpoint > 0 {
		cfg.Checkpoint = m.Checkpoint
	}
	if m.MaxConcurrentDetails > 0 {
		cfg.MaxConcurrentDetails = m.MaxConcurrentDetails
	}
	if img.Radius > 0 {
		cfg.ImageryRadius = img.Radius
	}
	if img.Timeout > 0 {
		cfg.ImageryTimeout = img.Timeout
	}
	return cfg
}

// initialQuery returns the query run at startup, if any.
func initialQuery(m config.MapConfig) (core.ExploreQuery, bool) {
	q := core.ExploreQuery{
		Term:     m.Initial.Term,
		Near:     m.Initial.Near,
		Category: m.Initial.Category,
	}
	return q, q.Near != ""
}
