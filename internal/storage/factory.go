// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/venuemap/explorer/internal/config"
	"github.com/venuemap/explorer/internal/database"
	gormstorage "github.com/venuemap/explorer/internal/storage/gorm"
	"github.com/venuemap/explorer/internal/storage/memory"
)

// NewBackend creates a venue cache based on configuration. The returned
// backend has not been initialized.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "", "none":
		return Nop{}, nil
	case "memory":
		return memory.New(cfg.TTL), nil
	case "sqlite", "postgres":
		m := database.NewManager(log)
		if err := m.Connect(cfg); err != nil {
			return nil, fmt.Errorf("connecting %s cache: %w", cfg.Type, err)
		}
		return gormstorage.New(m, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
