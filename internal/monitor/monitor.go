package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/venuemap/explorer/internal/mapctl"
)

// Purger drops expired cache entries.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Store      Purger
	Snapshot   func() mapctl.State
	Pending    func() int
	Clients    func() int
	StatusPath string
	Interval   time.Duration
	Logger     *slog.Logger
}

// Status is written to the status file on every tick.
type Status struct {
	Time                 time.Time `json:"time"`
	Generation           uint64    `json:"generation"`
	Mode                 string    `json:"mode"`
	Markers              int       `json:"markers"`
	Visible              int       `json:"visible"`
	Active               string    `json:"active,omitempty"`
	Filtering            bool      `json:"filtering"`
	PendingNotifications int       `json:"pendingNotifications"`
	Clients              int       `json:"clients"`
	Purged               int       `json:"purged"`
}

// Service periodically purges the venue cache and reports program status.
type Service struct {
	deps      Dependencies
	isRunning bool
	purged    int
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current program status.
func (s *Service) GetProgramStatus() Status {
	s.mu.RLock()
	st := Status{Time: time.Now().UTC(), Purged: s.purged}
	s.mu.RUnlock()

	if s.deps.Snapshot != nil {
		snap := s.deps.Snapshot()
		st.Generation = snap.Generation
		st.Mode = snap.Mode
		st.Active = snap.Active
		st.Filtering = snap.Filtering
		st.Markers = len(snap.Markers)
		for _, m := range snap.Markers {
			if m.Visible {
				st.Visible++
			}
		}
	}
	if s.deps.Pending != nil {
		st.PendingNotifications = s.deps.Pending()
	}
	if s.deps.Clients != nil {
		st.Clients = s.deps.Clients()
	}
	return st
}

// Tick runs one purge and status write.
func (s *Service) Tick(ctx context.Context) (Status, error) {
	if s.deps.Store != nil {
		n, err := s.deps.Store.Purge(ctx)
		if err != nil {
			s.deps.Logger.Error("Error purging venue cache", "error", err)
		} else if n > 0 {
			s.mu.Lock()
			s.purged += n
			s.mu.Unlock()
			s.deps.Logger.Debug("Purged venue cache", "count", n)
		}
	}

	st := s.GetProgramStatus()
	if s.deps.StatusPath == "" {
		return st, nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return st, fmt.Errorf("error encoding status: %w", err)
	}
	if err := os.WriteFile(s.deps.StatusPath, data, 0o644); err != nil {
		return st, fmt.Errorf("error writing status file: %w", err)
	}
	return st, nil
}

// Start starts the status monitor goroutine
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Tick(ctx); err != nil {
					s.deps.Logger.Error("Status monitor tick failed", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning || s.stopChan == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.stopChan = nil
	done := s.done
	s.mu.Unlock()
	<-done
}
