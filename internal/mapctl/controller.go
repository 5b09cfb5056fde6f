// Package mapctl orchestrates query rounds and user intents over the marker
// registry and the map surface.
//
// The controller lock plays the role of a UI thread: every marker and
// registry mutation happens under it. Network calls run in goroutines
// without the lock and re-enter through completion methods that check the
// round's generation before touching any state.
package mapctl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/venuemap/explorer/internal/geo"
	"github.com/venuemap/explorer/internal/imagery"
	"github.com/venuemap/explorer/internal/marker"
	"github.com/venuemap/explorer/internal/registry"
	"github.com/venuemap/explorer/internal/surface"
	"github.com/venuemap/explorer/internal/venue"
	"github.com/venuemap/explorer/internal/viewport"
	"github.com/venuemap/explorer/pkg/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"
)

// Config tunes the controller.
type Config struct {
	Center               core.Coordinate
	Width                int
	Height               int
	Breakpoint           int
	Checkpoint           int
	MaxConcurrentDetails int64
	ImageryRadius        int
	ImageryTimeout       time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Center:               core.Coordinate{Lat: 30.433723460, Lng: -91.12495604},
		Width:                1024,
		Height:               768,
		Breakpoint:           viewport.DefaultBreakpoint,
		Checkpoint:           10,
		MaxConcurrentDetails: 8,
		ImageryRadius:        imagery.DefaultRadius,
		ImageryTimeout:       10 * time.Second,
	}
}

// RoundObserver is told about every finished query round.
type RoundObserver interface {
	ObserveRound(ctx context.Context, r RoundReport)
}

// RoundReport summarizes one query round.
type RoundReport struct {
	Generation uint64            `json:"generation"`
	Query      core.ExploreQuery `json:"query"`
	Expected   int               `json:"expected"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Superseded bool              `json:"superseded"`
	Bounds     geo.Bounds        `json:"-"`
	Duration   time.Duration     `json:"duration"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithImagery enables street-level imagery lookups for new markers.
func WithImagery(p imagery.Provider) Option {
	return func(c *Controller) { c.imagery = p }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithObserver adds a round observer.
func WithObserver(o RoundObserver) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller coordinates the map, the registry and the venue API.
type Controller struct {
	mu sync.Mutex

	cfg      Config
	searcher venue.Searcher
	imagery  imagery.Provider
	maps     surface.MapSurface
	reg      *registry.Registry
	tracker  *viewport.Tracker
	host     *host

	ids *marker.Sequence
	z   *marker.Sequence

	generation uint64
	bounds     geo.Bounds
	lastCenter core.Coordinate

	sem       *semaphore.Weighted
	imageryWG sync.WaitGroup

	notifier  Notifier
	observers []RoundObserver
	logger    *slog.Logger

	queries       metric.Int64Counter
	detailsFailed metric.Int64Counter
	stale         metric.Int64Counter
}

// New creates a controller drawing on maps and rendering info content into
// info.
func New(cfg Config, searcher venue.Searcher, maps surface.MapSurface, info surface.InfoSurface, opts ...Option) (*Controller, error) {
	def := DefaultConfig()
	if cfg.Breakpoint <= 0 {
		cfg.Breakpoint = def.Breakpoint
	}
	if cfg.MaxConcurrentDetails <= 0 {
		cfg.MaxConcurrentDetails = def.MaxConcurrentDetails
	}
	if cfg.ImageryRadius <= 0 {
		cfg.ImageryRadius = def.ImageryRadius
	}
	if cfg.ImageryTimeout <= 0 {
		cfg.ImageryTimeout = def.ImageryTimeout
	}

	c := &Controller{
		cfg:        cfg,
		searcher:   searcher,
		maps:       maps,
		tracker:    viewport.NewTracker(cfg.Breakpoint, cfg.Width),
		ids:        &marker.Sequence{},
		z:          &marker.Sequence{},
		lastCenter: cfg.Center,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrentDetails),
		notifier:   discard{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reg = registry.New(info, c.logger)
	c.host = &host{c: c}

	m := meter()
	var err error
	c.queries, err = m.Int64Counter("mapctl.queries",
		metric.WithDescription("Query rounds started"))
	if err != nil {
		return nil, fmt.Errorf("creating queries counter: %w", err)
	}
	c.detailsFailed, err = m.Int64Counter("mapctl.details.failed",
		metric.WithDescription("Venue detail fetches that failed"))
	if err != nil {
		return nil, fmt.Errorf("creating details counter: %w", err)
	}
	c.stale, err = m.Int64Counter("mapctl.completions.stale",
		metric.WithDescription("Detail completions discarded because a newer round started"))
	if err != nil {
		return nil, fmt.Errorf("creating stale counter: %w", err)
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		maps.Resize(cfg.Width, cfg.Height)
	}
	return c, nil
}

// host is the marker.Host view of the controller. Its methods run with the
// controller lock already held.
type host struct{ c *Controller }

func (h *host) SetActive(m *marker.Marker)       { h.c.activate(m) }
func (h *host) Mode() viewport.Mode              { return h.c.tracker.Mode() }
func (h *host) InfoSurface() surface.InfoSurface { return h.c.reg.Surface() }

// Generation returns the current query generation.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Mode returns the current presentation mode.
func (c *Controller) Mode() viewport.Mode { return c.tracker.Mode() }

type round struct {
	gen       uint64
	expected  int
	completed int
	succeeded int
	failed    int
	stale     int
	bounds    geo.Bounds
}

// RoundFunc fetches the venues of a round started by BeginQuery.
type RoundFunc func(ctx context.Context) (RoundReport, error)

// RunQuery clears the current markers and runs one query round. Detail
// fetches run concurrently and complete in any order. It returns once every
// detail fetch has completed. Completions that arrive after a newer round
// started are discarded.
func (c *Controller) RunQuery(ctx context.Context, q core.ExploreQuery) (RoundReport, error) {
	return c.BeginQuery(q)(ctx)
}

// BeginQuery starts a new round for q: the generation moves on and the
// current markers are cleared before it returns, so any round still in
// flight is superseded from that point. The returned func does the fetching.
func (c *Controller) BeginQuery(q core.ExploreQuery) RoundFunc {
	start := time.Now()

	c.mu.Lock()
	c.generation++
	gen := c.generation
	if err := c.reg.ReplaceAll(nil); err != nil {
		c.logger.Error("Failed to clear markers", "error", err)
	}
	c.bounds = geo.Bounds{}
	c.mu.Unlock()

	c.queries.Add(context.Background(), 1)
	c.logger.Info("Query round started", "generation", gen, "term", q.Term, "near", q.Near, "category", q.Category)

	return func(ctx context.Context) (RoundReport, error) {
		return c.runRound(ctx, gen, q, start)
	}
}

func (c *Controller) runRound(ctx context.Context, gen uint64, q core.ExploreQuery, start time.Time) (RoundReport, error) {
	log := c.logger.With("generation", gen)
	report := RoundReport{Generation: gen, Query: q}

	summaries, err := c.searcher.Explore(ctx, q)
	if err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.notifier.Notify(classify(gen, err))
		} else {
			report.Superseded = true
		}
		c.mu.Unlock()
		report.Duration = time.Since(start)
		c.observe(ctx, report)
		if report.Superseded {
			log.Info("Explore failed after the round was superseded", "error", err)
			return report, nil
		}
		log.Error("Explore failed", "error", err)
		return report, fmt.Errorf("explore: %w", err)
	}

	report.Expected = len(summaries)
	if len(summaries) == 0 {
		log.Info("Query returned no venues")
		c.mu.Lock()
		if c.generation == gen {
			c.notifier.Notify(Notification{
				Kind:       KindEmptyResult,
				Generation: gen,
				Message:    "No venues matched the search.",
				Time:       time.Now(),
			})
		} else {
			report.Superseded = true
		}
		c.mu.Unlock()
		report.Duration = time.Since(start)
		c.observe(ctx, report)
		return report, nil
	}

	r := &round{gen: gen, expected: len(summaries)}
	var wg sync.WaitGroup
	for _, s := range summaries {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			c.complete(r, core.Venue{}, fmt.Errorf("venue detail %s: %w", s.ID, err))
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer c.sem.Release(1)
			v, err := c.searcher.VenueDetail(ctx, id)
			c.complete(r, v, err)
		}(s.ID)
	}
	wg.Wait()

	c.mu.Lock()
	report.Succeeded = r.succeeded
	report.Failed = r.failed
	report.Superseded = r.stale > 0
	report.Bounds = r.bounds
	c.mu.Unlock()
	report.Duration = time.Since(start)

	log.Info("Query round finished",
		"expected", report.Expected,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"superseded", report.Superseded,
		"duration", report.Duration)
	c.observe(ctx, report)
	return report, nil
}

func (c *Controller) observe(ctx context.Context, r RoundReport) {
	for _, o := range c.observers {
		o.ObserveRound(ctx, r)
	}
}

// complete handles one detail fetch result.
func (c *Controller) complete(r *round, v core.Venue, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r.completed++
	if r.gen != c.generation {
		r.stale++
		c.stale.Add(context.Background(), 1)
		c.logger.Debug("Discarding stale completion", "generation", r.gen, "current", c.generation)
		return
	}

	if err == nil {
		err = c.addMarker(r, v)
	}
	if err != nil {
		r.failed++
		c.detailsFailed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("error", errorKind(err))))
		c.logger.Warn("Venue detail failed", "generation", r.gen, "venue", v.ID, "error", err)
	}

	switch {
	case r.completed == r.expected:
		c.fit()
		if r.failed > 0 {
			c.notifier.Notify(Notification{
				Kind:       KindPartialFailure,
				Generation: r.gen,
				Message:    fmt.Sprintf("%d of %d venues could not be loaded.", r.failed, r.expected),
				Failed:     r.failed,
				Expected:   r.expected,
				Time:       time.Now(),
			})
		}
	case c.cfg.Checkpoint > 0 && r.completed%c.cfg.Checkpoint == 0:
		c.fit()
	}
}

// addMarker places a pin for v. A venue whose location cannot be framed is
// rejected before anything reaches the map.
func (c *Controller) addMarker(r *round, v core.Venue) error {
	roundBounds, err := r.bounds.Extend(v.Location)
	if err != nil {
		return fmt.Errorf("venue %s location: %w", v.ID, err)
	}
	viewBounds, err := c.bounds.Extend(v.Location)
	if err != nil {
		return fmt.Errorf("venue %s location: %w", v.ID, err)
	}

	m := marker.New(c.ids, v, c.logger)
	m.Attach(c.maps, c.host)
	if err := c.reg.Add(m); err != nil {
		m.Detach()
		return fmt.Errorf("add marker: %w", err)
	}
	m.BringToFront(c.z)

	r.succeeded++
	r.bounds = roundBounds
	c.bounds = viewBounds
	c.lookupImagery(r.gen, m)
	return nil
}

// fit frames the accumulated bounds. Empty bounds leave the viewport alone.
func (c *Controller) fit() {
	if c.bounds.IsEmpty() {
		return
	}
	c.maps.FitBounds(c.bounds)
	c.lastCenter = c.maps.Center()
}

func (c *Controller) lookupImagery(gen uint64, m *marker.Marker) {
	if c.imagery == nil {
		return
	}
	at := m.Location()
	c.imageryWG.Add(1)
	go func() {
		defer c.imageryWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ImageryTimeout)
		defer cancel()

		ref, err := c.imagery.Lookup(ctx, at, c.cfg.ImageryRadius)
		if err != nil {
			c.logger.Debug("Imagery lookup failed", "marker", m.MarkerID(), "error", err)
			return
		}
		if ref == nil {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen {
			return
		}
		if live, ok := c.reg.Lookup(m.MarkerID()); ok && live == m {
			m.AttachImagery(ref)
		}
	}()
}

// Wait blocks until every in-flight imagery lookup has finished.
func (c *Controller) Wait() {
	c.imageryWG.Wait()
}

// SetActive toggles m as the active marker. When m becomes active and is
// visible the map pans to it and raises its pin. A marker hidden by the
// filter gets that focus once the filter shows it again.
func (c *Controller) SetActive(m *marker.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activate(m)
}

func (c *Controller) activate(m *marker.Marker) {
	became, err := c.reg.SetActive(m)
	if err != nil {
		c.logger.Warn("Activation ignored", "error", err)
		return
	}
	if !became || !m.Visible() {
		return
	}
	c.focus(m)
}

func (c *Controller) focus(m *marker.Marker) {
	c.maps.PanTo(m.Location())
	c.lastCenter = m.Location()
	m.BringToFront(c.z)
}

func (c *Controller) lookup(id string) (*marker.Marker, error) {
	m, ok := c.reg.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("marker %s: %w", id, registry.ErrUnknownMarker)
	}
	return m, nil
}

// Click routes a click on marker id (pin or list entry).
func (c *Controller) Click(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.lookup(id)
	if err != nil {
		return err
	}
	m.Click()
	return nil
}

// Hover sets the hover flag of marker id. With focus the map pans to the
// marker and raises it, as list hovering does.
func (c *Controller) Hover(id string, on, focus bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.lookup(id)
	if err != nil {
		return err
	}
	m.SetHovered(on)
	if on && focus {
		c.focus(m)
	}
	return nil
}

// CloseInfo handles the info surface close button of marker id.
func (c *Controller) CloseInfo(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.lookup(id)
	if err != nil {
		return err
	}
	c.reg.Dismiss(m)
	return nil
}

// SetFilter switches the list to filter mode.
func (c *Controller) SetFilter(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refilter(func() { c.reg.SetFilter(text) })
}

// DisableFilter switches the list back to search mode.
func (c *Controller) DisableFilter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refilter(c.reg.DisableFilter)
}

// refilter runs apply and focuses the active marker if it just came back
// into view.
func (c *Controller) refilter(apply func()) {
	active := c.reg.Active()
	hidden := active != nil && !active.Visible()
	apply()
	if hidden && active == c.reg.Active() && active.Visible() {
		c.focus(active)
	}
}

// Resize reacts to a viewport size change. With no active marker the last
// bounds are refitted, then the map pans back to the last known center so
// that center wins over the fit. A mode change closes and reopens the
// active marker so its content is rebuilt.
func (c *Controller) Resize(width, height int) viewport.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maps.Resize(width, height)
	active := c.reg.Active()
	if active == nil && !c.bounds.IsEmpty() {
		c.maps.FitBounds(c.bounds)
	}
	c.maps.PanTo(c.lastCenter)

	mode, changed := c.tracker.Update(width)
	if changed && active != nil && active.InfoOpen() {
		c.logger.Debug("Viewport mode changed, reopening active marker", "mode", mode.String(), "marker", active.MarkerID())
		active.Close()
		active.Open()
	}
	return mode
}

// State is the list panel view model.
type State struct {
	Generation uint64          `json:"generation"`
	Mode       string          `json:"mode"`
	Filtering  bool            `json:"filtering"`
	FilterText string          `json:"filterText"`
	Active     string          `json:"active,omitempty"`
	Center     core.Coordinate `json:"center"`
	Markers    []marker.View   `json:"markers"`
}

// Snapshot returns the current view model. Markers hidden by the filter are
// included with Visible set to false.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Generation: c.generation,
		Mode:       c.tracker.Mode().String(),
		Filtering:  c.reg.Filtering(),
		FilterText: c.reg.FilterText(),
		Center:     c.lastCenter,
		Markers:    make([]marker.View, 0, c.reg.Len()),
	}
	if a := c.reg.Active(); a != nil {
		s.Active = a.MarkerID()
	}
	for _, m := range c.reg.Markers() {
		s.Markers = append(s.Markers, m.Snapshot())
	}
	return s
}

// Markers returns the live markers in list order.
func (c *Controller) Markers() []*marker.Marker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg.Markers()
}

// Entry pairs a marker view with the venue record behind it.
type Entry struct {
	View  marker.View `json:"view"`
	Venue core.Venue  `json:"venue"`
}

// Entries returns every live marker with its venue, in list order.
func (c *Controller) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.reg.Markers()
	out := make([]Entry, 0, len(ms))
	for _, m := range ms {
		out = append(out, Entry{View: m.Snapshot(), Venue: m.Venue()})
	}
	return out
}
