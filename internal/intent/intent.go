// Package intent binds user intents from every client surface to the map
// controller through the dispatcher.
package intent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/venuemap/explorer/internal/dispatcher"
	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/venuemap/explorer/internal/venue"
	"github.com/venuemap/explorer/internal/viewport"
	"github.com/venuemap/explorer/pkg/core"
)

// Intent names.
const (
	Query     = "query"
	Click     = "click"
	Hover     = "hover"
	Close     = "close"
	Filter    = "filter"
	FilterOff = "filter_off"
	Resize    = "resize"
)

// Controller is the part of the map controller intents drive.
type Controller interface {
	BeginQuery(q core.ExploreQuery) mapctl.RoundFunc
	Click(id string) error
	Hover(id string, on, focus bool) error
	CloseInfo(id string) error
	SetFilter(text string)
	DisableFilter()
	Resize(width, height int) viewport.Mode
}

// Options tunes handler registration.
type Options struct {
	QueryTimeout time.Duration
	// QueryBuffer > 0 fetches query rounds off the caller's goroutine, at
	// most QueryBuffer at once. The round itself still starts, and supersedes
	// the previous one, before Dispatch returns.
	QueryBuffer int
}

// Register installs a handler for every intent.
func Register(d *dispatcher.Dispatcher, c Controller, opts Options) {
	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	detached := opts.QueryBuffer > 0
	queryOpts := []dispatcher.Option{dispatcher.Logged()}
	if detached {
		queryOpts = append(queryOpts, dispatcher.Detached(opts.QueryBuffer))
	}
	d.Register(Query, func(e dispatcher.Event) (any, error) {
		q := venue.ParseQueryText(e.Arg(0))
		if q.Near == "" {
			return nil, fmt.Errorf("query: empty search text")
		}
		q.Category = e.Arg(1)

		run := c.BeginQuery(q)
		fetch := func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return run(ctx)
		}
		if detached {
			return dispatcher.Deferred(fetch), nil
		}
		return fetch()
	}, queryOpts...)

	d.Register(Click, func(e dispatcher.Event) (any, error) {
		return nil, c.Click(e.Arg(0))
	}, dispatcher.Logged())

	d.Register(Hover, func(e dispatcher.Event) (any, error) {
		on, err := parseBool(e.Arg(1), true)
		if err != nil {
			return nil, fmt.Errorf("hover: %w", err)
		}
		focus, err := parseBool(e.Arg(2), false)
		if err != nil {
			return nil, fmt.Errorf("hover: %w", err)
		}
		return nil, c.Hover(e.Arg(0), on, focus)
	})

	d.Register(Close, func(e dispatcher.Event) (any, error) {
		return nil, c.CloseInfo(e.Arg(0))
	}, dispatcher.Logged())

	d.Register(Filter, func(e dispatcher.Event) (any, error) {
		c.SetFilter(e.Arg(0))
		return nil, nil
	})

	d.Register(FilterOff, func(e dispatcher.Event) (any, error) {
		c.DisableFilter()
		return nil, nil
	})

	d.Register(Resize, func(e dispatcher.Event) (any, error) {
		w, err := strconv.Atoi(e.Arg(0))
		if err != nil {
			return nil, fmt.Errorf("resize: invalid width %q: %w", e.Arg(0), err)
		}
		h, err := strconv.Atoi(e.Arg(1))
		if err != nil {
			return nil, fmt.Errorf("resize: invalid height %q: %w", e.Arg(1), err)
		}
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("resize: non-positive size %dx%d", w, h)
		}
		return c.Resize(w, h).String(), nil
	}, dispatcher.Logged())
}

func parseBool(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}
