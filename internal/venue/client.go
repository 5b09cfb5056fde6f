package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/venuemap/explorer/pkg/core"

	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

// Config holds the venue search API settings.
type Config struct {
	BaseURL           string        `validate:"required,url"`
	ClientID          string        `validate:"required"`
	ClientSecret      string        `validate:"required"`
	Version           string        `validate:"required,len=8,numeric"`
	Mode              string        `validate:"required"`
	Timeout           time.Duration `validate:"gt=0"`
	RequestsPerSecond float64       `validate:"gte=0"`
	Burst             int           `validate:"gte=0"`
}

// Client talks to a Foursquare v2 style venue search API.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	creds      url.Values
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a new venue API client.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	creds := url.Values{}
	creds.Set("client_id", cfg.ClientID)
	creds.Set("client_secret", cfg.ClientSecret)
	creds.Set("v", cfg.Version)
	creds.Set("m", cfg.Mode)

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

type meta struct {
	Code        int    `json:"code"`
	ErrorType   string `json:"errorType"`
	ErrorDetail string `json:"errorDetail"`
}

type exploreResponse struct {
	Meta     meta `json:"meta"`
	Response *struct {
		Groups []struct {
			Items []struct {
				Venue struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"venue"`
			} `json:"items"`
		} `json:"groups"`
	} `json:"response"`
}

type detailResponse struct {
	Meta     meta `json:"meta"`
	Response *struct {
		Venue *fsqVenue `json:"venue"`
	} `json:"response"`
}

type fsqVenue struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact struct {
		FormattedPhone string `json:"formattedPhone"`
	} `json:"contact"`
	Location struct {
		Address          string   `json:"address"`
		Lat              float64  `json:"lat"`
		Lng              float64  `json:"lng"`
		FormattedAddress []string `json:"formattedAddress"`
	} `json:"location"`
	Rating       *float64 `json:"rating"`
	URL          string   `json:"url"`
	CanonicalURL string   `json:"canonicalUrl"`
}

// Explore runs a venue explore query. A successful query with no matches
// returns an empty, non-nil slice and a nil error.
func (c *Client) Explore(ctx context.Context, q core.ExploreQuery) ([]core.VenueSummary, error) {
	const op = "venue explore"

	params := url.Values{}
	params.Set("near", q.Near)
	if q.Term != "" {
		params.Set("query", q.Term)
	}
	if q.Category != "" {
		params.Set("section", q.Category)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp exploreResponse
	if err := c.get(ctx, op, "/venues/explore", params, &resp, func() meta { return resp.Meta }); err != nil {
		return nil, err
	}
	if resp.Response == nil {
		return nil, &MalformedError{Op: op, Err: errors.New("missing response object")}
	}

	summaries := make([]core.VenueSummary, 0)
	for _, g := range resp.Response.Groups {
		for _, item := range g.Items {
			if item.Venue.ID == "" {
				c.logger.Warn("Explore item without venue id, skipping", "name", item.Venue.Name)
				continue
			}
			summaries = append(summaries, core.VenueSummary{ID: item.Venue.ID, Name: item.Venue.Name})
		}
	}
	return summaries, nil
}

// VenueDetail fetches the full record for one venue.
func (c *Client) VenueDetail(ctx context.Context, id string) (core.Venue, error) {
	const op = "venue detail"

	var resp detailResponse
	path := "/venues/" + url.PathEscape(id) + "/"
	if err := c.get(ctx, op, path, nil, &resp, func() meta { return resp.Meta }); err != nil {
		return core.Venue{}, err
	}
	if resp.Response == nil || resp.Response.Venue == nil {
		return core.Venue{}, &MalformedError{Op: op, Err: errors.New("missing venue object")}
	}

	v := resp.Response.Venue
	if v.Location.Lat == 0 && v.Location.Lng == 0 {
		return core.Venue{}, &MalformedError{Op: op, Err: fmt.Errorf("venue %s has no coordinates", v.ID)}
	}
	return toCore(v), nil
}

func toCore(v *fsqVenue) core.Venue {
	addr := core.Address{Street: v.Location.Address}
	if fa := v.Location.FormattedAddress; len(fa) > 1 {
		addr.City = fa[1]
		if len(fa) > 2 {
			addr.Region = fa[2]
		}
	}
	return core.Venue{
		ID:           v.ID,
		Name:         v.Name,
		Phone:        v.Contact.FormattedPhone,
		Address:      addr,
		Rating:       v.Rating,
		Website:      v.URL,
		CanonicalURL: v.CanonicalURL,
		Location:     core.Coordinate{Lat: v.Location.Lat, Lng: v.Location.Lng},
	}
}

// get performs one GET and decodes the body into out. metaOf reads the meta
// block after decoding so the status taxonomy can be applied.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any, metaOf func() meta) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	query := url.Values{}
	for k, v := range c.creds {
		query[k] = v
	}
	for k, v := range params {
		query[k] = v
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	c.logger.Debug("venue api request", "op", op, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	decodeErr := json.Unmarshal(body, out)
	m := metaOf()

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && m.Code != 0 {
			return &ServiceError{Op: op, Code: m.Code, Type: m.ErrorType, Detail: m.ErrorDetail}
		}
		return &ServiceError{Op: op, Code: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}
	}
	if decodeErr != nil {
		return &MalformedError{Op: op, Err: decodeErr}
	}
	if m.Code != http.StatusOK {
		if m.Code == 0 {
			return &MalformedError{Op: op, Err: errors.New("missing meta code")}
		}
		return &ServiceError{Op: op, Code: m.Code, Type: m.ErrorType, Detail: m.ErrorDetail}
	}
	return nil
}
