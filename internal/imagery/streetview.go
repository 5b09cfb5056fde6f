// Package imagery looks up street-level panoramas for venue coordinates.
package imagery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/venuemap/explorer/pkg/core"
)

// DefaultRadius is the search radius in meters around a venue.
const DefaultRadius = 50

// Provider finds a panorama near a coordinate. A nil ref with a nil error
// means there is no imagery for the location.
type Provider interface {
	Lookup(ctx context.Context, at core.Coordinate, radius int) (*core.ImageryRef, error)
}

// Config holds the Street View metadata API settings.
type Config struct {
	BaseURL string        `validate:"required,url"`
	APIKey  string
	Radius  int           `validate:"gte=0"`
	Timeout time.Duration `validate:"gte=0"`
}

// StreetView queries the Street View metadata endpoint. Metadata requests
// do not consume image quota.
type StreetView struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Provider = (*StreetView)(nil)

// NewStreetView creates a metadata client.
func NewStreetView(cfg Config, logger *slog.Logger) *StreetView {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StreetView{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type metadataResponse struct {
	Status   string `json:"status"`
	PanoID   string `json:"pano_id"`
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	ErrorMessage string `json:"error_message"`
}

// Lookup returns the nearest panorama within radius meters. Without an API
// key every lookup reports no imagery.
func (s *StreetView) Lookup(ctx context.Context, at core.Coordinate, radius int) (*core.ImageryRef, error) {
	if s.apiKey == "" {
		return nil, nil
	}
	if radius <= 0 {
		radius = DefaultRadius
	}

	q := url.Values{}
	q.Set("location", strconv.FormatFloat(at.Lat, 'f', -1, 64)+","+strconv.FormatFloat(at.Lng, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(radius))
	q.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/streetview/metadata?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("street view request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("street view returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var meta metadataResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch meta.Status {
	case "OK":
		return &core.ImageryRef{
			PanoID:   meta.PanoID,
			Location: core.Coordinate{Lat: meta.Location.Lat, Lng: meta.Location.Lng},
		}, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, nil
	default:
		return nil, fmt.Errorf("street view API error: %s %s", meta.Status, meta.ErrorMessage)
	}
}
