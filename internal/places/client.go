// Package places is a client for the Google Places "searchNearby" API.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pantry/internal/geo"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	defaultEndpoint = "https://places.googleapis.com/v1/places:searchNearby"
	fieldMask       = "places.id,places.displayName,places.formattedAddress,places.location,places.websiteUri"
	maxResponseSize = 1 << 20
)

// ErrUpstream wraps every failure of the places API itself.
var ErrUpstream = errors.New("places api error")

// RankPreference orders nearby search results.
type RankPreference string

const (
	RankPopularity RankPreference = "POPULARITY"
	RankDistance   RankPreference = "DISTANCE"
)

// Valid reports whether r is accepted by the API.
func (r RankPreference) Valid() bool {
	return r == RankPopularity || r == RankDistance
}

// SearchConfig is the fixed part of every nearby search.
type SearchConfig struct {
	IncludedTypes  []string
	MaxResultCount int
	RadiusMeters   float64
	RankPreference RankPreference
}

// DefaultSearchConfig returns the grocery-store search used by discovery.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		IncludedTypes:  []string{"grocery_store", "warehouse_store", "food_store", "supermarket"},
		MaxResultCount: 10,
		RadiusMeters:   5000,
		RankPreference: RankPopularity,
	}
}

// Place is a candidate returned by a nearby search. Missing coordinates are 0.
type Place struct {
	ID               string
	DisplayName      string
	FormattedAddress string
	Latitude         float64
	Longitude        float64
	WebsiteURI       string
}

// Config holds the client settings.
type Config struct {
	APIKey            string
	Endpoint          string
	Search            SearchConfig
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client calls the places API. Calls are throttled by a shared limiter.
type Client struct {
	apiKey   string
	endpoint string
	search   SearchConfig
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a new places Client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if len(cfg.Search.IncludedTypes) == 0 {
		rank := cfg.Search.RankPreference
		cfg.Search = DefaultSearchConfig()
		if rank != "" {
			cfg.Search.RankPreference = rank
		}
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		search:   cfg.Search,
		http:     cfg.HTTPClient,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// RadiusMeters returns the search radius, shared with nearby product queries.
func (c *Client) RadiusMeters() float64 {
	return c.search.RadiusMeters
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchNearbyRequest struct {
	IncludedTypes       []string       `json:"includedTypes"`
	MaxResultCount      int            `json:"maxResultCount"`
	LocationRestriction locationFilter `json:"locationRestriction"`
	RankPreference      RankPreference `json:"rankPreference"`
}

type locationFilter struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

// SearchNearby returns candidate places around center in the API's
// relevance order.
func (c *Client) SearchNearby(ctx context.Context, center geo.Point) ([]Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("places rate limiter: %w", err)
	}

	payload, err := json.Marshal(searchNearbyRequest{
		IncludedTypes:  c.search.IncludedTypes,
		MaxResultCount: c.search.MaxResultCount,
		LocationRestriction: locationFilter{Circle: circle{
			Center: latLng{Latitude: center.Latitude, Longitude: center.Longitude},
			Radius: c.search.RadiusMeters,
		}},
		RankPreference: c.search.RankPreference,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode nearby search: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create nearby search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: nearby search request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read nearby search response: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("%w: nearby search returned status %d: %s", ErrUpstream, resp.StatusCode, msg)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: nearby search returned invalid JSON", ErrUpstream)
	}

	return parsePlaces(body), nil
}

func parsePlaces(body []byte) []Place {
	results := gjson.GetBytes(body, "places").Array()
	places := make([]Place, 0, len(results))
	for _, r := range results {
		places = append(places, Place{
			ID:               r.Get("id").String(),
			DisplayName:      r.Get("displayName.text").String(),
			FormattedAddress: r.Get("formattedAddress").String(),
			Latitude:         r.Get("location.latitude").Float(),
			Longitude:        r.Get("location.longitude").Float(),
			WebsiteURI:       r.Get("websiteUri").String(),
		})
	}
	return places
}
