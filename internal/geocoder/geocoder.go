// Package geocoder resolves free-form addresses and zip codes to
// coordinates through a MapQuest-compatible HTTP API.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/iliyamo/bootcamp-directory/internal/breaker"
	"github.com/iliyamo/bootcamp-directory/internal/model"
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("geocoder not configured: missing api key")
	// ErrNoMatch is returned when the provider finds nothing for the address.
	ErrNoMatch = errors.New("geocoder: no match")
)

type Client struct {
	key        string
	endpoint   string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[*model.Location]
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBreaker replaces the default circuit breaker settings.
func WithBreaker(cfg breaker.Config, logger *slog.Logger) Option {
	return func(cl *Client) { cl.cb = breaker.New[*model.Location](cfg, logger) }
}

func NewClient(key, endpoint string, opts ...Option) *Client {
	c := &Client{
		key:        key,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cb == nil {
		c.cb = breaker.New[*model.Location](breaker.DefaultConfig("geocoder"), nil)
	}
	return c
}

// response mirrors the subset of the MapQuest geocoding payload we read.
type response struct {
	Info struct {
		StatusCode int      `json:"statuscode"`
		Messages   []string `json:"messages"`
	} `json:"info"`
	Results []struct {
		Locations []struct {
			Street     string `json:"street"`
			AdminArea5 string `json:"adminArea5"` // city
			AdminArea3 string `json:"adminArea3"` // state
			AdminArea1 string `json:"adminArea1"` // country code
			PostalCode string `json:"postalCode"`
			LatLng     struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"latLng"`
		} `json:"locations"`
	} `json:"results"`
}

// Geocode returns the best match for address.  ErrNoMatch is a normal
// outcome and does not count against the breaker.
func (c *Client) Geocode(ctx context.Context, address string) (*model.Location, error) {
	if c.key == "" {
		return nil, ErrNotConfigured
	}
	loc, err := c.cb.Execute(func() (*model.Location, error) {
		loc, err := c.lookup(ctx, address)
		if errors.Is(err, ErrNoMatch) {
			return nil, nil
		}
		return loc, err
	})
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, ErrNoMatch
	}
	return loc, nil
}

func (c *Client) lookup(ctx context.Context, address string) (*model.Location, error) {
	q := url.Values{}
	q.Set("key", c.key)
	q.Set("location", address)
	q.Set("maxResults", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if body.Info.StatusCode != 0 {
		return nil, fmt.Errorf("geocode: provider status %d: %s", body.Info.StatusCode, strings.Join(body.Info.Messages, "; "))
	}
	if len(body.Results) == 0 || len(body.Results[0].Locations) == 0 {
		return nil, ErrNoMatch
	}
	l := body.Results[0].Locations[0]
	return &model.Location{
		Latitude:         l.LatLng.Lat,
		Longitude:        l.LatLng.Lng,
		FormattedAddress: formatAddress(l.Street, l.AdminArea5, l.AdminArea3, l.PostalCode, l.AdminArea1),
		Street:           l.Street,
		City:             l.AdminArea5,
		State:            l.AdminArea3,
		Zipcode:          l.PostalCode,
		Country:          l.AdminArea1,
	}, nil
}

// formatAddress renders "street, city, state zip, country", skipping
// empty parts.
func formatAddress(street, city, state, zip, country string) string {
	var parts []string
	for _, p := range []string{street, city, strings.TrimSpace(state + " " + zip), country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
