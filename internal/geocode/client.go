// Package geocode suggests postal addresses for partially typed queries.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/obs"
	"github.com/noah-isme/cafe-storefront/internal/resilience"
)

const (
	DefaultBaseURL      = "https://nominatim.openstreetmap.org"
	DefaultCountryCodes = "ar"
	DefaultLimit        = 5
	defaultUserAgent    = "cafe-storefront/1.0"
)

// Details is the structured part of a geocoder hit.
type Details struct {
	Road        string `json:"road,omitempty"`
	HouseNumber string `json:"house_number,omitempty"`
	City        string `json:"city,omitempty"`
	Town        string `json:"town,omitempty"`
	Village     string `json:"village,omitempty"`
	State       string `json:"state,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
	Country     string `json:"country,omitempty"`
}

// Result is one geocoder hit.
type Result struct {
	PlaceID     int64   `json:"place_id"`
	DisplayName string  `json:"display_name"`
	Address     Details `json:"address"`
}

// ToAddress maps a hit onto the backend address shape.
func ToAddress(r Result) backend.Address {
	street := strings.TrimSpace(strings.Join(nonEmpty(r.Address.Road, r.Address.HouseNumber), " "))
	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}
	if city == "" {
		city = r.Address.Village
	}
	country := r.Address.Country
	if country == "" {
		country = backend.DefaultCountry
	}
	return backend.Address{
		Street:     street,
		City:       city,
		State:      r.Address.State,
		PostalCode: r.Address.Postcode,
		Country:    country,
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

// Config configures the Client.
type Config struct {
	BaseURL      string
	CountryCodes string
	Limit        int
	UserAgent    string
	Timeout      time.Duration
	Transport    http.RoundTripper
	Logger       zerolog.Logger
}

// Client queries a Nominatim compatible search endpoint.
type Client struct {
	baseURL      string
	countryCodes string
	limit        int
	userAgent    string
	http         resilience.HTTPClient
	logger       zerolog.Logger
}

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	codes := strings.TrimSpace(cfg.CountryCodes)
	if codes == "" {
		codes = DefaultCountryCodes
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:      base,
		countryCodes: codes,
		limit:        limit,
		userAgent:    ua,
		logger:       cfg.Logger,
		http: resilience.HTTPClient{
			Client:  &http.Client{Transport: otelhttp.NewTransport(transport)},
			Breaker: resilience.NewBreaker(5, 30*time.Second).WithTarget("geocoder").WithLogger(cfg.Logger),
			Timeout: timeout,
		},
	}
}

// Search returns the hits for query.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("countrycodes", c.countryCodes)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		obs.CountGeocode("error")
		return nil, fmt.Errorf("geocode search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		obs.CountGeocode("error")
		return nil, fmt.Errorf("geocode search: status %d", resp.StatusCode)
	}
	var results []Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		obs.CountGeocode("error")
		return nil, fmt.Errorf("decode geocode results: %w", err)
	}
	obs.CountGeocode("ok")
	return results, nil
}
