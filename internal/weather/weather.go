// Package weather fetches current conditions from the Open-Meteo API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	httpClientTimeout   = 15 * time.Second
)

// ErrLocationNotFound is returned when geocoding yields no match.
var ErrLocationNotFound = errors.New("location not found")

// Report is the current weather at a resolved location.
type Report struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	WindGust    float64 `json:"windGust"`
	Conditions  string  `json:"conditions"`
}

// Client queries Open-Meteo geocoding and forecast endpoints.
type Client struct {
	geocodingURL string
	forecastURL  string
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the geocoding and forecast endpoints.
func WithBaseURLs(geocoding, forecast string) Option {
	return func(c *Client) {
		c.geocodingURL = geocoding
		c.forecastURL = forecast
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an Open-Meteo client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		geocodingURL: defaultGeocodingURL,
		forecastURL:  defaultForecastURL,
		httpClient:   &http.Client{Timeout: httpClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geocodingResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Time                string  `json:"time"`
		Temperature2m       float64 `json:"temperature_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		RelativeHumidity2m  float64 `json:"relative_humidity_2m"`
		WindSpeed10m        float64 `json:"wind_speed_10m"`
		WindGusts10m        float64 `json:"wind_gusts_10m"`
		WeatherCode         int     `json:"weather_code"`
	} `json:"current"`
}

// Current resolves location and returns its current weather.
func (c *Client) Current(ctx context.Context, location string) (*Report, error) {
	q := url.Values{}
	q.Set("name", location)
	q.Set("count", "1")

	var geo geocodingResponse
	if err := c.getJSON(ctx, c.geocodingURL+"?"+q.Encode(), &geo); err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", location, err)
	}
	if len(geo.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrLocationNotFound, location)
	}
	place := geo.Results[0]

	q = url.Values{}
	q.Set("latitude", fmt.Sprintf("%g", place.Latitude))
	q.Set("longitude", fmt.Sprintf("%g", place.Longitude))
	q.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,wind_gusts_10m,weather_code")

	var fc forecastResponse
	if err := c.getJSON(ctx, c.forecastURL+"?"+q.Encode(), &fc); err != nil {
		return nil, fmt.Errorf("failed to fetch weather for %q: %w", place.Name, err)
	}

	return &Report{
		Location:    place.Name,
		Temperature: fc.Current.Temperature2m,
		FeelsLike:   fc.Current.ApparentTemperature,
		Humidity:    fc.Current.RelativeHumidity2m,
		WindSpeed:   fc.Current.WindSpeed10m,
		WindGust:    fc.Current.WindGusts10m,
		Conditions:  Conditions(fc.Current.WeatherCode),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open-meteo returned %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// WMO weather interpretation codes.
var conditions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// Conditions maps a WMO weather code to a human readable description.
func Conditions(code int) string {
	if s, ok := conditions[code]; ok {
		return s
	}
	return "Unknown"
}
