// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package weather looks up the current weather from an OpenWeatherMap
// compatible API and turns user input into a stream of lookups.
package weather

import (
	"fmt"
	"net/url"
	"strconv"

	rxhttp "github.com/joamaki/rxplay/clients/http"
	"github.com/joamaki/rxplay/stream"
)

type Weather struct {
	CityName    string  `json:"city" yaml:"city"`
	Temperature int     `json:"temperature" yaml:"temperature"`
	Humidity    int     `json:"humidity" yaml:"humidity"`
	Icon        string  `json:"icon" yaml:"icon"`
	Lat         float64 `json:"lat" yaml:"lat"`
	Lon         float64 `json:"lon" yaml:"lon"`
}

// Empty is shown when a lookup fails.
var Empty = Weather{
	CityName:    "N/A",
	Temperature: -1000,
	Humidity:    0,
	Icon:        IconGlyph("e"),
}

func (w Weather) TemperatureLabel() string { return fmt.Sprintf("%d° C", w.Temperature) }
func (w Weather) HumidityLabel() string    { return fmt.Sprintf("%d%%", w.Humidity) }

type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Overlay marks the area around a weather location on a map.
type Overlay struct {
	Icon string
	Min  Coordinate
	Max  Coordinate
}

// Overlay returns a box of half a degree around the location.
func (w Weather) Overlay() Overlay {
	const delta = 0.25
	return Overlay{
		Icon: w.Icon,
		Min:  Coordinate{Lat: w.Lat - delta, Lon: w.Lon - delta},
		Max:  Coordinate{Lat: w.Lat + delta, Lon: w.Lon + delta},
	}
}

// Contains is true if the coordinate falls within the overlay.
func (o Overlay) Contains(c Coordinate) bool {
	return c.Lat >= o.Min.Lat && c.Lat <= o.Max.Lat &&
		c.Lon >= o.Min.Lon && c.Lon <= o.Max.Lon
}

// IconGlyph maps an OpenWeatherMap icon code to a glyph in the
// Flaticon weather font. Unknown codes map to "E".
func IconGlyph(code string) string {
	switch code {
	case "01d":
		return "\uf11b"
	case "01n":
		return "\uf110"
	case "02d":
		return "\uf112"
	case "02n":
		return "\uf104"
	case "03d", "03n", "04d", "04n":
		return "\uf111"
	case "09d", "09n":
		return "\uf116"
	case "10d", "10n":
		return "\uf113"
	case "11d", "11n":
		return "\uf10d"
	case "13d", "13n":
		return "\uf119"
	case "50d", "50n":
		return "\uf10e"
	default:
		return "E"
	}
}

type Config struct {
	BaseURL string
	APIKey  string
	Units   string
}

var DefaultConfig = Config{
	BaseURL: "https://api.openweathermap.org/data/2.5",
	Units:   "metric",
}

// Client performs current weather lookups.
type Client struct {
	cfg  Config
	http *rxhttp.Client
}

func NewClient(cfg Config, http *rxhttp.Client) *Client {
	if cfg.Units == "" {
		cfg.Units = DefaultConfig.Units
	}
	return &Client{cfg: cfg, http: http}
}

// response is the subset of the API response we use. Pointers tell a
// missing key apart from a zero value.
type response struct {
	Name *string `json:"name"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Icon string `json:"icon"`
	} `json:"weather"`
	Coord Coordinate `json:"coord"`
}

func (r response) weather() Weather {
	w := Weather{
		CityName:    "Unknown",
		Temperature: -1000,
		Humidity:    0,
		Icon:        IconGlyph("e"),
		Lat:         r.Coord.Lat,
		Lon:         r.Coord.Lon,
	}
	if r.Name != nil {
		w.CityName = *r.Name
	}
	if r.Main.Temp != nil {
		w.Temperature = int(*r.Main.Temp)
	}
	if r.Main.Humidity != nil {
		w.Humidity = int(*r.Main.Humidity)
	}
	if len(r.Weather) > 0 && r.Weather[0].Icon != "" {
		w.Icon = IconGlyph(r.Weather[0].Icon)
	}
	return w
}

// CurrentWeather looks up the weather in 'city'.
func (c *Client) CurrentWeather(city string) stream.Observable[Weather] {
	return c.request(rxhttp.WithQuery("q", city))
}

// CurrentWeatherAt looks up the weather at the given coordinate.
func (c *Client) CurrentWeatherAt(lat, lon float64) stream.Observable[Weather] {
	return c.request(
		rxhttp.WithQuery("lat", strconv.FormatFloat(lat, 'f', -1, 64)),
		rxhttp.WithQuery("lon", strconv.FormatFloat(lon, 'f', -1, 64)))
}

func (c *Client) request(params ...rxhttp.Option) stream.Observable[Weather] {
	opts := append(params,
		rxhttp.WithQuery("appid", c.cfg.APIKey),
		rxhttp.WithQuery("units", c.cfg.Units),
		rxhttp.WithHeader("Content-Type", "application/json"))
	u, err := url.JoinPath(c.cfg.BaseURL, "weather")
	if err != nil {
		return stream.Error[Weather](fmt.Errorf("weather URL: %w", err))
	}
	return stream.Map(
		rxhttp.DecodeJSON[response](rxhttp.ResponseBody(c.http.Get(u, opts...))),
		response.weather)
}
