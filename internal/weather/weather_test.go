// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rxhttp "github.com/joamaki/rxplay/clients/http"
	"github.com/joamaki/rxplay/stream"
)

func startWeatherServer(t *testing.T) string {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /weather", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		switch {
		case q.Get("q") == "Lisbon":
			fmt.Fprint(w, `{"name":"Lisbon","coord":{"lat":38.72,"lon":-9.14},"main":{"temp":21.7,"humidity":60},"weather":[{"icon":"01d"}]}`)
		case q.Get("q") == "Partial":
			fmt.Fprint(w, `{"main":{}}`)
		case q.Get("lat") == "60.17" && q.Get("lon") == "24.94":
			fmt.Fprint(w, `{"name":"Helsinki","coord":{"lat":60.17,"lon":24.94},"main":{"temp":-3,"humidity":85},"weather":[{"icon":"13n"}]}`)
		default:
			http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func testClient(t *testing.T) *Client {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(Config{BaseURL: startWeatherServer(t), APIKey: "secret"}, rxhttp.NewClient(nil, log))
}

func TestCurrentWeather(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := testClient(t)

	w, err := stream.First(ctx, client.CurrentWeather("Lisbon"))
	require.NoError(t, err)
	assert.Equal(t, Weather{CityName: "Lisbon", Temperature: 21, Humidity: 60, Icon: IconGlyph("01d"), Lat: 38.72, Lon: -9.14}, w)
	assert.Equal(t, "21° C", w.TemperatureLabel())
	assert.Equal(t, "60%", w.HumidityLabel())

	w, err = stream.First(ctx, client.CurrentWeatherAt(60.17, 24.94))
	require.NoError(t, err)
	assert.Equal(t, "Helsinki", w.CityName)
	assert.Equal(t, -3, w.Temperature)

	// Missing keys get the defaults.
	w, err = stream.First(ctx, client.CurrentWeather("Partial"))
	require.NoError(t, err)
	assert.Equal(t, Weather{CityName: "Unknown", Temperature: -1000, Humidity: 0, Icon: "E"}, w)

	_, err = stream.First(ctx, client.CurrentWeather("Atlantis"))
	var statusErr *rxhttp.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	// The catch-and-substitute policy used by the apps.
	w, err = stream.First(ctx, stream.CatchErrorJustReturn(client.CurrentWeather("Atlantis"), Empty))
	require.NoError(t, err)
	assert.Equal(t, Empty, w)
}

func TestInvalidBaseURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(Config{BaseURL: "http://%zz", APIKey: "secret"}, rxhttp.NewClient(nil, log))
	_, err := stream.First(ctx, client.CurrentWeather("Lisbon"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weather URL")
}

func TestIconGlyph(t *testing.T) {
	assert.Equal(t, "\uf11b", IconGlyph("01d"))
	assert.Equal(t, IconGlyph("03d"), IconGlyph("04n"))
	assert.Equal(t, "E", IconGlyph("e"))
	assert.Equal(t, "E", IconGlyph("99x"))
	assert.Equal(t, "E", Empty.Icon)
}

func TestOverlay(t *testing.T) {
	o := Weather{Lat: 38.72, Lon: -9.14, Icon: "x"}.Overlay()
	assert.Equal(t, "x", o.Icon)
	assert.InDelta(t, 38.47, o.Min.Lat, 1e-9)
	assert.InDelta(t, -8.89, o.Max.Lon, 1e-9)
	assert.True(t, o.Contains(Coordinate{Lat: 38.9, Lon: -9.0}))
	assert.False(t, o.Contains(Coordinate{Lat: 39.0, Lon: -9.14}))
}

type fakeLookup map[string]stream.Observable[Weather]

func (f fakeLookup) CurrentWeather(city string) stream.Observable[Weather] {
	if src, ok := f[city]; ok {
		return src
	}
	return stream.Error[Weather](errors.New("no such city"))
}

func (f fakeLookup) CurrentWeatherAt(lat, lon float64) stream.Observable[Weather] {
	return f.CurrentWeather(fmt.Sprintf("%.2f,%.2f", lat, lon))
}

func TestSearch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	api := fakeLookup{
		"Lisbon":      stream.Just(Weather{CityName: "Lisbon"}),
		"60.17,24.94": stream.Just(Weather{CityName: "Helsinki"}),
		"59.33,18.07": stream.Just(Weather{CityName: "Stockholm"}),
	}
	updates, err := stream.ToSlice(ctx, Search(Inputs{
		Cities:       stream.Of("", "  ", "Lisbon"),
		LocationTaps: stream.Of(struct{}{}),
		Locations:    stream.Of(Coordinate{60.17, 24.94}, Coordinate{0, 0}),
		Regions:      stream.Of(Coordinate{0, 0}, Coordinate{59.33, 18.07}),
	}, api))
	require.NoError(t, err)

	results, err := stream.ToSlice(ctx, Results(stream.FromSlice(updates)))
	require.NoError(t, err)
	names := []string{}
	for _, w := range results {
		names = append(names, w.CityName)
	}
	assert.ElementsMatch(t, []string{"Lisbon", "Helsinki", "Stockholm"}, names)

	running, err := stream.ToSlice(ctx, Running(stream.FromSlice(updates)))
	require.NoError(t, err)
	trues := 0
	for _, r := range running {
		if r {
			trues++
		}
	}
	assert.Equal(t, 3, trues, "one running update per lookup")
	assert.Len(t, running, 6)

	// A failed lookup is replaced by Empty.
	updates, err = stream.ToSlice(ctx, Search(Inputs{Cities: stream.Just("Atlantis")}, api))
	require.NoError(t, err)
	assert.Equal(t, []Update{{Running: true}, {Weather: Empty}}, updates)
}

func TestSearchSwitchesToLatestCity(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	api := fakeLookup{
		"Slow": stream.Stuck[Weather](),
		"Fast": stream.Just(Weather{CityName: "Fast"}),
	}
	cities := stream.NewPublishSubject[string]()
	errs := make(chan error, 1)
	results := make(chan Weather, 10)
	go func() {
		errs <- Results(Search(Inputs{Cities: cities}, api)).Observe(ctx, func(w Weather) error {
			results <- w
			return nil
		})
		close(results)
	}()
	require.NoError(t, cities.WaitSubscribers(ctx, 1))
	cities.Next("Slow")
	cities.Next("Fast")
	cities.Complete(nil)

	require.NoError(t, <-errs)
	got := []string{}
	for w := range results {
		got = append(got, w.CityName)
	}
	assert.Equal(t, []string{"Fast"}, got)
}

func TestCard(t *testing.T) {
	card := Card(Weather{CityName: "Lisbon", Temperature: 21, Humidity: 60, Icon: "E"}, false)
	assert.Contains(t, card, "Lisbon")
	assert.Contains(t, card, "21° C")
	assert.Contains(t, card, "60%")

	assert.Contains(t, Card(Empty, true), "searching...")
	assert.NotContains(t, Card(Empty, true), "N/A")
}
