// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package weather

import (
	"strings"

	"github.com/joamaki/rxplay/stream"
)

// Lookup is implemented by Client.
type Lookup interface {
	CurrentWeather(city string) stream.Observable[Weather]
	CurrentWeatherAt(lat, lon float64) stream.Observable[Weather]
}

// Inputs are the user inputs that trigger a lookup. Nil inputs never
// trigger. Locations and Regions are expected to be hot.
type Inputs struct {
	// Cities are the submitted search queries.
	Cities stream.Observable[string]
	// LocationTaps request a lookup at the next reported location.
	LocationTaps stream.Observable[struct{}]
	// Locations are the reported device locations.
	Locations stream.Observable[Coordinate]
	// Regions are the map centers after each move. The first one is the
	// initial position and is ignored.
	Regions stream.Observable[Coordinate]
}

// Update is emitted when a lookup starts (Running) and when it finishes.
type Update struct {
	Running bool
	Weather Weather
}

func orEmpty[T any](src stream.Observable[T]) stream.Observable[T] {
	if src == nil {
		return stream.Empty[T]()
	}
	return src
}

// Search merges the text, location and map inputs into lookups. Each
// lookup emits a running update followed by the result. A failed lookup
// results in Empty, so the stream itself does not fail because of it.
// A new city query cancels a lookup for the previous one.
func Search(in Inputs, api Lookup) stream.Observable[Update] {
	lookup := func(src stream.Observable[Weather]) stream.Observable[Update] {
		return stream.StartWith(
			stream.Map(
				stream.CatchErrorJustReturn(src, Empty),
				func(w Weather) Update { return Update{Weather: w} }),
			Update{Running: true})
	}

	cities := stream.Filter(
		stream.Map(orEmpty(in.Cities), strings.TrimSpace),
		func(city string) bool { return city != "" })
	textSearch := stream.SwitchMap(cities, func(city string) stream.Observable[Update] {
		return lookup(api.CurrentWeather(city))
	})

	locations := orEmpty(in.Locations)
	geoSearch := stream.FlatMap(orEmpty(in.LocationTaps), func(struct{}) stream.Observable[Update] {
		return stream.StartWith(
			stream.FlatMap(stream.Take(1, locations), func(c Coordinate) stream.Observable[Update] {
				// Running was already reported for the tap.
				return stream.Skip(1, lookup(api.CurrentWeatherAt(c.Lat, c.Lon)))
			}),
			Update{Running: true})
	})

	mapSearch := stream.FlatMap(stream.Skip(1, orEmpty(in.Regions)), func(c Coordinate) stream.Observable[Update] {
		return lookup(api.CurrentWeatherAt(c.Lat, c.Lon))
	})

	return stream.Merge(textSearch, geoSearch, mapSearch)
}

// Results drops the running updates.
func Results(updates stream.Observable[Update]) stream.Observable[Weather] {
	return stream.CompactMap(updates, func(u Update) (Weather, bool) {
		return u.Weather, !u.Running
	})
}

// Running reports whether a lookup is in progress.
func Running(updates stream.Observable[Update]) stream.Observable[bool] {
	return stream.Map(updates, func(u Update) bool { return u.Running })
}
