// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joamaki/rxplay/internal/weather"
	"github.com/joamaki/rxplay/stream"
)

// lookups searches the cities one at a time, followed by the coordinate if
// given.
func lookups(api weather.Lookup, cities []string, at *weather.Coordinate) stream.Observable[weather.Update] {
	searches := stream.FlatMap(stream.FromSlice(cities), func(city string) stream.Observable[weather.Update] {
		return weather.Search(weather.Inputs{Cities: stream.Just(city)}, api)
	})
	if at == nil {
		return searches
	}
	return stream.Concat(searches, weather.Search(weather.Inputs{
		LocationTaps: stream.Just(struct{}{}),
		Locations:    stream.Just(*at),
	}, api))
}

func NewWeatherCommand(opts *RootOptions) *cobra.Command {
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "weather [CITY...]",
		Short: "Show the current weather",
		Long: `Show the current weather for each city, or at a coordinate with --lat and
--lon. A city that cannot be found is shown as N/A.`,
		Example: `  rxplay weather Lisbon Helsinki
  rxplay weather --lat 60.17 --lon 24.94 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var at *weather.Coordinate
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				at = &weather.Coordinate{Lat: lat, Lon: lon}
			}
			if len(args) == 0 && at == nil {
				return NewExitError(ExitCommandError, "give a city or --lat and --lon")
			}
			api, err := opts.weatherLookup()
			if err != nil {
				return WrapExitError(ExitCommandError, "weather lookup", err)
			}

			updates := stream.OnNext(lookups(api, args, at), func(u weather.Update) {
				if u.Running {
					opts.Log.Debug("looking up weather")
				}
			})
			results, err := stream.ToSlice(cmd.Context(), weather.Results(updates))
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Output, results, func(w io.Writer) error {
				for _, result := range results {
					if _, err := fmt.Fprintln(w, weather.Card(result, false)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude to look up")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude to look up")
	cmd.Flags().String("api-key", "", "OpenWeatherMap API key")
	cmd.Flags().String("units", "", "units of measurement (metric|imperial|standard)")

	return cmd
}
