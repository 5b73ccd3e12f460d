// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package cli

import (
	"github.com/spf13/cobra"

	"github.com/joamaki/rxplay/internal/server"
	"github.com/joamaki/rxplay/internal/weather"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the apps over HTTP",
		Long: `Serve the dialer, the weather lookup and the GitHub activity feed over HTTP.
The feed is refreshed periodically and streamed to browsers as server-sent
events on /api/events/stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			feed, closeStore, err := opts.openFeed(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "open event store", err)
			}
			defer closeStore()

			var lookup weather.Lookup
			if api, err := opts.weatherLookup(); err != nil {
				opts.Log.Warn("weather lookup disabled", "error", err)
			} else {
				lookup = api
			}

			cfg := server.Config{
				Addr:            opts.Config.Server.Addr,
				RefreshInterval: opts.Config.Server.RefreshInterval,
			}
			return server.New(cfg, feed, lookup, opts.Log).Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "address to listen on")
	cmd.Flags().Duration("refresh-interval", 0, "how often the event feed is refreshed")
	cmd.Flags().String("store", "", "event store (plist|sqlite)")
	cmd.Flags().String("cache-dir", "", "directory of the event store")
	cmd.Flags().String("api-key", "", "OpenWeatherMap API key")

	return cmd
}
