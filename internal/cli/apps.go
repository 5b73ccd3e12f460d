// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	rxhttp "github.com/joamaki/rxplay/clients/http"
	"github.com/joamaki/rxplay/internal/config"
	"github.com/joamaki/rxplay/internal/gitfeed"
	"github.com/joamaki/rxplay/internal/weather"
)

func (opts *RootOptions) httpClient() *rxhttp.Client {
	return rxhttp.NewClient(nil, opts.Log)
}

// openFeed opens the configured event store and returns a feed backed by
// it. The returned function closes the store.
func (opts *RootOptions) openFeed(ctx context.Context) (*gitfeed.Feed, func(), error) {
	cfg := opts.Config
	var (
		store   gitfeed.Store
		closeFn = func() {}
	)
	switch cfg.Gitfeed.Store {
	case config.StoreSQLite:
		if err := os.MkdirAll(cfg.Gitfeed.CacheDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create cache dir: %w", err)
		}
		s, err := gitfeed.OpenSQLiteStore(ctx, filepath.Join(cfg.Gitfeed.CacheDir, "gitfeed.db"))
		if err != nil {
			return nil, nil, err
		}
		store = s
		closeFn = func() {
			if err := s.Close(); err != nil {
				opts.Log.Warn("failed to close event store", "error", err)
			}
		}
	default:
		s, err := gitfeed.NewPlistStore(cfg.Gitfeed.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		store = s
	}
	opts.Log.Debug("opened event store", "store", cfg.Gitfeed.Store, "dir", cfg.Gitfeed.CacheDir)
	return gitfeed.New(cfg.Feed(), opts.httpClient(), store, opts.Log), closeFn, nil
}

// weatherLookup returns the weather client or an error if no API key is
// configured.
func (opts *RootOptions) weatherLookup() (*weather.Client, error) {
	if opts.Config.Weather.APIKey == "" {
		return nil, fmt.Errorf("no weather API key, set weather.api_key or RXPLAY_WEATHER_API_KEY")
	}
	return weather.NewClient(opts.Config.WeatherClient(), opts.httpClient()), nil
}
