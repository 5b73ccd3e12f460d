// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package config loads the rxplay configuration from defaults, an optional
// YAML file, RXPLAY_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/joamaki/rxplay/internal/gitfeed"
	"github.com/joamaki/rxplay/internal/planet"
	"github.com/joamaki/rxplay/internal/weather"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "rxplay.yaml"

const envPrefix = "RXPLAY_"

const (
	StorePlist  = "plist"
	StoreSQLite = "sqlite"
)

var (
	Outputs = []string{"text", "json", "yaml"}
	Stores  = []string{StorePlist, StoreSQLite}
)

type Config struct {
	Verbose bool   `koanf:"verbose"`
	Output  string `koanf:"output"`

	Weather WeatherConfig `koanf:"weather"`
	GitHub  GitHubConfig  `koanf:"github"`
	Gitfeed GitfeedConfig `koanf:"gitfeed"`
	Planet  PlanetConfig  `koanf:"planet"`
	Collage CollageConfig `koanf:"collage"`
	Server  ServerConfig  `koanf:"server"`
}

type WeatherConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Units   string `koanf:"units"`
}

type GitHubConfig struct {
	BaseURL string `koanf:"base_url"`
	Token   string `koanf:"token"`
	Query   string `koanf:"query"`
	Repos   int    `koanf:"repos"`
	PerRepo int    `koanf:"per_repo"`
}

type GitfeedConfig struct {
	// Store is either "plist" or "sqlite".
	Store    string `koanf:"store"`
	CacheDir string `koanf:"cache_dir"`
}

type PlanetConfig struct {
	BaseURL       string `koanf:"base_url"`
	Days          int    `koanf:"days"`
	MaxConcurrent int    `koanf:"max_concurrent"`
}

type CollageConfig struct {
	Width     int    `koanf:"width"`
	Height    int    `koanf:"height"`
	OutputDir string `koanf:"output_dir"`
	// Parallelism is the number of photos decoded at once.
	Parallelism int `koanf:"parallelism"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
	// RefreshInterval is how often the served event feed is refreshed.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "rxplay")
	}
	return ".rxplay"
}

func defaults() map[string]any {
	return map[string]any{
		"verbose": false,
		"output":  "text",

		"weather.base_url": weather.DefaultConfig.BaseURL,
		"weather.api_key":  "",
		"weather.units":    weather.DefaultConfig.Units,

		"github.base_url": gitfeed.DefaultConfig.BaseURL,
		"github.token":    "",
		"github.query":    gitfeed.DefaultConfig.Query,
		"github.repos":    gitfeed.DefaultConfig.Repos,
		"github.per_repo": gitfeed.DefaultConfig.PerRepo,

		"gitfeed.store":     StorePlist,
		"gitfeed.cache_dir": defaultCacheDir(),

		"planet.base_url":       planet.DefaultConfig.BaseURL,
		"planet.days":           planet.DefaultConfig.Days,
		"planet.max_concurrent": planet.DefaultConfig.MaxConcurrent,

		"collage.width":       800,
		"collage.height":      600,
		"collage.output_dir":  ".",
		"collage.parallelism": 4,

		"server.addr":             "localhost:8080",
		"server.refresh_interval": time.Minute,
	}
}

// flagKeys maps command-line flags to configuration keys. Flags not listed
// here and not named after a top-level key are not configuration.
var flagKeys = map[string]string{
	"api-key":          "weather.api_key",
	"units":            "weather.units",
	"token":            "github.token",
	"query":            "github.query",
	"repos":            "github.repos",
	"store":            "gitfeed.store",
	"cache-dir":        "gitfeed.cache_dir",
	"days":             "planet.days",
	"max-concurrent":   "planet.max_concurrent",
	"width":            "collage.width",
	"height":           "collage.height",
	"output-dir":       "collage.output_dir",
	"addr":             "server.addr",
	"refresh-interval": "server.refresh_interval",
}

// envKey maps e.g. RXPLAY_WEATHER_API_KEY to weather.api_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + rest
}

// Load reads the configuration. 'path' names the configuration file and
// if empty rxplay.yaml is used when it exists. Only flags that were set
// on the command-line override the other sources. 'flags' may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(FileName); err == nil {
			path = FileName
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			if key, ok := flagKeys[f.Name]; ok {
				return key, posflag.FlagVal(flags, f)
			}
			if k.Exists(f.Name) && !strings.Contains(f.Name, ".") {
				return f.Name, posflag.FlagVal(flags, f)
			}
			return "", nil
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !slices.Contains(Outputs, c.Output) {
		return fmt.Errorf("invalid output %q: must be one of %v", c.Output, Outputs)
	}
	if !slices.Contains(Stores, c.Gitfeed.Store) {
		return fmt.Errorf("invalid gitfeed store %q: must be one of %v", c.Gitfeed.Store, Stores)
	}
	if c.Collage.Width <= 0 || c.Collage.Height <= 0 {
		return fmt.Errorf("invalid collage size %dx%d", c.Collage.Width, c.Collage.Height)
	}
	for key, raw := range map[string]string{
		"weather.base_url": c.Weather.BaseURL,
		"github.base_url":  c.GitHub.BaseURL,
		"planet.base_url":  c.Planet.BaseURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s %q: must be an absolute URL", key, raw)
		}
	}
	return nil
}

func (c *Config) WeatherClient() weather.Config {
	return weather.Config{BaseURL: c.Weather.BaseURL, APIKey: c.Weather.APIKey, Units: c.Weather.Units}
}

func (c *Config) Feed() gitfeed.Config {
	return gitfeed.Config{
		BaseURL: c.GitHub.BaseURL,
		Query:   c.GitHub.Query,
		Repos:   c.GitHub.Repos,
		PerRepo: c.GitHub.PerRepo,
		Token:   c.GitHub.Token,
	}
}

func (c *Config) EONET() planet.Config {
	return planet.Config{BaseURL: c.Planet.BaseURL, Days: c.Planet.Days, MaxConcurrent: c.Planet.MaxConcurrent}
}
