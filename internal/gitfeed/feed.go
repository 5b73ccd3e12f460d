// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package gitfeed keeps a capped, persisted cache of recent GitHub activity
// for the most popular repositories matching a search query.
package gitfeed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	rxhttp "github.com/joamaki/rxplay/clients/http"
	"github.com/joamaki/rxplay/stream"
)

// MaxEvents is the number of events kept in the cache.
const MaxEvents = 50

type Config struct {
	// BaseURL of the GitHub API.
	BaseURL string
	// Query is the repository search query.
	Query string
	// Repos is the number of repositories to follow.
	Repos int
	// PerRepo is the number of events fetched per repository.
	PerRepo int
	// Token is an optional API token.
	Token string
}

var DefaultConfig = Config{
	BaseURL: "https://api.github.com",
	Query:   "language:swift",
	Repos:   5,
	PerRepo: 10,
}

// Feed holds the cached events. Observers of Events see the current list
// and every update to it.
type Feed struct {
	cfg    Config
	client *rxhttp.Client
	store  Store
	log    *slog.Logger

	// refreshMu serializes Load and Fetch. mu guards the read-modify-write
	// of the event list in Process.
	refreshMu sync.Mutex
	mu        sync.Mutex

	Events       *stream.Relay[[]Event]
	LastModified *stream.Relay[string]
}

func New(cfg Config, client *rxhttp.Client, store Store, log *slog.Logger) *Feed {
	return &Feed{
		cfg:          cfg,
		client:       client,
		store:        store,
		log:          log,
		Events:       stream.NewRelay([]Event{}),
		LastModified: stream.NewRelay(""),
	}
}

// Load reads the stored events and marker into the relays.
func (f *Feed) Load(ctx context.Context) error {
	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()
	return f.load(ctx)
}

func (f *Feed) load(ctx context.Context) error {
	events, err := f.store.LoadEvents(ctx)
	if err != nil {
		f.log.Warn("failed to load cached events", "error", err)
	}
	f.Events.Accept(events)

	marker, err := f.store.LastModified(ctx)
	if err != nil {
		return fmt.Errorf("load last modified: %w", err)
	}
	f.LastModified.Accept(marker)
	return nil
}

// Refresh reloads the cache and fetches new events. A failed fetch leaves
// the cached events as they were. Overlapping refreshes run one after the
// other, the later one sending the marker stored by the earlier one.
func (f *Feed) Refresh(ctx context.Context) error {
	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()

	if err := f.load(ctx); err != nil {
		return err
	}
	if err := f.fetch(ctx); err != nil {
		f.log.Warn("refresh failed", "error", err)
		return fmt.Errorf("fetch events: %w", err)
	}
	return nil
}

// Process prepends 'newEvents' to the cache, truncates it to MaxEvents,
// persists it and notifies the observers. An empty update is ignored.
func (f *Feed) Process(ctx context.Context, newEvents []Event) {
	if len(newEvents) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	updated := append(slices.Clone(newEvents), f.Events.Value()...)
	if len(updated) > MaxEvents {
		updated = updated[:MaxEvents]
	}
	if err := f.store.SaveEvents(ctx, updated); err != nil {
		f.log.Warn("failed to save events", "error", err)
	}
	f.log.Debug("processed events", "new", len(newEvents), "total", len(updated))
	f.Events.Accept(updated)
}

func (f *Feed) saveLastModified(ctx context.Context, marker string) {
	f.LastModified.Accept(marker)
	if err := f.store.SaveLastModified(ctx, marker); err != nil {
		f.log.Warn("failed to save last modified", "error", err)
	}
}

type searchResponse struct {
	Items []struct {
		FullName string `json:"full_name"`
	} `json:"items"`
}

func (r searchResponse) names() []string {
	names := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		if item.FullName != "" {
			names = append(names, item.FullName)
		}
	}
	return names
}

func (f *Feed) headers() []rxhttp.Option {
	opts := []rxhttp.Option{rxhttp.WithHeader("Accept", "application/vnd.github+json")}
	if f.cfg.Token != "" {
		opts = append(opts, rxhttp.WithHeader("Authorization", "Bearer "+f.cfg.Token))
	}
	return opts
}

// Repositories emits the full names of the top repositories for the query.
func (f *Feed) Repositories() stream.Observable[string] {
	search := f.client.Get(f.cfg.BaseURL+"/search/repositories",
		append(f.headers(),
			rxhttp.WithQuery("q", f.cfg.Query),
			rxhttp.WithQuery("per_page", strconv.Itoa(f.cfg.Repos)))...)
	return stream.FlatMap(
		rxhttp.DecodeJSON[searchResponse](rxhttp.ResponseBody(search)),
		func(r searchResponse) stream.Observable[string] {
			return stream.FromSlice(r.names())
		})
}

// responses fetches the events of each repository. The marker is sent as
// If-Modified-Since so that unchanged repositories answer with 304 Not
// Modified.
func (f *Feed) responses(repos stream.Observable[string], marker string) stream.Observable[rxhttp.Response] {
	return stream.FlatMap(repos, func(repo string) stream.Observable[rxhttp.Response] {
		opts := append(f.headers(), rxhttp.WithQuery("per_page", strconv.Itoa(f.cfg.PerRepo)))
		if marker != "" {
			opts = append(opts, rxhttp.WithHeader("If-Modified-Since", marker))
		}
		u := f.cfg.BaseURL + "/repos/" + (&url.URL{Path: repo}).EscapedPath() + "/events"
		return rxhttp.ReadResponse(f.client.Get(u, opts...))
	})
}

// Fetch fetches new events for the top repositories using the marker held
// at the time of the call. The responses are shared between the events
// branch and the marker branch. Unsuccessful responses and responses with
// no events are skipped.
func (f *Feed) Fetch(ctx context.Context) error {
	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()
	return f.fetch(ctx)
}

func (f *Feed) fetch(ctx context.Context) error {
	shared, connect := stream.Multicast(
		stream.MulticastParams{BufferSize: f.cfg.Repos, MinSubscribers: 2},
		f.responses(f.Repositories(), f.LastModified.Value()))
	ok := stream.Filter(shared, rxhttp.Response.OK)

	events := stream.Filter(
		stream.Map(ok, func(r rxhttp.Response) []Event { return DecodeEvents(r.Body) }),
		func(evs []Event) bool { return len(evs) > 0 })

	markers := stream.CompactMap(ok, func(r rxhttp.Response) (string, bool) {
		marker := r.Header.Get("Last-Modified")
		return marker, marker != ""
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return events.Observe(ctx, func(evs []Event) error {
			f.Process(ctx, evs)
			return nil
		})
	})
	g.Go(func() error {
		return markers.Observe(ctx, func(marker string) error {
			f.saveLastModified(ctx, marker)
			return nil
		})
	})
	g.Go(func() error {
		return connect(ctx)
	})
	return g.Wait()
}
