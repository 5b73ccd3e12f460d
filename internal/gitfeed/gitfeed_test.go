// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package gitfeed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rxhttp "github.com/joamaki/rxplay/clients/http"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func testEvents(prefix string, n int) []Event {
	base := time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)
	events := make([]Event, n)
	for i := range events {
		events[i] = Event{
			Name:      fmt.Sprintf("%s%d", prefix, i),
			Repo:      "ReactiveX/RxSwift",
			Action:    "PushEvent",
			Time:      base.Add(-time.Duration(i) * time.Minute),
			AvatarURL: "https://avatars.example.com/" + prefix,
		}
	}
	return events
}

func eventJSON(login, repo, typ string) string {
	return fmt.Sprintf(`{"type":%q,"repo":{"name":%q},"actor":{"display_login":%q,"avatar_url":"https://a/%s"},"created_at":"2022-05-01T12:00:00Z"}`,
		typ, repo, login, login)
}

func stores(t *testing.T) map[string]Store {
	ctx := context.Background()
	plistStore, err := NewPlistStore(t.TempDir())
	require.NoError(t, err)
	sqliteStore, err := OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "gitfeed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })
	return map[string]Store{"plist": plistStore, "sqlite": sqliteStore}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			events, err := store.LoadEvents(ctx)
			require.NoError(t, err)
			assert.Empty(t, events, "missing store should be empty")

			marker, err := store.LastModified(ctx)
			require.NoError(t, err)
			assert.Empty(t, marker)

			want := testEvents("a", 3)
			require.NoError(t, store.SaveEvents(ctx, want))
			got, err := store.LoadEvents(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// Saving replaces the stored list.
			require.NoError(t, store.SaveEvents(ctx, want[:1]))
			got, err = store.LoadEvents(ctx)
			require.NoError(t, err)
			assert.Equal(t, want[:1], got)

			require.NoError(t, store.SaveLastModified(ctx, "Sun, 01 May 2022 12:00:00 GMT"))
			require.NoError(t, store.SaveLastModified(ctx, "Mon, 02 May 2022 12:00:00 GMT"))
			marker, err = store.LastModified(ctx)
			require.NoError(t, err)
			assert.Equal(t, "Mon, 02 May 2022 12:00:00 GMT", marker)
		})
	}
}

func TestPlistStoreFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewPlistStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveEvents(ctx, testEvents("a", 1)))
	b, err := os.ReadFile(filepath.Join(dir, EventsFile))
	require.NoError(t, err)
	assert.Contains(t, string(b), "<plist")
	assert.Contains(t, string(b), "<key>display_login</key>")

	require.NoError(t, store.SaveLastModified(ctx, "marker"))
	b, err = os.ReadFile(filepath.Join(dir, ModifiedFile))
	require.NoError(t, err)
	assert.Equal(t, "marker", string(b))

	// No temporary files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDecodeEvents(t *testing.T) {
	body := "[" +
		eventJSON("alice", "ReactiveX/RxSwift", "PushEvent") + "," +
		`{"type":"PushEvent","repo":{"name":"x/y"}},` +
		`{"type":"PushEvent","repo":"bad","actor":{}},` +
		eventJSON("bob", "ReactiveX/RxSwift", "WatchEvent") + "]"
	events := DecodeEvents([]byte(body))
	require.Len(t, events, 2)
	assert.Equal(t, "alice", events[0].Name)
	assert.Equal(t, "bob", events[1].Name)
	assert.Equal(t, "https://a/bob", events[1].AvatarURL)
	assert.Equal(t, time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC), events[1].Time)

	assert.Empty(t, DecodeEvents([]byte(`{"message":"rate limited"}`)))
	assert.Empty(t, DecodeEvents([]byte(`not json`)))
}

func TestEventRow(t *testing.T) {
	ev := Event{Name: "alice", Repo: "ReactiveX/RxSwift", Action: "PullRequestEvent"}
	assert.Equal(t, "ReactiveX/RxSwift, pullrequest", ev.Detail())
	assert.Equal(t, "", ev.Age(time.Now()))

	ev.Time = time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2 hours ago", ev.Age(ev.Time.Add(2*time.Hour)))
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			feed := New(DefaultConfig, rxhttp.NewClient(nil, testLog), store, testLog)

			// 60 new events on an empty store leaves the 50 most recent.
			newEvents := testEvents("a", 60)
			feed.Process(ctx, newEvents)
			assert.Equal(t, newEvents[:MaxEvents], feed.Events.Value())

			stored, err := store.LoadEvents(ctx)
			require.NoError(t, err)
			assert.Equal(t, newEvents[:MaxEvents], stored)

			// An empty update leaves everything unchanged.
			feed.Process(ctx, nil)
			stored, err = store.LoadEvents(ctx)
			require.NoError(t, err)
			assert.Len(t, stored, MaxEvents)

			// New events are prepended.
			more := testEvents("b", 2)
			feed.Process(ctx, more)
			got := feed.Events.Value()
			require.Len(t, got, MaxEvents)
			assert.Equal(t, more, got[:2])
			assert.Equal(t, newEvents[:MaxEvents-2], got[2:])
		})
	}
}

// fakeGitHub serves a search result with the given repositories and the
// events for each. Repositories with no events answer with 500.
type fakeGitHub struct {
	mu           sync.Mutex
	events       map[string][]string
	lastModified string
	sinceHeaders []string
}

func (g *fakeGitHub) start(t *testing.T, repos ...string) string {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search/repositories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "language:swift", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		fmt.Fprint(w, `{"items":[`)
		for i, repo := range repos {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"full_name":%q}`, repo)
		}
		fmt.Fprint(w, `]}`)
	})
	mux.HandleFunc("GET /repos/{owner}/{repo}/events", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		since := r.Header.Get("If-Modified-Since")
		g.sinceHeaders = append(g.sinceHeaders, since)
		if since != "" && since == g.lastModified {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		events, ok := g.events[r.PathValue("owner")+"/"+r.PathValue("repo")]
		if !ok {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if g.lastModified != "" {
			w.Header().Set("Last-Modified", g.lastModified)
		}
		fmt.Fprint(w, "[")
		for i, ev := range events {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprint(w, ev)
		}
		fmt.Fprint(w, "]")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFetch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gh := &fakeGitHub{
		events: map[string][]string{
			"owner/a": {eventJSON("a1", "owner/a", "PushEvent"), eventJSON("a2", "owner/a", "ForkEvent")},
			"owner/c": {},
			"owner/d": {eventJSON("d1", "owner/d", "WatchEvent")},
		},
		lastModified: "Sun, 01 May 2022 12:00:00 GMT",
	}
	cfg := DefaultConfig
	cfg.BaseURL = gh.start(t, "owner/a", "owner/b", "owner/c", "owner/d")

	store, err := NewPlistStore(t.TempDir())
	require.NoError(t, err)
	feed := New(cfg, rxhttp.NewClient(nil, testLog), store, testLog)

	require.NoError(t, feed.Refresh(ctx))

	names := func(events []Event) []string {
		out := []string{}
		for _, ev := range events {
			out = append(out, ev.Name)
		}
		return out
	}
	// owner/b fails and owner/c is empty, both are skipped.
	assert.Equal(t, []string{"d1", "a1", "a2"}, names(feed.Events.Value()))
	assert.Equal(t, gh.lastModified, feed.LastModified.Value())

	marker, err := store.LastModified(ctx)
	require.NoError(t, err)
	assert.Equal(t, gh.lastModified, marker)

	// The second refresh sends the marker and gets nothing new.
	require.NoError(t, feed.Refresh(ctx))
	assert.Equal(t, []string{"d1", "a1", "a2"}, names(feed.Events.Value()))

	gh.mu.Lock()
	defer gh.mu.Unlock()
	assert.Equal(t, []string{"", "", "", ""}, gh.sinceHeaders[:4])
	assert.Equal(t, []string{gh.lastModified, gh.lastModified, gh.lastModified, gh.lastModified}, gh.sinceHeaders[4:])
}

func TestConcurrentRefresh(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gh := &fakeGitHub{
		events:       map[string][]string{"owner/a": {eventJSON("a1", "owner/a", "PushEvent")}},
		lastModified: "Sun, 01 May 2022 12:00:00 GMT",
	}
	cfg := DefaultConfig
	cfg.BaseURL = gh.start(t, "owner/a")

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			feed := New(cfg, rxhttp.NewClient(nil, testLog), store, testLog)

			var wg sync.WaitGroup
			errs := make([]error, 4)
			for i := range errs {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs[i] = feed.Refresh(ctx)
				}()
			}
			wg.Wait()
			for _, err := range errs {
				require.NoError(t, err)
			}

			events := feed.Events.Value()
			require.Len(t, events, 1, "events: %v", events)
			assert.Equal(t, "a1", events[0].Name)

			stored, err := store.LoadEvents(ctx)
			require.NoError(t, err)
			assert.Len(t, stored, 1)
		})
	}
}

func TestRefreshTransportError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cfg := DefaultConfig
	cfg.BaseURL = srv.URL
	store, err := NewPlistStore(t.TempDir())
	require.NoError(t, err)
	cached := testEvents("cached", 3)
	require.NoError(t, store.SaveEvents(ctx, cached))

	feed := New(cfg, rxhttp.NewClient(nil, testLog), store, testLog)
	assert.Error(t, feed.Refresh(ctx))
	assert.Equal(t, cached, feed.Events.Value())
}
