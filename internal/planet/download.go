// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package planet

import (
	"fmt"
	"log/slog"

	"github.com/joamaki/rxplay/stream"
)

// Progress is the state of a download: the categories with the events
// downloaded so far.
type Progress struct {
	Categories []Category
	Done       int
	Total      int
}

// Fraction is the share of categories downloaded, from 0 to 1.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}

// Label is e.g. "Downloading 50%".
func (p Progress) Label() string {
	return fmt.Sprintf("Downloading %d%%", int(p.Fraction()*100))
}

// Finished is true once every category has been downloaded.
func (p Progress) Finished() bool {
	return p.Done >= p.Total
}

// Fetcher is implemented by Client.
type Fetcher interface {
	Categories() stream.Observable[[]Category]
	Events(category Category) stream.Observable[[]Event]
}

// Download fetches the events of every category, 'maxConcurrent' at a
// time. It first emits the categories with no events and then the updated
// categories after each download. A category that fails to download is
// counted as done with no events.
func Download(api Fetcher, categories []Category, maxConcurrent int, log *slog.Logger) stream.Observable[Progress] {
	downloads := stream.MergeAll(
		stream.Map(stream.FromSlice(categories), func(c Category) stream.Observable[[]Event] {
			return stream.CatchError(api.Events(c), func(err error) stream.Observable[[]Event] {
				log.Warn("failed to download events", "category", c.Name, "error", err)
				return stream.Just([]Event{})
			})
		}),
		maxConcurrent)

	initial := Progress{Categories: categories, Total: len(categories)}
	updated := stream.Scan(downloads, initial, func(p Progress, events []Event) Progress {
		cats := make([]Category, len(p.Categories))
		for i, c := range p.Categories {
			if add := c.Filter(events); len(add) > 0 {
				c.Events = append(append([]Event{}, c.Events...), add...)
			}
			cats[i] = c
		}
		return Progress{Categories: cats, Done: p.Done + 1, Total: p.Total}
	})
	return stream.StartWith(updated, initial)
}

// DownloadAll fetches the categories and then downloads their events.
func DownloadAll(api Fetcher, maxConcurrent int, log *slog.Logger) stream.Observable[Progress] {
	return stream.FlatMap(api.Categories(), func(categories []Category) stream.Observable[Progress] {
		return Download(api, categories, maxConcurrent, log)
	})
}
