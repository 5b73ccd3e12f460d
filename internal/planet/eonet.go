// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package planet downloads natural events from NASA's Earth Observatory
// Natural Event Tracker (EONET) grouped by category.
package planet

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"time"

	rxhttp "github.com/joamaki/rxplay/clients/http"
	"github.com/joamaki/rxplay/stream"
)

type Category struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Events      []Event `json:"events" yaml:"events"`
}

// Row is the category as shown in a list, e.g. "Wildfires (12)".
func (c Category) Row() string {
	return fmt.Sprintf("%s (%d)", c.Name, len(c.Events))
}

type Event struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Date       time.Time `json:"date" yaml:"date"`
	Closed     time.Time `json:"closed" yaml:"closed"`
	Categories []string  `json:"categories" yaml:"categories"`
}

// Filter returns the events that belong to the category and are not yet
// in it, most recent first.
func (c Category) Filter(events []Event) []Event {
	out := []Event{}
	for _, ev := range events {
		if !slices.Contains(ev.Categories, c.ID) {
			continue
		}
		if slices.ContainsFunc(c.Events, func(e Event) bool { return e.ID == ev.ID }) {
			continue
		}
		out = append(out, ev)
	}
	slices.SortStableFunc(out, func(a, b Event) int { return b.Date.Compare(a.Date) })
	return out
}

type Config struct {
	BaseURL string
	// Days is how far back events are downloaded.
	Days int
	// MaxConcurrent is the number of categories downloaded at once.
	MaxConcurrent int
}

var DefaultConfig = Config{
	BaseURL:       "https://eonet.gsfc.nasa.gov/api/v3",
	Days:          360,
	MaxConcurrent: 2,
}

type Client struct {
	cfg  Config
	http *rxhttp.Client
}

func NewClient(cfg Config, http *rxhttp.Client) *Client {
	return &Client{cfg: cfg, http: http}
}

type categoriesResponse struct {
	Categories []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"categories"`
}

type eventsResponse struct {
	Events []struct {
		ID         string  `json:"id"`
		Title      string  `json:"title"`
		Closed     *string `json:"closed"`
		Categories []struct {
			ID string `json:"id"`
		} `json:"categories"`
		Geometry []struct {
			Date string `json:"date"`
		} `json:"geometry"`
	} `json:"events"`
}

func (r eventsResponse) events() []Event {
	events := make([]Event, 0, len(r.Events))
	for _, e := range r.Events {
		ev := Event{ID: e.ID, Title: e.Title}
		if e.Closed != nil {
			ev.Closed, _ = time.Parse(time.RFC3339, *e.Closed)
		}
		for _, c := range e.Categories {
			ev.Categories = append(ev.Categories, c.ID)
		}
		// The latest geometry dates the event.
		for _, g := range e.Geometry {
			if t, err := time.Parse(time.RFC3339, g.Date); err == nil && t.After(ev.Date) {
				ev.Date = t
			}
		}
		events = append(events, ev)
	}
	return events
}

// Categories emits the list of categories sorted by name.
func (c *Client) Categories() stream.Observable[[]Category] {
	return stream.Map(
		rxhttp.DecodeJSON[categoriesResponse](rxhttp.ResponseBody(c.http.Get(c.cfg.BaseURL+"/categories"))),
		func(r categoriesResponse) []Category {
			cats := make([]Category, 0, len(r.Categories))
			for _, rc := range r.Categories {
				cats = append(cats, Category{ID: rc.ID, Name: rc.Title, Description: rc.Description, Events: []Event{}})
			}
			slices.SortFunc(cats, func(a, b Category) int { return cmp.Compare(a.Name, b.Name) })
			return cats
		})
}

func (c *Client) events(category Category, closed bool) stream.Observable[[]Event] {
	status := "open"
	if closed {
		status = "closed"
	}
	resp := c.http.Get(c.cfg.BaseURL+"/events",
		rxhttp.WithQuery("category", category.ID),
		rxhttp.WithQuery("days", strconv.Itoa(c.cfg.Days)),
		rxhttp.WithQuery("status", status))
	return stream.Map(rxhttp.DecodeJSON[eventsResponse](rxhttp.ResponseBody(resp)), eventsResponse.events)
}

// Events emits a single list holding both the open and the closed events
// of the category.
func (c *Client) Events(category Category) stream.Observable[[]Event] {
	return stream.Reduce(
		stream.Merge(c.events(category, false), c.events(category, true)),
		[]Event{},
		func(all, events []Event) []Event { return append(all, events...) })
}
