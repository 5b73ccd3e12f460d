// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/joamaki/rxplay/internal/dialer"
	"github.com/joamaki/rxplay/internal/gitfeed"
	"github.com/joamaki/rxplay/internal/weather"
	"github.com/joamaki/rxplay/stream"
)

const requestTimeout = 15 * time.Second

type dialResponse struct {
	Keys   string `json:"keys"`
	Result string `json:"result"`
}

// dial dials the keys given in the 'keys' query parameter, one key per
// character.
func (s *Server) dial(w http.ResponseWriter, r *http.Request) {
	keys := r.URL.Query().Get("keys")
	result, err := stream.First(r.Context(), dialer.DialKeys(stream.FromSlice(strings.Split(keys, ""))))
	if errors.Is(err, stream.ErrEmpty) {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Errorf("need %d digits to dial", dialer.NumberLength))
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, dialResponse{Keys: keys, Result: result})
}

type weatherResponse struct {
	weather.Weather
	TemperatureLabel string `json:"temperature_label"`
	HumidityLabel    string `json:"humidity_label"`
}

// currentWeather looks up the weather for the 'city' query parameter or
// for the 'lat' and 'lon' coordinates. A failed lookup results in the
// empty placeholder weather.
func (s *Server) currentWeather(w http.ResponseWriter, r *http.Request) {
	if s.weather == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("weather lookup not configured"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	var in weather.Inputs
	if city := q.Get("city"); city != "" {
		in.Cities = stream.Just(city)
	} else if q.Has("lat") && q.Has("lon") {
		lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
		lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
		if err := errors.Join(err1, err2); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid coordinate: %w", err))
			return
		}
		in.LocationTaps = stream.Just(struct{}{})
		in.Locations = stream.Just(weather.Coordinate{Lat: lat, Lon: lon})
	} else {
		writeError(w, http.StatusBadRequest, errors.New("either 'city' or 'lat' and 'lon' are required"))
		return
	}

	result, err := stream.Last(ctx, weather.Results(weather.Search(in, s.weather)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, weatherResponse{
		Weather:          result,
		TemperatureLabel: result.TemperatureLabel(),
		HumidityLabel:    result.HumidityLabel(),
	})
}

type eventRow struct {
	gitfeed.Event
	Detail string `json:"detail"`
	Age    string `json:"age"`
}

func (s *Server) rows(events []gitfeed.Event) []eventRow {
	now := s.now()
	rows := make([]eventRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, eventRow{Event: ev, Detail: ev.Detail(), Age: ev.Age(now)})
	}
	return rows
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("event feed not configured"))
		return
	}
	writeJSON(w, http.StatusOK, s.rows(s.feed.Events.Value()))
}

type refreshResponse struct {
	Events       int    `json:"events"`
	LastModified string `json:"last_modified"`
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("event feed not configured"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := s.feed.Refresh(ctx); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Events:       len(s.feed.Events.Value()),
		LastModified: s.feed.LastModified.Value(),
	})
}

// eventList renders the events as the #events list.
func (s *Server) eventList(events []gitfeed.Event) string {
	var b strings.Builder
	b.WriteString(`<ul id="events">`)
	for _, row := range s.rows(events) {
		fmt.Fprintf(&b, `<li><img src="%s" alt=""><strong>%s</strong> %s <small>%s</small></li>`,
			html.EscapeString(row.AvatarURL),
			html.EscapeString(row.Name),
			html.EscapeString(row.Detail),
			html.EscapeString(row.Age))
	}
	b.WriteString(`</ul>`)
	return b.String()
}

type eventSignals struct {
	Count int `json:"count"`
}

// eventStream pushes the event list to the client whenever it changes.
// A slow client only gets the latest list.
func (s *Server) eventStream(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("event feed not configured"))
		return
	}
	sse := datastar.NewSSE(w, r)

	latest := stream.CoalesceByKey(stream.Observable[[]gitfeed.Event](s.feed.Events),
		func([]gitfeed.Event) struct{} { return struct{}{} }, 1)
	err := latest.Observe(r.Context(), func(events []gitfeed.Event) error {
		if err := sse.PatchElements(s.eventList(events)); err != nil {
			return err
		}
		return sse.MarshalAndPatchSignals(eventSignals{Count: len(events)})
	})
	if err != nil && r.Context().Err() == nil {
		s.log.Debug("event stream closed", "error", err)
		_ = sse.ConsoleError(err)
	}
}
