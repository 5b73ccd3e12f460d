// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package gitfeed

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Event is a single repository activity event.
type Event struct {
	Name      string    `json:"name" yaml:"name"`
	Repo      string    `json:"repo" yaml:"repo"`
	Action    string    `json:"action" yaml:"action"`
	Time      time.Time `json:"time" yaml:"time"`
	AvatarURL string    `json:"avatar_url" yaml:"avatar_url"`
}

// record is the stored and transferred shape of an event. It mirrors the
// GitHub events API so that cached events can be read back with the same
// rules as fetched ones.
type record struct {
	Type string `json:"type" plist:"type"`
	Repo struct {
		Name string `json:"name" plist:"name"`
	} `json:"repo" plist:"repo"`
	Actor struct {
		DisplayLogin string `json:"display_login" plist:"display_login"`
		AvatarURL    string `json:"avatar_url" plist:"avatar_url"`
	} `json:"actor" plist:"actor"`
	CreatedAt string `json:"created_at,omitempty" plist:"created_at,omitempty"`
}

func (r record) event() (Event, bool) {
	if r.Type == "" || r.Repo.Name == "" || r.Actor.DisplayLogin == "" || r.Actor.AvatarURL == "" {
		return Event{}, false
	}
	ev := Event{
		Name:      r.Actor.DisplayLogin,
		Repo:      r.Repo.Name,
		Action:    r.Type,
		AvatarURL: r.Actor.AvatarURL,
	}
	if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
		ev.Time = t
	}
	return ev, true
}

func (e Event) record() record {
	var r record
	r.Type = e.Action
	r.Repo.Name = e.Repo
	r.Actor.DisplayLogin = e.Name
	r.Actor.AvatarURL = e.AvatarURL
	if !e.Time.IsZero() {
		r.CreatedAt = e.Time.UTC().Format(time.RFC3339)
	}
	return r
}

func fromRecords(records []record) []Event {
	events := make([]Event, 0, len(records))
	for _, r := range records {
		if ev, ok := r.event(); ok {
			events = append(events, ev)
		}
	}
	return events
}

func toRecords(events []Event) []record {
	records := make([]record, len(events))
	for i, ev := range events {
		records[i] = ev.record()
	}
	return records
}

// DecodeEvents decodes a GitHub events response. Entries that are malformed
// or miss a required key are dropped. A body that is not a JSON array
// yields no events.
func DecodeEvents(body []byte) []Event {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	records := make([]record, 0, len(raw))
	for _, msg := range raw {
		var r record
		if err := json.Unmarshal(msg, &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	return fromRecords(records)
}

// Detail is the secondary line of an event row, e.g. "ReactiveX/RxSwift, push".
func (e Event) Detail() string {
	action := cases.Lower(language.English).String(strings.ReplaceAll(e.Action, "Event", ""))
	return e.Repo + ", " + action
}

// Age describes how long ago the event happened relative to 'now'.
func (e Event) Age(now time.Time) string {
	if e.Time.IsZero() {
		return ""
	}
	return humanize.RelTime(e.Time, now, "ago", "from now")
}
