// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package collage builds a photo collage out of a stream of selected
// photos.
package collage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"sync"

	"github.com/joamaki/rxplay/stream"
)

// MaxPhotos is the number of photos a collage can hold.
const MaxPhotos = 6

type Photo struct {
	Name  string
	Image image.Image
	// Data is the encoded image.
	Data []byte
}

// DecodePhoto decodes an encoded PNG, JPEG or GIF image.
func DecodePhoto(name string, data []byte) (Photo, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Photo{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return Photo{Name: name, Image: img, Data: data}, nil
}

// Landscape is true when the photo is wider than it is tall.
func (p Photo) Landscape() bool {
	b := p.Image.Bounds()
	return b.Dx() > b.Dy()
}

// size is the length of the encoded photo. Photos without encoded data
// are encoded as PNG to find out.
func (p Photo) size() int {
	if p.Data != nil {
		return len(p.Data)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.Image); err != nil {
		return 0
	}
	return buf.Len()
}

// Collage holds the selected photos.
type Collage struct {
	Photos *stream.Relay[[]Photo]

	mu   sync.Mutex
	seen map[int]struct{}
}

func New() *Collage {
	return &Collage{
		Photos: stream.NewRelay([]Photo{}),
		seen:   map[int]struct{}{},
	}
}

// Clear removes all photos.
func (c *Collage) Clear() {
	c.mu.Lock()
	c.seen = map[int]struct{}{}
	c.mu.Unlock()
	c.Photos.Accept([]Photo{})
}

// firstSeen records the encoded size of the photo and reports whether it
// was new. Photos are considered equal when their encoded sizes match.
func (c *Collage) firstSeen(p Photo) bool {
	n := p.size()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[n]; ok {
		return false
	}
	c.seen[n] = struct{}{}
	return true
}

// Select filters the selected photos down to the ones that would be added:
// landscape photos not seen before, for as long as the collage has room.
func (c *Collage) Select(selected stream.Observable[Photo]) stream.Observable[Photo] {
	return stream.TakeWhile(
		func(Photo) bool { return len(c.Photos.Value()) < MaxPhotos },
		stream.Filter(stream.Filter(selected, Photo.Landscape), c.firstSeen))
}

var errFull = errors.New("collage is full")

// Add appends the selected photos to the collage until it is full or the
// selection completes. A full collage completes the selection right away,
// also when it was filled by another Add.
func (c *Collage) Add(ctx context.Context, selected stream.Observable[Photo]) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	watching := make(chan struct{})
	go func() {
		defer close(watching)
		c.Photos.Observe(ctx, func(photos []Photo) error {
			if len(photos) >= MaxPhotos {
				cancel(errFull)
			}
			return nil
		})
	}()

	err := c.Select(selected).Observe(ctx, func(p Photo) error {
		c.Photos.Update(func(photos []Photo) []Photo {
			return append(append([]Photo{}, photos...), p)
		})
		return nil
	})
	cancel(nil)
	<-watching
	if errors.Is(context.Cause(ctx), errFull) {
		return nil
	}
	return err
}

// UIState is the state of the collage controls for a number of photos.
type UIState struct {
	Count        int    `json:"count" yaml:"count"`
	SaveEnabled  bool   `json:"save_enabled" yaml:"save_enabled"`
	ClearEnabled bool   `json:"clear_enabled" yaml:"clear_enabled"`
	AddEnabled   bool   `json:"add_enabled" yaml:"add_enabled"`
	Title        string `json:"title" yaml:"title"`
}

func State(photos []Photo) UIState {
	n := len(photos)
	title := "Collage"
	if n > 0 {
		title = fmt.Sprintf("%d photos", n)
	}
	return UIState{
		Count:        n,
		SaveEnabled:  n > 0 && n%2 == 0,
		ClearEnabled: n > 0,
		AddEnabled:   n < MaxPhotos,
		Title:        title,
	}
}

// States emits the control state for every change to the collage.
func (c *Collage) States() stream.Observable[UIState] {
	return stream.Map[[]Photo](c.Photos, State)
}
