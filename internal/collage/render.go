// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package collage

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/joamaki/rxplay/stream"
)

// Render lays the photos out on a grid of the given size. Up to two
// photos go on a single row, more are split over two rows.
func Render(photos []Photo, size image.Point) *image.RGBA {
	dst := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if len(photos) == 0 {
		return dst
	}

	rows := 1
	if len(photos) >= 3 {
		rows = 2
	}
	columns := int(math.Round(float64(len(photos)) / float64(rows)))
	tile := image.Point{
		X: int(math.Round(float64(size.X) / float64(columns))),
		Y: int(math.Round(float64(size.Y) / float64(rows))),
	}
	for i, p := range photos {
		origin := image.Point{X: (i % columns) * tile.X, Y: (i / columns) * tile.Y}
		r := image.Rectangle{Min: origin, Max: origin.Add(tile)}.Intersect(dst.Bounds())
		draw.CatmullRom.Scale(dst, r, p.Image, p.Image.Bounds(), draw.Over, nil)
	}
	return dst
}

// Icon scales the image down to a small icon.
func Icon(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, 22, 22))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Previews renders the collage at most once per 'interval'. The latest
// set of photos is always rendered.
func Previews(photos stream.Observable[[]Photo], interval time.Duration, size image.Point) stream.Observable[*image.RGBA] {
	return stream.Map(
		stream.ThrottleLatest(photos, interval),
		func(photos []Photo) *image.RGBA { return Render(photos, size) })
}

// Save writes the image as a PNG file into 'dir' and returns the id it was
// saved under.
func Save(dir string, img image.Image) (string, error) {
	id := uuid.NewString()
	f, err := os.Create(filepath.Join(dir, id+".png"))
	if err != nil {
		return "", fmt.Errorf("save collage: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encode collage: %w", err)
	}
	return id, f.Close()
}
