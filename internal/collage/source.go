// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package collage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/joamaki/rxplay/stream"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif"}

func isImage(path string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(path)))
}

// Dir emits the paths of the images in 'dir' in lexical order.
func Dir(dir string) stream.Observable[string] {
	return stream.FuncObservable[string](
		func(ctx context.Context, next func(string) error) error {
			entries, err := os.ReadDir(dir)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.IsDir() || !isImage(e.Name()) {
					continue
				}
				if err := next(filepath.Join(dir, e.Name())); err != nil {
					return err
				}
			}
			return nil
		})
}

// Watch emits the path of every image created or written in 'dir' until
// cancelled.
func Watch(dir string, log *slog.Logger) stream.Observable[string] {
	return stream.FuncObservable[string](
		func(ctx context.Context, next func(string) error) error {
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isImage(event.Name) {
						continue
					}
					if err := next(event.Name); err != nil {
						return err
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Warn("watcher error", "dir", dir, "error", err)
				}
			}
		})
}

// Load reads and decodes the images at the given paths, 'par' at a time.
// Files that cannot be read or decoded are skipped. Photos may be emitted
// out of order.
func Load(paths stream.Observable[string], par int, log *slog.Logger) stream.Observable[Photo] {
	type result struct {
		photo Photo
		err   error
	}
	results := stream.ParallelMap(paths, par, func(path string) result {
		data, err := os.ReadFile(path)
		if err != nil {
			return result{err: err}
		}
		p, err := DecodePhoto(filepath.Base(path), data)
		return result{photo: p, err: err}
	})
	return stream.CompactMap(results, func(r result) (Photo, bool) {
		if r.err != nil {
			log.Debug("skipping photo", "error", r.err)
			return Photo{}, false
		}
		return r.photo, true
	})
}
