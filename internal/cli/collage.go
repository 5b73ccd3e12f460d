// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package cli

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joamaki/rxplay/internal/collage"
	"github.com/joamaki/rxplay/stream"
)

type collageResult struct {
	ID     string          `json:"id" yaml:"id"`
	Path   string          `json:"path" yaml:"path"`
	Photos []string        `json:"photos" yaml:"photos"`
	State  collage.UIState `json:"state" yaml:"state"`
}

func NewCollageCommand(opts *RootOptions) *cobra.Command {
	var (
		dir   string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "collage [PHOTO...]",
		Short: "Combine photos into a collage",
		Long: `Add the given photos, then the photos in --dir, to a collage and save it as
a PNG image. Only landscape photos are added, each at most once, and up to
six of them. A collage needs an even number of photos to be saved.

With --watch the photos written into --dir are added as they appear until
the collage is full or the command is interrupted.`,
		Example: `  rxplay collage a.png b.jpg
  rxplay collage --dir ~/Pictures --watch --output-dir /tmp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && dir == "" {
				return NewExitError(ExitCommandError, "give photos or --dir")
			}
			if watch && dir == "" {
				return NewExitError(ExitCommandError, "--watch needs --dir")
			}
			cfg := opts.Config.Collage

			paths := stream.FromSlice(args)
			if dir != "" {
				paths = stream.Concat(paths, collage.Dir(dir))
			}
			if watch {
				paths = stream.Concat(paths, collage.Watch(dir, opts.Log))
			}

			c := collage.New()
			if err := addPhotos(cmd.Context(), opts, c, collage.Load(paths, cfg.Parallelism, opts.Log)); err != nil {
				return err
			}

			photos := c.Photos.Value()
			state := collage.State(photos)
			if !state.SaveEnabled {
				return NewExitError(ExitFailure,
					fmt.Sprintf("need an even number of landscape photos to save, have %d", state.Count))
			}
			img := collage.Render(photos, image.Pt(cfg.Width, cfg.Height))
			id, err := collage.Save(cfg.OutputDir, img)
			if err != nil {
				return err
			}

			result := collageResult{
				ID:    id,
				Path:  filepath.Join(cfg.OutputDir, id+".png"),
				State: state,
			}
			for _, p := range photos {
				result.Photos = append(result.Photos, p.Name)
			}
			return write(cmd.OutOrStdout(), opts.Output, result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Saved %s (%s)\n", result.Path, state.Title)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory to add photos from")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep adding photos written into --dir")
	cmd.Flags().Int("width", 0, "collage width in pixels")
	cmd.Flags().Int("height", 0, "collage height in pixels")
	cmd.Flags().String("output-dir", "", "directory to save the collage into")

	return cmd
}

// addPhotos adds the selected photos to the collage and logs the state
// after each change. Interrupting the selection keeps the photos added so
// far.
func addPhotos(ctx context.Context, opts *RootOptions, c *collage.Collage, selected stream.Observable[collage.Photo]) error {
	addCtx, cancelAdd := context.WithCancel(ctx)
	defer cancelAdd()

	g, gctx := errgroup.WithContext(addCtx)
	g.Go(func() error {
		err := c.States().Observe(gctx, func(s collage.UIState) error {
			opts.Log.Debug("collage updated", "title", s.Title, "save", s.SaveEnabled, "add", s.AddEnabled)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancelAdd()
		err := c.Add(addCtx, selected)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			opts.Log.Info("selection interrupted", "photos", len(c.Photos.Value()))
			return nil
		}
		return err
	})
	return g.Wait()
}
