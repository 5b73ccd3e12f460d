// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joamaki/rxplay/internal/planet"
	"github.com/joamaki/rxplay/stream"
)

func NewPlanetCommand(opts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "planet",
		Short: "Browse natural events tracked by NASA EONET",
		Long: `Download the event categories and the open and closed events of each
category and list the categories with their event counts. With --category
the events of that category are listed instead.`,
		Example: `  rxplay planet --days 30
  rxplay planet --category wildfires -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api := planet.NewClient(opts.Config.EONET(), opts.httpClient())
			progress := stream.OnNext(
				planet.DownloadAll(api, opts.Config.Planet.MaxConcurrent, opts.Log),
				func(p planet.Progress) {
					if opts.Output == "text" && !p.Finished() {
						fmt.Fprintf(cmd.ErrOrStderr(), "\r%s", p.Label())
					}
				})
			last, err := stream.Last(cmd.Context(), progress)
			if opts.Output == "text" {
				fmt.Fprint(cmd.ErrOrStderr(), "\r\033[K")
			}
			if err != nil {
				return err
			}

			if category == "" {
				return write(cmd.OutOrStdout(), opts.Output, last.Categories, func(w io.Writer) error {
					t := newTable(w, "Category", "Events")
					for _, c := range last.Categories {
						t.AppendRow([]any{c.Name, len(c.Events)})
					}
					t.Render()
					return nil
				})
			}

			i := slices.IndexFunc(last.Categories, func(c planet.Category) bool { return c.ID == category })
			if i < 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("no such category %q", category))
			}
			events := last.Categories[i].Events
			return write(cmd.OutOrStdout(), opts.Output, events, func(w io.Writer) error {
				t := newTable(w, "Event", "Date", "Status")
				for _, ev := range events {
					status := "open"
					if !ev.Closed.IsZero() {
						status = "closed " + humanize.Time(ev.Closed)
					}
					t.AppendRow([]any{ev.Title, ev.Date.Format("2006-01-02"), status})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "list the events of the category with this id")
	cmd.Flags().Int("days", 0, "how many days back to download events")
	cmd.Flags().Int("max-concurrent", 0, "number of categories downloaded at once")

	return cmd
}
