// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/joamaki/rxplay/internal/gitfeed"
)

func NewGitfeedCommand(opts *RootOptions) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "gitfeed",
		Short: "Show recent activity in popular GitHub repositories",
		Long: `Fetch the latest events of the most starred repositories matching the
search query and show them together with the cached ones. Only events newer
than the previous fetch are downloaded. With --offline the cache is shown
as is.`,
		Example: `  rxplay gitfeed --query language:go
  rxplay gitfeed --store sqlite --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			feed, closeStore, err := opts.openFeed(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "open event store", err)
			}
			defer closeStore()

			var refreshErr error
			if offline {
				err = feed.Load(ctx)
			} else {
				refreshErr = feed.Refresh(ctx)
			}
			if err != nil {
				return err
			}

			events := feed.Events.Value()
			err = write(cmd.OutOrStdout(), opts.Output, events, func(w io.Writer) error {
				return eventTable(w, events, time.Now())
			})
			if err != nil {
				return err
			}
			if refreshErr != nil {
				return WrapExitError(ExitFailure, "showing cached events", refreshErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "show the cached events without fetching")
	cmd.Flags().String("store", "", "event store (plist|sqlite)")
	cmd.Flags().String("cache-dir", "", "directory of the event store")
	cmd.Flags().String("token", "", "GitHub API token")
	cmd.Flags().String("query", "", "repository search query")
	cmd.Flags().Int("repos", 0, "number of repositories to follow")

	return cmd
}

func eventTable(w io.Writer, events []gitfeed.Event, now time.Time) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No events")
		return err
	}
	t := newTable(w, "Who", "What", "When")
	for _, ev := range events {
		t.AppendRow([]any{ev.Name, ev.Detail(), ev.Age(now)})
	}
	t.Render()
	return nil
}
