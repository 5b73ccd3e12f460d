// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package cli

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joamaki/rxplay/internal/playground"
)

type exampleInfo struct {
	Chapter string `json:"chapter" yaml:"chapter"`
	Name    string `json:"name" yaml:"name"`
}

func NewPlaygroundCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playground",
		Short: "Run the stream operator examples",
	}
	cmd.AddCommand(newPlaygroundListCommand(opts))
	cmd.AddCommand(newPlaygroundRunCommand(opts))
	return cmd
}

func newPlaygroundListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [CHAPTER]",
		Short: "List the examples",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapter := ""
			if len(args) > 0 {
				chapter = strings.ToLower(args[0])
			}
			var infos []exampleInfo
			for _, ex := range playground.Examples(chapter) {
				infos = append(infos, exampleInfo{Chapter: ex.Chapter, Name: ex.Name})
			}
			if len(infos) == 0 {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("no chapter %q, chapters are %v", chapter, playground.Chapters()))
			}
			return write(cmd.OutOrStdout(), opts.Output, infos, func(w io.Writer) error {
				t := newTable(w, "Chapter", "Example")
				for _, info := range infos {
					t.AppendRow([]any{info.Chapter, info.Name})
				}
				t.Render()
				return nil
			})
		},
	}
}

func newPlaygroundRunCommand(opts *RootOptions) *cobra.Command {
	var (
		seed   uint64
		second time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run [QUERY]",
		Short: "Run the examples of a chapter, a single example or all of them",
		Example: `  rxplay playground run combining
  rxplay playground run "take while"
  rxplay playground run time --second 100ms`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := "all"
			if len(args) > 0 {
				query = args[0]
			}
			examples := playground.Find(query)
			if len(examples) == 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("no example or chapter matches %q", query))
			}

			env := playground.NewEnv(cmd.OutOrStdout())
			if cmd.Flags().Changed("seed") {
				env.Rand = rand.New(rand.NewPCG(seed, seed))
			}
			if second > 0 {
				env.Second = second
			}
			opts.Log.Debug("running examples", "query", query, "count", len(examples))
			return playground.Run(cmd.Context(), env, examples)
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for the randomized examples")
	cmd.Flags().DurationVar(&second, "second", time.Second, "length of a second in the time examples")

	return cmd
}
