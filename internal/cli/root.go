// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package cli provides the rxplay command-line interface.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joamaki/rxplay/internal/config"
)

// RootOptions holds the global flags and the configuration loaded for the
// running command.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Output     string

	Config *config.Config
	Log    *slog.Logger
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rxplay",
		Short: "rxplay - reactive streams playground",
		Long: `A playground of reactive stream operators and the small apps built on them:
a phone dialer, a GitHub activity feed, a weather lookup, a photo collage
and a natural events browser.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			opts.Verbose = cfg.Verbose
			opts.Output = cfg.Output

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			opts.Log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: ./"+config.FileName+")")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "text", "output format (text|json|yaml)")

	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.Outputs, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(NewDialCommand(opts))
	cmd.AddCommand(NewWeatherCommand(opts))
	cmd.AddCommand(NewGitfeedCommand(opts))
	cmd.AddCommand(NewCollageCommand(opts))
	cmd.AddCommand(NewPlanetCommand(opts))
	cmd.AddCommand(NewPlaygroundCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
