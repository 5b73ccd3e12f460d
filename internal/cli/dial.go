// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joamaki/rxplay/internal/dialer"
	"github.com/joamaki/rxplay/stream"
)

type dialResult struct {
	Result string `json:"result" yaml:"result"`
}

// keys splits each line into single key presses.
func keys(lines stream.Observable[string]) stream.Observable[string] {
	return stream.FlatMap(lines, func(line string) stream.Observable[string] {
		return stream.FromSlice(strings.Split(strings.TrimSpace(line), ""))
	})
}

func NewDialCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dial [KEYS...]",
		Short: "Dial a phone number from key presses",
		Long: `Dial collects the digits of the key presses until it has a full phone
number and then looks up the contact. Letters are mapped to digits as on a
phone keypad and other keys are ignored. Without arguments the keys are
read from standard input.`,
		Example: `  rxplay dial 603-555-1212
  echo 111abcdef3 | rxplay dial`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := stream.FromSlice(args)
			if len(args) == 0 {
				lines = stream.FromLines(cmd.InOrStdin())
			}
			result, err := stream.First(cmd.Context(), dialer.DialKeys(keys(lines)))
			if errors.Is(err, stream.ErrEmpty) {
				return NewExitError(ExitFailure, fmt.Sprintf("need %d digits to dial", dialer.NumberLength))
			} else if err != nil {
				return err
			}
			opts.Log.Debug("dialed", "result", result)
			return write(cmd.OutOrStdout(), opts.Output, dialResult{Result: result}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, result)
				return err
			})
		},
	}
}
