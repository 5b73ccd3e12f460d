// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package playground holds small runnable examples of the stream
// operators, grouped into chapters.
package playground

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
)

const (
	Filtering    = "filtering"
	Transforming = "transforming"
	Combining    = "combining"
	Timing       = "time"
)

// Env is what an example runs against.
type Env struct {
	Out io.Writer
	// Rand picks the values of the randomized examples.
	Rand *rand.Rand
	// Now is the current time for the examples that print dates.
	Now func() time.Time
	// Second is the length of one second in the time based examples.
	// Shorten it to speed them up.
	Second time.Duration
}

// NewEnv returns an environment writing to 'out' with a random seed and
// real time.
func NewEnv(out io.Writer) Env {
	return Env{
		Out:    out,
		Rand:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		Now:    time.Now,
		Second: time.Second,
	}
}

func (env Env) println(args ...any) {
	fmt.Fprintln(env.Out, args...)
}

func (env Env) printf(format string, args ...any) {
	fmt.Fprintf(env.Out, format, args...)
}

type Example struct {
	Chapter string
	Name    string
	Run     func(ctx context.Context, env Env) error
}

var registry []Example

func register(chapter string, examples ...Example) {
	for _, ex := range examples {
		ex.Chapter = chapter
		registry = append(registry, ex)
	}
}

// Chapters returns the chapter names in order.
func Chapters() []string {
	return []string{Filtering, Transforming, Combining, Timing}
}

// Examples returns the examples of a chapter in order. All examples are
// returned for an empty chapter.
func Examples(chapter string) []Example {
	if chapter == "" {
		return slices.Clone(registry)
	}
	var out []Example
	for _, ex := range registry {
		if ex.Chapter == chapter {
			out = append(out, ex)
		}
	}
	return out
}

// Find returns the examples matching 'query', which is either a chapter
// or an example name. Matching ignores case.
func Find(query string) []Example {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "all" {
		return Examples("")
	}
	if exs := Examples(query); len(exs) > 0 {
		return exs
	}
	var out []Example
	for _, ex := range registry {
		if strings.ToLower(ex.Name) == query {
			out = append(out, ex)
		}
	}
	return out
}

// Run runs the examples one after another, each under a header.
func Run(ctx context.Context, env Env, examples []Example) error {
	for _, ex := range examples {
		env.printf("\n--- Example of: %s ---\n", ex.Name)
		if err := ex.Run(ctx, env); err != nil {
			return fmt.Errorf("example %q: %w", ex.Name, err)
		}
	}
	return nil
}
