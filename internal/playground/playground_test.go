// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package playground

import (
	"bytes"
	"context"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(out *bytes.Buffer) Env {
	return Env{
		Out:    out,
		Rand:   rand.New(rand.NewPCG(1, 2)),
		Now:    func() time.Time { return time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC) },
		Second: 20 * time.Millisecond,
	}
}

func TestChapters(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	for _, chapter := range []string{Filtering, Transforming, Combining} {
		t.Run(chapter, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			// The interleaving of merge is random and checked separately.
			examples := slices.DeleteFunc(Examples(chapter), func(ex Example) bool { return ex.Name == "merge" })

			var out bytes.Buffer
			require.NoError(t, Run(ctx, testEnv(&out), examples))
			g.Assert(t, chapter, out.Bytes())
		})
	}
}

func TestMerge(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, merge(ctx, testEnv(&out)))

	// Replay the same choices.
	r := rand.New(rand.NewPCG(1, 2))
	left := []string{"Berlin", "Munich", "Frankfurt"}
	right := []string{"Madrid", "Barcelona", "Valencia"}
	var want strings.Builder
	for len(left) > 0 || len(right) > 0 {
		if r.IntN(2) == 0 {
			if len(left) > 0 {
				want.WriteString("Left:  " + left[0] + "\n")
				left = left[1:]
			}
		} else if len(right) > 0 {
			want.WriteString("Right: " + right[0] + "\n")
			right = right[1:]
		}
	}
	assert.Equal(t, want.String(), out.String())
}

type entry struct {
	at    float64
	value string
}

// lanes splits timeline output into the entries of each lane.
func lanes(t *testing.T, out string) map[string][]entry {
	entries := map[string][]entry{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		require.GreaterOrEqual(t, len(fields), 3, "line %q", line)
		at, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "s"), 64)
		require.NoError(t, err)
		entries[fields[1]] = append(entries[fields[1]], entry{at, strings.Join(fields[2:], " ")})
	}
	return entries
}

func values(entries []entry) []string {
	out := []string{}
	for _, e := range entries {
		out = append(out, e.value)
	}
	return out
}

func TestBuffer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, buffer(ctx, testEnv(&out)))
	all := lanes(t, out.String())

	emitted := values(all["emitted"])
	require.NotEmpty(t, emitted)
	assert.Equal(t, "completed", emitted[len(emitted)-1])

	buffered := values(all["buffered"])
	require.NotEmpty(t, buffered)
	assert.Equal(t, "completed", buffered[len(buffered)-1])
	total := 0
	for _, v := range buffered[:len(buffered)-1] {
		n, err := strconv.Atoi(v)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, 5)
		total += n
	}
	assert.Equal(t, len(emitted)-1, total, "every emitted element is buffered once")
}

func TestReplay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, replay(ctx, testEnv(&out)))
	all := lanes(t, out.String())

	source := all["source"]
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "completed"}, values(source))

	replayed := all["replayed"]
	require.GreaterOrEqual(t, len(replayed), 4)
	assert.Equal(t, values(source)[len(source)-len(replayed):], values(replayed),
		"the late observer sees the tail of the ticks")
	// The first two ticks it sees are handed over at once when it joins,
	// well after they were emitted.
	first, err := strconv.Atoi(replayed[0].value)
	require.NoError(t, err)
	assert.Greater(t, replayed[0].at, source[first-1].at+0.5)
	assert.InDelta(t, replayed[0].at, replayed[1].at, 0.5)
}

func TestWindow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, window(ctx, testEnv(&out)))
	all := lanes(t, out.String())

	emitted := values(all["emitted"])
	require.NotEmpty(t, emitted)

	items, completed := 0, 0
	for _, v := range values(all["windowed"]) {
		switch {
		case strings.HasSuffix(v, ": a"):
			items++
		case strings.HasSuffix(v, ": completed"):
			completed++
		}
	}
	assert.Equal(t, len(emitted)-1, items, "every element lands in one window")
	assert.Greater(t, completed, 1, "windows rotate")
}

func TestFind(t *testing.T) {
	assert.Equal(t, []string{Filtering, Transforming, Combining, Timing}, Chapters())
	assert.Len(t, Examples(Filtering), 11)
	assert.Len(t, Find("all"), len(Examples("")))
	assert.Equal(t, Examples(Combining), Find(" Combining "))

	zip := Find("ZIP")
	require.Len(t, zip, 1)
	assert.Equal(t, Combining, zip[0].Chapter)

	assert.Empty(t, Find("nope"))
}

func TestRunError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := Run(ctx, testEnv(&out), Find("Skip until"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out.String(), "--- Example of: Skip until ---")
}

func TestSpellOut(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "zero"},
		{7, "seven"},
		{13, "thirteen"},
		{20, "twenty"},
		{56, "fifty-six"},
		{110, "one hundred ten"},
		{123, "one hundred twenty-three"},
		{2000, "two thousand"},
		{1_000_201, "one million two hundred one"},
		{-4, "minus four"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, spellOut(tt.n))
		})
	}
	assert.Equal(t, `["two", "hundred"]`, quoteList([]string{"two", "hundred"}))
}
