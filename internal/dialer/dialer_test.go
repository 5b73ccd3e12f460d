// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package dialer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joamaki/rxplay/stream"
)

func dial(t *testing.T, digits ...int) []string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := stream.ToSlice(ctx, Dial(stream.FromSlice(digits)))
	require.NoError(t, err)
	return out
}

func TestDial(t *testing.T) {
	tests := []struct {
		name   string
		digits []int
		want   []string
	}{
		{
			name:   "known contact with leading zero",
			digits: []int{0, 6, 0, 3, 5, 5, 5, 1, 2, 1, 2},
			want:   []string{"Dialing Florent (603-555-1212)..."},
		},
		{
			name:   "unknown number",
			digits: []int{5, 5, 5, 5, 5, 5, 5, 5, 5, 5},
			want:   []string{NotFound},
		},
		{
			name:   "out of range values are dropped",
			digits: []int{0, 0, 4, 12, 0, 8, -1, 5, 5, 5, 1, 2, 1, 2, 7, 7},
			want:   []string{"Dialing Marin (408-555-1212)..."},
		},
		{
			name:   "too few digits",
			digits: []int{2, 1, 2, 5, 5, 5},
			want:   []string{},
		},
		{
			name:   "only zeros",
			digits: []int{0, 0, 0},
			want:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dial(t, tt.digits...))
		})
	}
}

func TestDialIdempotent(t *testing.T) {
	digits := []int{0, 6, 1, 7, 5, 5, 5, 1, 2, 1, 2}
	first := dial(t, digits...)
	for range 5 {
		assert.Equal(t, first, dial(t, digits...))
	}
	assert.Equal(t, []string{"Dialing Scott (617-555-1212)..."}, first)
}

func TestConvert(t *testing.T) {
	tests := []struct {
		key   string
		digit int
		ok    bool
	}{
		{"0", 0, true},
		{"9", 9, true},
		{"a", 2, true},
		{"C", 2, true},
		{"s", 7, true},
		{"z", 9, true},
		{"10", 0, false},
		{"-", 0, false},
		{"", 0, false},
		{"ab", 0, false},
	}
	for _, tt := range tests {
		digit, ok := Convert(tt.key)
		assert.Equal(t, tt.ok, ok, "key %q", tt.key)
		if tt.ok {
			assert.Equal(t, tt.digit, digit, "key %q", tt.key)
		}
	}
}

func TestDialKeys(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	keys := stream.Of("2", "a", "b", "#", "j", "k", "l", "1", "2", "1", "2")
	out, err := stream.ToSlice(ctx, DialKeys(keys))
	require.NoError(t, err)
	assert.Equal(t, []string{"Dialing Shai (212-555-1212)..."}, out)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "603-555-1212", Format([]int{6, 0, 3, 5, 5, 5, 1, 2, 1, 2}))
}
