// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package dialer turns a stream of keypad presses into a phone call to a
// known contact.
package dialer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joamaki/rxplay/stream"
)

// NumberLength is the number of digits collected before dialing.
const NumberLength = 10

// NotFound is emitted when the dialed number is not a known contact.
const NotFound = "Contact not found"

// Contacts maps formatted phone numbers to contact names.
var Contacts = map[string]string{
	"603-555-1212": "Florent",
	"212-555-1212": "Shai",
	"408-555-1212": "Marin",
	"617-555-1212": "Scott",
}

var keypad = map[rune]int{}

func init() {
	for digit, letters := range map[int]string{
		2: "abc", 3: "def", 4: "ghi", 5: "jkl",
		6: "mno", 7: "pqrs", 8: "tuv", 9: "wxyz",
	} {
		for _, r := range letters {
			keypad[r] = digit
		}
	}
}

// Convert maps a single keypad key to its digit. Digits map to themselves
// and letters map to the key they are printed on.
func Convert(key string) (int, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if n, err := strconv.Atoi(key); err == nil {
		return n, n >= 0 && n <= 9
	}
	runes := []rune(key)
	if len(runes) != 1 {
		return 0, false
	}
	digit, ok := keypad[runes[0]]
	return digit, ok
}

// Format formats the digits as XXX-XXX-XXXX.
func Format(digits []int) string {
	var b strings.Builder
	for i, d := range digits {
		if i == 3 || i == 6 {
			b.WriteByte('-')
		}
		b.WriteString(strconv.Itoa(d))
	}
	return b.String()
}

// Lookup returns the dial message for a formatted number.
func Lookup(number string) string {
	if name, ok := Contacts[number]; ok {
		return fmt.Sprintf("Dialing %s (%s)...", name, number)
	}
	return NotFound
}

// Dial collects the first ten valid digits after any leading zeros and
// emits the result of looking the number up. Nothing is emitted if the
// source completes before ten digits have arrived.
func Dial(digits stream.Observable[int]) stream.Observable[string] {
	valid := stream.Filter(
		stream.SkipWhile(func(d int) bool { return d == 0 }, digits),
		func(d int) bool { return d >= 0 && d <= 9 })

	numbers := stream.Filter(
		stream.ToArray(stream.Take(NumberLength, valid)),
		func(ds []int) bool { return len(ds) == NumberLength })

	return stream.Map(stream.Map(numbers, Format), Lookup)
}

// DialKeys is Dial for raw keypad keys. Keys that do not map to a digit
// are dropped.
func DialKeys(keys stream.Observable[string]) stream.Observable[string] {
	return Dial(stream.CompactMap(keys, Convert))
}
