// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package gitfeed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"howett.net/plist"
)

// Store persists the cached events and the last-modified marker. Both are
// read and written wholesale.
type Store interface {
	LoadEvents(ctx context.Context) ([]Event, error)
	SaveEvents(ctx context.Context, events []Event) error
	LastModified(ctx context.Context) (string, error)
	SaveLastModified(ctx context.Context, marker string) error
}

const (
	EventsFile   = "events.plist"
	ModifiedFile = "modified.txt"
)

// PlistStore keeps the events as an XML property list and the marker as a
// plain text file, both in a single cache directory.
type PlistStore struct {
	dir string
}

// NewPlistStore returns a store rooted at 'dir'. The directory is created
// if it does not exist.
func NewPlistStore(dir string) (*PlistStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &PlistStore{dir: dir}, nil
}

func (s *PlistStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *PlistStore) LoadEvents(ctx context.Context) ([]Event, error) {
	b, err := readFile(s.path(EventsFile))
	if err != nil || b == nil {
		return []Event{}, err
	}
	var records []record
	if _, err := plist.Unmarshal(b, &records); err != nil {
		return []Event{}, fmt.Errorf("decode %s: %w", EventsFile, err)
	}
	return fromRecords(records), nil
}

func (s *PlistStore) SaveEvents(ctx context.Context, events []Event) error {
	b, err := plist.MarshalIndent(toRecords(events), plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("encode %s: %w", EventsFile, err)
	}
	return writeFile(s.path(EventsFile), b, 0o644)
}

func (s *PlistStore) LastModified(ctx context.Context) (string, error) {
	b, err := readFile(s.path(ModifiedFile))
	return strings.TrimSpace(string(b)), err
}

func (s *PlistStore) SaveLastModified(ctx context.Context, marker string) error {
	return writeFile(s.path(ModifiedFile), []byte(marker), 0o644)
}

// readFile reads the file at path; a missing file is not an error.
func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// writeFile writes via a temp file and renames it over the target.
func writeFile(path string, b []byte, mode os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
