// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package gitfeed

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const lastModifiedKey = "last_modified"

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the database at 'path' and applies
// pending migrations. Use ":memory:" for a throwaway store.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadEvents(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, repo, action, created_at, avatar_url FROM events ORDER BY position`)
	if err != nil {
		return []Event{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	records := []record{}
	for rows.Next() {
		var r record
		if err := rows.Scan(&r.Actor.DisplayLogin, &r.Repo.Name, &r.Type, &r.CreatedAt, &r.Actor.AvatarURL); err != nil {
			return []Event{}, fmt.Errorf("scan event: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return []Event{}, err
	}
	return fromRecords(records), nil
}

func (s *SQLiteStore) SaveEvents(ctx context.Context, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (position, name, repo, action, created_at, avatar_url) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, ev := range events {
		r := ev.record()
		if _, err := stmt.ExecContext(ctx, i, r.Actor.DisplayLogin, r.Repo.Name, r.Type, r.CreatedAt, r.Actor.AvatarURL); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LastModified(ctx context.Context) (string, error) {
	var marker string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM markers WHERE key = ?`, lastModifiedKey).Scan(&marker)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return marker, err
}

func (s *SQLiteStore) SaveLastModified(ctx context.Context, marker string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO markers (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		lastModifiedKey, marker)
	return err
}
