// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// =============================================================================
// CHAT CACHE
// =============================================================================

// ChatMeta is one cached recents entry.
type ChatMeta struct {
	ChatID    string
	Title     string
	Preview   string
	UpdatedAt time.Time
}

// Cache is a SQLite-backed store of chat metadata, keyed per user so two
// accounts on one machine never see each other's recents.
type Cache struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chats (
	user_id    TEXT NOT NULL,
	chat_id    TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	preview    TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, chat_id)
);
CREATE INDEX IF NOT EXISTS idx_chats_recency ON chats (user_id, updated_at DESC);
`

// Open creates or opens the cache database under dir.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	path := filepath.Join(dir, "chats.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat cache: %w", err)
	}
	// The client is a single process; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize chat cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Upsert inserts or refreshes one chat entry.
func (c *Cache) Upsert(userID string, meta ChatMeta) error {
	_, err := c.db.Exec(`
		INSERT INTO chats (user_id, chat_id, title, preview, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, chat_id) DO UPDATE SET
			title = excluded.title,
			preview = excluded.preview,
			updated_at = excluded.updated_at`,
		userID, meta.ChatID, meta.Title, meta.Preview, meta.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to cache chat: %w", err)
	}
	return nil
}

// Replace swaps the user's cached listing for a fresh one from the
// backend, removing chats that no longer exist server-side.
func (c *Cache) Replace(userID string, metas []ChatMeta) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cache refresh: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chats WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear cached chats: %w", err)
	}
	for _, meta := range metas {
		_, err := tx.Exec(`
			INSERT INTO chats (user_id, chat_id, title, preview, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			userID, meta.ChatID, meta.Title, meta.Preview, meta.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to cache chat: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache refresh: %w", err)
	}
	return nil
}

// List returns the user's chats, most recently updated first.
func (c *Cache) List(userID string) ([]ChatMeta, error) {
	rows, err := c.db.Query(`
		SELECT chat_id, title, preview, updated_at
		FROM chats WHERE user_id = ?
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached chats: %w", err)
	}
	defer rows.Close()

	var out []ChatMeta
	for rows.Next() {
		var meta ChatMeta
		var unix int64
		if err := rows.Scan(&meta.ChatID, &meta.Title, &meta.Preview, &unix); err != nil {
			return nil, fmt.Errorf("failed to scan cached chat: %w", err)
		}
		meta.UpdatedAt = time.Unix(unix, 0)
		out = append(out, meta)
	}
	return out, rows.Err()
}

// Delete removes one chat from the cache.
func (c *Cache) Delete(userID, chatID string) error {
	_, err := c.db.Exec(`DELETE FROM chats WHERE user_id = ? AND chat_id = ?`, userID, chatID)
	if err != nil {
		return fmt.Errorf("failed to delete cached chat: %w", err)
	}
	return nil
}
