// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"testing"
	"time"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestUpsertAndList(t *testing.T) {
	cache := openCache(t)
	now := time.Now().Truncate(time.Second)

	chats := []ChatMeta{
		{ChatID: "chat_a", Title: "Older", UpdatedAt: now.Add(-time.Hour)},
		{ChatID: "chat_b", Title: "Newer", Preview: "what is TP53", UpdatedAt: now},
	}
	for _, meta := range chats {
		if err := cache.Upsert("user-1", meta); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := cache.List("user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("list length = %d, expected 2", len(got))
	}
	if got[0].ChatID != "chat_b" || got[1].ChatID != "chat_a" {
		t.Errorf("list not ordered by recency: %v, %v", got[0].ChatID, got[1].ChatID)
	}
	if got[0].Preview != "what is TP53" {
		t.Errorf("preview lost: %q", got[0].Preview)
	}
}

func TestUpsertReplacesExisting(t *testing.T) {
	cache := openCache(t)
	now := time.Now().Truncate(time.Second)

	cache.Upsert("user-1", ChatMeta{ChatID: "chat_a", Title: "Draft", UpdatedAt: now})
	cache.Upsert("user-1", ChatMeta{ChatID: "chat_a", Title: "Final", UpdatedAt: now.Add(time.Minute)})

	got, err := cache.List("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Final" {
		t.Errorf("upsert did not replace: %+v", got)
	}
}

func TestListIsolatesUsers(t *testing.T) {
	cache := openCache(t)
	now := time.Now()

	cache.Upsert("user-1", ChatMeta{ChatID: "chat_a", UpdatedAt: now})
	cache.Upsert("user-2", ChatMeta{ChatID: "chat_b", UpdatedAt: now})

	got, err := cache.List("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ChatID != "chat_a" {
		t.Errorf("user isolation broken: %+v", got)
	}
}

func TestReplaceDropsStaleEntries(t *testing.T) {
	cache := openCache(t)
	now := time.Now().Truncate(time.Second)

	cache.Upsert("user-1", ChatMeta{ChatID: "chat_stale", UpdatedAt: now})
	err := cache.Replace("user-1", []ChatMeta{
		{ChatID: "chat_fresh", Title: "Fresh", UpdatedAt: now},
	})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	got, err := cache.List("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ChatID != "chat_fresh" {
		t.Errorf("replace left stale entries: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	cache := openCache(t)
	cache.Upsert("user-1", ChatMeta{ChatID: "chat_a", UpdatedAt: time.Now()})

	if err := cache.Delete("user-1", "chat_a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err := cache.List("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("entry survived delete: %+v", got)
	}
}

func TestCacheSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	cache, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	cache.Upsert("user-1", ChatMeta{ChatID: "chat_a", Title: "Kept", UpdatedAt: time.Now()})
	cache.Close()

	reopened, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.List("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Kept" {
		t.Errorf("cache lost data across reopen: %+v", got)
	}
}
