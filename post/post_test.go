/*
Copyright 2026 Dima Krasner

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package post

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/collection"
	"github.com/dimkr/fedcore/docstore"
	"github.com/dimkr/fedcore/render"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

const postID = "https://example.org/users/bob/statuses/42"

var alice = ap.Handle{Nickname: "alice", Domain: "example.org"}

type testStore interface {
	docstore.Store
	Put(context.Context, string, docstore.Document) error
}

func newTestService(t *testing.T, box string) (*Service, string) {
	base := t.TempDir()
	return newTestServiceWithStore(t, base, &docstore.FS{Dir: base}, box)
}

func newTestServiceWithStore(t *testing.T, base string, store testStore, box string) (*Service, string) {
	key := Key(alice, box, postID)
	if err := store.Put(context.Background(), key, docstore.Document{
		"id":   postID + "/activity",
		"type": "Create",
		"object": map[string]any{
			"id":      postID,
			"type":    "Note",
			"content": "hello",
		},
	}); err != nil {
		t.Fatalf("Failed to store post: %v", err)
	}

	recent, err := render.NewRecentPosts(8)
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}

	return &Service{
		BaseDir:     base,
		HTTPPrefix:  "https",
		Locator:     StoreLocator{Store: store},
		Mutator:     &collection.Mutator{Store: store, Retry: docstore.Retry{Attempts: 5}, Log: slog.Default()},
		Invalidator: &render.Invalidator{BaseDir: base, Recent: recent},
		Log:         slog.Default(),
	}, key
}

func load(t *testing.T, s *Service, key string) map[string]any {
	doc, _, err := s.Mutator.Store.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("Failed to load %s: %v", key, err)
	}
	return doc["object"].(map[string]any)
}

func writeCache(t *testing.T, s *Service) {
	for _, kind := range render.Kinds {
		path := s.Invalidator.CachePath(kind, alice, postID)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte("cached"), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
}

func assertNoCache(t *testing.T, s *Service) {
	for _, kind := range render.Kinds {
		_, err := os.Stat(s.Invalidator.CachePath(kind, alice, postID))
		assert.ErrorIs(t, err, os.ErrNotExist)
	}
}

func TestStoreLocator(t *testing.T) {
	assert := assert.New(t)

	s, key := newTestService(t, "inbox")
	assert.Equal(filepath.Join("accounts", "alice@example.org", "inbox", "https:##example.org#users#bob#statuses#42.json"), key)

	found, ok := s.Locator.Locate(context.Background(), alice, postID+"/activity")
	assert.True(ok)
	assert.Equal(key, found)

	_, ok = s.Locator.Locate(context.Background(), alice, postID+"0")
	assert.False(ok)

	_, ok = s.Locator.Locate(context.Background(), ap.Handle{Nickname: "bob", Domain: "example.org"}, postID)
	assert.False(ok)
}

func TestMute_RoundTrip(t *testing.T) {
	assert := assert.New(t)

	s, key := newTestService(t, "outbox")
	ctx := context.Background()

	writeCache(t, s)
	assert.NoError(s.Mute(ctx, alice, postID))
	assert.True(s.IsMuted(key))
	assertNoCache(t, s)

	ignores, ok := load(t, s, key)[collection.Ignores].(map[string]any)
	assert.True(ok)
	assert.Equal([]any{map[string]any{"type": "Ignore", "actor": "https://example.org/users/alice"}}, ignores["items"])

	writeCache(t, s)
	assert.NoError(s.Unmute(ctx, alice, postID))
	assert.False(s.IsMuted(key))
	assertNoCache(t, s)

	_, ok = load(t, s, key)[collection.Ignores]
	assert.False(ok)

	_, err := os.Stat(filepath.Join(s.BaseDir, key) + ".muted")
	assert.ErrorIs(err, os.ErrNotExist)
}

func TestMute_SQLite(t *testing.T) {
	assert := assert.New(t)

	base := t.TempDir()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "documents.sqlite3"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	store := &docstore.SQLite{DB: db}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	s, key := newTestServiceWithStore(t, base, store, "inbox")
	ctx := context.Background()

	assert.NoError(s.Mute(ctx, alice, postID))
	assert.True(s.IsMuted(key))

	ignores, ok := load(t, s, key)[collection.Ignores].(map[string]any)
	assert.True(ok)
	assert.Len(ignores["items"], 1)

	assert.NoError(s.Unmute(ctx, alice, postID))
	assert.False(s.IsMuted(key))

	_, ok = load(t, s, key)[collection.Ignores]
	assert.False(ok)
}

func TestMute_Idempotent(t *testing.T) {
	assert := assert.New(t)

	s, key := newTestService(t, "outbox")
	ctx := context.Background()

	assert.NoError(s.Mute(ctx, alice, postID))
	assert.NoError(s.Mute(ctx, alice, postID))

	ignores := load(t, s, key)[collection.Ignores].(map[string]any)
	assert.Len(ignores["items"], 1)

	assert.NoError(s.Unmute(ctx, alice, postID))
	assert.NoError(s.Unmute(ctx, alice, postID))
	assert.False(s.IsMuted(key))
}

func TestMute_SidecarIsAuthoritative(t *testing.T) {
	assert := assert.New(t)

	s, key := newTestService(t, "outbox")
	ctx := context.Background()

	assert.NoError(os.WriteFile(filepath.Join(s.BaseDir, key)+".muted", []byte("\n"), 0o644))
	assert.True(s.IsMuted(key))

	_, ok := load(t, s, key)[collection.Ignores]
	assert.False(ok)

	assert.NoError(s.Like(ctx, alice, postID, "https://other.example/users/carol"))
	assert.True(s.IsMuted(key))
}

func TestMute_UpdatesRecentPosts(t *testing.T) {
	assert := assert.New(t)

	s, _ := newTestService(t, "outbox")
	s.Invalidator.Recent.Add(postID, []byte(`{}`), "<p>hello</p>")

	assert.NoError(s.Mute(context.Background(), alice, postID))

	p, ok := s.Invalidator.Recent.Get(postID)
	assert.True(ok)
	assert.True(p.Muted)
	assert.Empty(p.HTML)
	assert.Contains(string(p.JSON), `"muted":true`)
	assert.Contains(string(p.JSON), `"ignores"`)
}

func TestMute_NotFound(t *testing.T) {
	s, _ := newTestService(t, "outbox")
	assert.ErrorIs(t, s.Mute(context.Background(), alice, postID+"0"), ErrNotFound)
}

func TestLikeAnnounce(t *testing.T) {
	assert := assert.New(t)

	s, key := newTestService(t, "inbox")
	ctx := context.Background()
	carol := "https://other.example/users/carol"

	assert.NoError(s.Like(ctx, alice, postID, carol))
	assert.NoError(s.Announce(ctx, alice, postID, carol))

	obj := load(t, s, key)
	likes := obj[collection.Likes].(map[string]any)
	assert.Equal(postID+"/likes", likes["id"])
	shares := obj[collection.Shares].(map[string]any)
	assert.Equal([]any{map[string]any{"type": "Announce", "actor": carol}}, shares["items"])

	assert.NoError(s.Unlike(ctx, alice, postID, carol))
	assert.NoError(s.Unannounce(ctx, alice, postID, carol))

	obj = load(t, s, key)
	_, ok := obj[collection.Likes]
	assert.False(ok)
	_, ok = obj[collection.Shares]
	assert.False(ok)
}
