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


package collection

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/docstore"
	"github.com/stretchr/testify/assert"
)

const (
	postID = "https://example.org/users/bob/statuses/42"
	alice  = "https://example.org/users/alice"
	carol  = "https://other.example/users/carol"
)

func newPost() docstore.Document {
	return docstore.Document{
		"id":   postID + "/activity",
		"type": "Create",
		"object": map[string]any{
			"id":      postID,
			"type":    "Note",
			"content": "hello",
		},
	}
}

func decodeCollection(t *testing.T, doc docstore.Document, name string) (ap.Collection, bool) {
	raw, ok := doc["object"].(map[string]any)[name]
	if !ok {
		return ap.Collection{}, false
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("Failed to marshal %s: %v", name, err)
	}

	var c ap.Collection
	if err := json.Unmarshal(buf, &c); err != nil {
		t.Fatalf("Failed to unmarshal %s: %v", name, err)
	}

	return c, true
}

func TestAddEntry_Create(t *testing.T) {
	assert := assert.New(t)

	doc := newPost()
	assert.True(AddEntry(doc, postID+"/likes", alice, Likes, ap.Like))

	c, ok := decodeCollection(t, doc, Likes)
	assert.True(ok)
	assert.Equal(ap.Collection{
		ID:         postID + "/likes",
		Type:       ap.CollectionType,
		TotalItems: 1,
		Items:      []ap.CollectionItem{{Type: ap.Like, Actor: alice}},
	}, c)
}

func TestAddEntry_Idempotent(t *testing.T) {
	assert := assert.New(t)

	once := newPost()
	assert.True(AddEntry(once, postID+"/likes", alice, Likes, ap.Like))

	twice := newPost()
	assert.True(AddEntry(twice, postID+"/likes", alice, Likes, ap.Like))
	assert.False(AddEntry(twice, postID+"/likes", alice, Likes, ap.Like))

	assert.Equal(once, twice)
}

func TestAddEntry_Append(t *testing.T) {
	assert := assert.New(t)

	doc := newPost()
	assert.True(AddEntry(doc, postID+"/likes", alice, Likes, ap.Like))
	assert.True(AddEntry(doc, postID+"/likes", carol, Likes, ap.Like))

	c, ok := decodeCollection(t, doc, Likes)
	assert.True(ok)
	assert.Equal(2, c.TotalItems)
	assert.Equal(1, c.IndexOf(carol))
}

func TestAddEntry_ReplacesLink(t *testing.T) {
	assert := assert.New(t)

	doc := newPost()
	doc["object"].(map[string]any)[Likes] = "https://remote.example/likes"

	assert.True(AddEntry(doc, postID+"/likes", alice, Likes, ap.Like))

	c, ok := decodeCollection(t, doc, Likes)
	assert.True(ok)
	assert.Equal(1, c.TotalItems)
}

func TestAddEntry_NoObject(t *testing.T) {
	doc := docstore.Document{"id": postID, "object": postID}
	assert.False(t, AddEntry(doc, postID+"/likes", alice, Likes, ap.Like))
	assert.Equal(t, docstore.Document{"id": postID, "object": postID}, doc)
}

func TestRemoveEntry(t *testing.T) {
	assert := assert.New(t)

	doc := newPost()
	assert.False(RemoveEntry(doc, alice, Ignores))

	assert.True(AddEntry(doc, postID+"/ignores", alice, Ignores, ap.Ignore))
	assert.True(AddEntry(doc, postID+"/ignores", carol, Ignores, ap.Ignore))
	assert.False(RemoveEntry(doc, "https://x.example/users/x", Ignores))

	assert.True(RemoveEntry(doc, alice, Ignores))
	c, ok := decodeCollection(t, doc, Ignores)
	assert.True(ok)
	assert.Equal(1, c.TotalItems)
	assert.Equal([]ap.CollectionItem{{Type: ap.Ignore, Actor: carol}}, c.Items)

	assert.True(RemoveEntry(doc, carol, Ignores))
	_, ok = decodeCollection(t, doc, Ignores)
	assert.False(ok)
	assert.Equal(newPost(), doc)
}

func TestEntries_Invariants(t *testing.T) {
	assert := assert.New(t)

	actors := []string{alice, carol, "https://a.example/users/a", "https://b.example/users/b"}
	r := rand.New(rand.NewPCG(1, 2))

	doc := newPost()
	expected := map[string]struct{}{}

	for range 1000 {
		actor := actors[r.IntN(len(actors))]
		_, present := expected[actor]

		if r.IntN(2) == 0 {
			assert.Equal(!present, AddEntry(doc, postID+"/shares", actor, Shares, ap.Announce))
			expected[actor] = struct{}{}
		} else {
			assert.Equal(present, RemoveEntry(doc, actor, Shares))
			delete(expected, actor)
		}

		c, ok := decodeCollection(t, doc, Shares)
		if len(expected) == 0 {
			assert.False(ok)
			continue
		}

		assert.True(ok)
		assert.Equal(len(c.Items), c.TotalItems)
		assert.Len(c.Items, len(expected))
		for _, item := range c.Items {
			_, ok := expected[item.Actor]
			assert.True(ok)
		}
	}
}

func TestMutator(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "42.json")
	buf, err := json.Marshal(newPost())
	assert.NoError(err)
	assert.NoError(os.WriteFile(path, buf, 0o644))

	m := Mutator{Store: &docstore.FS{}, Retry: docstore.Retry{Attempts: 5}, Log: slog.Default()}
	ctx := context.Background()

	changed, err := m.Add(ctx, path, postID+"/likes", alice, Likes, ap.Like)
	assert.NoError(err)
	assert.True(changed)

	changed, err = m.Add(ctx, path, postID+"/likes", alice, Likes, ap.Like)
	assert.NoError(err)
	assert.False(changed)

	doc, _, err := m.Store.Load(ctx, path)
	assert.NoError(err)
	c, ok := decodeCollection(t, doc, Likes)
	assert.True(ok)
	assert.Equal(1, c.TotalItems)

	changed, err = m.Remove(ctx, path, alice, Likes)
	assert.NoError(err)
	assert.True(changed)

	doc, _, err = m.Store.Load(ctx, path)
	assert.NoError(err)
	_, ok = decodeCollection(t, doc, Likes)
	assert.False(ok)

	_, err = m.Add(ctx, filepath.Join(t.TempDir(), "missing.json"), postID+"/likes", alice, Likes, ap.Like)
	assert.ErrorIs(err, docstore.ErrNotFound)
}
