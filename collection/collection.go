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


// Package collection maintains the per-post collections of actors that liked, shared or
// muted a post.
package collection

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/docstore"
)

// Names of collections embedded in the object of a post.
const (
	Likes   = "likes"
	Ignores = "ignores"
	Shares  = "shares"
)

// Mutator adds and removes collection items with optimistic concurrency.
type Mutator struct {
	Store docstore.Store
	Retry docstore.Retry
	Log   *slog.Logger
}

// AddEntry adds an item by actor to the named collection of a post, creating the
// collection if needed. It returns false if the actor is already there or the post has no
// object.
//
// A collection that is not a JSON object, like a link to a remote collection, is replaced.
func AddEntry(doc docstore.Document, collectionID, actor, name string, itemType ap.ActivityType) bool {
	obj, ok := doc["object"].(map[string]any)
	if !ok {
		return false
	}

	item := map[string]any{"type": string(itemType), "actor": actor}

	coll, ok := obj[name].(map[string]any)
	if !ok {
		obj[name] = map[string]any{
			"id":         collectionID,
			"type":       ap.CollectionType,
			"totalItems": 1,
			"items":      []any{item},
		}
		return true
	}

	items, _ := coll["items"].([]any)
	if indexOf(items, actor) >= 0 {
		return false
	}

	items = append(items, item)
	coll["items"] = items
	coll["totalItems"] = len(items)
	return true
}

// RemoveEntry removes the item by actor from the named collection of a post. The
// collection is removed with its last item. It returns false if the actor is not there.
func RemoveEntry(doc docstore.Document, actor, name string) bool {
	obj, ok := doc["object"].(map[string]any)
	if !ok {
		return false
	}

	coll, ok := obj[name].(map[string]any)
	if !ok {
		return false
	}

	items, _ := coll["items"].([]any)
	i := indexOf(items, actor)
	if i < 0 {
		return false
	}

	if len(items) == 1 {
		delete(obj, name)
		return true
	}

	items = slices.Delete(items, i, i+1)
	coll["items"] = items
	coll["totalItems"] = len(items)
	return true
}

func indexOf(items []any, actor string) int {
	return slices.IndexFunc(items, func(item any) bool {
		m, ok := item.(map[string]any)
		return ok && m["actor"] == actor
	})
}

// Add adds an item by actor to the named collection of the post stored under key.
// It returns false if nothing has changed.
func (m *Mutator) Add(ctx context.Context, key, collectionID, actor, name string, itemType ap.ActivityType) (bool, error) {
	changed, err := docstore.Update(ctx, m.Store, key, m.Retry, func(doc docstore.Document) (bool, error) {
		return AddEntry(doc, collectionID, actor, name, itemType), nil
	})
	if errors.Is(err, docstore.ErrRetriesExhausted) {
		m.Log.Warn("Dropping collection update", "post", key, "collection", name, "actor", actor, "error", err)
	}
	return changed, err
}

// Remove removes the item by actor from the named collection of the post stored under key.
// It returns false if nothing has changed.
func (m *Mutator) Remove(ctx context.Context, key, actor, name string) (bool, error) {
	changed, err := docstore.Update(ctx, m.Store, key, m.Retry, func(doc docstore.Document) (bool, error) {
		return RemoveEntry(doc, actor, name), nil
	})
	if errors.Is(err, docstore.ErrRetriesExhausted) {
		m.Log.Warn("Dropping collection update", "post", key, "collection", name, "actor", actor, "error", err)
	}
	return changed, err
}
