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


package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"path/filepath"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/docstore"
	"github.com/dimkr/fedcore/fsx"
)

const CacheDir = "cache"

// Kinds are the cached representations of a post.
var Kinds = []string{"html", "speaker", "json"}

// Invalidator discards stale renderings of a post.
type Invalidator struct {
	BaseDir string
	Recent  *RecentPosts
}

// CachePath returns the path of a cached rendering of a post owned by a local account.
func (i *Invalidator) CachePath(kind string, owner ap.Handle, postID string) string {
	return filepath.Join(i.BaseDir, CacheDir, kind, owner.Nickname+"@"+owner.Host(), ap.NormalizeID(postID))
}

// Invalidate deletes every cached rendering of a post. If the post is in the recent posts
// index, its copy is replaced with doc and marked as muted or not.
func (i *Invalidator) Invalidate(owner ap.Handle, postID string, doc docstore.Document, muted bool) error {
	var errs []error
	for _, kind := range Kinds {
		if _, err := fsx.RemoveIfExists(i.CachePath(kind, owner, postID)); err != nil {
			errs = append(errs, err)
		}
	}

	if i.Recent == nil || doc == nil || !i.Recent.Contains(postID) {
		return errors.Join(errs...)
	}

	updated := maps.Clone(doc)
	updated["muted"] = muted

	buf, err := json.Marshal(updated)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to marshal %s: %w", postID, err))
	} else {
		i.Recent.Update(postID, buf, muted)
	}

	return errors.Join(errs...)
}
