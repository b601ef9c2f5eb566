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


// Package render keeps rendered posts consistent with their documents.
package render

import (
	"sync"

	"github.com/dimkr/fedcore/ap"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Post is a recently rendered post.
type Post struct {
	JSON  []byte
	HTML  string
	Muted bool
}

// RecentPosts is a bounded in-memory index of recently rendered posts, keyed by normalized
// post ID.
type RecentPosts struct {
	lock  sync.Mutex
	posts *lru.Cache[string, Post]
}

func NewRecentPosts(size int) (*RecentPosts, error) {
	posts, err := lru.New[string, Post](size)
	if err != nil {
		return nil, err
	}

	return &RecentPosts{posts: posts}, nil
}

func (r *RecentPosts) Add(id string, json []byte, html string) {
	r.lock.Lock()
	r.posts.Add(ap.NormalizeID(id), Post{JSON: json, HTML: html})
	r.lock.Unlock()
}

func (r *RecentPosts) Get(id string) (Post, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.posts.Get(ap.NormalizeID(id))
}

func (r *RecentPosts) Contains(id string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.posts.Contains(ap.NormalizeID(id))
}

// Update replaces the serialized copy of a post and drops its HTML fragment.
// It returns false if the post is not in the index.
func (r *RecentPosts) Update(id string, json []byte, muted bool) bool {
	key := ap.NormalizeID(id)

	r.lock.Lock()
	defer r.lock.Unlock()

	if !r.posts.Contains(key) {
		return false
	}

	r.posts.Add(key, Post{JSON: json, Muted: muted})
	return true
}

func (r *RecentPosts) Remove(id string) {
	r.lock.Lock()
	r.posts.Remove(ap.NormalizeID(id))
	r.lock.Unlock()
}

func (r *RecentPosts) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.posts.Len()
}
