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


package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dimkr/fedcore/acct"
	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/block"
	"github.com/dimkr/fedcore/cfg"
	"github.com/dimkr/fedcore/collection"
	"github.com/dimkr/fedcore/docstore"
	"github.com/dimkr/fedcore/post"
	"github.com/dimkr/fedcore/render"
	"github.com/dimkr/fedcore/shares"
	"github.com/stretchr/testify/assert"
)

const (
	postID  = "https://example.org/users/bob/statuses/42"
	aliceID = "https://example.org/users/alice"
)

var alice = ap.Handle{Nickname: "alice", Domain: "example.org"}

type relayed struct {
	From     ap.Handle
	Activity *ap.Activity
	Targets  []string
}

type testRelayer struct {
	sync.Mutex
	Relayed []relayed
}

func (r *testRelayer) Relay(_ context.Context, from ap.Handle, activity *ap.Activity, targets []string) {
	r.Lock()
	r.Relayed = append(r.Relayed, relayed{From: from, Activity: activity, Targets: targets})
	r.Unlock()
}

type testProcessor struct {
	*Processor
	Store   *docstore.FS
	Relayer *testRelayer
	Key     string
}

func newTestProcessor(t *testing.T, id string) *testProcessor {
	base := t.TempDir()

	var config cfg.Config
	config.FillDefaults()
	config.Domain = "example.org"

	if err := os.MkdirAll(acct.Dir(base, alice), 0o755); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}

	store := &docstore.FS{Dir: base}
	key := post.Key(alice, "inbox", id)
	if err := store.Put(context.Background(), key, docstore.Document{
		"id":   id + "/activity",
		"type": "Create",
		"object": map[string]any{
			"id":      id,
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

	relayer := &testRelayer{}

	return &testProcessor{
		Processor: &Processor{
			Config: &config,
			Blocks: &block.Store{BaseDir: base, Domain: config.Domain, Config: &config, Log: slog.Default()},
			Cache:  block.NewCache(config.BlockCacheRefreshInterval),
			Posts: &post.Service{
				BaseDir:     base,
				HTTPPrefix:  config.HTTPPrefix,
				Locator:     post.StoreLocator{Store: store},
				Mutator:     &collection.Mutator{Store: store, Retry: docstore.RetryFromConfig(&config), Log: slog.Default()},
				Invalidator: &render.Invalidator{BaseDir: base, Recent: recent},
				Log:         slog.Default(),
			},
			Shares:  &shares.Store{BaseDir: base, Domain: config.Domain, HTTPPrefix: config.HTTPPrefix, Log: slog.Default()},
			Relayer: relayer,
			Log:     slog.Default(),
		},
		Store:   store,
		Relayer: relayer,
		Key:     key,
	}
}

func (p *testProcessor) object(t *testing.T) map[string]any {
	doc, _, err := p.Store.Load(context.Background(), p.Key)
	if err != nil {
		t.Fatalf("Failed to load post: %v", err)
	}
	return doc["object"].(map[string]any)
}

func (p *testProcessor) raw(t *testing.T) string {
	buf, err := os.ReadFile(filepath.Join(p.Store.Dir, p.Key))
	if err != nil {
		t.Fatalf("Failed to read post: %v", err)
	}
	return string(buf)
}

func TestProcess_LikeUndoLike(t *testing.T) {
	assert := assert.New(t)

	p := newTestProcessor(t, postID)

	like := `{"id":"https://example.org/like/1","type":"Like","actor":"https://example.org/users/alice","object":"https://example.org/users/bob/statuses/42"}`
	assert.NoError(p.Process(context.Background(), alice, []byte(like)))

	likes, ok := p.object(t)["likes"].(map[string]any)
	assert.True(ok)
	assert.Equal("Collection", likes["type"])
	assert.Equal(json.Number("1"), likes["totalItems"])
	assert.Equal([]any{map[string]any{"type": "Like", "actor": aliceID}}, likes["items"])

	before := p.raw(t)
	assert.NoError(p.Process(context.Background(), alice, []byte(like)))
	assert.Equal(before, p.raw(t))

	undo := `{"id":"https://example.org/undo/1","type":"Undo","actor":"https://example.org/users/alice","object":{"type":"Like","actor":"https://example.org/users/alice","object":"https://example.org/users/bob/statuses/42"}}`
	assert.NoError(p.Process(context.Background(), alice, []byte(undo)))

	_, ok = p.object(t)["likes"]
	assert.False(ok)
}

func TestProcess_LikeIsRelayedToAuthor(t *testing.T) {
	assert := assert.New(t)

	p := newTestProcessor(t, postID)

	assert.NoError(p.Process(context.Background(), alice, []byte(`{"type":"Like","object":"https://example.org/users/bob/statuses/42"}`)))

	assert.Len(p.Relayer.Relayed, 1)
	assert.Equal(alice, p.Relayer.Relayed[0].From)
	assert.Equal(aliceID, p.Relayer.Relayed[0].Activity.Actor)
	assert.Equal([]string{"https://example.org/users/bob"}, p.Relayer.Relayed[0].Targets)
}

func TestProcess_AnnounceRemotePost(t *testing.T) {
	assert := assert.New(t)

	id := "https://remote.example/users/carol/statuses/1"
	p := newTestProcessor(t, id)

	assert.NoError(p.Process(context.Background(), alice, []byte(`{"id":"https://example.org/announce/1","type":"Announce","actor":"https://example.org/users/alice","object":"https://remote.example/users/carol/statuses/1"}`)))

	shared, ok := p.object(t)["shares"].(map[string]any)
	assert.True(ok)
	assert.Equal([]any{map[string]any{"type": "Announce", "actor": aliceID}}, shared["items"])

	assert.Len(p.Relayer.Relayed, 1)
	assert.Equal("https://example.org/announce/1", p.Relayer.Relayed[0].Activity.ID)
	assert.Equal([]string{"https://remote.example/users/carol"}, p.Relayer.Relayed[0].Targets)
}

func TestProcess_Malformed(t *testing.T) {
	assert := assert.New(t)

	p := newTestProcessor(t, postID)
	before := p.raw(t)

	for _, raw := range []string{
		`not json`,
		`{"object":"https://example.org/users/bob/statuses/42"}`,
		`{"type":"Like"}`,
		`{"type":"Like","object":{"id":"https://example.org/users/bob/statuses/42"}}`,
		`{"type":"Like","object":"https://example.org/notes/42"}`,
		`{"type":"Like","object":"https://example.org/users/bob"}`,
		`{"type":"Undo","object":"https://example.org/users/bob/statuses/42"}`,
		`{"type":"Undo","object":{"type":"Undo","object":{"type":"Like","object":"https://example.org/users/bob/statuses/42"}}}`,
		`{"type":"Follow","object":"https://example.org/users/bob"}`,
	} {
		assert.ErrorIs(p.Process(context.Background(), alice, []byte(raw)), ErrMalformed, raw)
	}

	assert.Equal(before, p.raw(t))
	assert.Empty(p.Relayer.Relayed)
}

func TestProcess_NotFound(t *testing.T) {
	assert := assert.New(t)

	p := newTestProcessor(t, postID)

	err := p.Process(context.Background(), alice, []byte(`{"type":"Like","object":"https://example.org/users/bob/statuses/43"}`))
	assert.ErrorIs(err, ErrNotFound)
	assert.Empty(p.Relayer.Relayed)
}

func TestProcess_OtherActor(t *testing.T) {
	assert := assert.New(t)

	p := newTestProcessor(t, postID)
	before := p.raw(t)

	err := p.Process(context.Background(), alice, []byte(`{"type":"Like","actor":"https://example.org/users/mallory","object":"https://example.org/users/bob/statuses/42"}`))
	assert.ErrorIs(err, ErrForbidden)
	assert.Equal(before, p.raw(t))
}

func TestProcess_BlockedDomain(t *testing.T) {
	assert := assert.New(t)

	id := "https://remote.example/users/carol/statuses/1"
	p := newTestProcessor(t, id)

	_, err := p.Blocks.AddGlobal("*", "remote.example")
	assert.NoError(err)

	err = p.Process(context.Background(), alice, []byte(`{"type":"Like","object":"https://remote.example/users/carol/statuses/1"}`))
	assert.ErrorIs(err, ErrForbidden)

	_, ok := p.object(t)["likes"]
	assert.False(ok)
}

func TestProcess_FederationList(t *testing.T) {
	assert := assert.New(t)

	id := "https://remote.example/users/carol/statuses/1"
	p := newTestProcessor(t, id)
	p.Config.FederationList = []string{"friendly.example"}

	err := p.Process(context.Background(), alice, []byte(`{"type":"Like","object":"https://remote.example/users/carol/statuses/1"}`))
	assert.ErrorIs(err, ErrForbidden)

	p.Config.FederationList = []string{"remote.example"}
	assert.NoError(p.Process(context.Background(), alice, []byte(`{"type":"Like","object":"https://remote.example/users/carol/statuses/1"}`)))
}

func TestProcess_MuteUndoMute(t *testing.T) {
	assert := assert.New(t)

	p := newTestProcessor(t, postID)

	assert.NoError(p.Process(context.Background(), alice, []byte(`{"type":"Ignore","object":"https://example.org/users/bob/statuses/42"}`)))
	assert.True(p.Posts.IsMuted(p.Key))

	ignores, ok := p.object(t)["ignores"].(map[string]any)
	assert.True(ok)
	assert.Equal([]any{map[string]any{"type": "Ignore", "actor": aliceID}}, ignores["items"])

	assert.NoError(p.Process(context.Background(), alice, []byte(`{"type":"Undo","object":{"type":"Ignore","object":"https://example.org/users/bob/statuses/42"}}`)))
	assert.False(p.Posts.IsMuted(p.Key))

	_, ok = p.object(t)["ignores"]
	assert.False(ok)

	assert.Empty(p.Relayer.Relayed)
}

func TestProcess_BlockUndoBlock(t *testing.T) {
	assert := assert.New(t)

	id := "https://remote.example/users/carol/statuses/1"
	p := newTestProcessor(t, id)

	assert.NoError(p.Process(context.Background(), alice, []byte(`{"type":"Block","object":"https://remote.example/users/carol/statuses/1"}`)))
	assert.True(p.Blocks.IsBlocked(alice, "carol", "remote.example", p.Cache))

	assert.Len(p.Relayer.Relayed, 1)
	assert.Equal([]string{"https://remote.example/users/carol"}, p.Relayer.Relayed[0].Targets)

	assert.NoError(p.Process(context.Background(), alice, []byte(`{"type":"Undo","object":{"type":"Block","object":"https://remote.example/users/carol/statuses/1"}}`)))
	assert.False(p.Blocks.IsBlocked(alice, "carol", "remote.example", p.Cache))
}

func TestProcess_BlockUnknownPost(t *testing.T) {
	assert := assert.New(t)

	p := newTestProcessor(t, postID)

	err := p.Process(context.Background(), alice, []byte(`{"type":"Block","object":"https://remote.example/users/carol/statuses/1"}`))
	assert.ErrorIs(err, ErrNotFound)
	assert.False(p.Blocks.IsBlocked(alice, "carol", "remote.example", p.Cache))
}

func TestProcess_AddRemoveOffer(t *testing.T) {
	assert := assert.New(t)

	p := newTestProcessor(t, postID)

	add := `{"type":"Add","object":{"type":"Offer","displayName":"Spare bike","summary":"A red bike","itemType":"bike","category":"transport","location":"Berlin","duration":"2 weeks"}}`
	assert.NoError(p.Process(context.Background(), alice, []byte(add)))

	items, err := p.Shares.List(alice)
	assert.NoError(err)
	assert.Contains(items, "Sparebike")

	assert.NoError(p.Process(context.Background(), alice, []byte(`{"type":"Remove","object":{"type":"Offer","displayName":"Spare bike"}}`)))

	items, err = p.Shares.List(alice)
	assert.NoError(err)
	assert.Empty(items)

	assert.ErrorIs(p.Process(context.Background(), alice, []byte(`{"type":"Remove","object":{"type":"Offer","displayName":"Spare bike"}}`)), ErrNotFound)
	assert.Empty(p.Relayer.Relayed)
}

func TestProcess_OfferNameIsNotAPath(t *testing.T) {
	assert := assert.New(t)

	p := newTestProcessor(t, postID)

	err := p.Process(context.Background(), alice, []byte(`{"type":"Add","object":{"type":"Offer","displayName":"../../victim","summary":"A red bike","itemType":"bike","category":"transport","location":"Berlin","duration":"2 weeks"}}`))
	assert.ErrorIs(err, ErrMalformed)

	err = p.Process(context.Background(), alice, []byte(`{"type":"Remove","object":{"type":"Offer","displayName":"../../victim"}}`))
	assert.ErrorIs(err, ErrMalformed)

	items, err := p.Shares.List(alice)
	assert.NoError(err)
	assert.Empty(items)
}

func TestProcess_AddOfferMissingField(t *testing.T) {
	assert := assert.New(t)

	p := newTestProcessor(t, postID)

	err := p.Process(context.Background(), alice, []byte(`{"type":"Add","object":{"type":"Offer","displayName":"Spare bike","summary":"A red bike","itemType":"bike","category":"transport","location":"Berlin"}}`))
	assert.ErrorIs(err, ErrMalformed)

	items, err := p.Shares.List(alice)
	assert.NoError(err)
	assert.Empty(items)
}

func TestProcess_AddOfferInvalidDuration(t *testing.T) {
	p := newTestProcessor(t, postID)

	err := p.Process(context.Background(), alice, []byte(`{"type":"Add","object":{"type":"Offer","displayName":"Spare bike","summary":"A red bike","itemType":"bike","category":"transport","location":"Berlin","duration":"forever"}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}
