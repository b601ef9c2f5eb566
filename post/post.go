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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/collection"
	"github.com/dimkr/fedcore/fsx"
	"github.com/dimkr/fedcore/render"
)

const mutedSuffix = ".muted"

// Service likes, shares and mutes posts stored by local accounts.
type Service struct {
	BaseDir     string
	HTTPPrefix  string
	Locator     Locator
	Mutator     *collection.Mutator
	Invalidator *render.Invalidator
	Log         *slog.Logger
}

// Locate returns the document key of a post, or [ErrNotFound].
func (s *Service) Locate(ctx context.Context, owner ap.Handle, id string) (string, error) {
	key, ok := s.Locator.Locate(ctx, owner, id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return key, nil
}

func (s *Service) mutedPath(key string) string {
	return filepath.Join(s.BaseDir, key) + mutedSuffix
}

// IsMuted determines whether or not a located post is muted.
//
// The sidecar file is authoritative, regardless of the ignores collection.
func (s *Service) IsMuted(key string) bool {
	return fsx.Exists(s.mutedPath(key))
}

func (s *Service) invalidate(ctx context.Context, owner ap.Handle, key, id string, muted bool) {
	doc, _, err := s.Mutator.Store.Load(ctx, key)
	if err != nil {
		s.Log.Warn("Failed to reload post", "post", id, "error", err)
	}

	if err := s.Invalidator.Invalidate(owner, id, doc, muted); err != nil {
		s.Log.Warn("Failed to invalidate post rendering", "post", id, "error", err)
	}
}

func collectionID(id, name string) string {
	return ap.RemoveIDEnding(id) + "/" + name
}

func (s *Service) add(ctx context.Context, owner ap.Handle, id, actor, name string, itemType ap.ActivityType) error {
	key, err := s.Locate(ctx, owner, id)
	if err != nil {
		return err
	}

	changed, err := s.Mutator.Add(ctx, key, collectionID(id, name), actor, name, itemType)
	if err != nil {
		return err
	}

	if changed {
		s.invalidate(ctx, owner, key, id, s.IsMuted(key))
	}

	return nil
}

func (s *Service) remove(ctx context.Context, owner ap.Handle, id, actor, name string) error {
	key, err := s.Locate(ctx, owner, id)
	if err != nil {
		return err
	}

	changed, err := s.Mutator.Remove(ctx, key, actor, name)
	if err != nil {
		return err
	}

	if changed {
		s.invalidate(ctx, owner, key, id, s.IsMuted(key))
	}

	return nil
}

// Like adds a like by actor to a post stored by owner.
func (s *Service) Like(ctx context.Context, owner ap.Handle, id, actor string) error {
	return s.add(ctx, owner, id, actor, collection.Likes, ap.Like)
}

// Unlike removes a like by actor from a post stored by owner.
func (s *Service) Unlike(ctx context.Context, owner ap.Handle, id, actor string) error {
	return s.remove(ctx, owner, id, actor, collection.Likes)
}

// Announce adds a share by actor to a post stored by owner.
func (s *Service) Announce(ctx context.Context, owner ap.Handle, id, actor string) error {
	return s.add(ctx, owner, id, actor, collection.Shares, ap.Announce)
}

// Unannounce removes a share by actor from a post stored by owner.
func (s *Service) Unannounce(ctx context.Context, owner ap.Handle, id, actor string) error {
	return s.remove(ctx, owner, id, actor, collection.Shares)
}

// Mute hides a post from owner.
func (s *Service) Mute(ctx context.Context, owner ap.Handle, id string) error {
	key, err := s.Locate(ctx, owner, id)
	if err != nil {
		return err
	}

	// documents may live in a database, so the sidecar directory might not exist
	path := s.mutedPath(key)
	wasMuted := fsx.Exists(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to mute %s: %w", id, err)
	}

	if err := os.WriteFile(path, []byte("\n"), 0o644); err != nil {
		return fmt.Errorf("failed to mute %s: %w", id, err)
	}

	actor := ap.LocalActorURL(s.HTTPPrefix, owner)
	if _, err := s.Mutator.Add(ctx, key, collectionID(id, collection.Ignores), actor, collection.Ignores, ap.Ignore); err != nil {
		if wasMuted {
			return err
		}
		if _, rmErr := fsx.RemoveIfExists(path); rmErr != nil {
			s.Log.Warn("Failed to remove mute flag", "post", id, "error", rmErr)
		}
		return err
	}

	s.Log.Info("Muted post", "account", owner.String(), "post", id)
	s.invalidate(ctx, owner, key, id, true)
	return nil
}

// Unmute reverts [Service.Mute].
func (s *Service) Unmute(ctx context.Context, owner ap.Handle, id string) error {
	key, err := s.Locate(ctx, owner, id)
	if err != nil {
		return err
	}

	actor := ap.LocalActorURL(s.HTTPPrefix, owner)
	if _, err := s.Mutator.Remove(ctx, key, actor, collection.Ignores); err != nil {
		return err
	}

	if _, err := fsx.RemoveIfExists(s.mutedPath(key)); err != nil {
		return fmt.Errorf("failed to unmute %s: %w", id, err)
	}

	s.Log.Info("Unmuted post", "account", owner.String(), "post", id)
	s.invalidate(ctx, owner, key, id, false)
	return nil
}
