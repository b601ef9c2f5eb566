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


// Package outbox applies activities submitted by local accounts.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/block"
	"github.com/dimkr/fedcore/cfg"
	"github.com/dimkr/fedcore/gate"
	"github.com/dimkr/fedcore/logcontext"
	"github.com/dimkr/fedcore/post"
	"github.com/dimkr/fedcore/shares"
)

var (
	ErrMalformed = errors.New("malformed activity")
	ErrNotFound  = errors.New("object not found")
	ErrForbidden = errors.New("forbidden")
)

// Relayer delivers activities by local accounts to remote actors.
type Relayer interface {
	Relay(ctx context.Context, from ap.Handle, activity *ap.Activity, targets []string)
}

// Processor applies activities posted to the outbox of a local account.
//
// An activity either takes full effect or none at all: every error means the activity
// was dropped.
type Processor struct {
	Config       *cfg.Config
	Blocks       *block.Store
	Cache        *block.Cache
	Posts        *post.Service
	Shares       *shares.Store
	Capabilities gate.Capabilities
	Relayer      Relayer
	Log          *slog.Logger
}

// Process validates and applies an activity by owner.
func (p *Processor) Process(ctx context.Context, owner ap.Handle, raw []byte) error {
	v, err := ap.Decode(raw)
	if err != nil {
		p.Log.InfoContext(ctx, "Dropping malformed activity", "account", owner.String(), "error", err)
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	ctx = logcontext.Add(ctx, "account", owner.String(), "activity", v.ActivityID(), "type", v.Kind())

	actor := ap.LocalActorURL(p.Config.HTTPPrefix, owner)
	if v.ActorID() != "" && v.ActorID() != actor {
		p.Log.WarnContext(ctx, "Dropping activity by another actor", "actor", v.ActorID())
		return fmt.Errorf("%w: %s is not %s", ErrForbidden, v.ActorID(), actor)
	}

	targets, err := p.apply(ctx, owner, actor, v)
	if err != nil {
		p.Log.InfoContext(ctx, "Dropping activity", "error", err)
		return err
	}

	p.Log.InfoContext(ctx, "Processed activity")

	if len(targets) == 0 || p.Relayer == nil {
		return nil
	}

	var activity ap.Activity
	if err := json.Unmarshal(raw, &activity); err != nil {
		p.Log.WarnContext(ctx, "Failed to relay activity", "error", err)
		return nil
	}

	if activity.Actor == "" {
		activity.Actor = actor
	}

	p.Relayer.Relay(ctx, owner, &activity, targets)
	return nil
}

func (p *Processor) apply(ctx context.Context, owner ap.Handle, actor string, v ap.Variant) ([]string, error) {
	switch v := v.(type) {
	case *ap.LikeActivity:
		return p.like(ctx, owner, actor, v.Object, false)

	case *ap.AnnounceActivity:
		return p.announce(ctx, owner, actor, v.Object, false)

	case *ap.IgnoreActivity:
		return nil, p.mute(ctx, owner, v.Object, false)

	case *ap.BlockActivity:
		return p.block(ctx, owner, v.Object, false)

	case *ap.UndoActivity:
		switch inner := v.Inner.(type) {
		case *ap.LikeActivity:
			return p.like(ctx, owner, actor, inner.Object, true)
		case *ap.AnnounceActivity:
			return p.announce(ctx, owner, actor, inner.Object, true)
		case *ap.IgnoreActivity:
			return nil, p.mute(ctx, owner, inner.Object, true)
		case *ap.BlockActivity:
			return p.block(ctx, owner, inner.Object, true)
		}

	case *ap.AddOfferActivity:
		if _, err := p.Shares.Add(owner, v.Offer, "", time.Now()); errors.Is(err, shares.ErrInvalidDuration) || errors.Is(err, shares.ErrInvalidName) {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		} else if err != nil {
			return nil, err
		}
		return nil, nil

	case *ap.RemoveOfferActivity:
		if err := p.Shares.Remove(owner, v.DisplayName); errors.Is(err, shares.ErrNoItem) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		} else if errors.Is(err, shares.ErrInvalidName) {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		} else if err != nil {
			return nil, err
		}
		return nil, nil
	}

	return nil, fmt.Errorf("%w: cannot process %s", ErrMalformed, v.Kind())
}

// checkObject validates the post an activity refers to.
func (p *Processor) checkObject(object string) error {
	if !ap.HasUsersPath(object) || !ap.IsStatus(object) {
		return fmt.Errorf("%w: %s is not a post", ErrMalformed, object)
	}

	host, err := ap.Host(object)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if host == ap.StripPort(p.Config.Domain) {
		return nil
	}

	if !gate.IsPermitted(object, p.Config.FederationList, p.Capabilities, gate.WriteInbox) {
		return fmt.Errorf("%w: %s is not permitted", ErrForbidden, object)
	}

	if p.Blocks != nil && p.Blocks.IsBlockedDomain(host, p.Cache) {
		return fmt.Errorf("%w: %s is blocked", ErrForbidden, host)
	}

	return nil
}

func notFound(err error) error {
	if errors.Is(err, post.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func (p *Processor) like(ctx context.Context, owner ap.Handle, actor, object string, undo bool) ([]string, error) {
	if err := p.checkObject(object); err != nil {
		return nil, err
	}

	var err error
	if undo {
		err = p.Posts.Unlike(ctx, owner, object, actor)
	} else {
		err = p.Posts.Like(ctx, owner, object, actor)
	}
	if err != nil {
		return nil, notFound(err)
	}

	return []string{ap.OwnerActor(object)}, nil
}

func (p *Processor) announce(ctx context.Context, owner ap.Handle, actor, object string, undo bool) ([]string, error) {
	if err := p.checkObject(object); err != nil {
		return nil, err
	}

	var err error
	if undo {
		err = p.Posts.Unannounce(ctx, owner, object, actor)
	} else {
		err = p.Posts.Announce(ctx, owner, object, actor)
	}
	if err != nil {
		return nil, notFound(err)
	}

	return []string{ap.OwnerActor(object)}, nil
}

func (p *Processor) mute(ctx context.Context, owner ap.Handle, object string, undo bool) error {
	if err := p.checkObject(object); err != nil {
		return err
	}

	if undo {
		return notFound(p.Posts.Unmute(ctx, owner, object))
	}

	return notFound(p.Posts.Mute(ctx, owner, object))
}

// block blocks or unblocks the author of a post.
func (p *Processor) block(ctx context.Context, owner ap.Handle, object string, undo bool) ([]string, error) {
	if err := p.checkObject(object); err != nil {
		return nil, err
	}

	if _, err := p.Posts.Locate(ctx, owner, object); err != nil {
		return nil, notFound(err)
	}

	author, err := ap.HandleFromActor(object)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if undo {
		if _, err := p.Blocks.RemoveAccount(owner, author.Nickname, author.Domain); err != nil {
			return nil, err
		}
	} else if _, err := p.Blocks.AddAccount(owner, author.Nickname, author.Domain); err != nil {
		return nil, err
	}

	return []string{ap.OwnerActor(object)}, nil
}
