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


// Package inbox applies activities delivered by remote actors to posts of local accounts.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/block"
	"github.com/dimkr/fedcore/cfg"
	"github.com/dimkr/fedcore/fed"
	"github.com/dimkr/fedcore/gate"
	"github.com/dimkr/fedcore/logcontext"
	"github.com/dimkr/fedcore/post"
)

var (
	ErrMalformed = errors.New("malformed activity")
	ErrNotFound  = errors.New("object not found")
	ErrForbidden = errors.New("forbidden")
	ErrUnsigned  = errors.New("invalid signature")
	ErrTooLarge  = errors.New("request is too large")
)

// Processor handles Like, Announce and Undo activities sent to a local account.
type Processor struct {
	Config       *cfg.Config
	Blocks       *block.Store
	Cache        *block.Cache
	Posts        *post.Service
	Capabilities gate.Capabilities
	Verifier     *fed.Verifier
	Log          *slog.Logger
}

// HandleRequest verifies the signature of a request to the inbox of owner, then
// processes the activity in its body.
func (p *Processor) HandleRequest(ctx context.Context, owner ap.Handle, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, p.Config.MaxRequestBodySize+1))
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	if int64(len(body)) > p.Config.MaxRequestBodySize {
		p.Log.InfoContext(ctx, "Rejecting large request", "account", owner.String(), "limit", p.Config.MaxRequestBodySize)
		return fmt.Errorf("%w: %w: limit is %d bytes", ErrMalformed, ErrTooLarge, p.Config.MaxRequestBodySize)
	}

	signer, err := p.Verifier.Verify(ctx, r, body)
	if err != nil {
		p.Log.InfoContext(ctx, "Rejecting unsigned request", "account", owner.String(), "error", err)
		return fmt.Errorf("%w: %w: %w", ErrForbidden, ErrUnsigned, err)
	}

	return p.process(ctx, owner, signer.ID, body)
}

// Process applies an activity sent to owner without verifying who sent it.
func (p *Processor) Process(ctx context.Context, owner ap.Handle, raw []byte) error {
	return p.process(ctx, owner, "", raw)
}

func (p *Processor) process(ctx context.Context, owner ap.Handle, signer string, raw []byte) error {
	v, err := ap.Decode(raw)
	if err != nil {
		p.Log.InfoContext(ctx, "Dropping malformed activity", "account", owner.String(), "error", err)
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	actor := v.ActorID()
	ctx = logcontext.Add(ctx, "account", owner.String(), "activity", v.ActivityID(), "type", v.Kind(), "actor", actor)

	if signer != "" {
		origin, err := ap.Origin(signer)
		if err == nil {
			err = ap.ValidateOrigin(v, origin)
		}
		if err != nil {
			p.Log.WarnContext(ctx, "Dropping activity from another origin", "signer", signer, "error", err)
			return fmt.Errorf("%w: %w", ErrForbidden, err)
		}
	}

	if err := p.apply(ctx, owner, signer, v); err != nil {
		p.Log.InfoContext(ctx, "Dropping activity", "error", err)
		return err
	}

	p.Log.InfoContext(ctx, "Processed activity")
	return nil
}

// authorize checks whether or not a remote actor may interact with owner.
func (p *Processor) authorize(owner ap.Handle, signer, actor string) error {
	if actor == "" {
		return fmt.Errorf("%w: no actor", ErrMalformed)
	}

	if signer != "" && actor != signer {
		return fmt.Errorf("%w: %s is not %s", ErrForbidden, actor, signer)
	}

	host, err := ap.Host(actor)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if host == ap.StripPort(p.Config.Domain) {
		return fmt.Errorf("%w: %s is local", ErrForbidden, actor)
	}

	if !gate.IsPermitted(actor, p.Config.FederationList, p.Capabilities, gate.WriteInbox) {
		return fmt.Errorf("%w: %s is not permitted", ErrForbidden, actor)
	}

	if p.Blocks.IsBlockedDomain(host, p.Cache) {
		return fmt.Errorf("%w: %s is blocked", ErrForbidden, host)
	}

	nickname, _ := ap.NicknameFromActor(actor)
	if domain, ok := ap.DomainFromActor(actor); ok && p.Blocks.IsBlocked(owner, nickname, domain, p.Cache) {
		return fmt.Errorf("%w: %s is blocked", ErrForbidden, actor)
	}

	return nil
}

func (p *Processor) apply(ctx context.Context, owner ap.Handle, signer string, v ap.Variant) error {
	actor := v.ActorID()
	if err := p.authorize(owner, signer, actor); err != nil {
		return err
	}

	var link *ap.LinkActivity
	kind := v.Kind()
	undo := false

	switch v := v.(type) {
	case *ap.LikeActivity:
		link = &v.LinkActivity
	case *ap.AnnounceActivity:
		link = &v.LinkActivity
	case *ap.UndoActivity:
		undo = true
		kind = v.Inner.Kind()
		switch inner := v.Inner.(type) {
		case *ap.LikeActivity:
			link = &inner.LinkActivity
		case *ap.AnnounceActivity:
			link = &inner.LinkActivity
		default:
			return fmt.Errorf("%w: cannot undo %s", ErrMalformed, inner.Kind())
		}

		if link.Actor != "" && link.Actor != actor {
			return fmt.Errorf("%w: %s cannot undo activity by %s", ErrForbidden, actor, link.Actor)
		}
	default:
		return fmt.Errorf("%w: cannot process %s", ErrMalformed, v.Kind())
	}

	if !ap.HasUsersPath(link.Object) || !ap.IsStatus(link.Object) {
		return fmt.Errorf("%w: %s is not a post", ErrMalformed, link.Object)
	}

	var err error
	switch {
	case kind == ap.Like && undo:
		err = p.Posts.Unlike(ctx, owner, link.Object, actor)
	case kind == ap.Like:
		err = p.Posts.Like(ctx, owner, link.Object, actor)
	case undo:
		err = p.Posts.Unannounce(ctx, owner, link.Object, actor)
	default:
		err = p.Posts.Announce(ctx, owner, link.Object, actor)
	}

	if errors.Is(err, post.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
