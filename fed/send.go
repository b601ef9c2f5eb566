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


package fed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/cfg"
)

// Credentials authenticate a local account to its own server.
type Credentials struct {
	Nickname string
	Password string
}

// Sender posts activities to the outbox of a local account, the way a client would.
type Sender struct {
	Resolver *Resolver
	Config   *cfg.Config
	Log      *slog.Logger
}

// Code maps the outcome of [Sender.SendViaServer] to a numeric code: 0 on success, 6
// without a session, 1 if the handle cannot be resolved, 3 if there is no outbox, 4 if
// the actor has no ID and 5 if posting failed.
func Code(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNoSession):
		return 6
	case errors.Is(err, ErrHandleResolution):
		return 1
	case errors.Is(err, ErrNoEndpoint):
		return 3
	case errors.Is(err, ErrNoActorID):
		return 4
	default:
		return 5
	}
}

// SendViaServer addresses an activity and posts it to the outbox of from.
// On success, it returns the activity as sent.
func (s *Sender) SendViaServer(ctx context.Context, activity *ap.Activity, from ap.Handle, creds Credentials) (*ap.Activity, error) {
	sent, err := s.send(ctx, activity, from, creds)
	sends.WithLabelValues(strconv.Itoa(Code(err))).Inc()
	if err != nil {
		return nil, err
	}
	return sent, nil
}

// SendViaServerBestEffort is like [Sender.SendViaServer] but a failure to post the
// activity is only logged: the activity is returned as if it was sent.
func (s *Sender) SendViaServerBestEffort(ctx context.Context, activity *ap.Activity, from ap.Handle, creds Credentials) (*ap.Activity, error) {
	sent, err := s.send(ctx, activity, from, creds)
	if errors.Is(err, ErrPostFailed) && sent != nil {
		s.Log.Warn("Failed to post activity", "id", sent.ID, "from", from.String(), "error", err)
		err = nil
	}

	sends.WithLabelValues(strconv.Itoa(Code(err))).Inc()
	if err != nil {
		return nil, err
	}
	return sent, nil
}

func (s *Sender) send(ctx context.Context, activity *ap.Activity, from ap.Handle, creds Credentials) (*ap.Activity, error) {
	if s.Resolver == nil || s.Resolver.Client == nil {
		return nil, ErrNoSession
	}

	actorID, err := s.Resolver.Webfinger(ctx, from)
	if err != nil {
		return nil, err
	}

	box, err := s.Resolver.Box(ctx, actorID, "outbox")
	if err != nil {
		return nil, err
	}

	var followers string
	if actor, err := s.Resolver.Actor(ctx, box.ActorID); err == nil {
		followers = actor.Followers
	}

	if err := address(activity, box.ActorID, followers, time.Now()); err != nil {
		return nil, err
	}

	body, err := json.Marshal(activity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", activity.ID, err)
	}

	if err := s.post(ctx, box.URL, body, creds); err != nil {
		return activity, fmt.Errorf("%w: %w", ErrPostFailed, err)
	}

	s.Log.Info("Sent activity", "id", activity.ID, "type", activity.Type, "outbox", box.URL)
	return activity, nil
}

// address fills the missing fields of an activity. An activity without recipients is
// public and addressed to the followers of its actor.
func address(activity *ap.Activity, actorID, followers string, now time.Time) error {
	if activity.Context == nil {
		activity.Context = ap.Context
	}

	if activity.Actor == "" {
		activity.Actor = actorID
	}

	if activity.ID == "" {
		id, err := NewID(actorID, strings.ToLower(string(activity.Type)))
		if err != nil {
			return err
		}
		activity.ID = id
	}

	if inner, ok := activity.Object.(*ap.Activity); ok && inner.Actor == "" {
		inner.Actor = actorID
	}

	if activity.To.IsZero() {
		activity.To.Add(ap.Public)
		if followers != "" {
			activity.CC.Add(followers)
		}
	}

	if activity.Published == "" {
		activity.Published = now.UTC().Format(time.RFC3339)
	}

	return nil
}

func (s *Sender) post(ctx context.Context, outbox string, body []byte, creds Credentials) error {
	ctx, cancel := context.WithTimeout(ctx, s.Config.DeliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, outbox, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", activityStreamsType)
	req.Header.Set("Accept", activityStreamsType)
	req.Header.Set("User-Agent", userAgent)
	req.SetBasicAuth(creds.Nickname, creds.Password)

	resp, err := s.Resolver.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, s.Config.MaxResponseBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to post to %s: %d", outbox, resp.StatusCode)
	}

	return nil
}

func (s *Sender) undo(ctx context.Context, from ap.Handle, creds Credentials, inner *ap.Activity) (*ap.Activity, error) {
	undo := &ap.Activity{Type: ap.Undo, Object: inner, To: inner.To, CC: inner.CC}
	return s.SendViaServerBestEffort(ctx, undo, from, creds)
}

func likeOf(objectID string) *ap.Activity {
	like := &ap.Activity{Type: ap.Like, Object: objectID}
	like.To.Add(ap.OwnerActor(objectID))
	return like
}

func announceOf(objectID string) *ap.Activity {
	announce := &ap.Activity{Type: ap.Announce, Object: objectID}
	announce.CC.Add(ap.OwnerActor(objectID))
	return announce
}

func blockOf(objectID string) *ap.Activity {
	block := &ap.Activity{Type: ap.Block, Object: objectID}
	block.To.Add(ap.OwnerActor(objectID))
	return block
}

func (s *Sender) muteOf(from ap.Handle, objectID string) *ap.Activity {
	mute := &ap.Activity{Type: ap.Ignore, Object: objectID}
	mute.To.Add(ap.LocalActorURL(s.Config.HTTPPrefix, from))
	return mute
}

// LikeViaServer likes a post.
func (s *Sender) LikeViaServer(ctx context.Context, from ap.Handle, creds Credentials, objectID string) (*ap.Activity, error) {
	return s.SendViaServerBestEffort(ctx, likeOf(objectID), from, creds)
}

// UndoLikeViaServer reverts [Sender.LikeViaServer].
func (s *Sender) UndoLikeViaServer(ctx context.Context, from ap.Handle, creds Credentials, objectID string) (*ap.Activity, error) {
	return s.undo(ctx, from, creds, likeOf(objectID))
}

// AnnounceViaServer shares a post with the followers of from.
func (s *Sender) AnnounceViaServer(ctx context.Context, from ap.Handle, creds Credentials, objectID string) (*ap.Activity, error) {
	return s.SendViaServerBestEffort(ctx, announceOf(objectID), from, creds)
}

// UndoAnnounceViaServer reverts [Sender.AnnounceViaServer].
func (s *Sender) UndoAnnounceViaServer(ctx context.Context, from ap.Handle, creds Credentials, objectID string) (*ap.Activity, error) {
	return s.undo(ctx, from, creds, announceOf(objectID))
}

// BlockViaServer blocks the author of a post.
func (s *Sender) BlockViaServer(ctx context.Context, from ap.Handle, creds Credentials, objectID string) (*ap.Activity, error) {
	return s.SendViaServerBestEffort(ctx, blockOf(objectID), from, creds)
}

// UndoBlockViaServer reverts [Sender.BlockViaServer].
func (s *Sender) UndoBlockViaServer(ctx context.Context, from ap.Handle, creds Credentials, objectID string) (*ap.Activity, error) {
	return s.undo(ctx, from, creds, blockOf(objectID))
}

// MuteViaServer mutes a post.
func (s *Sender) MuteViaServer(ctx context.Context, from ap.Handle, creds Credentials, objectID string) (*ap.Activity, error) {
	return s.SendViaServerBestEffort(ctx, s.muteOf(from, objectID), from, creds)
}

// UndoMuteViaServer reverts [Sender.MuteViaServer].
func (s *Sender) UndoMuteViaServer(ctx context.Context, from ap.Handle, creds Credentials, objectID string) (*ap.Activity, error) {
	return s.undo(ctx, from, creds, s.muteOf(from, objectID))
}
