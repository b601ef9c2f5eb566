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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/cfg"
	"github.com/dimkr/fedcore/httpsig"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

var (
	ErrNoSession        = errors.New("no session")
	ErrHandleResolution = errors.New("handle resolution failed")
	ErrNoEndpoint       = errors.New("no endpoint")
	ErrNoActorID        = errors.New("no actor ID")
	ErrPostFailed       = errors.New("post failed")
	ErrInvalidScheme    = errors.New("invalid scheme")
)

// Resolver resolves handles to actors and actors to their collections.
// Results are cached for [cfg.Config.ResolverCacheTTL].
type Resolver struct {
	Client Client
	Config *cfg.Config
	Log    *slog.Logger
	// Key signs requests, for servers that require signed fetches.
	Key *httpsig.Key

	handles *expirable.LRU[string, string]
	actors  *expirable.LRU[string, *ap.Actor]
}

// Box is a collection of a resolved actor.
type Box struct {
	URL          string
	ActorID      string
	PublicKeyPem string
	SharedInbox  string
}

type webFingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type"`
	Href string `json:"href"`
}

type webFingerResponse struct {
	Subject string          `json:"subject"`
	Links   []webFingerLink `json:"links"`
}

// NewResolver returns a new [Resolver].
func NewResolver(client Client, config *cfg.Config, log *slog.Logger) *Resolver {
	return &Resolver{
		Client:  client,
		Config:  config,
		Log:     log,
		handles: expirable.NewLRU[string, string](config.ResolverCacheSize, nil, config.ResolverCacheTTL),
		actors:  expirable.NewLRU[string, *ap.Actor](config.ResolverCacheSize, nil, config.ResolverCacheTTL),
	}
}

func (r *Resolver) sign(req *http.Request) error {
	if r.Key == nil {
		return nil
	}
	return httpsig.Sign(req, *r.Key, time.Now())
}

func observe(kind string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	resolutions.WithLabelValues(kind, status).Inc()
	resolutionDuration.WithLabelValues(kind, status).Observe(time.Since(start).Seconds())
}

// Webfinger resolves a handle to an actor ID.
func (r *Resolver) Webfinger(ctx context.Context, h ap.Handle) (string, error) {
	if r.Client == nil {
		return "", ErrNoSession
	}

	if id, ok := r.handles.Get(h.String()); ok {
		return id, nil
	}

	start := time.Now()
	id, err := r.webfinger(ctx, h)
	observe("webfinger", start, err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHandleResolution, err)
	}

	r.handles.Add(h.String(), id)
	return id, nil
}

func (r *Resolver) webfinger(ctx context.Context, h ap.Handle) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Config.ResolverTimeout)
	defer cancel()

	u := fmt.Sprintf("%s://%s/.well-known/webfinger?resource=%s", r.Config.HTTPPrefix, h.Domain, url.QueryEscape("acct:"+h.String()))

	var resp webFingerResponse
	if err := getJSON(ctx, r.Client, u, jrdType, r.Config.MaxResponseBodySize, r.sign, &resp); err != nil {
		return "", err
	}

	for _, link := range resp.Links {
		if link.Rel != "self" || link.Href == "" {
			continue
		}

		if link.Type == activityJSONType || strings.HasPrefix(link.Type, "application/ld+json") {
			return link.Href, nil
		}
	}

	return "", fmt.Errorf("no actor link for %s", h)
}

// Actor fetches an actor document.
func (r *Resolver) Actor(ctx context.Context, id string) (*ap.Actor, error) {
	if r.Client == nil {
		return nil, ErrNoSession
	}

	if actor, ok := r.actors.Get(id); ok {
		return actor, nil
	}

	u, err := url.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", id, err)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("cannot resolve %s: %w", id, ErrInvalidScheme)
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.Config.ResolverTimeout)
	defer cancel()

	var actor ap.Actor
	err = getJSON(ctx, r.Client, id, activityStreamsType, r.Config.MaxResponseBodySize, r.sign, &actor)
	observe("actor", start, err)
	if err != nil {
		return nil, err
	}

	if actor.ID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoActorID, id)
	}

	r.actors.Add(id, &actor)
	return &actor, nil
}

// Box returns the URL of a collection of an actor, by name.
func (r *Resolver) Box(ctx context.Context, actorID, name string) (Box, error) {
	actor, err := r.Actor(ctx, actorID)
	if errors.Is(err, ErrNoSession) || errors.Is(err, ErrNoActorID) {
		return Box{}, err
	} else if err != nil {
		return Box{}, fmt.Errorf("%w: %w", ErrNoEndpoint, err)
	}

	box := actor.Box(name)
	if box == "" {
		return Box{}, fmt.Errorf("%w: %s has no %s", ErrNoEndpoint, actorID, name)
	}

	return Box{
		URL:          box,
		ActorID:      actor.ID,
		PublicKeyPem: actor.PublicKey.PublicKeyPem,
		SharedInbox:  actor.SharedInbox(),
	}, nil
}

// Forget removes a cached actor.
func (r *Resolver) Forget(id string) {
	r.actors.Remove(id)
}
