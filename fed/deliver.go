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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/block"
	"github.com/dimkr/fedcore/cfg"
	"github.com/dimkr/fedcore/data"
	"github.com/dimkr/fedcore/gate"
	"github.com/dimkr/fedcore/httpsig"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Keys returns the signing key of a local account.
type Keys interface {
	Key(ctx context.Context, h ap.Handle) (httpsig.Key, error)
}

// KeyDir loads PEM-encoded private keys from keys/private/<nickname>@<domain>.key.
type KeyDir struct {
	BaseDir    string
	HTTPPrefix string
}

func (k KeyDir) Key(ctx context.Context, h ap.Handle) (httpsig.Key, error) {
	path := filepath.Join(k.BaseDir, "keys", "private", h.Nickname+"@"+h.Host()+".key")

	buf, err := os.ReadFile(path)
	if err != nil {
		return httpsig.Key{}, fmt.Errorf("failed to load key of %s: %w", h, err)
	}

	priv, err := httpsig.ParsePrivateKey(string(buf))
	if err != nil {
		return httpsig.Key{}, fmt.Errorf("failed to load key of %s: %w", h, err)
	}

	return httpsig.Key{ID: ap.LocalActorURL(k.HTTPPrefix, h) + "#main-key", PrivateKey: priv}, nil
}

// Deliverer sends signed activities to remote inboxes.
//
// Concurrent deliveries are limited to [cfg.Config.DeliveryWorkers] and paced by
// [cfg.Config.DeliveryRate]. Failed deliveries are not retried.
type Deliverer struct {
	Resolver     *Resolver
	Config       *cfg.Config
	Blocks       *block.Store
	Cache        *block.Cache
	Capabilities gate.Capabilities
	Keys         Keys
	Log          *slog.Logger

	sem     *semaphore.Weighted
	limiter *rate.Limiter
	wg      sync.WaitGroup
}

func NewDeliverer(resolver *Resolver, config *cfg.Config, blocks *block.Store, cache *block.Cache, caps gate.Capabilities, keys Keys, log *slog.Logger) *Deliverer {
	return &Deliverer{
		Resolver:     resolver,
		Config:       config,
		Blocks:       blocks,
		Cache:        cache,
		Capabilities: caps,
		Keys:         keys,
		Log:          log,
		sem:          semaphore.NewWeighted(config.DeliveryWorkers),
		limiter:      rate.NewLimiter(rate.Limit(config.DeliveryRate), config.DeliveryBurst),
	}
}

// Deliver posts a signed activity to an inbox.
func (d *Deliverer) Deliver(ctx context.Context, key httpsig.Key, body []byte, inbox string) error {
	if d.Resolver == nil || d.Resolver.Client == nil {
		return ErrNoSession
	}

	ctx, cancel := context.WithTimeout(ctx, d.Config.DeliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, inbox, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", inbox, err)
	}

	req.Header.Set("Content-Type", activityStreamsType)
	req.Header.Set("Accept", activityStreamsType)
	req.Header.Set("User-Agent", userAgent)

	if err := httpsig.Sign(req, key, time.Now()); err != nil {
		return fmt.Errorf("failed to sign request to %s: %w", inbox, err)
	}

	resp, err := d.Resolver.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", inbox, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, d.Config.MaxResponseBodySize))
		return fmt.Errorf("failed to send request to %s: %d, %s", inbox, resp.StatusCode, string(respBody))
	}

	return nil
}

// Relay delivers an activity by a local account to remote actors, skipping local actors
// and actors that may not receive it. Deliveries continue after ctx is canceled; use
// [Deliverer.Wait] to wait for them.
func (d *Deliverer) Relay(ctx context.Context, from ap.Handle, activity *ap.Activity, targets []string) {
	recipients := data.OrderedMap[string, struct{}]{}
	local := ap.StripPort(d.Config.Domain)

	for _, target := range targets {
		if target == "" || target == ap.Public {
			continue
		}

		host, err := ap.Host(target)
		if err != nil {
			d.Log.Info("Skipping invalid recipient", "activity", activity.ID, "recipient", target, "error", err)
			continue
		}

		if host == local {
			continue
		}

		if !gate.IsPermitted(target, d.Config.FederationList, d.Capabilities, gate.WriteInbox) {
			d.Log.Info("Skipping recipient", "activity", activity.ID, "recipient", target, "reason", "not permitted")
			deliveries.WithLabelValues("denied").Inc()
			continue
		}

		if d.Blocks != nil && d.Blocks.IsBlockedDomain(host, d.Cache) {
			d.Log.Info("Skipping recipient", "activity", activity.ID, "recipient", target, "reason", "blocked")
			deliveries.WithLabelValues("blocked").Inc()
			continue
		}

		recipients.Store(target, struct{}{})
	}

	if len(recipients) == 0 {
		return
	}

	key, err := d.Keys.Key(ctx, from)
	if err != nil {
		d.Log.Warn("Failed to relay activity", "activity", activity.ID, "from", from.String(), "error", err)
		return
	}

	body, err := json.Marshal(activity)
	if err != nil {
		d.Log.Warn("Failed to relay activity", "activity", activity.ID, "from", from.String(), "error", err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	recipients.Range(func(target string, _ struct{}) bool {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.relay(ctx, key, activity.ID, body, target)
		}()
		return true
	})
}

func (d *Deliverer) relay(ctx context.Context, key httpsig.Key, id string, body []byte, target string) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer d.sem.Release(1)

	if err := d.limiter.Wait(ctx); err != nil {
		return
	}

	start := time.Now()

	err := func() error {
		box, err := d.Resolver.Box(ctx, target, "inbox")
		if err != nil {
			return err
		}

		return d.Deliver(ctx, key, body, box.SharedInbox)
	}()

	status := "success"
	if err != nil {
		status = "error"
		d.Log.Warn("Failed to deliver activity", "activity", id, "recipient", target, "error", err)
	} else {
		d.Log.Info("Delivered activity", "activity", id, "recipient", target)
	}

	deliveries.WithLabelValues(status).Inc()
	deliveryDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

// Wait waits for deliveries in progress.
func (d *Deliverer) Wait() {
	d.wg.Wait()
}
