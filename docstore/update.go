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


package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimkr/fedcore/cfg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updateConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fedcore_document_update_conflicts_total",
		Help: "Number of document updates that lost a race and were retried",
	})

	updatesAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fedcore_document_updates_abandoned_total",
		Help: "Number of document updates abandoned after all attempts failed",
	})
)

// Retry bounds the attempts of [Update].
type Retry struct {
	Attempts int
	Delay    time.Duration
}

// RetryFromConfig returns the configured document update retry policy.
func RetryFromConfig(c *cfg.Config) Retry {
	return Retry{Attempts: c.CollectionRetries, Delay: c.CollectionRetryDelay}
}

// Update loads a document, passes it to fn and stores the result if fn reports a change.
//
// A failed load or a lost race starts over from a fresh copy of the document, after
// r.Delay. If all attempts fail, Update returns an error wrapping [ErrRetriesExhausted].
// Errors returned by fn and [ErrNotFound] end the update immediately.
func Update(ctx context.Context, store Store, key string, r Retry, fn func(Document) (bool, error)) (bool, error) {
	attempts := max(r.Attempts, 1)

	var lastErr error
	for i := range attempts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(r.Delay):
			}
		}

		doc, version, err := store.Load(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return false, err
		} else if err != nil {
			lastErr = err
			continue
		}

		changed, err := fn(doc)
		if err != nil {
			return false, err
		} else if !changed {
			return false, nil
		}

		err = store.CompareAndSwap(ctx, key, version, doc)
		if err == nil {
			return true, nil
		}

		if errors.Is(err, ErrConflict) {
			updateConflicts.Inc()
		}
		lastErr = err
	}

	updatesAbandoned.Inc()
	return false, fmt.Errorf("failed to update %s after %d attempts: %w: %w", key, attempts, ErrRetriesExhausted, lastErr)
}
