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
	"net/http"
	"strings"
	"time"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/cfg"
	"github.com/dimkr/fedcore/httpsig"
)

var ErrKeyMismatch = errors.New("key does not belong to actor")

// Verifier authenticates signed requests from remote actors.
type Verifier struct {
	Resolver *Resolver
	Config   *cfg.Config
}

func (v *Verifier) verify(ctx context.Context, sig *httpsig.Signature, actorID string) (*ap.Actor, error) {
	actor, err := v.Resolver.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if actor.PublicKey.ID != sig.KeyID {
		return nil, fmt.Errorf("%w: %s", ErrKeyMismatch, sig.KeyID)
	}

	key, err := httpsig.ParsePublicKey(actor.PublicKey.PublicKeyPem)
	if err != nil {
		return nil, err
	}

	if err := sig.Verify(key); err != nil {
		return nil, err
	}

	return actor, nil
}

// Verify verifies the signature of a request and returns the actor that signed it.
// If verification fails using a cached actor, the actor is fetched again in case its key
// has changed.
func (v *Verifier) Verify(ctx context.Context, r *http.Request, body []byte) (*ap.Actor, error) {
	sig, err := httpsig.Extract(r, body, v.Config.Domain, time.Now(), v.Config.MaxRequestAge)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}

	actorID, _, _ := strings.Cut(sig.KeyID, "#")

	actor, err := v.verify(ctx, sig, actorID)
	if err == nil {
		return actor, nil
	}

	v.Resolver.Forget(actorID)
	actor, err = v.verify(ctx, sig, actorID)
	if err == nil {
		return actor, nil
	}

	return nil, fmt.Errorf("failed to verify request by %s: %w", actorID, err)
}
