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


package inbox

import (
	"errors"
	"net/http"
	"os"

	"github.com/dimkr/fedcore/acct"
	"github.com/dimkr/fedcore/ap"
)

// Pattern is the route of local account inboxes.
const Pattern = "POST /users/{nickname}/inbox"

// ServeHTTP receives an activity sent to the inbox of a local account.
//
// Activities dropped because of blocks or missing posts are acknowledged like accepted ones.
func (p *Processor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner := ap.Handle{Nickname: r.PathValue("nickname"), Domain: p.Config.Domain}

	if owner.Nickname == "" || !acct.IsAccountDir(owner.String()) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if _, err := os.Stat(acct.Dir(p.Blocks.BaseDir, owner)); errors.Is(err, os.ErrNotExist) {
		p.Log.Debug("Receiving user does not exist", "receiver", owner.Nickname)
		w.WriteHeader(http.StatusNotFound)
		return
	} else if err != nil {
		p.Log.Warn("Failed to check if receiving user exists", "receiver", owner.Nickname, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if r.ContentLength > p.Config.MaxRequestBodySize {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	err := p.HandleRequest(r.Context(), owner, r)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		w.WriteHeader(http.StatusAccepted)

	case errors.Is(err, ErrTooLarge):
		w.WriteHeader(http.StatusRequestEntityTooLarge)

	case errors.Is(err, ErrUnsigned):
		w.WriteHeader(http.StatusUnauthorized)

	case errors.Is(err, ErrForbidden):
		w.WriteHeader(http.StatusAccepted)

	case errors.Is(err, ErrMalformed):
		w.WriteHeader(http.StatusBadRequest)

	default:
		p.Log.Warn("Failed to process activity", "receiver", owner.Nickname, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}
