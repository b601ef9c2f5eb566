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


// Package post applies interactions to stored posts and keeps their renderings consistent.
package post

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/dimkr/fedcore/acct"
	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/docstore"
)

// Boxes are the account directories searched for posts, in order.
var Boxes = []string{"outbox", "inbox"}

var ErrNotFound = errors.New("post not found")

// Locator finds the document key of a post stored by a local account.
type Locator interface {
	Locate(ctx context.Context, owner ap.Handle, id string) (string, bool)
}

// Key returns the document key of a post in one of the boxes of a local account.
func Key(owner ap.Handle, box, id string) string {
	return filepath.Join(acct.AccountsDir, owner.Nickname+"@"+owner.Host(), box, ap.NormalizeID(id)+".json")
}

// StoreLocator looks for posts in the outbox, then the inbox, of a local account.
type StoreLocator struct {
	Store docstore.Store
}

func (l StoreLocator) Locate(ctx context.Context, owner ap.Handle, id string) (string, bool) {
	for _, box := range Boxes {
		key := Key(owner, box, id)
		if _, _, err := l.Store.Load(ctx, key); err == nil {
			return key, true
		}
	}

	return "", false
}
