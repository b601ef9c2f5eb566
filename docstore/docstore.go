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


// Package docstore stores JSON documents and updates them with optimistic concurrency.
package docstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/gowebpki/jcs"
)

// Document is a decoded JSON object. Unknown fields round-trip untouched.
type Document = map[string]any

// Version identifies the content of a stored document.
type Version string

// Store loads documents and replaces them only if they didn't change since they were loaded.
type Store interface {
	Load(ctx context.Context, key string) (Document, Version, error)
	CompareAndSwap(ctx context.Context, key string, old Version, doc Document) error
}

var (
	ErrNotFound         = errors.New("document not found")
	ErrConflict         = errors.New("document has changed")
	ErrNotObject        = errors.New("document is not a JSON object")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// VersionOf returns the version of a serialized document.
//
// The document is canonicalized first, so formatting and key order don't affect the version.
func VersionOf(buf []byte) (Version, error) {
	canon, err := jcs.Transform(buf)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize document: %w", err)
	}

	hash := sha256.Sum256(canon)
	return Version(base58.Encode(hash[:])), nil
}

func decode(buf []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotObject, err)
	}

	if doc == nil {
		return nil, ErrNotObject
	}

	return doc, nil
}

func encode(doc Document) ([]byte, Version, error) {
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal document: %w", err)
	}

	version, err := VersionOf(buf)
	if err != nil {
		return nil, "", err
	}

	return buf, version, nil
}
