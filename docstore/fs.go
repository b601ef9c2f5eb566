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
	"os"
	"path/filepath"
	"sync"

	"github.com/dimkr/fedcore/fsx"
)

// FS stores every document in its own file: the key is the file path, relative to Dir.
//
// Swaps are serialized within the process and the new content replaces the old one with a
// rename, so readers never observe a partial document.
type FS struct {
	Dir string

	locks sync.Map
}

func (s *FS) path(key string) string {
	if s.Dir == "" {
		return key
	}
	return filepath.Join(s.Dir, key)
}

func (s *FS) lock(key string) func() {
	m, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *FS) read(key string) ([]byte, Version, error) {
	buf, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", ErrNotFound
	} else if err != nil {
		return nil, "", err
	}

	version, err := VersionOf(buf)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", key, err)
	}

	return buf, version, nil
}

func (s *FS) Load(ctx context.Context, key string) (Document, Version, error) {
	buf, version, err := s.read(key)
	if err != nil {
		return nil, "", err
	}

	doc, err := decode(buf)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", key, err)
	}

	return doc, version, nil
}

func (s *FS) CompareAndSwap(ctx context.Context, key string, old Version, doc Document) error {
	unlock := s.lock(key)
	defer unlock()

	_, current, err := s.read(key)
	if errors.Is(err, ErrNotFound) {
		if old != "" {
			return ErrConflict
		}
	} else if err != nil {
		return err
	} else if current != old {
		return ErrConflict
	}

	buf, _, err := encode(doc)
	if err != nil {
		return err
	}

	perm := os.FileMode(0o644)
	if fi, err := os.Stat(s.path(key)); err == nil {
		perm = fi.Mode().Perm()
	}

	return fsx.WriteFileAtomic(s.path(key), buf, perm)
}

// Put replaces a document unconditionally.
func (s *FS) Put(ctx context.Context, key string, doc Document) error {
	unlock := s.lock(key)
	defer unlock()

	buf, _, err := encode(doc)
	if err != nil {
		return err
	}

	return fsx.WriteFileAtomic(s.path(key), buf, 0o644)
}
