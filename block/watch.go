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

package block

import (
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates block list caches when the block list file changes.
type Watcher struct {
	wg sync.WaitGroup
	w  *fsnotify.Watcher
}

// NewWatcher starts watching path. Changes are debounced by delay, so a burst of writes
// causes a single invalidation.
func NewWatcher(log *slog.Logger, path string, delay time.Duration, caches ...*Cache) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	absPath := filepath.Join(dir, filepath.Base(path))

	bw := &Watcher{w: w}

	timer := time.NewTimer(math.MaxInt64)
	timer.Stop()

	bw.wg.Add(1)
	go func() {
		defer bw.wg.Done()

		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					timer.Stop()
					return
				}

				if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove)) && event.Name == absPath {
					timer.Reset(delay)
				}

			case err, ok := <-w.Errors:
				if !ok {
					timer.Stop()
					return
				}
				log.Warn("Block list watcher error", "path", path, "error", err)

			case <-timer.C:
				for _, c := range caches {
					c.Invalidate()
				}
				log.Info("Block list changed", "path", path)
			}
		}
	}()

	return bw, nil
}

// Close frees resources.
func (w *Watcher) Close() {
	w.w.Close()
	w.wg.Wait()
}
