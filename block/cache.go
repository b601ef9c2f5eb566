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
	"sync"
	"time"

	"github.com/dimkr/fedcore/data"
	"github.com/dimkr/fedcore/fsx"
)

// Cache is an in-memory copy of the global block list.
//
// While fresh, the cache is the source of truth and the file is not re-read; it is
// re-read only if Interval has passed since LastRefreshed. Callers must pass the same
// Cache to every check to benefit from it.
type Cache struct {
	Interval time.Duration

	lock          sync.Mutex
	lastRefreshed time.Time
	entries       data.OrderedMap[string, struct{}]
}

// NewCache returns a new [Cache].
func NewCache(interval time.Duration) *Cache {
	return &Cache{Interval: interval}
}

// LastRefreshed returns the time the block list was last read.
func (c *Cache) LastRefreshed() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lastRefreshed
}

// Refresh reloads the block list from path if the cache is stale.
// It reports whether the file was read.
func (c *Cache) Refresh(path string, now time.Time) (bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.lastRefreshed.IsZero() && now.Sub(c.lastRefreshed) < c.Interval {
		return false, nil
	}

	lines, err := fsx.ReadLines(path)
	if err != nil {
		return false, err
	}

	c.entries = data.Collect(lines)
	c.lastRefreshed = now
	return true, nil
}

// Invalidate forces the next [Cache.Refresh] to read the file.
func (c *Cache) Invalidate() {
	c.lock.Lock()
	c.lastRefreshed = time.Time{}
	c.lock.Unlock()
}

// ContainsAny determines whether or not any of the given entries is cached.
func (c *Cache) ContainsAny(entries ...string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, e := range entries {
		if e != "" && c.entries.Contains(e) {
			return true
		}
	}

	return false
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.entries)
}
