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

// Package cfg defines the fedcore configuration file format and defaults.
package cfg

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config represents a fedcore configuration file.
type Config struct {
	Domain         string
	HTTPPrefix     string
	FederationList []string

	DocumentBackend      string
	CollectionRetries    int
	CollectionRetryDelay time.Duration

	LockdownMaxAge            time.Duration
	LockdownCheckInterval     time.Duration
	BlockCacheRefreshInterval time.Duration
	BlockListReloadDelay      time.Duration
	MaxHashtagLength          int

	RecentPostsCacheSize int

	ResolverTimeout   time.Duration
	ResolverCacheSize int
	ResolverCacheTTL  time.Duration

	DeliveryTimeout time.Duration
	DeliveryWorkers int64
	DeliveryRate    float64
	DeliveryBurst   int

	MaxRequestBodySize  int64
	MaxResponseBodySize int64
	MaxRequestAge       time.Duration
}

// FillDefaults replaces missing or invalid settings with defaults.
func (c *Config) FillDefaults() {
	if c.Domain == "" {
		c.Domain = "localhost.localdomain"
	}

	if c.HTTPPrefix == "" {
		c.HTTPPrefix = "https"
	}

	if c.DocumentBackend == "" {
		c.DocumentBackend = "fs"
	}

	if c.CollectionRetries <= 0 {
		c.CollectionRetries = 5
	}

	if c.CollectionRetryDelay <= 0 {
		c.CollectionRetryDelay = time.Second
	}

	if c.LockdownMaxAge <= 0 {
		c.LockdownMaxAge = time.Hour * 24 * 7
	}

	if c.LockdownCheckInterval <= 0 {
		c.LockdownCheckInterval = time.Hour
	}

	if c.BlockCacheRefreshInterval <= 0 {
		c.BlockCacheRefreshInterval = time.Minute * 5
	}

	if c.BlockListReloadDelay <= 0 {
		c.BlockListReloadDelay = time.Second * 5
	}

	if c.MaxHashtagLength <= 0 {
		c.MaxHashtagLength = 32
	}

	if c.RecentPostsCacheSize <= 0 {
		c.RecentPostsCacheSize = 128
	}

	if c.ResolverTimeout <= 0 {
		c.ResolverTimeout = time.Second * 20
	}

	if c.ResolverCacheSize <= 0 {
		c.ResolverCacheSize = 1024
	}

	if c.ResolverCacheTTL <= 0 {
		c.ResolverCacheTTL = time.Hour
	}

	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = time.Second * 30
	}

	if c.DeliveryWorkers <= 0 {
		c.DeliveryWorkers = 16
	}

	if c.DeliveryRate <= 0 {
		c.DeliveryRate = 10
	}

	if c.DeliveryBurst <= 0 {
		c.DeliveryBurst = 20
	}

	if c.MaxRequestBodySize <= 0 {
		c.MaxRequestBodySize = 1024 * 1024
	}

	if c.MaxResponseBodySize <= 0 {
		c.MaxResponseBodySize = 1024 * 1024
	}

	if c.MaxRequestAge <= 0 {
		c.MaxRequestAge = time.Minute * 5
	}
}

// Load reads a configuration file and fills missing settings with defaults.
// An empty path yields the default configuration.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		if err := json.NewDecoder(f).Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	c.FillDefaults()
	return &c, nil
}
