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
	"context"
	"fmt"
	"time"

	"github.com/dimkr/fedcore/acct"
	"github.com/dimkr/fedcore/cfg"
	"github.com/dimkr/fedcore/data"
	"github.com/dimkr/fedcore/fsx"
)

// LockdownParam is the instance parameter that mirrors the lockdown state.
const LockdownParam = "brochMode"

// LockdownActive determines whether or not lockdown mode is active.
func (s *Store) LockdownActive() bool {
	return fsx.Exists(s.allowPath())
}

// SetLockdown enables or disables lockdown mode.
//
// When enabled, the allow list is the union of the instance domain and every domain that
// appears in the following or followers list of a local account. Enabling an active
// lockdown leaves the allow list untouched.
func (s *Store) SetLockdown(enabled bool) error {
	path := s.allowPath()

	if !enabled {
		if removed, err := fsx.RemoveIfExists(path); err != nil {
			return fmt.Errorf("failed to disable lockdown: %w", err)
		} else if removed {
			lockdownTransitions.WithLabelValues("disabled").Inc()
			s.Log.Info("Lockdown disabled")
		}

		return cfg.SetParam(s.BaseDir, LockdownParam, false)
	}

	if fsx.Exists(path) {
		since, err := fsx.ModTime(path)
		s.Log.Info("Lockdown is already active", "since", since, "error", err)
		return nil
	}

	domains, err := s.buildAllowList()
	if err != nil {
		return fmt.Errorf("failed to enable lockdown: %w", err)
	}

	if err := fsx.WriteLines(path, domains); err != nil {
		return fmt.Errorf("failed to enable lockdown: %w", err)
	}

	lockdownTransitions.WithLabelValues("enabled").Inc()
	s.Log.Info("Lockdown enabled", "domains", len(domains))

	return cfg.SetParam(s.BaseDir, LockdownParam, true)
}

func (s *Store) buildAllowList() ([]string, error) {
	domains := data.OrderedMap[string, struct{}]{}
	domains.Store(normalize(s.Domain), struct{}{})

	accounts, err := acct.List(s.BaseDir)
	if err != nil {
		return nil, err
	}

	for _, h := range accounts {
		for _, name := range []string{acct.Following, acct.Followers} {
			entries, err := acct.ReadHandles(acct.Path(s.BaseDir, h, name))
			if err != nil {
				return nil, err
			}

			for _, entry := range entries {
				if domain, ok := acct.DomainOf(entry); ok {
					domains.Store(normalize(domain), struct{}{})
				}
			}
		}
	}

	return domains.Keys(), nil
}

// LockdownHasExpired disables lockdown mode if it has been active for maxAge or longer,
// and reports whether it did. If the age of the allow list cannot be determined, lockdown
// stays active.
func (s *Store) LockdownHasExpired(maxAge time.Duration) (bool, error) {
	path := s.allowPath()
	if !fsx.Exists(path) {
		return false, nil
	}

	since, err := fsx.ModTime(path)
	if err != nil || since.IsZero() {
		s.Log.Warn("Failed to determine lockdown age", "error", err)
		return false, nil
	}

	if time.Since(since) < maxAge {
		return false, nil
	}

	if removed, err := fsx.RemoveIfExists(path); err != nil {
		return false, fmt.Errorf("failed to end lockdown: %w", err)
	} else if !removed {
		return false, nil
	}

	lockdownTransitions.WithLabelValues("expired").Inc()
	s.Log.Info("Lockdown has expired", "since", since)

	return true, cfg.SetParam(s.BaseDir, LockdownParam, false)
}

// ExpireLockdown periodically ends lockdown mode once it's older than the configured maximum age.
func (s *Store) ExpireLockdown(ctx context.Context) {
	t := time.NewTicker(s.Config.LockdownCheckInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-t.C:
			if _, err := s.LockdownHasExpired(s.Config.LockdownMaxAge); err != nil {
				s.Log.Error("Failed to check lockdown expiry", "error", err)
			}
		}
	}
}
