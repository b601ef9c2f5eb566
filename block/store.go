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

// Package block implements instance-wide and per-account block lists, hashtag blocks and
// lockdown mode, in which federation switches from a deny list to an allow list.
package block

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dimkr/fedcore/acct"
	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/cfg"
	"github.com/dimkr/fedcore/data"
	"github.com/dimkr/fedcore/fsx"
	"github.com/dimkr/fedcore/gate"
)

// Store manages the block lists under a base directory.
type Store struct {
	BaseDir string
	// Domain is the instance domain, always allowed in lockdown mode.
	Domain string
	Config *cfg.Config
	Log    *slog.Logger
}

var ErrInvalidEntry = errors.New("invalid block entry")

// Entry returns the block list line for a nickname and domain: a hashtag if the nickname
// starts with #, a domain wildcard if the nickname is *, or a handle otherwise.
func Entry(nickname, domain string) (string, error) {
	if strings.HasPrefix(nickname, "#") {
		if len(nickname) == 1 || strings.ContainsAny(nickname, " \t\r\n@") {
			return "", ErrInvalidEntry
		}
		return nickname, nil
	}

	if nickname == "" || domain == "" || strings.ContainsAny(nickname+domain, " \t\r\n@/") {
		return "", ErrInvalidEntry
	}

	return nickname + "@" + normalize(domain), nil
}

func normalize(domain string) string {
	return gate.NormalizeDomain(ap.StripPort(domain))
}

func (s *Store) globalPath() string {
	return acct.GlobalPath(s.BaseDir, acct.Blocking)
}

func (s *Store) allowPath() string {
	return acct.GlobalPath(s.BaseDir, acct.AllowedInstances)
}

// AddGlobal adds an instance-wide block. It returns false if already blocked.
func (s *Store) AddGlobal(nickname, domain string) (bool, error) {
	entry, err := Entry(nickname, domain)
	if err != nil {
		return false, err
	}

	added, err := fsx.AppendLine(s.globalPath(), entry)
	if err != nil {
		return false, fmt.Errorf("failed to block %s: %w", entry, err)
	}

	if added {
		s.Log.Info("Added instance block", "entry", entry)
	}

	return added, nil
}

// RemoveGlobal removes an instance-wide block. It returns false if not blocked.
func (s *Store) RemoveGlobal(nickname, domain string) (bool, error) {
	entry, err := Entry(nickname, domain)
	if err != nil {
		return false, err
	}

	removed, err := fsx.RemoveLine(s.globalPath(), entry)
	if err != nil {
		return false, fmt.Errorf("failed to unblock %s: %w", entry, err)
	}

	if removed {
		s.Log.Info("Removed instance block", "entry", entry)
	}

	return removed, nil
}

// AddAccount adds a block to the block list of a local account. It returns false if
// already blocked. A blocked handle is also removed from the account's follow lists.
func (s *Store) AddAccount(h ap.Handle, nickname, domain string) (bool, error) {
	entry, err := Entry(nickname, domain)
	if err != nil {
		return false, err
	}

	added, err := fsx.AppendLine(acct.Path(s.BaseDir, h, acct.Blocking), entry)
	if err != nil {
		return false, fmt.Errorf("%s failed to block %s: %w", h, entry, err)
	} else if !added {
		return false, nil
	}

	s.Log.Info("Added account block", "account", h.String(), "entry", entry)

	if strings.HasPrefix(entry, "#") || nickname == "*" {
		return true, nil
	}

	for _, name := range []string{acct.Following, acct.Followers} {
		if removed, err := fsx.RemoveLine(acct.Path(s.BaseDir, h, name), entry); err != nil {
			s.Log.Warn("Failed to remove blocked handle from follow list", "account", h.String(), "entry", entry, "list", name, "error", err)
		} else if removed {
			s.Log.Info("Removed blocked handle from follow list", "account", h.String(), "entry", entry, "list", name)
		}
	}

	return true, nil
}

// RemoveAccount removes a block from the block list of a local account. It returns false
// if not blocked.
func (s *Store) RemoveAccount(h ap.Handle, nickname, domain string) (bool, error) {
	entry, err := Entry(nickname, domain)
	if err != nil {
		return false, err
	}

	removed, err := fsx.RemoveLine(acct.Path(s.BaseDir, h, acct.Blocking), entry)
	if err != nil {
		return false, fmt.Errorf("%s failed to unblock %s: %w", h, entry, err)
	}

	if removed {
		s.Log.Info("Removed account block", "account", h.String(), "entry", entry)
	}

	return removed, nil
}

// AllowAccount adds a domain to the allow list of a local account. Once an account has an
// allow list, every domain not on it is blocked for that account.
func (s *Store) AllowAccount(h ap.Handle, domain string) (bool, error) {
	return fsx.AppendLine(acct.Path(s.BaseDir, h, acct.AllowedInstances), normalize(domain))
}

// DisallowAccount removes a domain from the allow list of a local account.
func (s *Store) DisallowAccount(h ap.Handle, domain string) (bool, error) {
	return fsx.RemoveLine(acct.Path(s.BaseDir, h, acct.AllowedInstances), normalize(domain))
}

// globalContains checks the global block list, through the cache if there is one.
func (s *Store) globalContains(cache *Cache, entries ...string) bool {
	if cache != nil {
		if _, err := cache.Refresh(s.globalPath(), time.Now()); err == nil {
			return cache.ContainsAny(entries...)
		} else {
			s.Log.Warn("Failed to refresh block list cache", "error", err)
		}
	}

	return fileContains(s.Log, s.globalPath(), entries...)
}

func fileContains(log *slog.Logger, path string, entries ...string) bool {
	lines, err := fsx.ReadLines(path)
	if err != nil {
		log.Warn("Failed to read block list", "path", path, "error", err)
		return false
	}

	set := data.Collect(lines)
	for _, e := range entries {
		if e != "" && set.Contains(e) {
			return true
		}
	}

	return false
}

func wildcards(domain string) (string, string) {
	if short := ap.ShortDomain(domain); short != "" {
		return "*@" + domain, "*@" + short
	}
	return "*@" + domain, ""
}

func isAllowed(log *slog.Logger, path, domain string) bool {
	lines, err := fsx.ReadLines(path)
	if err != nil {
		log.Warn("Failed to read allow list", "path", path, "error", err)
		return false
	}

	allowed := data.Collect(lines)
	if allowed.Contains(domain) {
		return true
	}

	short := ap.ShortDomain(domain)
	return short != "" && allowed.Contains(short)
}

// IsBlockedDomain determines whether or not a domain is blocked instance-wide.
//
// In lockdown mode, every domain not on the allow list is blocked.
func (s *Store) IsBlockedDomain(domain string, cache *Cache) bool {
	domain = normalize(domain)
	if !strings.Contains(domain, ".") {
		return observe("domain", false)
	}

	if gate.IsEvil(domain) {
		return observe("domain", true)
	}

	if fsx.Exists(s.allowPath()) {
		return observe("domain", !isAllowed(s.Log, s.allowPath(), domain))
	}

	wildcard, shortWildcard := wildcards(domain)
	return observe("domain", s.globalContains(cache, wildcard, shortWildcard))
}

// IsBlocked determines whether or not a local account blocks an actor.
//
// Checks are applied in order and the first match wins: the evil list, instance-wide
// domain blocks, instance-wide handle blocks, the account allow list and the account block list.
func (s *Store) IsBlocked(h ap.Handle, blockNickname, blockDomain string, cache *Cache) bool {
	blockDomain = normalize(blockDomain)

	if gate.IsEvil(blockDomain) {
		return observe("actor", true)
	}

	var handle string
	if blockNickname != "" && blockDomain != "" {
		handle = blockNickname + "@" + blockDomain
	}

	wildcard, shortWildcard := wildcards(blockDomain)

	if s.globalContains(cache, wildcard, shortWildcard) {
		return observe("actor", true)
	}

	if handle != "" && s.globalContains(cache, handle) {
		return observe("actor", true)
	}

	allowPath := acct.Path(s.BaseDir, h, acct.AllowedInstances)
	if fsx.Exists(allowPath) && !isAllowed(s.Log, allowPath, blockDomain) {
		return observe("actor", true)
	}

	return observe("actor", fileContains(s.Log, acct.Path(s.BaseDir, h, acct.Blocking), wildcard, shortWildcard, handle))
}

// IsBlockedHashtag determines whether or not a hashtag is blocked instance-wide.
// Overly long hashtags are always blocked.
func (s *Store) IsBlockedHashtag(tag string, cache *Cache) bool {
	tag = strings.TrimPrefix(tag, "#")
	if tag == "" {
		return false
	}

	if utf8.RuneCountInString(tag) > s.Config.MaxHashtagLength {
		return observe("hashtag", true)
	}

	return observe("hashtag", s.globalContains(cache, "#"+tag))
}
