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

package ap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var usersPaths = []string{"/users/", "/accounts/", "/channel/", "/profile/", "/u/", "/c/"}

var idEndings = []string{"/activity", "/undo", "/event", "/replies"}

// HasUsersPath determines whether or not a URL contains a path segment that precedes an actor nickname.
func HasUsersPath(s string) bool {
	for _, p := range usersPaths {
		if strings.Contains(s, p) {
			return true
		}
	}
	return strings.Contains(s, "/@")
}

// IsStatus determines whether or not a URL points to a post.
func IsStatus(s string) bool {
	return strings.Contains(s, "/statuses/")
}

// NicknameFromActor extracts the nickname from an actor or post URL.
func NicknameFromActor(actor string) (string, bool) {
	actor = strings.TrimPrefix(actor, "@")

	for _, p := range usersPaths {
		if _, after, ok := strings.Cut(actor, p); ok {
			nick, _, _ := strings.Cut(strings.ReplaceAll(after, "@", ""), "/")
			return nick, nick != ""
		}
	}

	if _, after, ok := strings.Cut(actor, "/@"); ok {
		nick, _, _ := strings.Cut(after, "/")
		return nick, nick != ""
	}

	if !strings.Contains(actor, "://") {
		if nick, _, ok := strings.Cut(actor, "@"); ok && nick != "" {
			return nick, true
		}
	}

	return "", false
}

// DomainFromActor extracts the domain, including a port if present, from an actor or post URL.
func DomainFromActor(actor string) (string, bool) {
	if !strings.Contains(actor, "://") {
		if _, domain, ok := strings.Cut(strings.TrimPrefix(actor, "@"), "@"); ok && domain != "" {
			return domain, true
		}
		return "", false
	}

	u, err := url.Parse(actor)
	if err != nil || u.Host == "" {
		return "", false
	}

	return u.Host, true
}

// HandleFromActor converts an actor or post URL to a [Handle].
func HandleFromActor(actor string) (Handle, error) {
	nickname, ok := NicknameFromActor(actor)
	if !ok {
		return Handle{}, fmt.Errorf("no nickname in %s", actor)
	}

	domain, ok := DomainFromActor(actor)
	if !ok {
		return Handle{}, fmt.Errorf("no domain in %s", actor)
	}

	return Handle{Nickname: nickname, Domain: domain}, nil
}

// RemoveIDEnding strips suffixes that distinguish an activity from the object it wraps.
func RemoveIDEnding(id string) string {
	for _, ending := range idEndings {
		if strings.HasSuffix(id, ending) {
			return strings.TrimSuffix(id, ending)
		}
	}
	return id
}

// NormalizeID converts a post ID to the form used as a file name and cache key.
func NormalizeID(id string) string {
	return strings.ReplaceAll(RemoveIDEnding(id), "/", "#")
}

// OwnerActor returns the actor a post URL belongs to.
func OwnerActor(id string) string {
	if before, _, ok := strings.Cut(id, "/statuses/"); ok {
		return before
	}
	return id
}

// LocalActorURL returns the actor URL of a local account.
func LocalActorURL(httpPrefix string, h Handle) string {
	return fmt.Sprintf("%s://%s/users/%s", httpPrefix, h.Domain, h.Nickname)
}

// Host returns the host part of a URL, without a port.
func Host(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if u.Host == "" {
		return "", errors.New("no host in " + rawURL)
	}

	return u.Hostname(), nil
}
