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
	"strings"
)

// Handle is the nickname@domain form of an actor.
// Domain may include a port.
type Handle struct {
	Nickname string
	Domain   string
}

var ErrInvalidHandle = errors.New("invalid handle")

// ParseHandle parses nickname@domain, with an optional leading @.
func ParseHandle(s string) (Handle, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")

	nickname, domain, ok := strings.Cut(s, "@")
	if !ok || nickname == "" || domain == "" || strings.Contains(domain, "@") || strings.ContainsAny(s, "/ ") {
		return Handle{}, ErrInvalidHandle
	}

	return Handle{Nickname: nickname, Domain: domain}, nil
}

func (h Handle) String() string {
	return h.Nickname + "@" + h.Domain
}

// Host returns the handle domain without a port.
func (h Handle) Host() string {
	return StripPort(h.Domain)
}

// IsWildcard determines whether or not this is a *@domain entry.
func (h Handle) IsWildcard() bool {
	return h.Nickname == "*"
}

// StripPort removes a :port suffix from a domain.
func StripPort(domain string) string {
	if i := strings.LastIndexByte(domain, ':'); i > 0 && !strings.Contains(domain[i:], "]") {
		return domain[:i]
	}
	return domain
}

// ShortDomain returns the last two labels of a domain, or "" if the domain has two labels or less.
func ShortDomain(domain string) string {
	domain = StripPort(domain)
	labels := strings.Split(domain, ".")
	if len(labels) <= 2 {
		return ""
	}
	return labels[len(labels)-2] + "." + labels[len(labels)-1]
}
