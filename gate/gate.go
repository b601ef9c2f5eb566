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

// Package gate decides whether a remote URL may be written to an inbox or delivered to.
//
// The gate is not applied by the mutators in other packages: callers must check
// [IsPermitted] before any durable mutation or outbound delivery.
package gate

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// WriteInbox is the capability to deliver activities to, or receive activities from, a URL.
const WriteInbox = "inbox:write"

// Capabilities grants capabilities (for example "inbox:write") to URLs.
type Capabilities interface {
	Allow(url, capability string) bool
}

// Granted maps a URL prefix to the capabilities granted to URLs that start with it.
type Granted map[string][]string

func (g Granted) Allow(url, capability string) bool {
	for prefix, caps := range g {
		if !strings.HasPrefix(url, prefix) {
			continue
		}

		for _, c := range caps {
			if c == capability {
				return true
			}
		}
	}

	return false
}

// Evil is a list of domains that are always blocked, including their subdomains.
var Evil = []string{
	"gab.com",
	"gabfed.com",
	"spinster.xyz",
	"kiwifarms.cc",
	"djitter.com",
}

// IsEvil determines whether or not a domain, or a URL on it, is on the [Evil] list.
func IsEvil(domain string) bool {
	if strings.Contains(domain, "://") {
		u, err := url.Parse(domain)
		if err != nil {
			return false
		}
		domain = u.Hostname()
	}

	domain = NormalizeDomain(domain)
	for _, evil := range Evil {
		if domain == evil || strings.HasSuffix(domain, "."+evil) {
			return true
		}
	}

	return false
}

// NormalizeDomain converts a domain to lowercase ASCII; internationalized names are converted to punycode.
func NormalizeDomain(domain string) string {
	host, port := domain, ""
	if i := strings.LastIndexByte(domain, ':'); i > 0 && !strings.Contains(domain[i:], "]") {
		host, port = domain[:i], domain[i:]
	}

	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	} else {
		host = strings.ToLower(host)
	}

	return host + port
}

// IsPermitted determines whether or not an action on a URL is allowed.
//
// If caps is not nil, capability must be granted to u. An empty federation list permits
// every domain; otherwise, some entry must be a substring of u.
func IsPermitted(u string, federationList []string, caps Capabilities, capability string) bool {
	if caps != nil && !caps.Allow(u, capability) {
		return false
	}

	if IsEvil(u) {
		return false
	}

	if len(federationList) == 0 {
		return true
	}

	for _, domain := range federationList {
		if domain != "" && strings.Contains(u, domain) {
			return true
		}
	}

	return false
}
