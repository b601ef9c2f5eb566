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


// Package fed talks to other servers: it resolves handles, sends activities through the
// sender's own server and delivers signed activities to remote inboxes.
package fed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client sends HTTP requests.
type Client interface {
	Do(*http.Request) (*http.Response, error)
}

const (
	activityStreamsType = `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`
	activityJSONType    = "application/activity+json"
	jrdType             = "application/jrd+json"
	userAgent           = "fedcore/1.0"
)

// getJSON fetches and decodes a JSON document.
func getJSON(ctx context.Context, client Client, url, accept string, maxSize int64, sign func(*http.Request) error, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)

	if sign != nil {
		if err := sign(req); err != nil {
			return fmt.Errorf("failed to sign request to %s: %w", url, err)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s: %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSize)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}

	return nil
}
