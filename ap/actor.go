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

// PublicKey is the key an actor signs requests with.
type PublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// Actor is the subset of an actor document needed to deliver activities to it.
type Actor struct {
	Context           any               `json:"@context,omitempty"`
	ID                string            `json:"id"`
	Type              string            `json:"type"`
	PreferredUsername string            `json:"preferredUsername,omitempty"`
	Inbox             string            `json:"inbox"`
	Outbox            string            `json:"outbox,omitempty"`
	Followers         string            `json:"followers,omitempty"`
	Endpoints         map[string]string `json:"endpoints,omitempty"`
	PublicKey         PublicKey         `json:"publicKey"`
}

// Box returns the URL of an actor collection by name: inbox, outbox or followers.
func (a *Actor) Box(name string) string {
	switch name {
	case "inbox":
		return a.Inbox
	case "outbox":
		return a.Outbox
	case "followers":
		return a.Followers
	default:
		return ""
	}
}

// SharedInbox returns the shared inbox of an actor, or its inbox if it has none.
func (a *Actor) SharedInbox() string {
	if shared := a.Endpoints["sharedInbox"]; shared != "" {
		return shared
	}
	return a.Inbox
}
