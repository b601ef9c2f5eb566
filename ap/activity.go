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

// Package ap contains the subset of the ActivityPub vocabulary handled by fedcore.
package ap

import (
	"encoding/json"
	"fmt"
)

type ActivityType string

const (
	Like     ActivityType = "Like"
	Block    ActivityType = "Block"
	Ignore   ActivityType = "Ignore"
	Announce ActivityType = "Announce"
	Undo     ActivityType = "Undo"
	Add      ActivityType = "Add"
	Remove   ActivityType = "Remove"
	Offer    ActivityType = "Offer"
	Follow   ActivityType = "Follow"
)

const (
	Context = "https://www.w3.org/ns/activitystreams"
	Public  = "https://www.w3.org/ns/activitystreams#Public"
)

// Activity is an outgoing activity envelope.
// Object is a string, an *[Activity] or an *[OfferObject].
type Activity struct {
	Context   any          `json:"@context,omitempty"`
	ID        string       `json:"id,omitempty"`
	Type      ActivityType `json:"type"`
	Actor     string       `json:"actor"`
	To        Audience     `json:"to,omitzero"`
	CC        Audience     `json:"cc,omitzero"`
	Published string       `json:"published,omitempty"`
	Object    any          `json:"object"`
}

type anyActivity struct {
	Context   any             `json:"@context,omitempty"`
	ID        string          `json:"id"`
	Type      ActivityType    `json:"type"`
	Actor     string          `json:"actor"`
	To        Audience        `json:"to"`
	CC        Audience        `json:"cc"`
	Published string          `json:"published"`
	Object    json.RawMessage `json:"object"`
}

func (a *Activity) UnmarshalJSON(b []byte) error {
	var common anyActivity
	if err := json.Unmarshal(b, &common); err != nil {
		return err
	}

	a.Context = common.Context
	a.ID = common.ID
	a.Type = common.Type
	a.Actor = common.Actor
	a.To = common.To
	a.CC = common.CC
	a.Published = common.Published

	if len(common.Object) == 0 {
		a.Object = nil
		return nil
	}

	var link string
	if err := json.Unmarshal(common.Object, &link); err == nil {
		a.Object = link
		return nil
	}

	var head struct {
		Type ActivityType `json:"type"`
	}
	if err := json.Unmarshal(common.Object, &head); err != nil {
		return fmt.Errorf("invalid activity object: %w", err)
	}

	if head.Type == Offer {
		var offer OfferObject
		if err := json.Unmarshal(common.Object, &offer); err != nil {
			return err
		}
		a.Object = &offer
		return nil
	}

	var inner Activity
	if err := json.Unmarshal(common.Object, &inner); err != nil {
		return err
	}
	a.Object = &inner

	return nil
}

// ObjectID returns the ID of the activity object, whether it's embedded or a link.
func (a *Activity) ObjectID() string {
	switch v := a.Object.(type) {
	case string:
		return v
	case *Activity:
		return v.ID
	default:
		return ""
	}
}

// OfferObject describes a shared item.
type OfferObject struct {
	Type        ActivityType `json:"type"`
	DisplayName string       `json:"displayName,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	ItemType    string       `json:"itemType,omitempty"`
	Category    string       `json:"category,omitempty"`
	Location    string       `json:"location,omitempty"`
	Duration    string       `json:"duration,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
}
