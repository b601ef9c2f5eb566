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
	"encoding/json"
	"errors"
	"fmt"
)

// Variant is a decoded client-submitted activity: one of [LikeActivity], [BlockActivity],
// [IgnoreActivity], [AnnounceActivity], [UndoActivity], [AddOfferActivity] or [RemoveOfferActivity].
type Variant interface {
	Kind() ActivityType
	ActivityID() string
	ActorID() string
}

var (
	ErrNoType            = errors.New("activity has no type")
	ErrUnsupportedType   = errors.New("unsupported activity type")
	ErrNoObject          = errors.New("activity has no object")
	ErrObjectNotString   = errors.New("activity object is not a link")
	ErrObjectNotActivity = errors.New("activity object is not an activity")
	ErrNestedUndo        = errors.New("cannot undo an undo")
	ErrNotOffer          = errors.New("object is not an offer")
)

// MissingFieldError is returned when a shared item lacks a required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing " + e.Field
}

// LinkActivity is an activity whose object is a post ID.
type LinkActivity struct {
	ID     string
	Actor  string
	Object string
}

func (a *LinkActivity) ActivityID() string { return a.ID }
func (a *LinkActivity) ActorID() string    { return a.Actor }

type (
	LikeActivity     struct{ LinkActivity }
	BlockActivity    struct{ LinkActivity }
	IgnoreActivity   struct{ LinkActivity }
	AnnounceActivity struct{ LinkActivity }
)

func (*LikeActivity) Kind() ActivityType     { return Like }
func (*BlockActivity) Kind() ActivityType    { return Block }
func (*IgnoreActivity) Kind() ActivityType   { return Ignore }
func (*AnnounceActivity) Kind() ActivityType { return Announce }

// UndoActivity reverts Inner, which is never another [UndoActivity].
type UndoActivity struct {
	ID    string
	Actor string
	Inner Variant
}

func (*UndoActivity) Kind() ActivityType   { return Undo }
func (a *UndoActivity) ActivityID() string { return a.ID }
func (a *UndoActivity) ActorID() string    { return a.Actor }

// AddOfferActivity publishes a shared item; every descriptive field is present.
type AddOfferActivity struct {
	ID    string
	Actor string
	Offer OfferObject
}

func (*AddOfferActivity) Kind() ActivityType   { return Add }
func (a *AddOfferActivity) ActivityID() string { return a.ID }
func (a *AddOfferActivity) ActorID() string    { return a.Actor }

// RemoveOfferActivity withdraws a shared item, identified by its display name.
type RemoveOfferActivity struct {
	ID          string
	Actor       string
	DisplayName string
}

func (*RemoveOfferActivity) Kind() ActivityType   { return Remove }
func (a *RemoveOfferActivity) ActivityID() string { return a.ID }
func (a *RemoveOfferActivity) ActorID() string    { return a.Actor }

type envelope struct {
	ID     string          `json:"id"`
	Type   ActivityType    `json:"type"`
	Actor  string          `json:"actor"`
	Object json.RawMessage `json:"object"`
}

// Decode parses an activity and validates its shape.
func Decode(raw []byte) (Variant, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode activity: %w", err)
	}

	return decode(&env, 0)
}

func decode(env *envelope, depth int) (Variant, error) {
	if env.Type == "" {
		return nil, ErrNoType
	}

	if len(env.Object) == 0 || string(env.Object) == "null" {
		return nil, ErrNoObject
	}

	switch env.Type {
	case Like, Block, Ignore, Announce:
		var object string
		if err := json.Unmarshal(env.Object, &object); err != nil {
			return nil, ErrObjectNotString
		}

		if object == "" {
			return nil, ErrNoObject
		}

		link := LinkActivity{ID: env.ID, Actor: env.Actor, Object: object}
		switch env.Type {
		case Like:
			return &LikeActivity{link}, nil
		case Block:
			return &BlockActivity{link}, nil
		case Ignore:
			return &IgnoreActivity{link}, nil
		default:
			return &AnnounceActivity{link}, nil
		}

	case Undo:
		if depth > 0 {
			return nil, ErrNestedUndo
		}

		var inner envelope
		if err := json.Unmarshal(env.Object, &inner); err != nil {
			return nil, ErrObjectNotActivity
		}

		v, err := decode(&inner, depth+1)
		if err != nil {
			return nil, fmt.Errorf("invalid undo: %w", err)
		}

		switch v.Kind() {
		case Like, Block, Ignore, Announce:
			return &UndoActivity{ID: env.ID, Actor: env.Actor, Inner: v}, nil
		default:
			return nil, fmt.Errorf("cannot undo %s: %w", v.Kind(), ErrUnsupportedType)
		}

	case Add:
		offer, err := decodeOffer(env.Object)
		if err != nil {
			return nil, err
		}

		for _, f := range []struct {
			name  string
			value string
		}{
			{"displayName", offer.DisplayName},
			{"summary", offer.Summary},
			{"itemType", offer.ItemType},
			{"category", offer.Category},
			{"location", offer.Location},
			{"duration", offer.Duration},
		} {
			if f.value == "" {
				return nil, &MissingFieldError{Field: f.name}
			}
		}

		return &AddOfferActivity{ID: env.ID, Actor: env.Actor, Offer: *offer}, nil

	case Remove:
		offer, err := decodeOffer(env.Object)
		if err != nil {
			return nil, err
		}

		if offer.DisplayName == "" {
			return nil, &MissingFieldError{Field: "displayName"}
		}

		return &RemoveOfferActivity{ID: env.ID, Actor: env.Actor, DisplayName: offer.DisplayName}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, env.Type)
	}
}

func decodeOffer(raw json.RawMessage) (*OfferObject, error) {
	var offer OfferObject
	if err := json.Unmarshal(raw, &offer); err != nil {
		return nil, ErrObjectNotActivity
	}

	if offer.Type != Offer {
		return nil, ErrNotOffer
	}

	return &offer, nil
}
