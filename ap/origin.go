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

var ErrInvalidOrigin = errors.New("invalid origin")

// Origin returns the host of an ID, including a port if present.
func Origin(id string) (string, error) {
	u, err := url.Parse(id)
	if err != nil {
		return "", err
	}

	if u.Host == "" {
		return "", fmt.Errorf("%w: no host in %s", ErrInvalidOrigin, id)
	}

	return strings.ToLower(u.Host), nil
}

// ValidateOrigin checks that an activity delivered by origin, and the activity it undoes,
// were created by an actor on origin.
func ValidateOrigin(v Variant, origin string) error {
	if v.ActorID() == "" {
		return fmt.Errorf("%w: unspecified actor", ErrInvalidOrigin)
	}

	if err := validateOrigin(v, origin); err != nil {
		return err
	}

	if undo, ok := v.(*UndoActivity); ok {
		return validateOrigin(undo.Inner, origin)
	}

	return nil
}

func validateOrigin(v Variant, origin string) error {
	for _, id := range []string{v.ActivityID(), v.ActorID()} {
		if id == "" {
			continue
		}

		idOrigin, err := Origin(id)
		if err != nil {
			return err
		}

		if idOrigin != origin {
			return fmt.Errorf("%w: %s is not on %s", ErrInvalidOrigin, id, origin)
		}
	}

	return nil
}
