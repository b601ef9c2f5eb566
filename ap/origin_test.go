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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrigin(t *testing.T) {
	assert := assert.New(t)

	origin, err := Origin("https://Remote.Example:8443/users/carol")
	assert.NoError(err)
	assert.Equal("remote.example:8443", origin)

	_, err = Origin("carol@remote.example")
	assert.ErrorIs(err, ErrInvalidOrigin)
}

func TestValidateOrigin(t *testing.T) {
	assert := assert.New(t)

	for _, tc := range []struct {
		raw   string
		valid bool
	}{
		{`{"id":"https://remote.example/like/1","type":"Like","actor":"https://remote.example/users/carol","object":"https://example.org/users/alice/statuses/1"}`, true},
		{`{"type":"Like","actor":"https://remote.example/users/carol","object":"https://example.org/users/alice/statuses/1"}`, true},
		{`{"id":"https://other.example/like/1","type":"Like","actor":"https://remote.example/users/carol","object":"https://example.org/users/alice/statuses/1"}`, false},
		{`{"id":"https://remote.example/like/1","type":"Like","actor":"https://other.example/users/carol","object":"https://example.org/users/alice/statuses/1"}`, false},
		{`{"id":"https://remote.example/like/1","type":"Like","object":"https://example.org/users/alice/statuses/1"}`, false},
		{`{"id":"https://remote.example/undo/1","type":"Undo","actor":"https://remote.example/users/carol","object":{"id":"https://remote.example/like/1","type":"Like","object":"https://example.org/users/alice/statuses/1"}}`, true},
		{`{"id":"https://remote.example/undo/1","type":"Undo","actor":"https://remote.example/users/carol","object":{"id":"https://other.example/like/1","type":"Like","object":"https://example.org/users/alice/statuses/1"}}`, false},
	} {
		v, err := Decode([]byte(tc.raw))
		assert.NoError(err, tc.raw)

		if tc.valid {
			assert.NoError(ValidateOrigin(v, "remote.example"), tc.raw)
		} else {
			assert.Error(ValidateOrigin(v, "remote.example"), tc.raw)
		}
	}
}
