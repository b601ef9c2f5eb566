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

func TestNicknameFromActor_UsersPath(t *testing.T) {
	nick, ok := NicknameFromActor("https://example.org/users/bob/statuses/42")
	assert.True(t, ok)
	assert.Equal(t, "bob", nick)
}

func TestNicknameFromActor_AtPath(t *testing.T) {
	nick, ok := NicknameFromActor("https://example.org/@carol")
	assert.True(t, ok)
	assert.Equal(t, "carol", nick)
}

func TestNicknameFromActor_Handle(t *testing.T) {
	nick, ok := NicknameFromActor("@dave@example.org")
	assert.True(t, ok)
	assert.Equal(t, "dave", nick)
}

func TestNicknameFromActor_NoNickname(t *testing.T) {
	_, ok := NicknameFromActor("https://example.org/notes/1")
	assert.False(t, ok)
}

func TestDomainFromActor_WithPort(t *testing.T) {
	domain, ok := DomainFromActor("https://example.org:8443/users/bob")
	assert.True(t, ok)
	assert.Equal(t, "example.org:8443", domain)
}

func TestHandleFromActor(t *testing.T) {
	h, err := HandleFromActor("https://example.org/users/bob/statuses/42")
	assert.NoError(t, err)
	assert.Equal(t, Handle{Nickname: "bob", Domain: "example.org"}, h)
}

func TestRemoveIDEnding(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("https://example.org/users/bob/statuses/42", RemoveIDEnding("https://example.org/users/bob/statuses/42/activity"))
	assert.Equal("https://example.org/users/bob/statuses/42", RemoveIDEnding("https://example.org/users/bob/statuses/42/replies"))
	assert.Equal("https://example.org/users/bob/statuses/42", RemoveIDEnding("https://example.org/users/bob/statuses/42"))
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "https:##example.org#users#bob#statuses#42", NormalizeID("https://example.org/users/bob/statuses/42/activity"))
}

func TestOwnerActor(t *testing.T) {
	assert.Equal(t, "https://example.org/users/bob", OwnerActor("https://example.org/users/bob/statuses/42"))
}

func TestParseHandle(t *testing.T) {
	assert := assert.New(t)

	h, err := ParseHandle("@alice@example.org")
	assert.NoError(err)
	assert.Equal("alice@example.org", h.String())

	h, err = ParseHandle("*@evil.example")
	assert.NoError(err)
	assert.True(h.IsWildcard())

	_, err = ParseHandle("alice")
	assert.ErrorIs(err, ErrInvalidHandle)

	_, err = ParseHandle("a@b@c")
	assert.ErrorIs(err, ErrInvalidHandle)
}

func TestShortDomain(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("example.org", ShortDomain("social.example.org"))
	assert.Equal("example.org", ShortDomain("a.social.example.org:443"))
	assert.Equal("", ShortDomain("example.org"))
}
