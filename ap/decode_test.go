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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode_Like(t *testing.T) {
	assert := assert.New(t)

	v, err := Decode([]byte(`{"type":"Like","actor":"https://example.org/users/alice","object":"https://example.org/users/bob/statuses/42"}`))
	assert.NoError(err)

	like, ok := v.(*LikeActivity)
	assert.True(ok)
	assert.Equal(Like, like.Kind())
	assert.Equal("https://example.org/users/alice", like.ActorID())
	assert.Equal("https://example.org/users/bob/statuses/42", like.Object)
}

func TestDecode_NoType(t *testing.T) {
	_, err := Decode([]byte(`{"actor":"https://example.org/users/alice","object":"x"}`))
	assert.True(t, errors.Is(err, ErrNoType))
}

func TestDecode_UnsupportedType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Create","object":"x"}`))
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestDecode_LikeObjectNotString(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Like","object":{"id":"x"}}`))
	assert.True(t, errors.Is(err, ErrObjectNotString))
}

func TestDecode_LikeNoObject(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Like"}`))
	assert.True(t, errors.Is(err, ErrNoObject))
}

func TestDecode_UndoBlock(t *testing.T) {
	assert := assert.New(t)

	v, err := Decode([]byte(`{"type":"Undo","actor":"a","object":{"type":"Block","actor":"a","object":"https://example.org/users/bob/statuses/1"}}`))
	assert.NoError(err)

	undo, ok := v.(*UndoActivity)
	assert.True(ok)

	block, ok := undo.Inner.(*BlockActivity)
	assert.True(ok)
	assert.Equal("https://example.org/users/bob/statuses/1", block.Object)
}

func TestDecode_UndoLinkObject(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Undo","object":"https://example.org/like/1"}`))
	assert.True(t, errors.Is(err, ErrObjectNotActivity))
}

func TestDecode_UndoUndo(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Undo","object":{"type":"Undo","object":{"type":"Like","object":"x"}}}`))
	assert.True(t, errors.Is(err, ErrNestedUndo))
}

func TestDecode_UndoInnerObjectNotString(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Undo","object":{"type":"Ignore","object":{"id":"x"}}}`))
	assert.True(t, errors.Is(err, ErrObjectNotString))
}

func TestDecode_AddOffer(t *testing.T) {
	assert := assert.New(t)

	v, err := Decode([]byte(`{"type":"Add","actor":"a","object":{"type":"Offer","displayName":"Spare bike","summary":"A bike","itemType":"bike","category":"transport","location":"Here","duration":"2 weeks"}}`))
	assert.NoError(err)

	add, ok := v.(*AddOfferActivity)
	assert.True(ok)
	assert.Equal("Spare bike", add.Offer.DisplayName)
	assert.Equal("2 weeks", add.Offer.Duration)
}

func TestDecode_AddOfferMissingLocation(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Add","object":{"type":"Offer","displayName":"Spare bike","summary":"A bike","itemType":"bike","category":"transport","duration":"2 weeks"}}`))

	var missing *MissingFieldError
	assert.True(t, errors.As(err, &missing))
	assert.Equal(t, "location", missing.Field)
}

func TestDecode_AddNotOffer(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Add","object":{"type":"Note","displayName":"x"}}`))
	assert.True(t, errors.Is(err, ErrNotOffer))
}

func TestDecode_RemoveOffer(t *testing.T) {
	assert := assert.New(t)

	v, err := Decode([]byte(`{"type":"Remove","object":{"type":"Offer","displayName":"Spare bike"}}`))
	assert.NoError(err)

	remove, ok := v.(*RemoveOfferActivity)
	assert.True(ok)
	assert.Equal("Spare bike", remove.DisplayName)
}

func TestDecode_RemoveOfferNoName(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Remove","object":{"type":"Offer"}}`))

	var missing *MissingFieldError
	assert.True(t, errors.As(err, &missing))
}

func TestActivity_UnmarshalNested(t *testing.T) {
	assert := assert.New(t)

	var a Activity
	assert.NoError(a.UnmarshalJSON([]byte(`{"id":"u","type":"Undo","actor":"a","to":"b","object":{"id":"l","type":"Like","actor":"a","object":"p"}}`)))

	inner, ok := a.Object.(*Activity)
	assert.True(ok)
	assert.Equal(Like, inner.Type)
	assert.Equal("p", inner.ObjectID())
	assert.Equal("l", a.ObjectID())
	assert.True(a.To.Contains("b"))
}
