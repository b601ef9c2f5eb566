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

package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFillDefaults(t *testing.T) {
	assert := assert.New(t)

	var c Config
	c.FillDefaults()

	assert.Equal(5, c.CollectionRetries)
	assert.Equal(time.Second, c.CollectionRetryDelay)
	assert.Equal(time.Hour*24*7, c.LockdownMaxAge)
	assert.Equal(32, c.MaxHashtagLength)
	assert.Equal("https", c.HTTPPrefix)
	assert.Equal(int64(1024*1024), c.MaxRequestBodySize)
	assert.Equal(int64(1024*1024), c.MaxResponseBodySize)
}

func TestFillDefaults_KeepsValid(t *testing.T) {
	assert := assert.New(t)

	c := Config{CollectionRetries: 2, LockdownMaxAge: time.Hour}
	c.FillDefaults()

	assert.Equal(2, c.CollectionRetries)
	assert.Equal(time.Hour, c.LockdownMaxAge)
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "fedcore.json")
	assert.NoError(os.WriteFile(path, []byte(`{"Domain":"example.org","FederationList":["friendly.example"],"CollectionRetries":3}`), 0o644))

	c, err := Load(path)
	assert.NoError(err)
	assert.Equal("example.org", c.Domain)
	assert.Equal([]string{"friendly.example"}, c.FederationList)
	assert.Equal(3, c.CollectionRetries)
	assert.Equal(time.Second, c.CollectionRetryDelay)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fedcore.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestParams_RoundTrip(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	assert.NoError(os.WriteFile(filepath.Join(dir, ParamsFile), []byte(`{"instanceTitle":"x"}`), 0o644))

	enabled, err := GetBoolParam(dir, "brochMode")
	assert.NoError(err)
	assert.False(enabled)

	assert.NoError(SetParam(dir, "brochMode", true))

	enabled, err = GetBoolParam(dir, "brochMode")
	assert.NoError(err)
	assert.True(enabled)

	title, ok, err := GetParam(dir, "instanceTitle")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("x", title)
}
