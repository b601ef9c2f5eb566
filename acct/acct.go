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

// Package acct maps accounts to their directories and manages follow relations.
package acct

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/data"
	"github.com/dimkr/fedcore/fsx"
)

const (
	AccountsDir      = "accounts"
	Following        = "following.txt"
	Followers        = "followers.txt"
	Blocking         = "blocking.txt"
	AllowedInstances = "allowedinstances.txt"
)

// Dir returns the directory of a local account.
func Dir(baseDir string, h ap.Handle) string {
	return filepath.Join(baseDir, AccountsDir, h.Nickname+"@"+h.Host())
}

// Path returns the path of a file in a local account directory.
func Path(baseDir string, h ap.Handle, name string) string {
	return filepath.Join(Dir(baseDir, h), name)
}

// GlobalPath returns the path of an instance-wide file.
func GlobalPath(baseDir, name string) string {
	return filepath.Join(baseDir, AccountsDir, name)
}

// IsAccountDir determines whether or not a directory under accounts/ belongs to a user.
func IsAccountDir(name string) bool {
	if !strings.Contains(name, "@") {
		return false
	}
	return !strings.HasPrefix(name, "inbox@") && !strings.HasPrefix(name, "news@")
}

// List returns all local accounts.
func List(baseDir string) ([]ap.Handle, error) {
	entries, err := os.ReadDir(filepath.Join(baseDir, AccountsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var accounts []ap.Handle
	for _, e := range entries {
		if !e.IsDir() || !IsAccountDir(e.Name()) {
			continue
		}

		h, err := ap.ParseHandle(e.Name())
		if err != nil {
			continue
		}

		accounts = append(accounts, h)
	}

	return accounts, nil
}

// ReadHandles returns the distinct entries of a follow list, in order.
func ReadHandles(path string) ([]string, error) {
	lines, err := fsx.ReadLines(path)
	if err != nil {
		return nil, err
	}
	return data.Collect(lines).Keys(), nil
}

// DomainOf returns the domain of a follow list entry, which is either a handle or an actor URL.
func DomainOf(entry string) (string, bool) {
	if strings.Contains(entry, "://") {
		return ap.DomainFromActor(entry)
	}

	if !strings.Contains(entry, "@") {
		return "", false
	}

	return ap.DomainFromActor(entry)
}

// Follow adds target to the following list of an account.
func Follow(baseDir string, h, target ap.Handle) (bool, error) {
	return fsx.AppendLine(Path(baseDir, h, Following), target.String())
}

// Unfollow removes target from the following list of an account.
func Unfollow(baseDir string, h, target ap.Handle) (bool, error) {
	return fsx.RemoveLine(Path(baseDir, h, Following), target.String())
}

// AddFollower adds follower to the followers list of an account.
func AddFollower(baseDir string, h, follower ap.Handle) (bool, error) {
	return fsx.AppendLine(Path(baseDir, h, Followers), follower.String())
}

// RemoveFollower removes follower from the followers list of an account.
func RemoveFollower(baseDir string, h, follower ap.Handle) (bool, error) {
	return fsx.RemoveLine(Path(baseDir, h, Followers), follower.String())
}

// IsFollowing determines whether or not an account follows target.
func IsFollowing(baseDir string, h, target ap.Handle) (bool, error) {
	return fsx.ContainsLine(Path(baseDir, h, Following), target.String())
}
