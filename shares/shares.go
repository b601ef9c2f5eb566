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


// Package shares stores the items local accounts offer to share.
package shares

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dimkr/fedcore/acct"
	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/fsx"
)

const (
	FileName = "shares.json"
	MediaDir = "sharefiles"
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidImage    = errors.New("unsupported image type")
	ErrNoItem          = errors.New("no such item")
	ErrInvalidName     = errors.New("invalid item name")
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".avif"}

// Item is a shared item.
type Item struct {
	DisplayName string `json:"displayName"`
	Summary     string `json:"summary"`
	ImageURL    string `json:"imageUrl"`
	ItemType    string `json:"itemType"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Published   int64  `json:"published"`
	Expire      int64  `json:"expire"`
}

// Store keeps the shared items of every local account in its account directory.
type Store struct {
	BaseDir    string
	Domain     string
	HTTPPrefix string
	Log        *slog.Logger

	lock sync.Mutex
}

// ItemID returns the key of an item, which is also the base name of its image.
func ItemID(displayName string) (string, error) {
	id := strings.ReplaceAll(displayName, " ", "")
	if id == "" || id == "." || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) || filepath.Base(id) != id {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, displayName)
	}
	return id, nil
}

// ParseDuration parses durations like "3 days" or "1 week".
func ParseDuration(s string) (time.Duration, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
	}

	var unit time.Duration
	switch strings.TrimSuffix(strings.ToLower(fields[1]), "s") {
	case "hour":
		unit = time.Hour
	case "day":
		unit = time.Hour * 24
	case "week":
		unit = time.Hour * 24 * 7
	case "month":
		unit = time.Hour * 24 * 30
	case "year":
		unit = time.Hour * 24 * 365
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
	}

	return time.Duration(n) * unit, nil
}

func (s *Store) path(owner ap.Handle) string {
	return acct.Path(s.BaseDir, owner, FileName)
}

func (s *Store) mediaPath(owner ap.Handle, id, ext string) string {
	return filepath.Join(s.BaseDir, MediaDir, owner.Nickname, id+ext)
}

func (s *Store) load(owner ap.Handle) (map[string]Item, error) {
	buf, err := os.ReadFile(s.path(owner))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Item{}, nil
	} else if err != nil {
		return nil, err
	}

	items := map[string]Item{}
	if err := json.Unmarshal(buf, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path(owner), err)
	}

	return items, nil
}

func (s *Store) save(owner ap.Handle, items map[string]Item) error {
	buf, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	return fsx.WriteFileAtomic(s.path(owner), buf, 0o644)
}

// List returns the shared items of a local account.
func (s *Store) List(owner ap.Handle) (map[string]Item, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.load(owner)
}

// Add adds or replaces a shared item and returns its ID. If imagePath is set, the image is
// moved into the media directory and the item links to it.
func (s *Store) Add(owner ap.Handle, offer ap.OfferObject, imagePath string, now time.Time) (string, error) {
	for field, value := range map[string]string{
		"displayName": offer.DisplayName,
		"summary":     offer.Summary,
		"itemType":    offer.ItemType,
		"category":    offer.Category,
		"location":    offer.Location,
		"duration":    offer.Duration,
	} {
		if value == "" {
			return "", &ap.MissingFieldError{Field: field}
		}
	}

	duration, err := ParseDuration(offer.Duration)
	if err != nil {
		return "", err
	}

	id, err := ItemID(offer.DisplayName)
	if err != nil {
		return "", err
	}
	item := Item{
		DisplayName: offer.DisplayName,
		Summary:     offer.Summary,
		ImageURL:    offer.ImageURL,
		ItemType:    offer.ItemType,
		Category:    offer.Category,
		Location:    offer.Location,
		Published:   now.Unix(),
		Expire:      now.Add(duration).Unix(),
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	items, err := s.load(owner)
	if err != nil {
		return "", err
	}

	if imagePath != "" {
		ext := strings.ToLower(filepath.Ext(imagePath))
		if !isImage(ext) {
			return "", fmt.Errorf("%w: %s", ErrInvalidImage, imagePath)
		}

		dest := s.mediaPath(owner, id, ext)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", err
		}

		s.removeMedia(owner, id)
		if err := os.Rename(imagePath, dest); err != nil {
			return "", fmt.Errorf("failed to store image of %s: %w", id, err)
		}

		item.ImageURL = fmt.Sprintf("%s://%s/%s/%s/%s%s", s.HTTPPrefix, s.Domain, MediaDir, owner.Nickname, id, ext)
	}

	items[id] = item
	if err := s.save(owner, items); err != nil {
		return "", err
	}

	s.Log.Info("Added shared item", "account", owner.String(), "item", id, "expire", time.Unix(item.Expire, 0))
	return id, nil
}

func isImage(ext string) bool {
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (s *Store) removeMedia(owner ap.Handle, id string) {
	if _, err := ItemID(id); err != nil {
		s.Log.Warn("Not removing image of invalid item", "account", owner.String(), "item", id)
		return
	}

	for _, ext := range imageExtensions {
		if _, err := fsx.RemoveIfExists(s.mediaPath(owner, id, ext)); err != nil {
			s.Log.Warn("Failed to remove shared item image", "account", owner.String(), "item", id, "error", err)
		}
	}
}

// Remove deletes a shared item and its image.
func (s *Store) Remove(owner ap.Handle, displayName string) error {
	id, err := ItemID(displayName)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	items, err := s.load(owner)
	if err != nil {
		return err
	}

	if _, ok := items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNoItem, id)
	}

	delete(items, id)
	if err := s.save(owner, items); err != nil {
		return err
	}

	s.removeMedia(owner, id)
	s.Log.Info("Removed shared item", "account", owner.String(), "item", id)
	return nil
}

// Expire deletes shared items that have expired and returns their number.
func (s *Store) Expire(owner ap.Handle, now time.Time) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	items, err := s.load(owner)
	if err != nil {
		return 0, err
	}

	var expired []string
	for id, item := range items {
		if item.Expire > 0 && now.Unix() > item.Expire {
			expired = append(expired, id)
		}
	}

	if len(expired) == 0 {
		return 0, nil
	}

	for _, id := range expired {
		delete(items, id)
	}

	if err := s.save(owner, items); err != nil {
		return 0, err
	}

	for _, id := range expired {
		s.removeMedia(owner, id)
	}

	s.Log.Info("Expired shared items", "account", owner.String(), "count", len(expired))
	return len(expired), nil
}
