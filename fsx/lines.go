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

// Package fsx implements the line-oriented text stores used for block lists, allow lists and
// follow relations, and atomic file replacement.
package fsx

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Exists determines whether or not a regular file exists.
func Exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// ReadLines returns the non-empty lines of a file.
// A missing file is treated as an empty one.
func ReadLines(path string) ([]string, error) {
	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var lines []string
	s := bufio.NewScanner(bytes.NewReader(buf))
	for s.Scan() {
		if line := strings.TrimRight(s.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}

	return lines, s.Err()
}

// ContainsLine determines whether or not a file contains a line, exactly.
func ContainsLine(path, line string) (bool, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return false, err
	}

	for _, l := range lines {
		if l == line {
			return true, nil
		}
	}

	return false, nil
}

// AppendLine appends a line to a file unless already present.
// It returns false if the line exists.
func AppendLine(path, line string) (bool, error) {
	if strings.ContainsAny(line, "\r\n") {
		return false, fmt.Errorf("invalid line: %q", line)
	}

	if exists, err := ContainsLine(path, line); err != nil {
		return false, err
	} else if exists {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return false, err
	}

	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return false, err
	}

	return true, f.Close()
}

// RemoveLine rewrites a file without lines equal to line.
// It returns false, without touching the file, if there are no such lines.
func RemoveLine(path, line string) (bool, error) {
	return RemoveLines(path, func(l string) bool { return l == line })
}

// RemoveLines rewrites a file without lines matching a predicate.
// The new content replaces the old one atomically.
func RemoveLines(path string, match func(string) bool) (bool, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return false, err
	}

	var b strings.Builder
	removed := false
	for _, l := range lines {
		if match(l) {
			removed = true
			continue
		}
		b.WriteString(l)
		b.WriteByte('\n')
	}

	if !removed {
		return false, nil
	}

	return true, WriteFileAtomic(path, []byte(b.String()), 0o644)
}

// WriteLines replaces a file with one line per item.
func WriteLines(path string, lines []string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return WriteFileAtomic(path, []byte(b.String()), 0o644)
}

// WriteFileAtomic writes data to a temporary file in the same directory, then renames it.
// Readers observe either the old content or the new content, never a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.new")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Chmod(perm); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// ModTime returns the last modification time of a file.
func ModTime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// RemoveIfExists deletes a file and reports whether it existed.
func RemoveIfExists(path string) (bool, error) {
	if err := os.Remove(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}
