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

// Package data contains small generic containers.
package data

type valueAndIndex[TV any] struct {
	value TV
	index int
}

// OrderedMap is a map that remembers insertion order.
// Storing an existing key does not move it or replace its value.
type OrderedMap[TK comparable, TV any] map[TK]valueAndIndex[TV]

func (m OrderedMap[TK, TV]) Contains(key TK) bool {
	_, contains := m[key]
	return contains
}

// Store adds a key unless already present and reports whether it was added.
func (m OrderedMap[TK, TV]) Store(key TK, value TV) bool {
	if _, dup := m[key]; dup {
		return false
	}

	m[key] = valueAndIndex[TV]{value, len(m)}
	return true
}

// Load returns the value stored for a key.
func (m OrderedMap[TK, TV]) Load(key TK) (TV, bool) {
	v, ok := m[key]
	return v.value, ok
}

// Keys returns all keys, in insertion order.
func (m OrderedMap[TK, TV]) Keys() []TK {
	l := make([]TK, len(m))

	for k, v := range m {
		l[v.index] = k
	}

	return l
}

// Range calls f for each key and value, in insertion order, until f returns false.
func (m OrderedMap[TK, TV]) Range(f func(key TK, value TV) bool) {
	for _, k := range m.Keys() {
		if !f(k, m[k].value) {
			break
		}
	}
}

// Collect returns an ordered map containing each distinct item of l, in order of first appearance.
func Collect[T comparable](l []T) OrderedMap[T, struct{}] {
	m := make(OrderedMap[T, struct{}], len(l))
	for _, v := range l {
		m.Store(v, struct{}{})
	}
	return m
}
