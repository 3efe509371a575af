// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chainmap

import "iter"

// Set is an unordered set of unique keys backed by a chained Table whose
// elements are the keys themselves.
//
// A Set is NOT goroutine-safe.
type Set[K comparable] struct {
	table Table[K, K]
}

func identityKey[K any](k *K) K {
	return *k
}

// NewSet constructs an empty Set, optionally with room for bucketCount
// buckets.
func NewSet[K comparable](bucketCount int, options ...Option[K, K]) *Set[K] {
	s := &Set[K]{}
	s.table.init(identityKey[K], comparableHasher[K](), comparableEqual[K], options...)
	if bucketCount > 0 {
		s.table.Rehash(bucketCount)
	}
	return s
}

// Table returns the table backing s.
func (s *Set[K]) Table() *Table[K, K] {
	return &s.table
}

// Len returns the number of keys in the set.
func (s *Set[K]) Len() int {
	return s.table.size
}

// Add inserts key, reporting whether it was not already present.
func (s *Set[K]) Add(key K) bool {
	_, inserted := s.table.InsertUnique(key)
	return inserted
}

// Contains reports whether key is in the set.
func (s *Set[K]) Contains(key K) bool {
	return s.table.Contains(key)
}

// Remove deletes key, reporting whether it was present.
func (s *Set[K]) Remove(key K) bool {
	return s.table.EraseUnique(key) == 1
}

// Clear removes all keys.
func (s *Set[K]) Clear() {
	s.table.Clear()
}

// All returns an iterator over the keys of s.
func (s *Set[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range s.table.All() {
			if !yield(*k) {
				return
			}
		}
	}
}
