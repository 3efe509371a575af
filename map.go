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

import (
	"hash/maphash"
	"iter"

	"github.com/cockroachdb/errors"
)

// ErrKeyNotFound is returned by Map.At for a key that is not present.
var ErrKeyNotFound = errors.New("chainmap: key not found")

// Entry is the element type of a Map.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// MapOption configures a Map while it is being created.
type MapOption[K, V any] = Option[K, Entry[K, V]]

// Map is an unordered map from unique keys to values backed by a chained
// Table. By default keys are hashed with hash/maphash and compared with ==;
// use WithHash and WithEqual to override either.
//
// A Map is NOT goroutine-safe.
type Map[K comparable, V any] struct {
	table Table[K, Entry[K, V]]
}

func entryKey[K, V any](e *Entry[K, V]) K {
	return e.Key
}

func comparableEqual[K comparable](a, b K) bool {
	return a == b
}

// comparableHasher returns a randomly seeded hash function for K.
func comparableHasher[K comparable]() func(key K) uint64 {
	seed := maphash.MakeSeed()
	return func(key K) uint64 {
		return maphash.Comparable(seed, key)
	}
}

// NewMap constructs an empty Map. If bucketCount is non-zero the map starts
// with at least that many buckets, otherwise the bucket array is allocated
// on the first insertion.
func NewMap[K comparable, V any](bucketCount int, options ...MapOption[K, V]) *Map[K, V] {
	m := &Map[K, V]{}
	m.Init(bucketCount, options...)
	return m
}

// Init initializes a Map, discarding any previous contents. It is the
// equivalent of NewMap for a Map that is embedded by value.
func (m *Map[K, V]) Init(bucketCount int, options ...MapOption[K, V]) {
	m.table.init(entryKey[K, V], comparableHasher[K](), comparableEqual[K], options...)
	if bucketCount > 0 {
		m.table.Rehash(bucketCount)
	}
}

// Table returns the table backing m.
func (m *Map[K, V]) Table() *Table[K, Entry[K, V]] {
	return &m.table
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.table.size
}

// Empty reports whether the map has no entries.
func (m *Map[K, V]) Empty() bool {
	return m.table.size == 0
}

// Get retrieves the value for the specified key, returning ok=false if the
// key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	it := m.table.Find(key)
	if !it.Valid() {
		return value, false
	}
	return it.Elem().Value, true
}

// At retrieves the value for the specified key, returning an error wrapping
// ErrKeyNotFound if the key is not present.
func (m *Map[K, V]) At(key K) (V, error) {
	v, ok := m.Get(key)
	if !ok {
		return v, errors.Wrapf(ErrKeyNotFound, "key %v", key)
	}
	return v, nil
}

// Ref returns a pointer to the value for the specified key, inserting an
// entry with the zero value if the key is not present. The pointer is valid
// until the entry is deleted.
func (m *Map[K, V]) Ref(key K) *V {
	it, _ := m.table.EmplaceUnique(key, func() Entry[K, V] {
		return Entry[K, V]{Key: key}
	})
	return &it.Elem().Value
}

// Insert adds an entry for key unless the key is already present, in which
// case the existing value is left untouched. It returns an iterator
// positioned at the entry for key and whether an insertion took place.
func (m *Map[K, V]) Insert(key K, value V) (Iterator[Entry[K, V]], bool) {
	return m.table.InsertUnique(Entry[K, V]{Key: key, Value: value})
}

// TryEmplace is like Insert but only calls ctor to build the value if the
// key is absent.
func (m *Map[K, V]) TryEmplace(key K, ctor func() V) (Iterator[Entry[K, V]], bool) {
	return m.table.EmplaceUnique(key, func() Entry[K, V] {
		return Entry[K, V]{Key: key, Value: ctor()}
	})
}

// Put inserts an entry into the map, overwriting the value if an entry with
// the same key already exists. It reports whether an insertion took place.
func (m *Map[K, V]) Put(key K, value V) bool {
	it, inserted := m.Insert(key, value)
	if !inserted {
		it.Elem().Value = value
	}
	return inserted
}

// Find returns an iterator positioned at the entry for key, or the end
// iterator.
func (m *Map[K, V]) Find(key K) Iterator[Entry[K, V]] {
	return m.table.Find(key)
}

// Contains reports whether the key is present.
func (m *Map[K, V]) Contains(key K) bool {
	return m.table.Contains(key)
}

// Count returns the number of entries with the specified key: 0 or 1.
func (m *Map[K, V]) Count(key K) int {
	return m.table.Count(key)
}

// Delete deletes the entry for the specified key, reporting whether there
// was one. It is a noop to delete a non-existent key.
func (m *Map[K, V]) Delete(key K) bool {
	return m.table.EraseUnique(key) == 1
}

// Erase deletes the entry at it and returns an iterator positioned at the
// entry that followed it.
func (m *Map[K, V]) Erase(it Iterator[Entry[K, V]]) Iterator[Entry[K, V]] {
	return m.table.Erase(it)
}

// EraseRange deletes the entries in [first, last).
func (m *Map[K, V]) EraseRange(first, last Iterator[Entry[K, V]]) Iterator[Entry[K, V]] {
	return m.table.EraseRange(first, last)
}

// Begin returns an iterator positioned at the first entry.
func (m *Map[K, V]) Begin() Iterator[Entry[K, V]] {
	return m.table.Begin()
}

// Clear deletes all entries, retaining the bucket array.
func (m *Map[K, V]) Clear() {
	m.table.Clear()
}

// Swap exchanges the contents of m and o.
func (m *Map[K, V]) Swap(o *Map[K, V]) {
	m.table.Swap(&o.table)
}

// Clone returns a copy of m sharing its hash and equal functions.
func (m *Map[K, V]) Clone() *Map[K, V] {
	c := &Map[K, V]{}
	m.table.cloneInto(&c.table)
	return c
}

// BucketCount returns the number of buckets.
func (m *Map[K, V]) BucketCount() int {
	return m.table.BucketCount()
}

// Bucket returns the bucket index the key maps to.
func (m *Map[K, V]) Bucket(key K) int {
	return m.table.Bucket(key)
}

// BucketSize returns the number of entries in bucket n.
func (m *Map[K, V]) BucketSize(n int) int {
	return m.table.BucketSize(n)
}

// LoadFactor returns the average number of entries per bucket.
func (m *Map[K, V]) LoadFactor() float32 {
	return m.table.LoadFactor()
}

// MaxLoadFactor returns the load factor above which the map grows.
func (m *Map[K, V]) MaxLoadFactor() float32 {
	return m.table.MaxLoadFactor()
}

// SetMaxLoadFactor sets the maximum load factor.
func (m *Map[K, V]) SetMaxLoadFactor(mlf float32) {
	m.table.SetMaxLoadFactor(mlf)
}

// Rehash sets the number of buckets to at least n.
func (m *Map[K, V]) Rehash(n int) {
	m.table.Rehash(n)
}

// Reserve makes room for n entries without exceeding the maximum load
// factor.
func (m *Map[K, V]) Reserve(n int) {
	m.table.Reserve(n)
}

// All returns an iterator over the keys and values of m. The map must not
// be modified during iteration except by deleting the entry last yielded.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for e := range m.table.All() {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Keys returns an iterator over the keys of m.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for e := range m.table.All() {
			if !yield(e.Key) {
				return
			}
		}
	}
}

// Values returns an iterator over the values of m.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for e := range m.table.All() {
			if !yield(e.Value) {
				return
			}
		}
	}
}

// BucketAll returns an iterator over the keys and values in bucket n.
func (m *Map[K, V]) BucketAll(n int) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for e := range m.table.BucketAll(n) {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}
