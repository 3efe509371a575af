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

// Iterator is a forward iterator over the elements of a Table. The zero
// Iterator is the end iterator. Iterators compare equal with == when they
// are positioned at the same element. An Iterator remains valid until the
// element it is positioned at is erased or the table is rehashed.
type Iterator[T any] struct {
	n *Node[T]
}

// Begin returns an iterator positioned at the first element of the table,
// or the end iterator if the table is empty.
func (t *Table[K, T]) Begin() Iterator[T] {
	return Iterator[T]{t.first.next}
}

// End returns the end iterator.
func (t *Table[K, T]) End() Iterator[T] {
	return Iterator[T]{}
}

// Valid reports whether it is positioned at an element.
func (it Iterator[T]) Valid() bool {
	return it.n != nil
}

// Elem returns a pointer to the element at it. The key of the element must
// not be modified. Elem must not be called on the end iterator.
func (it Iterator[T]) Elem() *T {
	return &it.n.value
}

// Next returns an iterator positioned at the following element.
func (it Iterator[T]) Next() Iterator[T] {
	return Iterator[T]{it.n.next}
}

// LocalIterator is a forward iterator over the elements of a single bucket.
// The zero LocalIterator is the end iterator for every bucket.
type LocalIterator[T any] struct {
	n           *Node[T]
	bucket      uint64
	bucketCount uint64
}

// BeginBucket returns an iterator positioned at the first element of bucket
// n. Out of range and empty buckets yield the end iterator.
func (t *Table[K, T]) BeginBucket(n int) LocalIterator[T] {
	bc := uint64(len(t.buckets))
	if n < 0 || uint64(n) >= bc {
		return LocalIterator[T]{}
	}
	it := LocalIterator[T]{n: t.buckets[n], bucket: uint64(n), bucketCount: bc}
	if it.n != nil {
		// The slot names the predecessor of the run.
		it.n = it.n.next
	}
	return it
}

// Valid reports whether it is positioned at an element.
func (it LocalIterator[T]) Valid() bool {
	return it.n != nil
}

// Elem returns a pointer to the element at it.
func (it LocalIterator[T]) Elem() *T {
	return &it.n.value
}

// Next returns an iterator positioned at the following element of the same
// bucket, or the end iterator once the walk leaves the bucket's run.
func (it LocalIterator[T]) Next() LocalIterator[T] {
	it.n = it.n.next
	if it.n == nil || constrain(it.n.hash, it.bucketCount) != it.bucket {
		return LocalIterator[T]{}
	}
	return it
}

// All returns an iterator over pointers to the elements of t in list order.
// The table must not be modified during iteration except by erasing the
// element last yielded.
func (t *Table[K, T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for nd := t.first.next; nd != nil; {
			next := nd.next
			if !yield(&nd.value) {
				return
			}
			nd = next
		}
	}
}

// BucketAll returns an iterator over pointers to the elements of bucket n.
func (t *Table[K, T]) BucketAll(n int) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for it := t.BeginBucket(n); it.Valid(); it = it.Next() {
			if !yield(it.Elem()) {
				return
			}
		}
	}
}
