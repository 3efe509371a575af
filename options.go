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

import "go.uber.org/zap"

// Option configures a Table while it is being created.
type Option[K, T any] interface {
	apply(t *Table[K, T])
}

type hashOption[K, T any] struct {
	hash func(key K) uint64
}

func (op hashOption[K, T]) apply(t *Table[K, T]) {
	t.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a
// Table[K,T]. If equal(a, b) then hash(a) must equal hash(b). Hash values
// are cached in each node, so hash is called once per inserted element and
// once per lookup.
func WithHash[K, T any](hash func(key K) uint64) Option[K, T] {
	return hashOption[K, T]{hash}
}

type equalOption[K, T any] struct {
	equal func(a, b K) bool
}

func (op equalOption[K, T]) apply(t *Table[K, T]) {
	t.equal = op.equal
}

// WithEqual is an option to specify the key equality predicate.
func WithEqual[K, T any](equal func(a, b K) bool) Option[K, T] {
	return equalOption[K, T]{equal}
}

// Allocator specifies an interface for allocating and releasing the memory
// used by a Table: one method pair for element nodes and one for the bucket
// array of predecessor links. The default allocator utilizes Go's builtin
// new() and make() and allows the GC to reclaim memory.
//
// An allocator reports failure by panicking. The Table guarantees that such a
// panic leaves it unmodified and that any node it had already obtained is
// handed back to FreeNode.
type Allocator[T any] interface {
	// AllocNode should return a pointer equivalent to new(Node[T]).
	AllocNode() *Node[T]

	// FreeNode can optionally release a node previously returned by
	// AllocNode. The node has already been unlinked and its element zeroed.
	FreeNode(n *Node[T])

	// AllocBuckets should return a slice equivalent to make([]*Node[T], n).
	AllocBuckets(n int) []*Node[T]

	// FreeBuckets can optionally release the memory associated with a slice
	// that is guaranteed to have been allocated by AllocBuckets.
	FreeBuckets(v []*Node[T])
}

type defaultAllocator[T any] struct{}

func (defaultAllocator[T]) AllocNode() *Node[T] {
	return new(Node[T])
}

func (defaultAllocator[T]) FreeNode(n *Node[T]) {
}

func (defaultAllocator[T]) AllocBuckets(n int) []*Node[T] {
	return make([]*Node[T], n)
}

func (defaultAllocator[T]) FreeBuckets(v []*Node[T]) {
}

type allocatorOption[K, T any] struct {
	allocator Allocator[T]
}

func (op allocatorOption[K, T]) apply(t *Table[K, T]) {
	t.allocator = op.allocator
}

// WithAllocator is an option for specifying the Allocator to use for a
// Table[K,T].
func WithAllocator[K, T any](allocator Allocator[T]) Option[K, T] {
	return allocatorOption[K, T]{allocator}
}

type maxLoadFactorOption[K, T any] struct {
	mlf float32
}

func (op maxLoadFactorOption[K, T]) apply(t *Table[K, T]) {
	t.SetMaxLoadFactor(op.mlf)
}

// WithMaxLoadFactor is an option to specify the maximum average number of
// elements per bucket before the table grows. The default is 1.
func WithMaxLoadFactor[K, T any](mlf float32) Option[K, T] {
	return maxLoadFactorOption[K, T]{mlf}
}

type powerOfTwoOption[K, T any] struct{}

func (powerOfTwoOption[K, T]) apply(t *Table[K, T]) {
	t.preferPow2 = true
}

// WithPowerOfTwoBuckets is an option to size the bucket array in powers of
// two (of at least 4) so that bucket indexes are computed with a mask rather
// than a modulo. Without it tables use prime bucket counts, which tolerate
// hash functions with poor low-order bits.
func WithPowerOfTwoBuckets[K, T any]() Option[K, T] {
	return powerOfTwoOption[K, T]{}
}

type loggerOption[K, T any] struct {
	logger *zap.Logger
}

func (op loggerOption[K, T]) apply(t *Table[K, T]) {
	if op.logger == nil {
		t.logger = zap.NewNop()
		return
	}
	t.logger = op.logger
}

// WithLogger is an option to receive debug-level events about bucket array
// resizing.
func WithLogger[K, T any](logger *zap.Logger) Option[K, T] {
	return loggerOption[K, T]{logger}
}
