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

// Package chainmap implements a chained hash table and the Map and Set
// types built on top of it.
//
// # Layout
//
// Every element of a Table lives in a Node and all nodes are threaded onto a
// single singly-linked list anchored at a sentinel node embedded in the
// Table. Nodes whose hashes map to the same bucket always form one contiguous
// run of that list. The bucket array does not point at the first node of each
// run but at the node immediately preceding it, which may be the sentinel or
// the last node of some other bucket's run:
//
//	buckets:   [0]   [1]   [2]   [3]
//	            |     .     |     |
//	            v           v     v
//	sentinel -> a0 -> a1 -> c0 -> d0 -> d1 -> nil
//	  ^                ^      ^
//	  bucket 0 pred    |      bucket 3 pred
//	                   bucket 2 pred
//
// Storing predecessors makes every splice O(1) on a singly-linked list: an
// element is inserted right after its bucket's predecessor, and erasing the
// first element of a run only requires rewriting the predecessor of the run
// that follows it. Iterating the whole table is a walk of one list, and a
// rehash re-partitions that list in a single pass without moving or
// reallocating any node.
//
// # Bucket indexing
//
// A hash is mapped to a bucket by masking when the bucket count is a power
// of two greater than 2, and by modulo otherwise. Tables default to prime
// bucket counts; see WithPowerOfTwoBuckets. Each node caches its full 64-bit
// hash, so a lookup compares hashes before calling the equality predicate and
// stops as soon as it walks out of its bucket's run. Because runs carry no
// explicit end marker, leaving a run is detected by recomputing the bucket of
// each visited node.
//
// # Failure semantics
//
// User supplied hash, equality and element constructors as well as the
// Allocator may panic. Insertion first searches for the key, then builds the
// new node under a nodeHolder, then grows the bucket array, and only links
// the node once nothing else can fail, so a panic at any step leaves the
// table exactly as it was. Erase and Rehash require that the hash and
// equality functions do not panic.
//
// A Table is NOT goroutine-safe and must not be copied after first use.
package chainmap

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const debug = false

// Table is a chained hash table holding unique elements of type T, each
// identified by a key of type K extracted with the table's key function.
type Table[K, T any] struct {
	// buckets holds, for each bucket, the node preceding the bucket's run in
	// the list or nil if the bucket is empty. Allocated by allocator.
	buckets []*Node[T]
	// first is the sentinel. first.next is the first node of the table. Its
	// hash and value are never read.
	first Node[T]
	// The number of nodes reachable from first.
	size int

	key   func(elem *T) K
	hash  func(key K) uint64
	equal func(a, b K) bool

	maxLoadFactor float32
	// preferPow2 selects power-of-two sizing while the table has no buckets.
	preferPow2 bool
	allocator  Allocator[T]
	logger     *zap.Logger
}

// NewTable constructs an empty Table. The key function extracts the key of
// an element, and must always return the same key for a given element. The
// equal function must return true for two keys that are equal, in which
// case hash must return the same value for both. The zero value of a Table
// is not usable.
func NewTable[K, T any](
	key func(elem *T) K,
	hash func(key K) uint64,
	equal func(a, b K) bool,
	options ...Option[K, T],
) *Table[K, T] {
	t := &Table[K, T]{}
	t.init(key, hash, equal, options...)
	return t
}

func (t *Table[K, T]) init(
	key func(elem *T) K, hash func(key K) uint64, equal func(a, b K) bool, options ...Option[K, T],
) {
	*t = Table[K, T]{
		key:           key,
		hash:          hash,
		equal:         equal,
		maxLoadFactor: 1,
		allocator:     defaultAllocator[T]{},
		logger:        zap.NewNop(),
	}
	for _, op := range options {
		op.apply(t)
	}
	if t.key == nil || t.hash == nil || t.equal == nil {
		panic(errors.AssertionFailedf("chainmap: key, hash and equal functions must be non-nil"))
	}
}

// Len returns the number of elements in the table.
func (t *Table[K, T]) Len() int {
	return t.size
}

// Find returns an iterator positioned at the element with the specified
// key, or the end iterator if there is none.
func (t *Table[K, T]) Find(key K) Iterator[T] {
	return Iterator[T]{t.search(t.hash(key), key)}
}

// Contains reports whether an element with the specified key is present.
func (t *Table[K, T]) Contains(key K) bool {
	return t.search(t.hash(key), key) != nil
}

// Count returns the number of elements with the specified key: 0 or 1.
func (t *Table[K, T]) Count(key K) int {
	if t.Contains(key) {
		return 1
	}
	return 0
}

// search walks the run of the bucket for hash h looking for key. Nodes whose
// cached hash equals h are necessarily in the bucket, which lets the walk
// skip recomputing their bucket.
func (t *Table[K, T]) search(h uint64, key K) *Node[T] {
	bc := uint64(len(t.buckets))
	if bc == 0 {
		return nil
	}
	b := constrain(h, bc)
	nd := t.buckets[b]
	if nd == nil {
		return nil
	}
	for nd = nd.next; nd != nil && (nd.hash == h || constrain(nd.hash, bc) == b); nd = nd.next {
		if nd.hash == h && t.equal(t.key(&nd.value), key) {
			return nd
		}
	}
	return nil
}

// FindFunc looks up an element of t using a query of a type other than the
// table's key type. The hash function must agree with the table's hash
// function for any query that equal considers equal to a key, which allows
// looking up elements without materializing a K.
func FindFunc[K, T, Q any](
	t *Table[K, T], query Q, hash func(query Q) uint64, equal func(key K, query Q) bool,
) Iterator[T] {
	h := hash(query)
	bc := uint64(len(t.buckets))
	if bc == 0 {
		return Iterator[T]{}
	}
	b := constrain(h, bc)
	nd := t.buckets[b]
	if nd == nil {
		return Iterator[T]{}
	}
	for nd = nd.next; nd != nil && (nd.hash == h || constrain(nd.hash, bc) == b); nd = nd.next {
		if nd.hash == h && equal(t.key(&nd.value), query) {
			return Iterator[T]{nd}
		}
	}
	return Iterator[T]{}
}

// InsertUnique inserts elem unless an element with the same key is already
// present. It returns an iterator positioned at the element with elem's key
// and whether the insertion took place. An existing element is not modified.
func (t *Table[K, T]) InsertUnique(elem T) (Iterator[T], bool) {
	key := t.key(&elem)
	h := t.hash(key)
	if nd := t.search(h, key); nd != nil {
		return Iterator[T]{nd}, false
	}

	holder := t.holdNode()
	defer holder.release()
	holder.set(elem)
	holder.n.hash = h

	t.reserveOne()
	nd := holder.commit()
	t.link(nd)
	t.verify()
	return Iterator[T]{nd}, true
}

// EmplaceUnique inserts the element returned by ctor unless an element with
// the specified key is already present, in which case ctor is not called.
// The element returned by ctor must have the specified key. It returns an
// iterator positioned at the element with the key and whether the insertion
// took place.
func (t *Table[K, T]) EmplaceUnique(key K, ctor func() T) (Iterator[T], bool) {
	h := t.hash(key)
	if nd := t.search(h, key); nd != nil {
		return Iterator[T]{nd}, false
	}

	holder := t.holdNode()
	defer holder.release()
	holder.construct(ctor)
	holder.n.hash = h

	t.reserveOne()
	nd := holder.commit()
	t.link(nd)
	t.verify()
	return Iterator[T]{nd}, true
}

func (t *Table[K, T]) holdNode() nodeHolder[T] {
	return nodeHolder[T]{alloc: t.allocator, n: t.allocator.AllocNode()}
}

// reserveOne grows the bucket array if inserting one more element would
// push the load factor over the maximum.
func (t *Table[K, T]) reserveOne() {
	bc := len(t.buckets)
	if bc != 0 && float64(t.size+1) <= float64(bc)*float64(t.maxLoadFactor) {
		return
	}
	n := 2 * bc
	if !isPow2Eligible(uint64(bc)) {
		n++
	}
	if need := t.bucketsFor(t.size + 1); need > n {
		n = need
	}
	if debug {
		fmt.Printf("grow: size=%d buckets=%d request=%d\n", t.size, bc, n)
	}
	t.Rehash(n)
}

// link splices nd, which must not already be present, into the list and
// accounts for it. The bucket array must be non-empty.
func (t *Table[K, T]) link(nd *Node[T]) {
	bc := uint64(len(t.buckets))
	b := constrain(nd.hash, bc)
	pn := t.buckets[b]
	if pn == nil {
		// Start a new run at the front of the list. The run that used to
		// follow the sentinel now follows nd.
		pn = &t.first
		nd.next = pn.next
		pn.next = nd
		t.buckets[b] = pn
		if nd.next != nil {
			t.buckets[constrain(nd.next.hash, bc)] = nd
		}
	} else {
		nd.next = pn.next
		pn.next = nd
	}
	t.size++
}

// Erase removes the element at it, which must be a valid iterator into t,
// and returns an iterator positioned at the element that followed it. Only
// iterators positioned at the erased element are invalidated.
func (t *Table[K, T]) Erase(it Iterator[T]) Iterator[T] {
	cn := it.n
	if cn == nil {
		panic(errors.AssertionFailedf("chainmap: erase of end iterator"))
	}
	next := Iterator[T]{cn.next}
	t.unlink(cn)
	t.destroy(cn)
	t.verify()
	return next
}

// EraseRange removes the elements in [first, last) and returns last.
func (t *Table[K, T]) EraseRange(first, last Iterator[T]) Iterator[T] {
	for first != last {
		first = t.Erase(first)
	}
	return last
}

// EraseUnique removes the element with the specified key, returning the
// number of elements removed: 0 or 1.
func (t *Table[K, T]) EraseUnique(key K) int {
	it := t.Find(key)
	if !it.Valid() {
		return 0
	}
	t.Erase(it)
	return 1
}

// unlink removes cn from the list, fixing up the bucket slots of cn's
// bucket and of the bucket whose run follows cn.
func (t *Table[K, T]) unlink(cn *Node[T]) {
	bc := uint64(len(t.buckets))
	b := constrain(cn.hash, bc)

	pn := t.buckets[b]
	for pn.next != cn {
		pn = pn.next
	}

	// If cn is the only element of its run, the bucket becomes empty.
	if pn == &t.first || constrain(pn.hash, bc) != b {
		if cn.next == nil || constrain(cn.next.hash, bc) != b {
			t.buckets[b] = nil
		}
	}
	// If cn ended its run, pn becomes the predecessor of the next run.
	if cn.next != nil {
		if nb := constrain(cn.next.hash, bc); nb != b {
			t.buckets[nb] = pn
		}
	}

	pn.next = cn.next
	cn.next = nil
	t.size--
}

// destroy zeroes the element of an unlinked node and returns the node to
// the allocator.
func (t *Table[K, T]) destroy(nd *Node[T]) {
	var zero T
	nd.value = zero
	nd.next = nil
	t.allocator.FreeNode(nd)
}

// Clear removes all elements from the table. The bucket array is retained.
func (t *Table[K, T]) Clear() {
	if t.size == 0 {
		return
	}
	for nd := t.first.next; nd != nil; {
		next := nd.next
		t.destroy(nd)
		nd = next
	}
	t.first.next = nil
	clear(t.buckets)
	t.size = 0
	t.verify()
}

// Rehash sets the number of buckets to at least n and re-partitions the
// elements. n is rounded up to a prime, or to a power of two when the table
// is sized in powers of two. The bucket array only shrinks if the result
// still satisfies the maximum load factor. Rehash(0) shrinks the bucket
// array as far as the load factor allows, releasing it entirely if the
// table is empty. Rehashing invalidates all iterators.
func (t *Table[K, T]) Rehash(n int) {
	if n <= 0 {
		n = t.bucketsFor(t.size)
	}
	n = t.goodSize(n)
	bc := len(t.buckets)
	if n > bc || (n < bc && n >= t.bucketsFor(t.size)) {
		t.rehash(n)
		t.verify()
	}
}

// Reserve sets the number of buckets to the number needed to hold n
// elements without exceeding the maximum load factor.
func (t *Table[K, T]) Reserve(n int) {
	t.Rehash(t.bucketsFor(n))
}

// bucketsFor returns the minimum number of buckets that hold count elements
// within the maximum load factor.
func (t *Table[K, T]) bucketsFor(count int) int {
	return int(math.Ceil(float64(count) / float64(t.maxLoadFactor)))
}

// usingPow2 reports whether the table is sized in powers of two.
func (t *Table[K, T]) usingPow2() bool {
	if len(t.buckets) == 0 {
		return t.preferPow2
	}
	return isPow2Eligible(uint64(len(t.buckets)))
}

// goodSize rounds a requested bucket count up to one the table will use.
func (t *Table[K, T]) goodSize(n int) int {
	u := uint64(n)
	switch {
	case n <= 0:
		return 0
	case isPow2Eligible(u):
		return n
	case t.usingPow2():
		return int(nextPow2(max(u, 4)))
	case n == 1:
		return 2
	default:
		return int(nextPrime(u))
	}
}

// rehash installs a bucket array of nbc buckets and re-partitions the list
// in one pass. The new array is allocated before anything is modified so a
// failing allocator leaves the table untouched.
func (t *Table[K, T]) rehash(nbc int) {
	var nb []*Node[T]
	if nbc > 0 {
		nb = t.allocator.AllocBuckets(nbc)
	}
	if ce := t.logger.Check(zap.DebugLevel, "rehash"); ce != nil {
		ce.Write(
			zap.Int("from", len(t.buckets)),
			zap.Int("to", nbc),
			zap.Int("size", t.size),
		)
	}
	if t.buckets != nil {
		t.allocator.FreeBuckets(t.buckets)
	}
	t.buckets = nb
	if nbc == 0 {
		return
	}
	clear(nb)

	pp := &t.first
	cp := pp.next
	if cp == nil {
		return
	}
	bc := uint64(nbc)
	chash := constrain(cp.hash, bc)
	nb[chash] = pp
	phash := chash
	for pp, cp = cp, cp.next; cp != nil; cp = pp.next {
		chash = constrain(cp.hash, bc)
		switch {
		case chash == phash:
			pp = cp
		case nb[chash] == nil:
			// First node of its bucket: the current run ends here.
			nb[chash] = pp
			pp = cp
			phash = chash
		default:
			// The bucket already has a run earlier in the list. Move cp
			// to the front of that run.
			pp.next = cp.next
			cp.next = nb[chash].next
			nb[chash].next = cp
		}
	}
}

// BucketCount returns the number of buckets.
func (t *Table[K, T]) BucketCount() int {
	return len(t.buckets)
}

// Bucket returns the index of the bucket the specified key maps to, or 0 if
// the table has no buckets.
func (t *Table[K, T]) Bucket(key K) int {
	bc := uint64(len(t.buckets))
	if bc == 0 {
		return 0
	}
	return int(constrain(t.hash(key), bc))
}

// BucketFunc is the heterogeneous counterpart of Table.Bucket.
func BucketFunc[K, T, Q any](t *Table[K, T], query Q, hash func(query Q) uint64) int {
	bc := uint64(len(t.buckets))
	if bc == 0 {
		return 0
	}
	return int(constrain(hash(query), bc))
}

// BucketSize returns the number of elements in bucket n. Out of range
// buckets are empty.
func (t *Table[K, T]) BucketSize(n int) int {
	bc := uint64(len(t.buckets))
	if n < 0 || uint64(n) >= bc {
		return 0
	}
	r := 0
	if np := t.buckets[n]; np != nil {
		for np = np.next; np != nil && constrain(np.hash, bc) == uint64(n); np = np.next {
			r++
		}
	}
	return r
}

// LoadFactor returns the average number of elements per bucket.
func (t *Table[K, T]) LoadFactor() float32 {
	if len(t.buckets) == 0 {
		return 0
	}
	return float32(t.size) / float32(len(t.buckets))
}

// MaxLoadFactor returns the load factor above which the table grows.
func (t *Table[K, T]) MaxLoadFactor() float32 {
	return t.maxLoadFactor
}

// SetMaxLoadFactor sets the maximum load factor. The value is raised to the
// current load factor if it is lower, so setting it never forces a rehash.
// It panics if mlf is not a positive number.
func (t *Table[K, T]) SetMaxLoadFactor(mlf float32) {
	if !(mlf > 0) || math.IsInf(float64(mlf), 1) {
		panic(errors.Newf("chainmap: invalid max load factor %v", mlf))
	}
	t.maxLoadFactor = max(mlf, t.LoadFactor())
}

// Swap exchanges the contents of t and u without touching any element.
func (t *Table[K, T]) Swap(u *Table[K, T]) {
	t.buckets, u.buckets = u.buckets, t.buckets
	t.first.next, u.first.next = u.first.next, t.first.next
	t.size, u.size = u.size, t.size
	t.key, u.key = u.key, t.key
	t.hash, u.hash = u.hash, t.hash
	t.equal, u.equal = u.equal, t.equal
	t.maxLoadFactor, u.maxLoadFactor = u.maxLoadFactor, t.maxLoadFactor
	t.preferPow2, u.preferPow2 = u.preferPow2, t.preferPow2
	t.allocator, u.allocator = u.allocator, t.allocator
	t.logger, u.logger = u.logger, t.logger

	// The bucket of each table's first run still names the other table's
	// sentinel.
	t.adoptSentinel()
	u.adoptSentinel()
}

func (t *Table[K, T]) adoptSentinel() {
	if t.size > 0 {
		t.buckets[constrain(t.first.next.hash, uint64(len(t.buckets)))] = &t.first
	}
}

// Clone returns a new table with the same functions, options and elements
// as t. Elements are copied by assignment.
func (t *Table[K, T]) Clone() *Table[K, T] {
	c := &Table[K, T]{}
	t.cloneInto(c)
	return c
}

func (t *Table[K, T]) cloneInto(c *Table[K, T]) {
	*c = Table[K, T]{
		key:           t.key,
		hash:          t.hash,
		equal:         t.equal,
		maxLoadFactor: t.maxLoadFactor,
		preferPow2:    t.preferPow2,
		allocator:     t.allocator,
		logger:        t.logger,
	}
	c.Rehash(len(t.buckets))
	for nd := t.first.next; nd != nil; nd = nd.next {
		c.InsertUnique(nd.value)
	}
}

func (t *Table[K, T]) verify() {
	if invariants {
		if err := t.checkInvariants(); err != nil {
			panic(errors.Wrapf(err, "%s", t.debugString()))
		}
	}
}

// checkInvariants verifies the structure of the list against the bucket
// array: the list holds exactly size nodes, each bucket's nodes are
// contiguous, every cached hash is current, and every non-empty bucket names
// the node preceding its run.
func (t *Table[K, T]) checkInvariants() error {
	bc := uint64(len(t.buckets))
	if bc == 0 {
		if t.size != 0 || t.first.next != nil {
			return errors.AssertionFailedf("table without buckets holds %d elements", t.size)
		}
		return nil
	}

	preds := make(map[uint64]*Node[T])
	count := 0
	prev := &t.first
	for nd := t.first.next; nd != nil; prev, nd = nd, nd.next {
		count++
		if count > t.size {
			return errors.AssertionFailedf("list is longer than size %d", t.size)
		}
		if h := t.hash(t.key(&nd.value)); h != nd.hash {
			return errors.AssertionFailedf("node %d: cached hash %016x, expected %016x", count-1, nd.hash, h)
		}
		b := constrain(nd.hash, bc)
		if prev == &t.first || constrain(prev.hash, bc) != b {
			if _, ok := preds[b]; ok {
				return errors.AssertionFailedf("bucket %d is not contiguous", b)
			}
			preds[b] = prev
		}
	}
	if count != t.size {
		return errors.AssertionFailedf("list holds %d elements, size is %d", count, t.size)
	}
	for i, slot := range t.buckets {
		if want := preds[uint64(i)]; slot != want {
			if want == nil {
				return errors.AssertionFailedf("bucket %d is empty but its slot is set", i)
			}
			return errors.AssertionFailedf("bucket %d: slot does not precede its run", i)
		}
	}
	return nil
}

func (t *Table[K, T]) debugString() string {
	var buf strings.Builder
	bc := uint64(len(t.buckets))
	fmt.Fprintf(&buf, "size: %d, buckets: %d, max-load-factor: %.2f\n", t.size, bc, t.maxLoadFactor)
	index := make(map[*Node[T]]int)
	index[&t.first] = -1
	i := 0
	for nd := t.first.next; nd != nil && i <= t.size; nd = nd.next {
		index[nd] = i
		b := uint64(0)
		if bc > 0 {
			b = constrain(nd.hash, bc)
		}
		fmt.Fprintf(&buf, "  %4d: bucket=%d hash=%016x value=%v\n", i, b, nd.hash, nd.value)
		i++
	}
	for b, slot := range t.buckets {
		if slot == nil {
			continue
		}
		if j, ok := index[slot]; !ok {
			fmt.Fprintf(&buf, "  bucket %d -> (unlinked node)\n", b)
		} else if j < 0 {
			fmt.Fprintf(&buf, "  bucket %d -> sentinel\n", b)
		} else {
			fmt.Fprintf(&buf, "  bucket %d -> %d\n", b, j)
		}
	}
	return buf.String()
}
