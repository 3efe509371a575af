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

// Node holds one element of a Table along with its cached hash and the link
// to the next node in the table's list. Nodes are only exported so that an
// Allocator can supply their storage.
type Node[T any] struct {
	next  *Node[T]
	hash  uint64
	value T
}

// nodeHolder owns a node that has been allocated but not yet linked into a
// table. Unless commit is called, release destroys the element (if it was
// constructed) and returns the node to the allocator. It is meant to be used
// as:
//
//	h := t.holdNode()
//	defer h.release()
//	...
//	t.link(h.commit())
type nodeHolder[T any] struct {
	alloc       Allocator[T]
	n           *Node[T]
	constructed bool
}

func (h *nodeHolder[T]) release() {
	if h.n == nil {
		return
	}
	if h.constructed {
		var zero T
		h.n.value = zero
	}
	h.n.next = nil
	h.alloc.FreeNode(h.n)
	h.n = nil
}

// construct builds the element in place. If ctor panics the holder still
// owns the node and release will free it.
func (h *nodeHolder[T]) construct(ctor func() T) {
	h.n.value = ctor()
	h.constructed = true
}

// set copies v into the node.
func (h *nodeHolder[T]) set(v T) {
	h.n.value = v
	h.constructed = true
}

// commit transfers ownership of the node to the caller.
func (h *nodeHolder[T]) commit() *Node[T] {
	n := h.n
	h.n = nil
	return n
}
