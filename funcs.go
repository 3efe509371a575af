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
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// String converts m to a string representation using K's and V's String
// methods. Entries are sorted by their key representation.
func String[K interface {
	comparable
	fmt.Stringer
}, V fmt.Stringer](m *Map[K, V]) string {
	return StringFunc(m,
		func(key K) string { return key.String() },
		func(value V) string { return value.String() },
	)
}

type strKV struct {
	k string
	v string
}

// StringFunc converts m to a string representation with the help of strK
// and strV to stringify m's keys and values.
func StringFunc[K comparable, V any](m *Map[K, V],
	strK func(key K) string,
	strV func(value V) string) string {
	if m == nil || m.Len() == 0 {
		return "chainmap.Map[]"
	}
	strs := make([]strKV, 0, m.Len())
	s := 0
	for k, v := range m.All() {
		kv := strKV{k: strK(k), v: strV(v)}
		s += len(kv.k) + len(kv.v)
		strs = append(strs, kv)
	}
	slices.SortFunc(strs, func(a, b strKV) bool { return a.k < b.k })

	var b strings.Builder
	b.Grow(len("chainmap.Map[]") + len(strs)*2 - 1 + s)
	b.WriteString("chainmap.Map[")
	for i, kv := range strs {
		if i != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(kv.k)
		b.WriteByte(':')
		b.WriteString(kv.v)
	}
	b.WriteByte(']')
	return b.String()
}

// Equal reports whether m1 and m2 hold the same keys mapped to values that
// compare equal with ==.
func Equal[K, V comparable](m1, m2 *Map[K, V]) bool {
	return EqualFunc(m1, m2, func(a, b V) bool { return a == b })
}

// EqualFunc reports whether m1 and m2 hold the same keys mapped to values
// that compare equal with eq. Keys are looked up in m2 with m2's functions.
func EqualFunc[K comparable, V any](m1, m2 *Map[K, V], eq func(V, V) bool) bool {
	if m1.Len() != m2.Len() {
		return false
	}
	for k, v1 := range m1.All() {
		v2, ok := m2.Get(k)
		if !ok || !eq(v1, v2) {
			return false
		}
	}
	return true
}
