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
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestMapAt(t *testing.T) {
	m := NewMap[string, int](0)
	m.Put("a", 1)

	v, err := m.At("a")
	require.NoError(t, err)
	require.Equal(t, 1, v)

	_, err = m.At("b")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrKeyNotFound))
	require.Contains(t, err.Error(), "key b")
}

func TestMapRef(t *testing.T) {
	m := NewMap[string, int](0)
	require.True(t, m.Empty())
	for _, w := range strings.Fields("the quick brown fox jumps over the lazy dog the end") {
		*m.Ref(w)++
	}
	require.False(t, m.Empty())
	require.Equal(t, 9, m.Len())
	v, ok := m.Get("the")
	require.True(t, ok)
	require.Equal(t, 3, v)
	require.Equal(t, 1, m.Count("fox"))
	require.Equal(t, 0, m.Count("cat"))
	requireValid(t, m.Table())
}

func TestMapTryEmplace(t *testing.T) {
	m := NewMap[int, []string](0)
	calls := 0
	ctor := func() []string {
		calls++
		return []string{"x"}
	}
	it, inserted := m.TryEmplace(1, ctor)
	require.True(t, inserted)
	require.Equal(t, []string{"x"}, it.Elem().Value)
	it, inserted = m.TryEmplace(1, ctor)
	require.False(t, inserted)
	require.Equal(t, 1, it.Elem().Key)
	require.Equal(t, 1, calls)
}

func TestMapIterators(t *testing.T) {
	m := NewMap[int, int](0)
	e := make(map[int]int)
	for i := 0; i < 100; i++ {
		m.Put(i, i*i)
		e[i] = i * i
	}

	keys := make(map[int]bool)
	for k := range m.Keys() {
		keys[k] = true
	}
	require.Len(t, keys, 100)

	sum := 0
	for v := range m.Values() {
		sum += v
	}
	require.Equal(t, 328350, sum)

	// Stopping early.
	n := 0
	for range m.All() {
		n++
		if n == 10 {
			break
		}
	}
	require.Equal(t, 10, n)

	// Deleting the entry just yielded is allowed.
	for k := range m.All() {
		if k%2 == 1 {
			m.Delete(k)
			delete(e, k)
		}
	}
	require.Equal(t, e, m.toBuiltinMap())
	requireValid(t, m.Table())
}

type stringer int

func (s stringer) String() string {
	return strconv.Itoa(int(s))
}

func TestString(t *testing.T) {
	m := NewMap[stringer, stringer](0)
	require.Equal(t, "chainmap.Map[]", String(m))
	m.Put(2, 20)
	m.Put(1, 10)
	m.Put(3, 30)
	require.Equal(t, "chainmap.Map[1:10 2:20 3:30]", String(m))

	s := StringFunc(NewMap[string, int](0), func(k string) string { return k }, strconv.Itoa)
	require.Equal(t, "chainmap.Map[]", s)

	m2 := NewMap[string, int](0)
	m2.Put("b", 2)
	m2.Put("a", 1)
	require.Equal(t, "chainmap.Map[a:1 b:2]",
		StringFunc(m2, func(k string) string { return k }, strconv.Itoa))
}

func TestEqual(t *testing.T) {
	m1 := NewMap[int, string](0)
	m2 := NewMap[int, string](100, WithPowerOfTwoBuckets[int, Entry[int, string]]())
	require.True(t, Equal(m1, m2))

	for i := 0; i < 50; i++ {
		m1.Put(i, fmt.Sprint(i))
	}
	for i := 49; i >= 0; i-- {
		m2.Put(i, fmt.Sprint(i))
	}
	require.True(t, Equal(m1, m2))
	require.True(t, Equal(m2, m1))

	m2.Put(7, "seven")
	require.False(t, Equal(m1, m2))
	require.True(t, EqualFunc(m1, m2, func(a, b string) bool { return len(a) > 0 && len(b) > 0 }))

	m2.Delete(7)
	require.False(t, Equal(m1, m2))
	m2.Put(1000, "7")
	require.False(t, Equal(m1, m2))
}

func TestSet(t *testing.T) {
	s := NewSet[string](0)
	require.True(t, s.Add("a"))
	require.True(t, s.Add("b"))
	require.False(t, s.Add("a"))
	require.Equal(t, 2, s.Len())
	require.True(t, s.Contains("b"))
	require.False(t, s.Contains("c"))

	var got []string
	for k := range s.All() {
		got = append(got, k)
	}
	require.ElementsMatch(t, []string{"a", "b"}, got)

	require.True(t, s.Remove("a"))
	require.False(t, s.Remove("a"))
	require.Equal(t, 1, s.Len())
	requireValid(t, s.Table())

	s.Clear()
	require.Equal(t, 0, s.Len())
	require.False(t, s.Contains("b"))
}

func TestConfig(t *testing.T) {
	c, err := ParseConfig(`
bucket-count = 64
max-load-factor = 0.75
power-of-two = true
`)
	require.NoError(t, err)
	require.Equal(t, Config{BucketCount: 64, MaxLoadFactor: 0.75, PowerOfTwo: true}, c)

	m := NewMap[int, int](c.BucketCount, ConfigOptions[int, Entry[int, int]](c)...)
	require.Equal(t, 64, m.BucketCount())
	require.EqualValues(t, 0.75, m.MaxLoadFactor())
	for i := 0; i < 49; i++ {
		m.Insert(i, i)
	}
	require.Equal(t, 128, m.BucketCount())

	c, err = ParseConfig("")
	require.NoError(t, err)
	require.Equal(t, Config{}, c)
	require.Empty(t, ConfigOptions[int, int](c))

	testCases := []struct {
		data    string
		invalid bool
	}{
		{"bucket-count = -1", true},
		{"max-load-factor = -0.5", true},
		{"max-load-factor = nan", true},
		{"buckets = 10", true},
		{"bucket-count = \"ten\"", false},
		{"bucket-count =", false},
	}
	for _, tc := range testCases {
		t.Run(tc.data, func(t *testing.T) {
			_, err := ParseConfig(tc.data)
			require.Error(t, err)
			require.Equal(t, tc.invalid, errors.Is(err, ErrInvalidConfig), "%v", err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chainmap.toml")
	require.NoError(t, os.WriteFile(path, []byte("max-load-factor = 2.0\n"), 0644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	require.EqualValues(t, 2, c.MaxLoadFactor)

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
}
