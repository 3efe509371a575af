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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/chainmap"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRun(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("sequential", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, run(&buf, logger, options{keys: 1000, identityHash: true}))
		out := buf.String()
		require.Contains(t, out, "size:            1000\n")
		require.Contains(t, out, "buckets:         1597\n")
		require.Contains(t, out, "empty buckets:   597\n")
		require.Contains(t, out, "longest run:     1 ")
	})

	t.Run("delete", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, run(&buf, logger, options{keys: 1000, deleteRatio: 0.5, powerOfTwo: true}))
		out := buf.String()
		require.Contains(t, out, "size:            500\n")
		require.Contains(t, out, "buckets:         1024\n")
	})

	t.Run("random", func(t *testing.T) {
		var buf bytes.Buffer
		o := options{keys: 500, random: true, seed: 42, maxLoadFactor: 4}
		require.NoError(t, run(&buf, logger, o))
		require.Contains(t, buf.String(), "size:            500\n")
		require.Contains(t, buf.String(), "(max 4.000)")
	})

	t.Run("invalid", func(t *testing.T) {
		var buf bytes.Buffer
		require.Error(t, run(&buf, logger, options{keys: 10, deleteRatio: 2}))
		require.Error(t, run(&buf, logger, options{keys: -1}))
		require.Empty(t, buf.String())
	})
}

func TestRunConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "table.toml")
	require.NoError(t, os.WriteFile(path, []byte("bucket-count = 100\npower-of-two = true\n"), 0644))
	var buf bytes.Buffer
	require.NoError(t, run(&buf, logger, options{config: path, keys: 10}))
	require.Contains(t, buf.String(), "buckets:         128\n")

	// Flags override the file.
	buf.Reset()
	require.NoError(t, run(&buf, logger, options{config: path, keys: 10, buckets: 300}))
	require.Contains(t, buf.String(), "buckets:         512\n")

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("max-load-factor = -1\n"), 0644))
	err := run(&buf, logger, options{config: bad, keys: 10})
	require.True(t, errors.Is(err, chainmap.ErrInvalidConfig), "%v", err)
}
