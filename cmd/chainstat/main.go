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

// Command chainstat fills a chained hash table with synthetic keys and
// reports how evenly they are spread over its buckets.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/cockroachdb/chainmap"
	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

type options struct {
	config        string
	keys          int
	deleteRatio   float64
	random        bool
	seed          uint64
	buckets       int
	maxLoadFactor float32
	powerOfTwo    bool
	identityHash  bool
	verbose       bool
}

func main() {
	var o options
	fs := pflag.NewFlagSet("chainstat", pflag.ExitOnError)
	fs.StringVarP(&o.config, "config", "c", "", "TOML file with table sizing options")
	fs.IntVarP(&o.keys, "keys", "n", 100000, "number of keys to insert")
	fs.Float64Var(&o.deleteRatio, "delete", 0, "fraction of inserted keys to delete afterwards")
	fs.BoolVar(&o.random, "random", false, "insert random rather than sequential keys")
	fs.Uint64Var(&o.seed, "seed", 1, "seed for --random")
	fs.IntVar(&o.buckets, "buckets", 0, "initial bucket count (overrides config)")
	fs.Float32Var(&o.maxLoadFactor, "max-load-factor", 0, "maximum load factor (overrides config)")
	fs.BoolVar(&o.powerOfTwo, "pow2", false, "size the bucket array in powers of two")
	fs.BoolVar(&o.identityHash, "identity-hash", false, "hash keys to themselves")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log every rehash")
	_ = fs.Parse(os.Args[1:])

	logger, err := newLogger(o.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(os.Stdout, logger, o); err != nil {
		logger.Fatal("chainstat failed", zap.Error(err))
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

func run(w io.Writer, logger *zap.Logger, o options) error {
	var cfg chainmap.Config
	if o.config != "" {
		var err error
		if cfg, err = chainmap.LoadConfig(o.config); err != nil {
			return err
		}
	}
	if o.buckets > 0 {
		cfg.BucketCount = o.buckets
	}
	if o.maxLoadFactor > 0 {
		cfg.MaxLoadFactor = o.maxLoadFactor
	}
	if o.powerOfTwo {
		cfg.PowerOfTwo = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if o.keys < 0 || o.deleteRatio < 0 || o.deleteRatio > 1 {
		return errors.Newf("invalid --keys=%d or --delete=%v", o.keys, o.deleteRatio)
	}

	opts := chainmap.ConfigOptions[uint64, chainmap.Entry[uint64, struct{}]](cfg)
	opts = append(opts, chainmap.WithLogger[uint64, chainmap.Entry[uint64, struct{}]](logger.Named("table")))
	if o.identityHash {
		opts = append(opts, chainmap.WithHash[uint64, chainmap.Entry[uint64, struct{}]](
			func(k uint64) uint64 { return k }))
	}
	m := chainmap.NewMap[uint64, struct{}](cfg.BucketCount, opts...)

	keys := genKeys(o)
	for _, k := range keys {
		m.Insert(k, struct{}{})
	}
	deleted := int(float64(len(keys)) * o.deleteRatio)
	for _, k := range keys[:deleted] {
		m.Delete(k)
	}
	logger.Info("populated table",
		zap.Int("inserted", len(keys)), zap.Int("deleted", deleted), zap.Int("buckets", m.BucketCount()))

	printStats(w, collect(m))
	return nil
}

func genKeys(o options) []uint64 {
	keys := make([]uint64, o.keys)
	if !o.random {
		for i := range keys {
			keys[i] = uint64(i)
		}
		return keys
	}
	rng := rand.New(rand.NewSource(o.seed))
	for i := range keys {
		keys[i] = rng.Uint64()
	}
	return keys
}

type stats struct {
	size        int
	buckets     int
	loadFactor  float32
	maxLoad     float32
	empty       int
	longestRun  int
	runLengths  map[int]int
	sampleFirst []uint64
}

func collect(m *chainmap.Map[uint64, struct{}]) stats {
	s := stats{
		size:       m.Len(),
		buckets:    m.BucketCount(),
		loadFactor: m.LoadFactor(),
		maxLoad:    m.MaxLoadFactor(),
		runLengths: make(map[int]int),
	}
	for b := 0; b < s.buckets; b++ {
		n := m.BucketSize(b)
		s.runLengths[n]++
		if n == 0 {
			s.empty++
			continue
		}
		if n > s.longestRun {
			s.longestRun = n
			s.sampleFirst = s.sampleFirst[:0]
			for k := range m.BucketAll(b) {
				s.sampleFirst = append(s.sampleFirst, k)
			}
		}
	}
	return s
}

func printStats(w io.Writer, s stats) {
	fmt.Fprintf(w, "size:            %d\n", s.size)
	fmt.Fprintf(w, "buckets:         %d\n", s.buckets)
	fmt.Fprintf(w, "load factor:     %.3f (max %.3f)\n", s.loadFactor, s.maxLoad)
	fmt.Fprintf(w, "empty buckets:   %d\n", s.empty)
	fmt.Fprintf(w, "longest run:     %d %v\n", s.longestRun, s.sampleFirst)
	lengths := make([]int, 0, len(s.runLengths))
	for n := range s.runLengths {
		lengths = append(lengths, n)
	}
	sort.Ints(lengths)
	fmt.Fprintln(w, "run length histogram:")
	for _, n := range lengths {
		fmt.Fprintf(w, "  %4d: %d\n", n, s.runLengths[n])
	}
}
