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
	"math"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// ErrInvalidConfig is the mark carried by Config validation errors.
var ErrInvalidConfig = errors.New("chainmap: invalid config")

// Config is the serializable form of the sizing options of a Table. It is
// typically decoded from TOML:
//
//	bucket-count = 64
//	max-load-factor = 0.75
//	power-of-two = true
type Config struct {
	// BucketCount is the initial number of buckets requested. Zero defers
	// allocation until the first insertion.
	BucketCount int `toml:"bucket-count"`
	// MaxLoadFactor is the maximum average number of elements per bucket.
	// Zero selects the default of 1.
	MaxLoadFactor float32 `toml:"max-load-factor"`
	// PowerOfTwo sizes the bucket array in powers of two.
	PowerOfTwo bool `toml:"power-of-two"`
}

// ParseConfig decodes a TOML document into a Config and validates it.
func ParseConfig(data string) (Config, error) {
	var c Config
	md, err := toml.Decode(data, &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Mark(
			errors.Newf("unknown config key %q", undecoded[0].String()), ErrInvalidConfig)
	}
	return c, c.Validate()
}

// LoadConfig reads and validates a TOML config file.
func LoadConfig(path string) (Config, error) {
	var c Config
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, errors.Wrapf(err, "loading config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Mark(
			errors.Newf("%s: unknown config key %q", path, undecoded[0].String()), ErrInvalidConfig)
	}
	return c, c.Validate()
}

// Validate checks that the config describes a usable table.
func (c Config) Validate() error {
	if c.BucketCount < 0 {
		return errors.Mark(errors.Newf("negative bucket-count %d", c.BucketCount), ErrInvalidConfig)
	}
	mlf := float64(c.MaxLoadFactor)
	if mlf < 0 || math.IsNaN(mlf) || math.IsInf(mlf, 0) {
		return errors.Mark(errors.Newf("invalid max-load-factor %v", c.MaxLoadFactor), ErrInvalidConfig)
	}
	return nil
}

// ConfigOptions converts c into the options it describes. The initial
// bucket count is not an option; pass c.BucketCount to the constructor.
func ConfigOptions[K, T any](c Config) []Option[K, T] {
	var opts []Option[K, T]
	if c.MaxLoadFactor > 0 {
		opts = append(opts, WithMaxLoadFactor[K, T](c.MaxLoadFactor))
	}
	if c.PowerOfTwo {
		opts = append(opts, WithPowerOfTwoBuckets[K, T]())
	}
	return opts
}
