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

import "math/bits"

// smallPrimes is consulted before falling back to trial division.
var smallPrimes = [...]uint64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29,
	31, 37, 41, 43, 47, 53, 59, 61, 67, 71,
}

// isPow2Eligible reports whether a table with n buckets indexes with a mask
// rather than a modulo. Note that n == 2 is deliberately excluded.
func isPow2Eligible(n uint64) bool {
	return n > 2 && n&(n-1) == 0
}

// constrain maps hash h onto one of bc buckets. bc must be non-zero.
func constrain(h, bc uint64) uint64 {
	if isPow2Eligible(bc) {
		return h & (bc - 1)
	}
	if h < bc {
		return h
	}
	return h % bc
}

// nextPow2 returns the smallest power of two >= n. Values below 2 are
// returned unchanged.
func nextPow2(n uint64) uint64 {
	if n < 2 {
		return n
	}
	return 1 << bits.Len64(n-1)
}

// nextPrime returns the smallest prime >= n.
func nextPrime(n uint64) uint64 {
	for _, p := range smallPrimes {
		if p >= n {
			return p
		}
	}
	i := n
	if i%2 == 0 {
		i++
	}
	for ; ; i += 2 {
		if isOddPrime(i) {
			return i
		}
	}
}

func isOddPrime(n uint64) bool {
	for j := uint64(3); j*j <= n; j += 2 {
		if n%j == 0 {
			return false
		}
	}
	return true
}
