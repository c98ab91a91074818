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

package hashtable

import (
	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// HashFunc maps a key to a non-negative integer. Implementations must be
// pure: the same key always yields the same value and no state is touched.
// The table reduces the result modulo its capacity, so the quality of the
// low bits matters less than for power-of-two tables.
type HashFunc func(key string) uint64

// SumHash returns the sum of the bytes of key. Anagrams collide, which makes
// it useful for exercising collision handling.
func SumHash(key string) uint64 {
	var h uint64
	for i := 0; i < len(key); i++ {
		h += uint64(key[i])
	}
	return h
}

// WeightedSumHash returns the sum of each byte of key multiplied by its
// 1-based position.
func WeightedSumHash(key string) uint64 {
	var h uint64
	for i := 0; i < len(key); i++ {
		h += uint64(i+1) * uint64(key[i])
	}
	return h
}

// XXHash hashes key with xxHash64.
func XXHash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Murmur3 hashes key with the 64-bit variant of MurmurHash3 and a zero seed.
func Murmur3(key string) uint64 {
	return murmur3.Sum64([]byte(key))
}
