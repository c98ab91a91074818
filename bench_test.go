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
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

// benchMap is the surface shared by OpenMap and ChainedMap.
type benchMap interface {
	Put(key string, value int)
	Get(key string) (int, bool)
	Delete(key string)
	Clear()
	All(yield func(key string, value int) bool)
}

var benchImpls = []struct {
	name string
	new  func(n int) benchMap
}{
	{"impl=openMap", func(n int) benchMap { return NewOpenMap[int](n) }},
	{"impl=chainedMap", func(n int) benchMap { return NewChainedMap[int](n) }},
}

func BenchmarkMapIter(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapIter))
	for _, impl := range benchImpls {
		b.Run(impl.name, benchSizes(func(b *testing.B, n int) {
			benchmarkMapIter(b, n, impl.new)
		}))
	}
}

func BenchmarkMapGetHit(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapGetHit))
	for _, impl := range benchImpls {
		b.Run(impl.name, benchSizes(func(b *testing.B, n int) {
			benchmarkMapGetHit(b, n, impl.new)
		}))
	}
}

func BenchmarkMapGetMiss(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapGetMiss))
	for _, impl := range benchImpls {
		b.Run(impl.name, benchSizes(func(b *testing.B, n int) {
			benchmarkMapGetMiss(b, n, impl.new)
		}))
	}
}

func BenchmarkMapPutGrow(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutGrow))
	for _, impl := range benchImpls {
		b.Run(impl.name, benchSizes(func(b *testing.B, n int) {
			benchmarkMapPutGrow(b, n, impl.new)
		}))
	}
}

func BenchmarkMapPutReuse(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutReuse))
	for _, impl := range benchImpls {
		b.Run(impl.name, benchSizes(func(b *testing.B, n int) {
			benchmarkMapPutReuse(b, n, impl.new)
		}))
	}
}

func BenchmarkMapPutDelete(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutDelete))
	for _, impl := range benchImpls {
		b.Run(impl.name, benchSizes(func(b *testing.B, n int) {
			benchmarkMapPutDelete(b, n, impl.new)
		}))
	}
}

func benchSizes(f func(b *testing.B, n int)) func(*testing.B) {
	var cases = []int{
		6, 12, 18, 24, 30,
		64,
		128,
		256,
		512,
		1024,
		4096,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n) })
		}
	}
}

func genKeys(start, end int) []string {
	keys := make([]string, end-start)
	for i := range keys {
		keys[i] = strconv.Itoa(start + i)
	}
	return keys
}

func benchmarkRuntimeMapIter(b *testing.B, n int) {
	m := make(map[string]int, n)
	for i, k := range genKeys(0, n) {
		m[k] = i
	}
	b.ResetTimer()
	perfbench.Open(b)
	var tmp int
	for i := 0; i < b.N; i++ {
		for _, v := range m {
			tmp += v
		}
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkMapIter(b *testing.B, n int, newMap func(n int) benchMap) {
	m := newMap(n)
	for i, k := range genKeys(0, n) {
		m.Put(k, i)
	}
	b.ResetTimer()
	perfbench.Open(b)
	var tmp int
	for i := 0; i < b.N; i++ {
		m.All(func(_ string, v int) bool {
			tmp += v
			return true
		})
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkRuntimeMapGetHit(b *testing.B, n int) {
	m := make(map[string]int, n)
	for i, k := range genKeys(0, n) {
		m[k] = i
	}

	// Go's builtin map has an optimization to avoid string comparisons if
	// there is pointer equality. Defeat this optimization to get a better
	// apples-to-apples comparison.
	keys := genKeys(0, n)

	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m[keys[i%n]]
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkMapGetHit(b *testing.B, n int, newMap func(n int) benchMap) {
	m := newMap(n)
	for i, k := range genKeys(0, n) {
		m.Put(k, i)
	}
	keys := genKeys(0, n)

	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Get(keys[i%n])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapGetMiss(b *testing.B, n int) {
	m := make(map[string]int, n)
	for i, k := range genKeys(0, n) {
		m[k] = i
	}
	miss := genKeys(-n, 0)

	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m[miss[i%n]]
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkMapGetMiss(b *testing.B, n int, newMap func(n int) benchMap) {
	m := newMap(n)
	for i, k := range genKeys(0, n) {
		m.Put(k, i)
	}
	miss := genKeys(-n, 0)

	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Get(miss[i%n])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapPutGrow(b *testing.B, n int) {
	keys := genKeys(0, n)
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		m := make(map[string]int)
		for j, k := range keys {
			m[k] = j
		}
	}
}

func benchmarkMapPutGrow(b *testing.B, n int, newMap func(n int) benchMap) {
	keys := genKeys(0, n)
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		m := newMap(0)
		for j, k := range keys {
			m.Put(k, j)
		}
	}
}

func benchmarkRuntimeMapPutReuse(b *testing.B, n int) {
	m := make(map[string]int, n)
	keys := genKeys(0, n)
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		for j, k := range keys {
			m[k] = j
		}
		clear(m)
	}
}

func benchmarkMapPutReuse(b *testing.B, n int, newMap func(n int) benchMap) {
	m := newMap(n)
	keys := genKeys(0, n)
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		for j, k := range keys {
			m.Put(k, j)
		}
		m.Clear()
	}
}

func benchmarkRuntimeMapPutDelete(b *testing.B, n int) {
	m := make(map[string]int, n)
	keys := genKeys(0, n)
	for i, k := range keys {
		m[k] = i
	}
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		j := i % n
		delete(m, keys[j])
		m[keys[j]] = j
	}
}

// For OpenMap this measures tombstone revival: the deleted slot is found
// again by the following Put.
func benchmarkMapPutDelete(b *testing.B, n int, newMap func(n int) benchMap) {
	m := newMap(n)
	keys := genKeys(0, n)
	for i, k := range keys {
		m.Put(k, i)
	}
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		j := i % n
		m.Delete(keys[j])
		m.Put(keys[j], j)
	}
}
