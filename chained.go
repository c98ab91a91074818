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
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// chainedMaxLoad is the load factor at which ChainedMap grows before
// inserting.
const chainedMaxLoad = 1.0

// node is a single entry in a bucket's linked list.
type node[V any] struct {
	key   string
	value V
	next  *node[V]
}

// bucket is the head of a singly linked list of nodes whose keys hash to the
// same index. New nodes are pushed onto the front of the list.
type bucket[V any] struct {
	head   *node[V]
	length int
}

func (b *bucket[V]) insert(key string, value V) {
	b.head = &node[V]{key: key, value: value, next: b.head}
	b.length++
}

// find returns the first node holding key, or nil.
func (b *bucket[V]) find(key string) *node[V] {
	for n := b.head; n != nil; n = n.next {
		if n.key == key {
			return n
		}
	}
	return nil
}

// remove unlinks the first node holding key, returning false if there is no
// such node.
func (b *bucket[V]) remove(key string) bool {
	for p := &b.head; *p != nil; p = &(*p).next {
		if (*p).key == key {
			*p = (*p).next
			b.length--
			return true
		}
	}
	return false
}

// ChainedMap is a string-keyed hash table using separate chaining.
//
// A ChainedMap is NOT goroutine-safe.
type ChainedMap[V any] struct {
	hash    HashFunc
	buckets []bucket[V]
	// The number of nodes across all buckets.
	used int
}

// NewChainedMap constructs a new ChainedMap whose capacity is the smallest
// prime >= initialCapacity (see nextPrime).
func NewChainedMap[V any](initialCapacity int, options ...option[V]) *ChainedMap[V] {
	c := makeConfig(options)
	m := &ChainedMap[V]{
		hash:    c.hash,
		buckets: make([]bucket[V], nextPrime(initialCapacity)),
	}
	m.checkInvariants()
	return m
}

// Put inserts an entry into the map, overwriting the value if an entry with
// the same key already exists.
func (m *ChainedMap[V]) Put(key string, value V) {
	if m.Load() >= chainedMaxLoad {
		m.Resize(2 * len(m.buckets))
	}
	b := m.bucket(key)
	if n := b.find(key); n != nil {
		n.value = value
		return
	}
	b.insert(key, value)
	m.used++
	m.checkInvariants()
}

// Append inserts an entry into the map without looking for an existing entry
// with the same key. Duplicate keys each occupy their own node and count
// toward Len, which lets callers recover how often a key was added. Get and
// Has observe the most recently appended duplicate.
//
// Resize re-inserts entries with Put, which collapses duplicates.
func (m *ChainedMap[V]) Append(key string, value V) {
	if m.Load() >= chainedMaxLoad {
		m.Resize(2 * len(m.buckets))
	}
	m.bucket(key).insert(key, value)
	m.used++
}

// Get retrieves the value from the map for the specified key, returning
// ok=false if the key is not present.
func (m *ChainedMap[V]) Get(key string) (value V, ok bool) {
	if n := m.bucket(key).find(key); n != nil {
		return n.value, true
	}
	return value, false
}

// Has returns true if key is present in the map.
func (m *ChainedMap[V]) Has(key string) bool {
	return m.bucket(key).find(key) != nil
}

// Delete unlinks the entry corresponding to the specified key. If the key was
// appended more than once only the most recent node is removed. It is a noop
// to delete a non-existent key.
func (m *ChainedMap[V]) Delete(key string) {
	if m.bucket(key).remove(key) {
		if debug {
			log.Debugf("delete(%s): used=%d", key, m.used)
		}
		m.used--
		m.checkInvariants()
	}
}

// Resize reallocates the bucket array with newCapacity buckets (rounded up to
// a prime) and re-inserts every entry through Put. Resize is a noop if
// newCapacity is less than 1.
func (m *ChainedMap[V]) Resize(newCapacity int) {
	if newCapacity < 1 {
		return
	}
	items := m.Items()
	if !isPrime(newCapacity) {
		newCapacity = nextPrime(newCapacity)
	}
	if debug {
		log.Debugf("resize: capacity=%d->%d used=%d", len(m.buckets), newCapacity, m.used)
	}
	m.buckets = make([]bucket[V], newCapacity)
	m.used = 0
	for _, e := range items {
		m.Put(e.Key, e.Value)
	}
	m.checkInvariants()
}

// Clear deletes all entries from the map without changing its capacity.
func (m *ChainedMap[V]) Clear() {
	m.buckets = make([]bucket[V], len(m.buckets))
	m.used = 0
}

// Items returns every entry in the map, in bucket order and then in list
// order within each bucket.
func (m *ChainedMap[V]) Items() []Entry[V] {
	items := make([]Entry[V], 0, m.used)
	m.All(func(key string, value V) bool {
		items = append(items, Entry[V]{Key: key, Value: value})
		return true
	})
	return items
}

// All calls yield sequentially for each key and value present in the map, in
// the same order as Items. If yield returns false, iteration stops.
func (m *ChainedMap[V]) All(yield func(key string, value V) bool) {
	buckets := m.buckets
	for i := range buckets {
		for n := buckets[i].head; n != nil; n = n.next {
			if !yield(n.key, n.value) {
				return
			}
		}
	}
}

// Len returns the number of entries in the map.
func (m *ChainedMap[V]) Len() int {
	return m.used
}

// Capacity returns the number of buckets in the map.
func (m *ChainedMap[V]) Capacity() int {
	return len(m.buckets)
}

// Load returns the load factor of the map: Len() / Capacity().
func (m *ChainedMap[V]) Load() float64 {
	return float64(m.used) / float64(len(m.buckets))
}

// EmptyBuckets returns the number of buckets whose list is empty.
func (m *ChainedMap[V]) EmptyBuckets() int {
	var empty int
	for i := range m.buckets {
		if m.buckets[i].length == 0 {
			empty++
		}
	}
	return empty
}

// bucket returns the bucket that key hashes to.
func (m *ChainedMap[V]) bucket(key string) *bucket[V] {
	return &m.buckets[m.hash(key)%uint64(len(m.buckets))]
}

// Verify checks the internal consistency of the map, returning an error
// describing every violation found.
func (m *ChainedMap[V]) Verify() error {
	var result *multierror.Error
	if !isPrime(len(m.buckets)) {
		result = multierror.Append(result, errors.Errorf("capacity %d is not prime", len(m.buckets)))
	}

	var used int
	for i := range m.buckets {
		b := &m.buckets[i]
		var length int
		for n := b.head; n != nil; n = n.next {
			length++
			if j := m.hash(n.key) % uint64(len(m.buckets)); j != uint64(i) {
				result = multierror.Append(result, errors.Errorf("bucket(%d): %q belongs in bucket %d", i, n.key, j))
			}
		}
		if length != b.length {
			result = multierror.Append(result, errors.Errorf("bucket(%d): found %d nodes, but length is %d", i, length, b.length))
		}
		used += length
	}
	if used != m.used {
		result = multierror.Append(result, errors.Errorf("found %d nodes, but used count is %d", used, m.used))
	}
	return result.ErrorOrNil()
}

func (m *ChainedMap[V]) checkInvariants() {
	if invariants {
		if err := m.Verify(); err != nil {
			panic(errors.Wrapf(err, "invariant failed\n%s", m.DebugString()))
		}
	}
}

// DebugString returns a rendering of every bucket in the map.
func (m *ChainedMap[V]) DebugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d\n", len(m.buckets), m.used)
	for i := range m.buckets {
		fmt.Fprintf(&buf, "  %4d:", i)
		for n := m.buckets[i].head; n != nil; n = n.next {
			fmt.Fprintf(&buf, " -> %s=%v", n.key, n.value)
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
