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

// Package hashtable implements string-keyed hash tables over prime sized
// slot arrays with two interchangeable collision resolution strategies:
//
//   - OpenMap uses open addressing with quadratic probing. Deleted entries
//     are left in place as tombstones so that later probes for colliding
//     keys are not cut short.
//   - ChainedMap uses separate chaining. Each bucket holds a singly linked
//     list of entries and deletion unlinks the node.
//
// # Capacity
//
// The capacity of both tables is always prime. A requested capacity is
// rounded up to the next prime at construction and on Resize. Probing
// modulo a prime spreads clustered hash values (such as the byte sums
// produced by SumHash) across the whole table.
//
// # Growth
//
// Growth is checked before each insertion. OpenMap doubles its capacity once
// the load factor (live entries / capacity) reaches 1/2, ChainedMap once it
// reaches 1. A resize snapshots the live entries, reallocates the backing
// array and re-inserts each entry through Put, so the growth check
// re-applies while the table is being repopulated. Tables never shrink on
// delete.
//
// Neither table is goroutine-safe.
package hashtable

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// openMaxLoad is the load factor at which OpenMap grows before inserting.
// Quadratic probing over a prime capacity is only guaranteed to find an
// empty slot while the table is less than half full.
const openMaxLoad = 0.5

// Each slot in an OpenMap has a control value which can have one of three
// states. The zero value is empty so that a freshly allocated slot array
// needs no initialization.
type ctrl uint8

const (
	ctrlEmpty ctrl = iota
	ctrlFull
	ctrlDeleted
)

func (c ctrl) String() string {
	switch c {
	case ctrlEmpty:
		return "empty"
	case ctrlFull:
		return "full"
	case ctrlDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("ctrl(%d)", uint8(c))
	}
}

// Slot holds a key and value. A tombstoned slot keeps its key so that a
// later Put of the same key reactivates it in place.
type Slot[V any] struct {
	key   string
	value V
	ctrl  ctrl
}

// Entry is a key/value pair returned by Items.
type Entry[V any] struct {
	Key   string
	Value V
}

// OpenMap is a string-keyed hash table using open addressing with quadratic
// probing and tombstone deletion.
//
// An OpenMap is NOT goroutine-safe.
type OpenMap[V any] struct {
	// The hash function applied to each key.
	hash HashFunc
	// The allocator to use for the slots slice.
	allocator Allocator[V]
	// The slot array. Its length is the capacity and is always prime.
	slots []Slot[V]
	// The number of live (full) slots. Tombstones are not counted.
	used int
}

// NewOpenMap constructs a new OpenMap whose capacity is the smallest prime
// >= initialCapacity (see nextPrime).
func NewOpenMap[V any](initialCapacity int, options ...option[V]) *OpenMap[V] {
	c := makeConfig(options)
	m := &OpenMap[V]{
		hash:      c.hash,
		allocator: c.allocator,
	}
	m.slots = m.allocator.AllocSlots(nextPrime(initialCapacity))
	m.checkInvariants()
	return m
}

// Close releases the slot array back to the configured allocator. It is
// unnecessary to close a map using the default allocator. It is invalid to
// use an OpenMap after it has been closed, though Close itself is
// idempotent.
func (m *OpenMap[V]) Close() {
	if m.slots != nil {
		m.allocator.FreeSlots(m.slots)
		m.slots = nil
		m.used = 0
	}
}

// Put inserts an entry into the map, overwriting the value if an entry with
// the same key already exists. Putting a key whose slot holds a tombstone
// revives the slot.
func (m *OpenMap[V]) Put(key string, value V) {
	// Growth is decided on the load factor before the insertion, whether or
	// not the key turns out to be present.
	if m.Load() >= openMaxLoad {
		m.Resize(2 * len(m.slots))
	}

	for {
		i, ok := m.find(key)
		if !ok {
			// Every slot on the probe path is full or a tombstone. Growing
			// drops the tombstones, so the retry is guaranteed to make
			// progress.
			if debug {
				log.Debugf("put(%s): probe exhausted capacity=%d used=%d", key, len(m.slots), m.used)
			}
			m.Resize(2 * len(m.slots))
			continue
		}

		s := &m.slots[i]
		switch s.ctrl {
		case ctrlEmpty:
			if debug {
				log.Debugf("put(%s): inserting index=%d", key, i)
			}
			*s = Slot[V]{key: key, value: value, ctrl: ctrlFull}
			m.used++
		case ctrlDeleted:
			if debug {
				log.Debugf("put(%s): reviving index=%d", key, i)
			}
			s.ctrl = ctrlFull
			s.value = value
			m.used++
		default:
			if debug {
				log.Debugf("put(%s): updating index=%d", key, i)
			}
			s.value = value
		}
		m.checkInvariants()
		return
	}
}

// Get retrieves the value from the map for the specified key, returning
// ok=false if the key is not present or has been deleted.
func (m *OpenMap[V]) Get(key string) (value V, ok bool) {
	i, ok := m.find(key)
	if !ok || m.slots[i].ctrl != ctrlFull {
		return value, false
	}
	return m.slots[i].value, true
}

// Has returns true if key is present in the map.
func (m *OpenMap[V]) Has(key string) bool {
	i, ok := m.find(key)
	return ok && m.slots[i].ctrl == ctrlFull
}

// Delete deletes the entry corresponding to the specified key from the map.
// The slot is marked as a tombstone rather than emptied: emptying it would
// terminate the probe sequence of any key that collided with it. It is a
// noop to delete a non-existent key.
func (m *OpenMap[V]) Delete(key string) {
	i, ok := m.find(key)
	if !ok || m.slots[i].ctrl != ctrlFull {
		return
	}
	if debug {
		log.Debugf("delete(%s): index=%d used=%d", key, i, m.used)
	}
	s := &m.slots[i]
	var zero V
	s.value = zero
	s.ctrl = ctrlDeleted
	m.used--
	m.checkInvariants()
}

// Resize reallocates the slot array with room for newCapacity slots
// (rounded up to a prime) and re-inserts every live entry. Tombstones are
// dropped in the process. Resize is a noop if newCapacity is less than the
// number of live entries.
//
// Entries are re-inserted through Put, so a newCapacity that is small
// relative to Len triggers further growth while the table is repopulated.
func (m *OpenMap[V]) Resize(newCapacity int) {
	if newCapacity < m.used {
		return
	}
	items := m.Items()
	if !isPrime(newCapacity) {
		newCapacity = nextPrime(newCapacity)
	}
	if debug {
		log.Debugf("resize: capacity=%d->%d used=%d", len(m.slots), newCapacity, m.used)
	}

	oldSlots := m.slots
	m.slots = m.allocator.AllocSlots(newCapacity)
	m.used = 0
	m.allocator.FreeSlots(oldSlots)

	for _, e := range items {
		m.Put(e.Key, e.Value)
	}
	m.checkInvariants()
}

// Clear deletes all entries from the map without changing its capacity.
func (m *OpenMap[V]) Clear() {
	oldSlots := m.slots
	m.slots = m.allocator.AllocSlots(len(oldSlots))
	m.used = 0
	m.allocator.FreeSlots(oldSlots)
	m.checkInvariants()
}

// Items returns the live entries of the map in slot order.
func (m *OpenMap[V]) Items() []Entry[V] {
	items := make([]Entry[V], 0, m.used)
	for i := range m.slots {
		if s := &m.slots[i]; s.ctrl == ctrlFull {
			items = append(items, Entry[V]{Key: s.key, Value: s.value})
		}
	}
	return items
}

// All calls yield sequentially for each key and value present in the map,
// in slot order. If yield returns false, iteration stops. The map can be
// mutated during iteration, though there is no guarantee that the mutations
// will be visible to the iteration.
func (m *OpenMap[V]) All(yield func(key string, value V) bool) {
	it := m.Iter()
	for {
		k, v, ok := it.Next()
		if !ok || !yield(k, v) {
			return
		}
	}
}

// Iter returns an iterator over the live entries of the map in slot order.
// Each call returns an independent iterator, so multiple traversals can be
// in progress at once.
func (m *OpenMap[V]) Iter() *Iterator[V] {
	// Snapshot the slots so that a resize during iteration does not move
	// the ground beneath the cursor.
	return &Iterator[V]{slots: m.slots}
}

// Len returns the number of live entries in the map.
func (m *OpenMap[V]) Len() int {
	return m.used
}

// Capacity returns the number of slots in the map.
func (m *OpenMap[V]) Capacity() int {
	return len(m.slots)
}

// Load returns the load factor of the map: Len() / Capacity().
func (m *OpenMap[V]) Load() float64 {
	return float64(m.used) / float64(len(m.slots))
}

// EmptyBuckets returns Capacity() - Len(). Tombstoned slots are counted as
// empty even though they still occupy a position in the slot array.
func (m *OpenMap[V]) EmptyBuckets() int {
	return len(m.slots) - m.used
}

// find walks the probe sequence for key and returns the index of the first
// slot that is either empty or holds key, live or tombstoned. ok is false if
// the probe sequence was exhausted without reaching such a slot.
func (m *OpenMap[V]) find(key string) (i int, ok bool) {
	seq := makeProbeSeq(m.hash(key), len(m.slots))
	if debug {
		log.Debugf("find(%s): %s", key, seq)
	}
	for ; !seq.exhausted(); seq = seq.next() {
		s := &m.slots[seq.offset]
		if s.ctrl == ctrlEmpty || s.key == key {
			return int(seq.offset), true
		}
		if debug {
			log.Debugf("find(%s): skipping index=%d key=%s ctrl=%s", key, seq.offset, s.key, s.ctrl)
		}
	}
	return -1, false
}

// Verify checks the internal consistency of the map, returning an error
// describing every violation found.
func (m *OpenMap[V]) Verify() error {
	var result *multierror.Error
	if !isPrime(len(m.slots)) {
		result = multierror.Append(result, errors.Errorf("capacity %d is not prime", len(m.slots)))
	}

	var used int
	for i := range m.slots {
		s := &m.slots[i]
		switch s.ctrl {
		case ctrlEmpty:
			continue
		case ctrlFull:
			used++
		case ctrlDeleted:
		default:
			result = multierror.Append(result, errors.Errorf("slot(%d): unexpected %s", i, s.ctrl))
			continue
		}
		// Every occupied slot, live or tombstoned, must be the first slot on
		// its key's probe path that matches the key or is empty.
		if j, ok := m.find(s.key); !ok || j != i {
			result = multierror.Append(result, errors.Errorf("slot(%d): %q not found (found at %d, ok=%t)", i, s.key, j, ok))
		}
	}
	if used != m.used {
		result = multierror.Append(result, errors.Errorf("found %d used slots, but used count is %d", used, m.used))
	}
	return result.ErrorOrNil()
}

func (m *OpenMap[V]) checkInvariants() {
	if invariants {
		if err := m.Verify(); err != nil {
			panic(errors.Wrapf(err, "invariant failed\n%s", m.DebugString()))
		}
	}
}

// DebugString returns a rendering of every slot in the map.
func (m *OpenMap[V]) DebugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d\n", len(m.slots), m.used)
	for i := range m.slots {
		switch s := &m.slots[i]; s.ctrl {
		case ctrlEmpty:
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		case ctrlDeleted:
			fmt.Fprintf(&buf, "  %4d: deleted %s\n", i, s.key)
		default:
			fmt.Fprintf(&buf, "  %4d: %s=%v\n", i, s.key, s.value)
		}
	}
	return buf.String()
}

// Iterator is a single pass cursor over the live entries of an OpenMap. It
// cannot be restarted; call OpenMap.Iter again for a fresh traversal.
type Iterator[V any] struct {
	slots []Slot[V]
	index int
}

// Next returns the next live entry in slot order, skipping empty and
// tombstoned slots. ok is false once the end of the slot array is reached.
func (it *Iterator[V]) Next() (key string, value V, ok bool) {
	for it.index < len(it.slots) {
		s := &it.slots[it.index]
		it.index++
		if s.ctrl == ctrlFull {
			return s.key, s.value, true
		}
	}
	return key, value, false
}

// probeSeq maintains the state for a quadratic probe sequence of the form
//
//	p(i) := (hash + i^2) mod capacity
//
// for i = 0, 1, 2, ... With a prime capacity the first (capacity+1)/2 offsets
// are distinct, which is why the map keeps its load factor below 1/2. The
// sequence is considered exhausted after capacity steps.
type probeSeq struct {
	capacity uint64
	base     uint64
	offset   uint64
	index    uint64
}

func makeProbeSeq(hash uint64, capacity int) probeSeq {
	c := uint64(capacity)
	return probeSeq{
		capacity: c,
		base:     hash % c,
		offset:   hash % c,
	}
}

func (s probeSeq) next() probeSeq {
	s.index++
	s.offset = (s.base + s.index*s.index) % s.capacity
	return s
}

func (s probeSeq) exhausted() bool {
	return s.index >= s.capacity
}

func (s probeSeq) String() string {
	return fmt.Sprintf("capacity=%d base=%d offset=%d index=%d", s.capacity, s.base, s.offset, s.index)
}
