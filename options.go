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

// option provide an interface to do work on a map while it is being created.
type option[V any] interface {
	apply(c *config[V])
}

// config holds the construction-time settings shared by OpenMap and
// ChainedMap.
type config[V any] struct {
	hash      HashFunc
	allocator Allocator[V]
}

func makeConfig[V any](options []option[V]) config[V] {
	c := config[V]{
		hash:      XXHash,
		allocator: defaultAllocator[V]{},
	}
	for _, op := range options {
		op.apply(&c)
	}
	return c
}

type hashOption[V any] struct {
	hash HashFunc
}

func (op hashOption[V]) apply(c *config[V]) {
	c.hash = op.hash
}

// WithHash is an option to specify the hash function used to place keys. The
// function must be deterministic. The default is XXHash.
func WithHash[V any](hash HashFunc) option[V] {
	return hashOption[V]{hash}
}

// Allocator specifies an interface for allocating and releasing the slot
// arrays used by an OpenMap. The default allocator utilizes Go's builtin
// make() and allows the GC to reclaim memory.
//
// If the allocator is manually managing memory then OpenMap.Close must be
// called in order to ensure FreeSlots is called for the final slot array.
type Allocator[V any] interface {
	// AllocSlots should return a slice equivalent to make([]Slot[V], n). Every
	// returned slot must be empty.
	AllocSlots(n int) []Slot[V]

	// FreeSlots can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by AllocSlots.
	FreeSlots(v []Slot[V])
}

type defaultAllocator[V any] struct{}

func (defaultAllocator[V]) AllocSlots(n int) []Slot[V] {
	return make([]Slot[V], n)
}

func (defaultAllocator[V]) FreeSlots(v []Slot[V]) {
}

type allocatorOption[V any] struct {
	allocator Allocator[V]
}

func (op allocatorOption[V]) apply(c *config[V]) {
	c.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for an
// OpenMap. A ChainedMap allocates its bucket lists node by node and ignores
// this option.
func WithAllocator[V any](allocator Allocator[V]) option[V] {
	return allocatorOption[V]{allocator}
}
