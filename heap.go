// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "unsafe"

// MaxFreeBlock is the tail-shrink threshold of the reclamation policy (see
// reclaim.go): once the tail free block's payload reaches this size, its
// bytes are handed back to the program-break primitive.
var MaxFreeBlock = 128 * 1024

// Heap is the process-heap registry and free-list allocator. Its zero
// value is ready for use: the underlying arena and free list are created
// lazily by the first call to Allocate.
//
// A Heap is not safe for concurrent use -- the allocator core has no
// synchronization of its own.
type Heap struct {
	// freeListHead is the address of the first free block in address
	// order, or nil if no free blocks exist. This is the "registry"
	// component: all public operations read and mutate it.
	freeListHead unsafe.Pointer

	// base is the first byte of the heap this Heap owns (heap_base);
	// nil until the arena backing this Heap has been reserved.
	base unsafe.Pointer

	// brk is the current program break: base + committed bytes.
	brk unsafe.Pointer

	// reserved is the size, in bytes, of the virtual address range
	// reserved for this heap's growth. committed is how much of that
	// range is currently backed by real pages (brk - base).
	reserved  int
	committed int

	// allocs counts outstanding (live) allocations. Beyond backing
	// Stats, it is load-bearing for Free's corruption check: an empty
	// free list is only corruption when allocs == 0 (free called before
	// any Allocate); maybeReclaim can legitimately empty the list while
	// allocs > 0 (live blocks elsewhere in the heap), so that state must
	// not abort.
	allocs int
}

// Stats reports a read-only snapshot of a Heap's footprint. It exists for
// observability only and takes part in none of the allocator's invariants.
type Stats struct {
	HeapBase     uintptr
	ProgramBreak uintptr
	LiveAllocs   int
	FreeBlocks   int
}

// Stats returns the current extent of h's heap and a count of its live and
// free blocks.
func (h *Heap) Stats() Stats {
	free := 0
	for p := h.freeListHead; p != nil; p = getNextLink(p) {
		free++
	}
	return Stats{
		HeapBase:     uintptr(h.base),
		ProgramBreak: uintptr(h.brk),
		LiveAllocs:   h.allocs,
		FreeBlocks:   free,
	}
}

// DefaultHeap is the package-level heap backing the Allocate/Free
// convenience functions, for callers that want a single global allocator
// in the style of the C malloc/free pair this package replaces.
var DefaultHeap Heap

// Allocate requests n payload bytes from DefaultHeap. See (*Heap).Allocate.
func Allocate(n int) (unsafe.Pointer, error) { return DefaultHeap.Allocate(n) }

// Free releases a pointer previously returned by Allocate on DefaultHeap.
// See (*Heap).Free.
func Free(p unsafe.Pointer) { DefaultHeap.Free(p) }
