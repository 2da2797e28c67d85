// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "unsafe"

// extendTripleCoalesce controls what happens when a freed block is
// address-adjacent to both its free-list neighbors. Left false, Free
// merges only with the preceding neighbor, leaving the following neighbor
// separately linked and still adjacent until a later operation touches
// it; the transiently adjacent pair is harmless. Flip this to true to
// additionally fold curr into the merged block.
const extendTripleCoalesce = false

// Free releases a pointer previously returned by Allocate. A nil pointer
// is a no-op, matching the free(3) contract.
//
// Passing a pointer not obtained from Allocate, or passing the same
// pointer twice, is undefined behavior: Free has no way to tell a foreign
// or already-freed pointer from a live one without a size argument.
func (h *Heap) Free(userPtr unsafe.Pointer) {
	if userPtr == nil {
		return
	}

	if h.freeListHead == nil && h.allocs == 0 {
		// free() called before any Allocate(): the one corruption
		// case this allocator can cheaply detect.
		fatalAbort()
		return
	}

	b := blockOf(userPtr)
	debugf("Free request for block %p, size %d", b, readSize(b))
	h.allocs--

	prev, curr := h.findInsertionPoint(b)

	switch {
	case prev != nil && curr != nil:
		h.freeMiddle(prev, b, curr)
	case prev != nil && curr == nil:
		h.freeTail(prev, b)
	case prev == nil && curr != nil:
		h.freeHead(b, curr)
	default:
		// prev == nil && curr == nil: the free list is empty.
		// maybeReclaim can legitimately empty the list while live
		// allocations remain elsewhere in the heap, which is why the
		// corruption check above also requires allocs == 0. b becomes
		// the new, sole free-list entry.
		setPrevLink(b, nil)
		setNextLink(b, nil)
		h.freeListHead = b
		debugf("inserted %p as sole free-list entry", b)
		h.maybeReclaim(b)
	}
}

// findInsertionPoint walks the free list, which is kept in ascending
// address order, and returns the last block before b (prev, possibly nil)
// and the first block at or after b (curr, possibly nil).
func (h *Heap) findInsertionPoint(b unsafe.Pointer) (prev, curr unsafe.Pointer) {
	curr = h.freeListHead
	for curr != nil && uintptr(curr) < uintptr(b) {
		prev = curr
		curr = getNextLink(curr)
	}
	return prev, curr
}

// freeMiddle handles a freed block with neighbors on both sides:
// prev-adjacency first, then next-adjacency, then the isolated splice.
// That ordering is what leaves the still-adjacent pair
// extendTripleCoalesce describes when b touches both neighbors.
func (h *Heap) freeMiddle(prev, b, curr unsafe.Pointer) {
	switch {
	case adjacent(prev, b):
		writeSize(prev, readSize(prev)+sizeWordBytes+readSize(b))
		debugf("coalesced %p into preceding free block %p (new size %d)", b, prev, readSize(prev))
		if extendTripleCoalesce && adjacent(prev, curr) {
			writeSize(prev, readSize(prev)+sizeWordBytes+readSize(curr))
			setNextLink(prev, getNextLink(curr))
			if n := getNextLink(prev); n != nil {
				setPrevLink(n, prev)
			}
			h.maybeReclaim(prev)
		}
		// curr's links already point at prev; no relinking needed,
		// and no reclamation check: curr still follows, so this
		// cannot have produced or extended the tail.
	case adjacent(b, curr):
		writeSize(b, readSize(b)+sizeWordBytes+readSize(curr))
		setNextLink(prev, b)
		setPrevLink(b, prev)
		setNextLink(b, getNextLink(curr))
		if n := getNextLink(curr); n != nil {
			setPrevLink(n, b)
		}
		debugf("coalesced %p with following free block (new size %d)", b, readSize(b))
		h.maybeReclaim(b)
	default:
		setNextLink(prev, b)
		setPrevLink(curr, b)
		setPrevLink(b, prev)
		setNextLink(b, curr)
		debugf("spliced %p between %p and %p", b, prev, curr)
	}
}

// freeTail handles a freed block that becomes (part of) the new end of the
// free list: either it coalesces into the previous tail, or it is
// appended after it.
func (h *Heap) freeTail(prev, b unsafe.Pointer) {
	if adjacent(prev, b) {
		writeSize(prev, readSize(prev)+sizeWordBytes+readSize(b))
		debugf("coalesced %p into preceding tail block %p (new size %d)", b, prev, readSize(prev))
		h.maybeReclaim(prev)
		return
	}

	setNextLink(prev, b)
	setPrevLink(b, prev)
	setNextLink(b, nil)
	debugf("appended %p at tail of free list", b)
}

// freeHead handles a freed block that becomes (part of) the new start of
// the free list: either it coalesces with the current head, or it is
// prepended before it.
func (h *Heap) freeHead(b, curr unsafe.Pointer) {
	if adjacent(b, curr) {
		writeSize(b, readSize(b)+sizeWordBytes+readSize(curr))
		next := getNextLink(curr)
		setPrevLink(b, nil)
		setNextLink(b, next)
		if next != nil {
			setPrevLink(next, b)
		}
		h.freeListHead = b
		debugf("coalesced %p with free-list head (new size %d)", b, readSize(b))
		h.maybeReclaim(b)
		return
	}

	setPrevLink(curr, b)
	setPrevLink(b, nil)
	setNextLink(b, curr)
	h.freeListHead = b
	debugf("prepended %p as new free-list head", b)
}
