// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "unsafe"

// shrinkBreak is the indirection maybeReclaim calls to shrink the program
// break by n bytes. It defaults to h.sbrk(-n); tests override it to
// exercise the reclamation-failure path without needing to force an
// actual program-break syscall to fail.
var shrinkBreak = func(h *Heap, n int) (unsafe.Pointer, error) { return h.sbrk(-n) }

// maybeReclaim implements the reclamation policy. Callers in free.go
// invoke it after a coalesce or reinsertion that may have produced or
// extended the tail free block; it returns at once unless block.next ==
// nil, so reclamation never fires for a coalesce that still has a
// following free neighbor.
//
// block.next == nil only says block is the last entry of the free *list*;
// that entry must also physically reach the program break before it is
// safe to shrink anything. The two normally
// coincide by construction, but endOf(block) == h.brk is checked explicitly
// rather than trusted, so a free-list entry that is merely alone -- not
// actually adjacent to the break, with a live block sitting between it and
// brk -- is never mistaken for reclaimable: shrinking the break from here
// would discard that live block's memory instead of block's.
func (h *Heap) maybeReclaim(block unsafe.Pointer) {
	if getNextLink(block) != nil {
		return
	}
	if endOf(block) != h.brk {
		return
	}

	size := readSize(block)
	if size < MaxFreeBlock {
		return
	}

	prev := getPrevLink(block)
	if prev != nil {
		setNextLink(prev, nil)
	} else {
		h.freeListHead = nil
	}

	shrinkBy := size + sizeWordBytes
	if _, err := shrinkBreak(h, shrinkBy); err != nil {
		// Reclamation failure is not fatal: the tail block
		// just stays resident, relinked back where it was.
		debugf("reclaim of %d bytes failed, keeping tail resident: %v", shrinkBy, err)
		setNextLink(block, nil)
		if prev != nil {
			setNextLink(prev, block)
		} else {
			h.freeListHead = block
		}
		return
	}

	debugf("reclaimed %d bytes, program break shrunk", shrinkBy)
}
