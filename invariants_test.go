// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"testing"
	"unsafe"
)

// checkInvariants walks h's free list and fails t on any violation of the
// structural invariants that hold unconditionally: link symmetry, strictly
// ascending non-overlapping address order, and the minimum payload every
// free block needs for its link slots. Address-adjacency of consecutive
// free blocks is checked separately, by callers that know they haven't
// deliberately produced the still-adjacent pair described at
// extendTripleCoalesce.
func checkInvariants(t *testing.T, h *Heap) {
	t.Helper()

	var prevNode unsafe.Pointer
	for p := h.freeListHead; p != nil; p = getNextLink(p) {
		// prev/next symmetry.
		if pl := getPrevLink(p); pl == nil {
			if h.freeListHead != p {
				t.Fatalf("block %p has nil prev but is not freeListHead", p)
			}
		} else if getNextLink(pl) != p {
			t.Fatalf("block %p: prev.next != self", p)
		}
		if nl := getNextLink(p); nl != nil && getPrevLink(nl) != p {
			t.Fatalf("block %p: next.prev != self", p)
		}

		// Minimum payload for the embedded link slots.
		if readSize(p) < minPayload {
			t.Fatalf("block %p has payload %d < minPayload %d", p, readSize(p), minPayload)
		}

		// Strictly ascending, non-overlapping order.
		if prevNode != nil {
			if uintptr(prevNode)+uintptr(sizeWordBytes)+uintptr(readSize(prevNode)) > uintptr(p) {
				t.Fatalf("free list out of order or overlapping: %p then %p", prevNode, p)
			}
		}
		prevNode = p
	}
}

// checkNoAdjacentPairs additionally asserts that no two consecutive free
// blocks are address-adjacent. Tests that deliberately engineer the
// triple-coalesce scenario must not call this.
func checkNoAdjacentPairs(t *testing.T, h *Heap) {
	t.Helper()
	var prevNode unsafe.Pointer
	for p := h.freeListHead; p != nil; p = getNextLink(p) {
		if prevNode != nil && adjacent(prevNode, p) {
			t.Fatalf("consecutive free blocks %p and %p are address-adjacent", prevNode, p)
		}
		prevNode = p
	}
}
