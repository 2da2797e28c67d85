// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"unsafe"
)

// Allocate returns a pointer to at least n writable payload bytes, carved
// from h's free list or from freshly grown heap, or an error if the
// program-break primitive fails. It panics for n < 0.
//
// n == 0 is silently treated as n == 1, an implementation-defined choice
// SUSv3 permits for malloc(0).
//
// The returned pointer is word-aligned and may be passed to h.Free exactly
// once.
func (h *Heap) Allocate(n int) (unsafe.Pointer, error) {
	if n < 0 {
		panic("malloc: negative allocation size")
	}
	if n == 0 {
		n = 1
	}
	if n < minPayload {
		// Every live block must be freeable: a freed block's payload
		// holds the two embedded link slots. Round up rather than
		// hand out a block too small to ever carry them.
		n = minPayload
	}
	// Keep every block size a whole number of words so that the headers
	// and payloads laid out after this block stay word-aligned.
	n = roundup(n, sizeWordBytes)

	debugf("Allocate request of size %d", n)

	if h.freeListHead == nil {
		if err := h.initFreeList(n); err != nil {
			return nil, err
		}
	}

	p := h.firstFit(n)
	if p != nil {
		h.allocs++
		return h.split(p, n), nil
	}

	// No free block large enough: grow the break and retry against the
	// (now larger) tail. tail may legitimately be the only block in the
	// free list -- the head -- if it was simply too small.
	tail := h.lastFree()
	growBy := 2*n + sizeWordBytes
	debugf("no large enough free block, growing break by %d bytes", growBy)
	prevBrk, err := h.sbrk(growBy)
	if err != nil {
		debugf("grow_break failed: %v", err)
		return nil, err
	}

	if endOf(tail) == prevBrk {
		writeSize(tail, readSize(tail)+growBy)
	} else {
		// The list's last entry stops short of the old break: a live
		// block sits between them, so extending it would swallow that
		// block's bytes. Lay a fresh free block over the grown region
		// and append it instead.
		nb := prevBrk
		writeSize(nb, growBy-sizeWordBytes)
		setPrevLink(nb, tail)
		setNextLink(nb, nil)
		setNextLink(tail, nb)
		tail = nb
	}
	h.allocs++
	return h.split(tail, n), nil
}

// initFreeList lazily creates h's one and only free block on the first
// Allocate call that finds the list empty. It reserves 2n + H bytes
// rather than the n + H strictly needed, a doubling heuristic meant to
// absorb a few more allocations before the break has to grow again.
func (h *Heap) initFreeList(n int) error {
	size := 2*n + sizeWordBytes
	p, err := h.sbrk(size)
	if err != nil {
		return err
	}

	writeSize(p, 2*n)
	setPrevLink(p, nil)
	setNextLink(p, nil)
	h.freeListHead = p
	debugf("created free list at %p, size %d", p, 2*n)
	return nil
}

// firstFit walks the free list for the first block whose payload is
// strictly larger than n + H -- the strict inequality, not >=, because a
// block of exactly n + H bytes has no room left for the remainder's own
// header once split. It returns nil if no block qualifies.
//
// A tail candidate (next == nil) whose remainder would come out under
// minPayload is skipped when it has a predecessor in the free list: split
// would then hand it over whole and promote that predecessor to list tail
// (see split), but the predecessor does not itself reach the program break
// -- the live block just carved from the true tail now sits in between, so
// a later reclamation could shrink the break into memory the list does not
// actually own. Skipping it here sends Allocate down the growth
// path instead, which extends this same block by enough that the retry's
// remainder is never undersized.
func (h *Heap) firstFit(n int) unsafe.Pointer {
	for p := h.freeListHead; p != nil; p = getNextLink(p) {
		size := readSize(p)
		if size <= n+sizeWordBytes {
			continue
		}
		if size-n-sizeWordBytes < minPayload && getNextLink(p) == nil && getPrevLink(p) != nil {
			continue
		}
		return p
	}
	return nil
}

// lastFree returns the tail of the free list (by list order, which the
// sorted-insertion discipline keeps equal to address order), or the head
// itself if the list has exactly one entry.
func (h *Heap) lastFree() unsafe.Pointer {
	p := h.freeListHead
	for {
		next := getNextLink(p)
		if next == nil {
			return p
		}
		p = next
	}
}

// split carves an n-byte live block off the front of the free block at p,
// relinks whatever remainder is left into p's old slot in the free list,
// and returns the payload pointer for the live block.
//
// firstFit only guarantees readSize(p) > n + H, which leaves room for the
// remainder's header but not necessarily for the remainder's own link
// slots once it is freed. When the remainder would come out smaller than
// minPayload, split instead hands the whole block p to the caller unsplit
// -- a free block too small for its links could never rejoin the list.
func (h *Heap) split(p unsafe.Pointer, n int) unsafe.Pointer {
	orig := readSize(p)
	prevB := getPrevLink(p)
	nextB := getNextLink(p)

	if orig-n-sizeWordBytes < minPayload {
		if prevB != nil {
			setNextLink(prevB, nextB)
		} else {
			h.freeListHead = nextB
		}
		if nextB != nil {
			setPrevLink(nextB, prevB)
		}
		debugf("no split: %p handed whole (size %d) to satisfy request of %d", p, orig, n)
		return payloadOf(p)
	}

	remainder := unsafe.Pointer(uintptr(p) + uintptr(sizeWordBytes+n))

	writeSize(p, n)
	writeSize(remainder, orig-n-sizeWordBytes)
	setPrevLink(remainder, prevB)
	setNextLink(remainder, nextB)

	if prevB != nil {
		setNextLink(prevB, remainder)
	} else {
		h.freeListHead = remainder
	}
	if nextB != nil {
		setPrevLink(nextB, remainder)
	}

	debugf("split %p: live=%d remainder=%d at %p", p, n, orig-n-sizeWordBytes, remainder)
	return payloadOf(p)
}
