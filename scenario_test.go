// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Scenario tests walk concrete allocate/free sequences with their
// byte counts worked out by hand for a 64-bit platform, where this
// package's codec has H = P = 8.

package malloc

import (
	"testing"
	"unsafe"
)

func TestFirstAllocationDoublesRequest(t *testing.T) {
	var h Heap

	p, err := h.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("Allocate returned nil")
	}

	if got, want := int(uintptr(h.brk)-uintptr(h.base)), 136; got != want {
		t.Fatalf("program break advanced by %d bytes, want %d", got, want)
	}
	if want := unsafe.Pointer(uintptr(h.base) + uintptr(sizeWordBytes)); p != want {
		t.Fatalf("Allocate returned %p, want %p", p, want)
	}

	checkInvariants(t, &h)
	if h.freeListHead == nil {
		t.Fatal("expected one remaining free block")
	}
	if got, want := readSize(h.freeListHead), 56; got != want {
		t.Fatalf("remaining free block has size %d, want %d", got, want)
	}
}

func TestExactFitIsNotSplit(t *testing.T) {
	var h Heap
	if _, err := h.Allocate(64); err != nil {
		t.Fatal(err)
	}

	// Free list now holds one block of size 56. Requesting exactly 56
	// must not be satisfied by it: 56 is not > 56 + H.
	before := readSize(h.freeListHead)
	if before != 56 {
		t.Fatalf("setup: free block size = %d, want 56", before)
	}

	p, err := h.Allocate(56)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("Allocate returned nil")
	}

	checkInvariants(t, &h)
	if got, want := readSize(h.freeListHead), 112; got != want {
		t.Fatalf("remaining free block has size %d, want %d", got, want)
	}
}

func TestImmediateFreeCoalescesBack(t *testing.T) {
	var h Heap
	p, err := h.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}

	h.Free(p)

	checkInvariants(t, &h)
	checkNoAdjacentPairs(t, &h)
	if h.freeListHead != h.base {
		t.Fatalf("expected single free block at heap base, got %p (base %p)", h.freeListHead, h.base)
	}
	if got, want := readSize(h.freeListHead), 128; got != want {
		t.Fatalf("coalesced free block has size %d, want %d", got, want)
	}
	if got, want := int(uintptr(h.brk)-uintptr(h.base)), 136; got != want {
		t.Fatalf("program break changed to %d bytes from base, want unchanged at %d", got, want)
	}
}

func TestLargeTailFreeShrinksBreak(t *testing.T) {
	var h Heap
	saved := MaxFreeBlock
	MaxFreeBlock = 131072
	defer func() { MaxFreeBlock = saved }()

	size := 300 * 1024
	p, err := h.Allocate(size)
	if err != nil {
		t.Fatal(err)
	}

	breakBefore := h.brk
	h.Free(p)

	if h.freeListHead != nil {
		t.Fatalf("expected free list to be emptied by reclamation, got head %p", h.freeListHead)
	}
	if h.brk == breakBefore {
		t.Fatal("expected program break to shrink after reclamation")
	}
	if uintptr(h.brk) >= uintptr(breakBefore) {
		t.Fatalf("program break %p did not shrink below %p", h.brk, breakBefore)
	}
}

// TestPrevCoalesceWinsOverNext sets up three consecutive regions
// A (free) / L (live) / C (free); freeing L coalesces only with the
// preceding neighbor A, per Free's prev-before-next priority order,
// leaving A+L address-adjacent to C -- the transient state described at
// extendTripleCoalesce, closed by whichever later operation touches the
// pair.
func TestPrevCoalesceWinsOverNext(t *testing.T) {
	var h Heap

	// Build A / L / C by carving three same-size blocks out of one
	// large allocation and freeing the outer two first.
	big, err := h.Allocate(300)
	if err != nil {
		t.Fatal(err)
	}
	_ = big
	h.Free(big)
	// Carve three same-size, contiguous live blocks A / L / C out of
	// the single free block left behind: first-fit always carves from
	// the front of whatever free block it matches, so three Allocate
	// calls in a row produce three address-adjacent live blocks.
	a, err := h.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	l, err := h.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	c, err := h.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}

	h.Free(a)
	h.Free(c)
	// Now the free list holds A (isolated, since L sits right after it
	// and is still live) and the block starting at C, which absorbed the
	// trailing remainder when freed. Freeing L must coalesce with A
	// first and leave the A+L/C pair adjacent.
	h.Free(l)

	checkInvariants(t, &h)

	count := 0
	var last unsafe.Pointer
	for p := h.freeListHead; p != nil; p = getNextLink(p) {
		count++
		last = p
	}
	if count != 2 {
		t.Fatalf("expected 2 free blocks after the documented triple-coalesce gap, got %d", count)
	}
	if !adjacent(h.freeListHead, last) {
		t.Fatal("expected the merged A+L block to remain address-adjacent to C")
	}
}

func TestZeroSizeAllocationRoundTrip(t *testing.T) {
	var h Heap

	p, err := h.Allocate(0)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("Allocate(0) returned nil")
	}

	h.Free(p)
	checkInvariants(t, &h)
	if h.allocs != 0 {
		t.Fatalf("allocs = %d, want 0", h.allocs)
	}
}

func TestAllocateZeroYieldsUsableByte(t *testing.T) {
	var h Heap
	p, err := h.Allocate(0)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("expected non-nil pointer")
	}
	// Must be safe to write at least one byte.
	*(*byte)(p) = 0xFF
	if got := *(*byte)(p); got != 0xFF {
		t.Fatal("payload byte did not round-trip")
	}
}

func TestFreeNilIsNoOp(t *testing.T) {
	var h Heap
	h.Free(nil) // must not panic even though nothing has ever been allocated
}

func TestFreeBeforeAnyAllocateAborts(t *testing.T) {
	var h Heap
	var aborted bool

	orig := fatalAbort
	fatalAbort = func() { aborted = true }
	defer func() { fatalAbort = orig }()

	var x byte
	h.Free(unsafe.Pointer(&x))

	if !aborted {
		t.Fatal("expected fatalAbort to be invoked for a free() before any Allocate()")
	}
}
