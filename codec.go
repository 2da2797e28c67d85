// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "unsafe"

// Word size of the size field (H) and of a free-list pointer slot (P).
// The classic C layout uses sizeof(size_t) and sizeof(void*) respectively;
// on every platform Go targets those are both the native pointer width,
// so H == P here.
const (
	sizeWordBytes = int(unsafe.Sizeof(uintptr(0))) // H
	addrWordBytes = int(unsafe.Sizeof(uintptr(0))) // P

	// minPayload is the smallest payload capacity any block -- live or
	// free -- may have: a free block's payload holds two link slots.
	minPayload = 2 * addrWordBytes
)

// A block is a raw address pointing at a header, never a typed Go value:
// the payload that follows is polymorphic in size and, while free, aliases
// the prev/next link slots a live block's caller may be using for its own
// data. All arithmetic below stays in unsafe.Pointer/uintptr space for
// exactly that reason.

// readSize returns the payload byte count stored in the header at p.
func readSize(p unsafe.Pointer) int {
	return int(*(*uintptr)(p))
}

// writeSize stores n as the payload byte count in the header at p.
func writeSize(p unsafe.Pointer, n int) {
	*(*uintptr)(p) = uintptr(n)
}

func prevLinkSlot(p unsafe.Pointer) *unsafe.Pointer {
	return (*unsafe.Pointer)(unsafe.Pointer(uintptr(p) + uintptr(sizeWordBytes)))
}

func nextLinkSlot(p unsafe.Pointer) *unsafe.Pointer {
	return (*unsafe.Pointer)(unsafe.Pointer(uintptr(p) + uintptr(sizeWordBytes+addrWordBytes)))
}

// getPrevLink and the three accessors below are defined only for blocks
// currently in the free state; a live block's link slots hold caller data.

func getPrevLink(p unsafe.Pointer) unsafe.Pointer { return *prevLinkSlot(p) }
func setPrevLink(p, q unsafe.Pointer)             { *prevLinkSlot(p) = q }
func getNextLink(p unsafe.Pointer) unsafe.Pointer { return *nextLinkSlot(p) }
func setNextLink(p, q unsafe.Pointer)             { *nextLinkSlot(p) = q }

// payloadOf returns the address handed to the caller for the block at p.
func payloadOf(p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) + uintptr(sizeWordBytes))
}

// blockOf is the inverse of payloadOf, recovering the header address a
// caller's pointer was carved from. Free uses this to re-derive the block
// a bare, size-less pointer belongs to.
func blockOf(payload unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(payload) - uintptr(sizeWordBytes))
}

// endOf returns one past the last payload byte of the block at p.
func endOf(p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) + uintptr(sizeWordBytes) + uintptr(readSize(p)))
}

// adjacent reports whether p2 begins exactly where p1 ends.
func adjacent(p1, p2 unsafe.Pointer) bool {
	return endOf(p1) == p2
}

// roundup returns n rounded up to the next multiple of m, m a power of 2.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }
