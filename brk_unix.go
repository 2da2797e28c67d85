// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Modifications (c) 2024 The Malloc Authors.

//go:build darwin || dragonfly || freebsd || linux || openbsd || netbsd

package malloc

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// arenaReserve is the size of the virtual address range reserved, but not
// committed, for a Heap's growth. Reserving it up front means sbrk never
// has to move the heap -- block addresses handed to callers must stay
// valid -- it only ever changes how much of an already-fixed range is
// backed by real pages.
const arenaReserve = 1 << 32 // 4 GiB of address space, no physical cost until touched

var osPageSize = os.Getpagesize()
var osPageMask = osPageSize - 1

func roundupPage(n int) int   { return roundup(n, osPageSize) }
func rounddownPage(n int) int { return n &^ osPageMask }

// reserveArena backs h with a fresh, all-PROT_NONE virtual mapping. Called
// lazily by sbrk the first time it is asked to grow a Heap whose arena
// does not exist yet.
func reserveArena(h *Heap) error {
	b, err := unix.Mmap(-1, 0, arenaReserve, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return fmt.Errorf("malloc: reserve arena: %w", err)
	}

	h.base = unsafe.Pointer(&b[0])
	h.brk = h.base
	h.reserved = arenaReserve
	h.committed = 0
	return nil
}

// sbrk is this package's program-break primitive. delta > 0 grows the
// break, delta < 0 shrinks it, delta == 0 just reports the current break.
// It returns the break's value *before* the call, matching the classic
// sbrk(2) contract, but failure is reported as a Go error rather than
// encoded in the return pointer as sbrk(2)'s (void *)-1 sentinel.
func (h *Heap) sbrk(delta int) (unsafe.Pointer, error) {
	if h.base == nil {
		if err := reserveArena(h); err != nil {
			return nil, err
		}
	}

	prev := h.brk
	if delta == 0 {
		return prev, nil
	}

	if delta > 0 {
		newCommitted := h.committed + delta
		if newCommitted > h.reserved {
			return nil, fmt.Errorf("malloc: heap exhausted: arena of %d bytes cannot grow by %d more on top of %d committed", h.reserved, delta, h.committed)
		}

		lo := rounddownPage(h.committed)
		hi := roundupPage(newCommitted)
		if hi > lo {
			region := arenaBytes(h, lo, hi-lo)
			if err := unix.Mprotect(region, unix.PROT_READ|unix.PROT_WRITE); err != nil {
				return nil, fmt.Errorf("malloc: commit %d bytes: %w", hi-lo, err)
			}
		}

		h.committed = newCommitted
		h.brk = unsafe.Pointer(uintptr(h.base) + uintptr(h.committed))
		debugf("grow_break(+%d) -> %p (committed=%d)", delta, prev, h.committed)
		return prev, nil
	}

	shrink := -delta
	if shrink > h.committed {
		shrink = h.committed
	}
	newCommitted := h.committed - shrink

	lo := roundupPage(newCommitted)
	hi := roundupPage(h.committed)
	if hi > lo {
		region := arenaBytes(h, lo, hi-lo)
		if err := unix.Madvise(region, unix.MADV_DONTNEED); err != nil {
			return nil, fmt.Errorf("malloc: reclaim %d bytes: madvise: %w", hi-lo, err)
		}
		if err := unix.Mprotect(region, unix.PROT_NONE); err != nil {
			return nil, fmt.Errorf("malloc: reclaim %d bytes: mprotect: %w", hi-lo, err)
		}
	}

	h.committed = newCommitted
	h.brk = unsafe.Pointer(uintptr(h.base) + uintptr(h.committed))
	debugf("grow_break(%d) -> %p (committed=%d)", delta, prev, h.committed)
	return prev, nil
}

// arenaBytes returns a []byte view of the off..off+n range of h's
// reserved arena, for handing to unix.Mprotect/unix.Madvise which both
// operate on byte slices rather than raw pointers.
func arenaBytes(h *Heap, off, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(h.base)+uintptr(off))), n)
}

// defaultFatalAbort delivers SIGSEGV to the current process, the same
// crash signature misuse of a C allocator would produce.
func defaultFatalAbort() {
	debugf("corruption detected: free() called before any allocate()")
	_ = syscall.Kill(os.Getpid(), syscall.SIGSEGV)
	panic("malloc: corruption detected (free before any allocate)")
}
