// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.
// Modifications (c) 2024 The Malloc Authors.

package malloc

import (
	"fmt"
	"syscall"
	"unsafe"
)

const arenaReserve = 1 << 32 // 4 GiB reserved, committed on demand

const (
	memReserve  = 0x00002000
	memCommit   = 0x00001000
	memDecommit = 0x00004000
	memRelease  = 0x00008000

	pageNoAccess  = 0x01
	pageReadWrite = 0x04
)

var (
	modkernel32      = syscall.NewLazyDLL("kernel32.dll")
	procVirtualAlloc = modkernel32.NewProc("VirtualAlloc")
	procVirtualFree  = modkernel32.NewProc("VirtualFree")
)

// osPageSize is the VirtualAlloc commit granularity. 4 KiB on every
// Windows architecture Go targets; unlike the unix build this package does
// not bother querying GetSystemInfo for it.
const osPageSize = 4096

var osPageMask = osPageSize - 1

func roundupPage(n int) int   { return roundup(n, osPageSize) }
func rounddownPage(n int) int { return n &^ osPageMask }

func reserveArena(h *Heap) error {
	r, _, err := procVirtualAlloc.Call(0, uintptr(arenaReserve), memReserve, pageNoAccess)
	if r == 0 {
		return fmt.Errorf("malloc: reserve arena: VirtualAlloc(MEM_RESERVE): %w", err)
	}

	h.base = unsafe.Pointer(r)
	h.brk = h.base
	h.reserved = arenaReserve
	h.committed = 0
	return nil
}

// sbrk is this package's program-break primitive. See brk_unix.go for the
// full contract; this is the same logic driven by
// VirtualAlloc(MEM_COMMIT)/VirtualFree(MEM_DECOMMIT) instead of
// mprotect/madvise.
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
			addr := uintptr(h.base) + uintptr(lo)
			r, _, err := procVirtualAlloc.Call(addr, uintptr(hi-lo), memCommit, pageReadWrite)
			if r == 0 {
				return nil, fmt.Errorf("malloc: commit %d bytes: VirtualAlloc(MEM_COMMIT): %w", hi-lo, err)
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
		addr := uintptr(h.base) + uintptr(lo)
		r, _, err := procVirtualFree.Call(addr, uintptr(hi-lo), memDecommit)
		if r == 0 {
			return nil, fmt.Errorf("malloc: reclaim %d bytes: VirtualFree(MEM_DECOMMIT): %w", hi-lo, err)
		}
	}

	h.committed = newCommitted
	h.brk = unsafe.Pointer(uintptr(h.base) + uintptr(h.committed))
	debugf("grow_break(%d) -> %p (committed=%d)", delta, prev, h.committed)
	return prev, nil
}

// defaultFatalAbort has no SIGSEGV-equivalent self-signal on Windows
// through plain syscall, so it falls back to an unconditional panic --
// still an abnormal termination of the process when left unrecovered.
func defaultFatalAbort() {
	debugf("corruption detected: free() called before any allocate()")
	panic("malloc: corruption detected (free before any allocate)")
}
