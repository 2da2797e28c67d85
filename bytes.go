// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "unsafe"

// AllocateBytes is a convenience wrapper around Allocate returning a
// []byte view of the block's actual payload capacity, for callers that
// would rather not juggle unsafe.Pointer directly. The returned slice's
// length is the block's real size, not the bare n requested: Allocate can
// round n up (the minPayload floor, word rounding, or split handing over a
// whole block instead of an undersized remainder), so the length is never
// 0. Callers that only care about the first n bytes may reslice down to
// b[:n] themselves; FreeBytes accepts any such reslice as long as it still
// starts at the first byte of the payload.
func (h *Heap) AllocateBytes(n int) ([]byte, error) {
	p, err := h.Allocate(n)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), readSize(blockOf(p))), nil
}

// FreeBytes releases a slice obtained from AllocateBytes. A nil slice is a
// no-op, matching Free's own nil-pointer contract. An empty but non-nil
// slice (b[:0] of a real allocation) still frees normally: AllocateBytes
// never itself returns a slice of length 0, so the only length-0 slices
// FreeBytes sees are ones a caller deliberately resliced down, and the
// underlying array still starts at the live block's payload.
func (h *Heap) FreeBytes(b []byte) {
	if b == nil {
		return
	}
	h.Free(unsafe.Pointer(unsafe.SliceData(b)))
}
