// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package malloc implements a drop-in replacement for the process-heap
// allocator: a single contiguous heap grown and shrunk through a
// program-break primitive, backed by an address-ordered doubly linked
// free list whose prev/next pointers live inside the payload of the free
// blocks themselves.
//
// A Heap's zero value is ready for use. The free list is lazily created on
// the first call to Allocate; there is no separate Init step.
//
//	var h malloc.Heap
//	p, err := h.Allocate(64)
//	...
//	h.Free(p)
//
// The package also exposes a package-level Heap (DefaultHeap) and
// Allocate/Free wrappers around it, for callers that want the classic
// single global malloc/free pair.
//
// Thread safety, alignment beyond the machine word, zero-initialization,
// realloc-style resizing and large-allocation mmap fallback are explicitly
// out of scope.
package malloc
