// Package region implements the small-object engine: the region-based
// backing store, the boundary-tag block format, the segregated explicit
// free list threaded through block payloads, and the coalescing/splitting
// logic that preserves the allocator's structural invariants.
//
// The package is intentionally single-threaded (see the allocator design's
// concurrency model) — callers that need multithreaded safety wrap every
// public operation of the façade package in a single mutex.
package region

import "unsafe"

const (
	// wordSize is the width of a header or footer word.
	wordSize = 8
	// pointerSize is the width of a free-list link.
	pointerSize = 8
	// blockAlign is the mandatory block-size and payload alignment.
	blockAlign = 16

	flagUsed  = uint64(1) << 0
	flagLarge = uint64(1) << 1
	flagMask  = uint64(0xF)

	// minBlockSize is the smallest legal block: header + footer + two
	// free-list pointers, rounded up to the block alignment. It doubles
	// as the minimum free-block size (I2) since a used block never needs
	// to store free-list pointers.
	minBlockSize = wordSize + wordSize + 2*pointerSize

	// regionHeaderSize covers the region's bookkeeping fields, stored at
	// the very start of the mapped region: nFree, nUsed, next, prev,
	// start (sentinel address) and blockList (free-list head address).
	regionHeaderSize = 6 * wordSize

	// sentinelOffset is the first 16-byte-boundary-compatible block
	// position after the region header: block headers must sit at an
	// address congruent to wordSize (mod blockAlign) so that header+8
	// (the payload) lands on a 16-byte boundary.
	sentinelOffset = ((regionHeaderSize + wordSize + blockAlign - 1) &^ (blockAlign - 1)) - wordSize

	// sentinelSize is the minimal legal block size, used for both the
	// leading sentinel and as the floor for split decisions.
	sentinelSize = minBlockSize

	// terminatorSize is the single word marking the end of a region.
	terminatorSize = wordSize
)

func init() {
	if sentinelOffset%blockAlign != wordSize%blockAlign {
		panic("region: sentinelOffset does not yield 16-byte aligned payloads")
	}
}

// sizeOf, usedOf and largeOf decode a boundary-tag word; makeWord
// encodes one.
func sizeOf(word uint64) uintptr   { return uintptr(word &^ flagMask) }
func usedOf(word uint64) bool      { return word&flagUsed != 0 }
func largeOf(word uint64) bool     { return word&flagLarge != 0 }
func makeWord(size uintptr, used bool) uint64 {
	w := uint64(size)
	if used {
		w |= flagUsed
	}

	return w
}

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// Raw memory access. These addresses refer to OS-mapped memory obtained
// from osmem, not to Go-managed objects, so converting a bare uintptr to
// unsafe.Pointer here does not risk the memory being moved or collected
// out from under us.

func loadWord(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr)) //nolint:govet
}

func storeWord(addr uintptr, v uint64) {
	*(*uint64)(unsafe.Pointer(addr)) = v //nolint:govet
}

func loadUintptr(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr)) //nolint:govet
}

func storeUintptr(addr uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v //nolint:govet
}

func zeroRange(addr, length uintptr) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(length)) //nolint:govet
	for i := range b {
		b[i] = 0
	}
}

func fillRange(addr, length uintptr, fill byte) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(length)) //nolint:govet
	for i := range b {
		b[i] = fill
	}
}

func copyRange(dst, src, length uintptr) {
	d := unsafe.Slice((*byte)(unsafe.Pointer(dst)), int(length)) //nolint:govet
	s := unsafe.Slice((*byte)(unsafe.Pointer(src)), int(length)) //nolint:govet
	copy(d, s)
}
