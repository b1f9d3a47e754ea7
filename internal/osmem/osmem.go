//go:build unix

// Package osmem is the allocator's OS backing layer: it obtains and
// releases aligned, fixed-size regions and standalone large-block
// mappings via the operating system's anonymous memory mapping facility,
// following the golang.org/x/sys/unix syscall idiom the rest of this
// module's lineage uses for raw OS calls.
package osmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// LargePreludeSize is the fixed header every large-block mapping carries
// ahead of its payload.
const LargePreludeSize = 16

const mmapProt = unix.PROT_READ | unix.PROT_WRITE
const mmapFlags = unix.MAP_PRIVATE | unix.MAP_ANONYMOUS

// PageSize returns the OS page size.
func PageSize() uintptr {
	return uintptr(unix.Getpagesize())
}

// AcquireRegion returns the base address of a fresh, zeroed region of size
// regionSize whose base is a multiple of regionSize. To satisfy alignment
// when the kernel hands back a misaligned mapping, it maps 2*regionSize,
// locates the unique regionSize-aligned subrange inside it, and releases
// the leading and trailing unaligned slices.
func AcquireRegion(regionSize uintptr) (uintptr, error) {
	if regionSize == 0 || regionSize&(regionSize-1) != 0 {
		return 0, fmt.Errorf("osmem: region size %d is not a power of two", regionSize)
	}

	doubleSize := 2 * regionSize

	raw, err := unix.Mmap(-1, 0, int(doubleSize), mmapProt, mmapFlags)
	if err != nil {
		return 0, fmt.Errorf("osmem: mmap %d bytes: %w", doubleSize, err)
	}

	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + regionSize - 1) &^ (regionSize - 1)

	if leading := aligned - base; leading > 0 {
		if err := unmapRange(base, leading); err != nil {
			_ = unmapRange(base, doubleSize)
			return 0, err
		}
	}

	trailingStart := aligned + regionSize
	if trailing := (base + doubleSize) - trailingStart; trailing > 0 {
		if err := unmapRange(trailingStart, trailing); err != nil {
			_ = unmapRange(aligned, regionSize)
			return 0, err
		}
	}

	return aligned, nil
}

// ReleaseRegion returns a region's memory to the OS.
func ReleaseRegion(base, regionSize uintptr) error {
	return unmapRange(base, regionSize)
}

// AcquireLarge maps enough anonymous memory to hold n payload bytes plus
// the large-block prelude, rounded up to a 16-byte multiple, and returns
// the mapping's base address and total mapped size.
func AcquireLarge(n uintptr) (base uintptr, total uintptr, err error) {
	total = alignUp16(n + LargePreludeSize)
	if total < n { // overflow
		return 0, 0, fmt.Errorf("osmem: large allocation size overflow")
	}

	raw, err := unix.Mmap(-1, 0, int(total), mmapProt, mmapFlags)
	if err != nil {
		return 0, 0, fmt.Errorf("osmem: mmap %d bytes: %w", total, err)
	}

	return uintptr(unsafe.Pointer(&raw[0])), total, nil
}

// ReleaseLarge unmaps the mapping described by a large block's prelude.
func ReleaseLarge(base, total uintptr) error {
	return unmapRange(base, total)
}

func unmapRange(base, length uintptr) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(base)), int(length))
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("osmem: munmap 0x%x (%d bytes): %w", base, length, err)
	}

	return nil
}

func alignUp16(n uintptr) uintptr {
	return (n + 15) &^ 15
}
