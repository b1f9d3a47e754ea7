// Package largeblock implements the allocator's escape hatch for
// requests above the small-path threshold: each large allocation is its
// own standalone anonymous mapping, never participating in a region's
// free list, counters or coalescing (§4.10).
package largeblock

import (
	"unsafe"

	"github.com/orizon-lang/lynxalloc/internal/osmem"
)

const (
	preludeSize = osmem.LargePreludeSize
	wordOffset  = preludeSize - 4 // the size-and-flags word is the prelude's last 4 bytes

	flagUsed  = uint32(1) << 0
	flagLarge = uint32(1) << 1
	flagMask  = uint32(0xF)
)

// Alloc maps n payload bytes plus the large-block prelude and returns the
// payload pointer. It returns false on OS failure.
func Alloc(n uintptr) (payload uintptr, ok bool) {
	base, total, err := osmem.AcquireLarge(n)
	if err != nil {
		return 0, false
	}

	storeWord32(base+wordOffset, uint32(total)|flagLarge|flagUsed)

	return base + preludeSize, true
}

// Release unmaps the mapping described by a large block's prelude.
func Release(payload uintptr) {
	base := payload - preludeSize
	total := uintptr(sizeOf(loadWord32(base + wordOffset)))

	_ = osmem.ReleaseLarge(base, total)
}

// IsLarge reports whether the block backing payload has the large flag
// set, by inspecting its prelude.
func IsLarge(payload uintptr) bool {
	base := payload - preludeSize
	w := loadWord32(base + wordOffset)

	return w&flagLarge != 0
}

// TotalSize returns the total mapped size (prelude + payload capacity)
// of the large block backing payload.
func TotalSize(payload uintptr) uintptr {
	base := payload - preludeSize
	return uintptr(sizeOf(loadWord32(base + wordOffset)))
}

// PayloadCapacity returns the usable payload bytes of the large block
// backing payload.
func PayloadCapacity(payload uintptr) uintptr {
	return TotalSize(payload) - preludeSize
}

func sizeOf(w uint32) uint32 { return w &^ flagMask }

func loadWord32(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr)) //nolint:govet
}

func storeWord32(addr uintptr, v uint32) {
	*(*uint32)(unsafe.Pointer(addr)) = v //nolint:govet
}
