// Package lynxalloc is a general-purpose dynamic memory allocator over
// raw byte buffers obtained from the operating system's anonymous memory
// mapping facility. It provides the four canonical operations —
// allocate, release, zero-initialized allocate, and resize — tuned for
// workloads that mix many small objects with occasional large ones: a
// first-fit, segregated-per-region explicit free list with immediate
// coalescing for small requests, and a thin standalone-mapping escape
// hatch for large ones.
//
// The small-object engine (internal/region) is single-threaded at its
// core; this package serializes every public operation behind a single
// mutex so the package itself is safe for concurrent callers.
package lynxalloc

import (
	"sync"
	"unsafe"

	"github.com/orizon-lang/lynxalloc/internal/allocerrs"
	"github.com/orizon-lang/lynxalloc/internal/config"
	"github.com/orizon-lang/lynxalloc/internal/largeblock"
	"github.com/orizon-lang/lynxalloc/internal/region"
)

var (
	initOnce sync.Once
	mu       sync.Mutex
	heap     *region.Heap
	cfg      config.Config
	stats    statsState
)

func ensureInit() {
	initOnce.Do(func() {
		cfg = config.Load()
		heap = region.NewHeap(cfg.RegionSize, cfg.MinSplitSize, cfg.ReserveCapacity, cfg.ScribbleChar)
	})
}

// Allocate returns a pointer to size freshly allocated, uninitialized
// bytes, or nil on invalid input or out-of-memory. Requests above the
// configured max block size are served by a standalone OS mapping;
// everything else is served by the region-backed small-object engine.
func Allocate(size uintptr) unsafe.Pointer {
	ensureInit()

	if size == 0 {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	return allocateLocked(size)
}

func allocateLocked(size uintptr) unsafe.Pointer {
	if size > cfg.MaxBlockSize {
		payload, ok := largeblock.Alloc(size)
		if !ok {
			return nil
		}

		stats.recordLargeAlloc(uint64(largeblock.TotalSize(payload)))

		return unsafe.Pointer(payload)
	}

	payload, ok := heap.Allocate(size)
	if !ok {
		return nil
	}

	stats.recordSmallAlloc(uint64(heap.BlockSize(payload)), heap.FreeBytes())

	return unsafe.Pointer(payload)
}

// Release returns ptr's memory to the allocator. A nil pointer is a
// silent no-op.
func Release(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	ensureInit()

	mu.Lock()
	defer mu.Unlock()

	releaseLocked(uintptr(ptr))
}

func releaseLocked(payload uintptr) {
	if largeblock.IsLarge(payload) {
		total := uint64(largeblock.TotalSize(payload))
		largeblock.Release(payload)
		stats.recordLargeFree(total)

		return
	}

	blockSize := uint64(heap.BlockSize(payload))
	heap.Release(payload)
	stats.recordSmallFree(blockSize)
}

// AllocateZeroed allocates nmemb*size bytes and zero-fills them. Either
// operand being zero returns nil, matching the POSIX calloc convention;
// callers relying on that convention must be prepared for a nil result
// even though it is not an error.
func AllocateZeroed(nmemb, size uintptr) unsafe.Pointer {
	if nmemb == 0 || size == 0 {
		return nil
	}

	total, overflow := mulOverflows(nmemb, size)
	if overflow {
		return nil
	}

	ensureInit()

	mu.Lock()
	defer mu.Unlock()

	ptr := allocateLocked(total)
	if ptr == nil {
		return nil
	}

	zeroMemory(ptr, total)

	return ptr
}

// Resize changes the size of the allocation at ptr, preserving its
// contents up to the smaller of the old and new sizes. A nil ptr behaves
// like Allocate; a zero size with a non-nil ptr behaves like Release and
// returns nil. On allocation failure the original block is left intact
// and nil is returned.
func Resize(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	if ptr == nil {
		return Allocate(size)
	}

	if size == 0 {
		Release(ptr)
		return nil
	}

	ensureInit()

	mu.Lock()
	defer mu.Unlock()

	return resizeLocked(uintptr(ptr), size)
}

func resizeLocked(payload, size uintptr) unsafe.Pointer {
	if !largeblock.IsLarge(payload) {
		if heap.UsableSize(payload) > size {
			return unsafe.Pointer(payload)
		}
	}

	oldUsable := usableSizeLocked(payload)

	newPtr := allocateLocked(size)
	if newPtr == nil {
		return nil
	}

	copyLen := size
	if oldUsable < copyLen {
		copyLen = oldUsable
	}

	copyMemory(newPtr, unsafe.Pointer(payload), copyLen)
	releaseLocked(payload)

	return newPtr
}

func usableSizeLocked(payload uintptr) uintptr {
	if largeblock.IsLarge(payload) {
		return largeblock.PayloadCapacity(payload)
	}

	return heap.UsableSize(payload)
}

// ResizeArray computes nmemb*size with an overflow check before
// delegating to Resize. On overflow it returns allocerrs.ErrOverflow and
// leaves ptr valid and untouched, rather than the panic Resize's own
// logic-violation paths use — an overflowing multiplication is a caller
// mistake the allocator can report cleanly, not a corrupted heap.
func ResizeArray(ptr unsafe.Pointer, nmemb, size uintptr) (unsafe.Pointer, error) {
	total, overflow := mulOverflows(nmemb, size)
	if overflow {
		return nil, allocerrs.ErrOverflow
	}

	return Resize(ptr, total), nil
}

func mulOverflows(a, b uintptr) (uintptr, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}

	total := a * b
	if total/a != b {
		return 0, true
	}

	return total, false
}

func zeroMemory(ptr unsafe.Pointer, n uintptr) {
	b := unsafe.Slice((*byte)(ptr), int(n))
	for i := range b {
		b[i] = 0
	}
}

func copyMemory(dst, src unsafe.Pointer, n uintptr) {
	d := unsafe.Slice((*byte)(dst), int(n))
	s := unsafe.Slice((*byte)(src), int(n))
	copy(d, s)
}

// CurrentStats returns a snapshot of the allocator's observability
// counters (§6).
func CurrentStats() Stats {
	ensureInit()

	mu.Lock()
	defer mu.Unlock()

	freeBytes := heap.FreeBytes()

	return Stats{
		RegionAllocs:     heap.RegionAllocs,
		RegionFrees:      heap.RegionFrees,
		TotalAllocs:      stats.totalAllocs,
		TotalFrees:       stats.totalFrees,
		LargeBlockAllocs: stats.largeBlockAllocs,
		LargeBlockFrees:  stats.largeBlockFrees,
		BlocksChecked:    heap.BlocksChecked,
		CheckAmount:      heap.CheckAmount,
		BytesUsed:        stats.bytesUsedSmall + stats.bytesUsedLarge,
		BytesUnused:      freeBytes,
		PeakUtilization:  stats.peakUtilization,
	}
}
