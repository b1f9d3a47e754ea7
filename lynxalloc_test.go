//go:build unix

package lynxalloc

import (
	"testing"
	"unsafe"

	"github.com/orizon-lang/lynxalloc/internal/region"
)

func TestAllocateZeroSizeReturnsNil(t *testing.T) {
	if p := Allocate(0); p != nil {
		t.Fatalf("Allocate(0) = %v, want nil", p)
	}
}

func TestReleaseNilIsNoOp(t *testing.T) {
	Release(nil) // must not panic
}

func TestAllocateWriteReadRelease(t *testing.T) {
	p := Allocate(128)
	if p == nil {
		t.Fatal("Allocate(128) returned nil")
	}

	data := unsafe.Slice((*byte)(p), 128)
	for i := range data {
		data[i] = byte(i)
	}

	for i := range data {
		if data[i] != byte(i) {
			t.Fatalf("data corruption at byte %d", i)
		}
	}

	Release(p)
}

func TestAllocateThenReleaseReclaimsRegions(t *testing.T) {
	before := CurrentStats()

	a := Allocate(24)
	b := Allocate(40)

	if a == nil || b == nil {
		t.Fatal("allocation failed")
	}

	Release(a)
	Release(b)

	after := CurrentStats()
	if after.RegionFrees-before.RegionFrees != after.RegionAllocs-before.RegionAllocs {
		t.Fatalf("region_frees did not catch up to region_allocs: allocs=%d frees=%d",
			after.RegionAllocs-before.RegionAllocs, after.RegionFrees-before.RegionFrees)
	}
}

func TestLargeAllocationTakesLargePath(t *testing.T) {
	before := CurrentStats()

	p := Allocate(10000)
	if p == nil {
		t.Fatal("Allocate(10000) returned nil")
	}

	after := CurrentStats()
	if after.LargeBlockAllocs-before.LargeBlockAllocs != 1 {
		t.Fatalf("LargeBlockAllocs delta = %d, want 1", after.LargeBlockAllocs-before.LargeBlockAllocs)
	}

	Release(p)

	final := CurrentStats()
	if final.LargeBlockFrees-before.LargeBlockFrees != 1 {
		t.Fatalf("LargeBlockFrees delta = %d, want 1", final.LargeBlockFrees-before.LargeBlockFrees)
	}
}

func TestResizeNilEqualsAllocate(t *testing.T) {
	p := Resize(nil, 32)
	if p == nil {
		t.Fatal("Resize(nil, 32) returned nil")
	}

	Release(p)
}

func TestResizeZeroSizeEqualsRelease(t *testing.T) {
	p := Allocate(32)
	if p == nil {
		t.Fatal("Allocate(32) returned nil")
	}

	before := CurrentStats()

	result := Resize(p, 0)
	if result != nil {
		t.Fatalf("Resize(p, 0) = %v, want nil", result)
	}

	after := CurrentStats()
	if after.TotalFrees != before.TotalFrees+1 {
		t.Fatalf("Resize(p,0) did not free: before=%d after=%d", before.TotalFrees, after.TotalFrees)
	}
}

func TestResizeSameSizeReturnsSamePointer(t *testing.T) {
	// A 24-byte request gets a block of at least 48 bytes, whose usable
	// size (32) is strictly greater than 24, so Resize keeps it in place.
	p := Allocate(24)
	if p == nil {
		t.Fatal("Allocate(24) returned nil")
	}

	q := Resize(p, 24)
	if q != p {
		t.Fatalf("Resize(p, 24) = %v, want unchanged %v", q, p)
	}

	Release(p)
}

func TestResizeGrowPreservesData(t *testing.T) {
	p := Allocate(16)
	if p == nil {
		t.Fatal("Allocate(16) returned nil")
	}

	data := unsafe.Slice((*byte)(p), 16)
	for i := range data {
		data[i] = byte(i + 1)
	}

	q := Resize(p, 256)
	if q == nil {
		t.Fatal("Resize(p, 256) returned nil")
	}

	grown := unsafe.Slice((*byte)(q), 16)
	for i := range grown {
		if grown[i] != byte(i+1) {
			t.Fatalf("data not preserved at byte %d", i)
		}
	}

	Release(q)
}

func TestResizeArrayOverflowLeavesPointerValid(t *testing.T) {
	p := Allocate(32)
	if p == nil {
		t.Fatal("Allocate(32) returned nil")
	}

	result, err := ResizeArray(p, ^uintptr(0), 2)
	if err == nil {
		t.Fatal("expected overflow error")
	}

	if result != nil {
		t.Fatalf("ResizeArray overflow result = %v, want nil", result)
	}

	Release(p) // must not panic: p is still valid
}

func TestAllocateZeroedZeroesMemory(t *testing.T) {
	p := Allocate(64)
	if p == nil {
		t.Fatal("Allocate(64) returned nil")
	}

	data := unsafe.Slice((*byte)(p), 64)
	for i := range data {
		data[i] = 0xFF
	}

	Release(p)

	z := AllocateZeroed(8, 8)
	if z == nil {
		t.Fatal("AllocateZeroed(8, 8) returned nil")
	}

	zdata := unsafe.Slice((*byte)(z), 64)
	for i, b := range zdata {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, b)
		}
	}

	Release(z)
}

func TestAllocateZeroedZeroOperandReturnsNil(t *testing.T) {
	if p := AllocateZeroed(0, 8); p != nil {
		t.Fatal("AllocateZeroed(0, 8) should return nil")
	}

	if p := AllocateZeroed(8, 0); p != nil {
		t.Fatal("AllocateZeroed(8, 0) should return nil")
	}
}

func TestRepeatedAllocateFreeLeavesBytesUsedUnchanged(t *testing.T) {
	before := CurrentStats()

	for i := 0; i < 1000; i++ {
		p := Allocate(16)
		if p == nil {
			t.Fatalf("allocate %d failed", i)
		}

		Release(p)
	}

	after := CurrentStats()
	if after.BytesUsed != before.BytesUsed {
		t.Fatalf("BytesUsed drifted: before=%d after=%d", before.BytesUsed, after.BytesUsed)
	}

	if after.TotalAllocs-before.TotalAllocs != after.TotalFrees-before.TotalFrees {
		t.Fatalf("total_allocs - total_frees != 0 after balanced workload")
	}
}

// TestReleaseZeroesFreeListLinksInFreedPayload exercises the one
// concrete, always-true guarantee Release makes about a freed block's
// contents: the free-list link words at payload offsets 0 and 8 are
// zeroed before the block is reinserted, so a caller's old pointer
// values never leak through the free list to the next allocation. p is
// sized so that a fresh region is split into p and one trailing block
// exactly the size of the neighbor allocation, which then takes it
// whole. With the region full, releasing p coalesces with nothing (its
// neighbors are the used sentinel and the live neighbor block) and
// reinserts it into an empty free list, so both links must read zero;
// the live neighbor also keeps the region mapped while the test reads
// the freed payload.
func TestReleaseZeroesFreeListLinksInFreedPayload(t *testing.T) {
	ensureInit()

	neighborSize := cfg.MinSplitSize
	size := region.UsableFreeBytes(cfg.RegionSize) - cfg.ReserveCapacity - heap.BlockSizeFor(neighborSize)

	p := Allocate(size)
	if p == nil {
		t.Fatalf("Allocate(%d) returned nil", size)
	}

	neighbor := Allocate(neighborSize)
	if neighbor == nil {
		t.Fatalf("Allocate(%d) returned nil", neighborSize)
	}
	defer Release(neighbor)

	Release(p)

	links := unsafe.Slice((*byte)(p), 16)
	for i, b := range links {
		if b != 0 {
			t.Fatalf("byte %d of freed payload's free-list links = %d, want 0", i, b)
		}
	}
}
