package region

import (
	"github.com/orizon-lang/lynxalloc/internal/allocerrs"
	"github.com/orizon-lang/lynxalloc/internal/osmem"
)

// Heap is the small-object engine: the process-wide (per the design's
// single-threaded core) region list plus the configuration that governs
// splitting. It has no synchronization of its own — the façade package
// serializes access.
type Heap struct {
	regionSize      uintptr
	minSplit        uintptr
	reserveCapacity uintptr
	scribble        byte

	root Region // 0 means the region list is empty

	RegionAllocs  uint64
	RegionFrees   uint64
	BlocksChecked uint64
	CheckAmount   uint64
}

// NewHeap constructs a small-object engine. minSplitSize is floored at
// the minimum legal block size so a split can never produce an
// under-sized remainder.
func NewHeap(regionSize, minSplitSize, reserveCapacity uintptr, scribble byte) *Heap {
	if minSplitSize < minBlockSize {
		minSplitSize = minBlockSize
	}

	return &Heap{
		regionSize:      regionSize,
		minSplit:        minSplitSize,
		reserveCapacity: reserveCapacity,
		scribble:        scribble,
	}
}

// RegionSize reports the configured region size.
func (h *Heap) RegionSize() uintptr { return h.regionSize }

// BlockSizeFor returns the block size (including header, footer and
// reserve capacity) needed to satisfy a size-byte payload request.
func (h *Heap) BlockSizeFor(size uintptr) uintptr {
	needed := alignUp(wordSize+wordSize+size+h.reserveCapacity, blockAlign)
	if needed < minBlockSize {
		needed = minBlockSize
	}

	return needed
}

// findFit walks the region list from root looking for the first free
// block of at least n bytes (first fit, §4.5).
func (h *Heap) findFit(n uintptr) (Region, uintptr, bool) {
	h.CheckAmount++

	for r := h.root; r != 0; r = r.Next() {
		if r.NFree() == 0 {
			continue
		}

		for b := r.BlockList(); b != 0; b = flNext(b) {
			h.BlocksChecked++

			if sizeAt(b) >= n {
				return r, b, true
			}
		}
	}

	return 0, 0, false
}

// newRegion acquires and initializes a fresh region, prepending it to
// the region list.
func (h *Heap) newRegion() (Region, bool) {
	base, err := osmem.AcquireRegion(h.regionSize)
	if err != nil {
		return 0, false
	}

	r := initRegion(base, h.regionSize)

	if h.root != 0 {
		h.root.setPrev(r)
	}

	r.setNext(h.root)
	r.setPrev(0)
	h.root = r

	h.RegionAllocs++

	return r, true
}

// Allocate satisfies a small-path request of size bytes, splitting or
// fully consuming the first block found to fit. It returns the payload
// pointer and false on out-of-memory.
func (h *Heap) Allocate(size uintptr) (uintptr, bool) {
	needed := h.BlockSizeFor(size)

	r, block, ok := h.findFit(needed)
	if !ok {
		if _, created := h.newRegion(); !created {
			return 0, false
		}

		r, block, ok = h.findFit(needed)
		if !ok {
			return 0, false
		}
	}

	if trailing, did := split(block, needed, h.minSplit); did {
		replaceInPlace(r, block, trailing)
	} else {
		unlink(r, block)
		setSizeAndFlags(block, sizeAt(block), true)
	}

	r.incNUsed()

	payload := payloadOf(block)
	if h.scribble != 0 {
		fillRange(payload, sizeAt(block)-wordSize-wordSize, h.scribble)
	}

	return payload, true
}

// Release frees a small-path block: it marks the block free, coalesces
// it with any free neighbors, and reclaims the enclosing region if that
// was its last used block.
func (h *Heap) Release(payload uintptr) {
	block := blockOf(payload)

	if !usedAt(block) {
		allocerrs.DoubleFree(block)
	}

	size := sizeAt(block)
	setSizeAndFlags(block, size, false)
	setFlNext(block, 0)
	setFlPrev(block, 0)

	r := Region(regionOf(block, h.regionSize))
	r.decNUsed()

	coalesce(r, block)

	if r.NUsed() == 0 {
		h.reclaim(r)
	}
}

// reclaim unlinks a now-empty region from the global list and returns
// its memory to the OS.
func (h *Heap) reclaim(r Region) {
	prev := r.Prev()
	next := r.Next()

	if prev != 0 {
		prev.setNext(next)
	} else {
		h.root = next
	}

	if next != 0 {
		next.setPrev(prev)
	}

	_ = osmem.ReleaseRegion(uintptr(r), h.regionSize)
	h.RegionFrees++
}

// BlockSize returns the total boundary-tagged size of the small block
// backing payload.
func (h *Heap) BlockSize(payload uintptr) uintptr {
	return sizeAt(blockOf(payload))
}

// UsableSize returns the payload capacity of the small block backing
// payload (block size minus header and footer overhead).
func (h *Heap) UsableSize(payload uintptr) uintptr {
	return h.BlockSize(payload) - wordSize - wordSize
}

// RegionCount walks the region list and returns its length. It exists
// for tests and introspection, never on the hot path.
func (h *Heap) RegionCount() int {
	n := 0
	for r := h.root; r != 0; r = r.Next() {
		n++
	}

	return n
}

// FreeBytes sums the payload capacity of every free block across every
// region — the bytes_unused counter's "free bytes available to callers"
// definition. It is instrumentation for Stats(), not part of the
// allocate/release hot path.
func (h *Heap) FreeBytes() uint64 {
	var total uint64

	for r := h.root; r != 0; r = r.Next() {
		for b := r.BlockList(); b != 0; b = flNext(b) {
			total += uint64(sizeAt(b) - wordSize - wordSize)
		}
	}

	return total
}

// CheckInvariants walks every region and verifies I1 (header equals
// footer), I3 (no adjacent free blocks) and that n_free equals the free
// list's length (part of I5), panicking via allocerrs on violation. It is intended for tests and debug
// builds, not the allocation hot path.
func (h *Heap) CheckInvariants() {
	for r := h.root; r != 0; r = r.Next() {
		counted := freeListLen(r)
		if counted != r.NFree() {
			allocerrs.FreeListMismatch(uintptr(r), r.NFree(), counted)
		}

		prevWasFree := false

		for b := r.Start(); !isTerminator(b); b = nextBlock(b, sizeAt(b)) {
			hdr := loadWord(b)
			ftr := loadWord(footerOf(b, sizeAt(b)))

			if hdr != ftr {
				allocerrs.CorruptBoundaryTag(b)
			}

			free := !usedAt(b)
			if free && prevWasFree {
				allocerrs.Fatal(allocerrs.CategoryInvariant, "ADJACENT_FREE_BLOCKS",
					"two adjacent blocks are both free", map[string]interface{}{"region": uintptr(r), "block": b})
			}

			prevWasFree = free
		}
	}
}
