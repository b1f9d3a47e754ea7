package region

// Region is a handle to a region's base address. All of a region's
// bookkeeping — free/used counts, its place in the global region list,
// the sentinel address and free-list head — lives in raw words at the
// start of the mapped memory itself, so a Region is just the address: a
// block's enclosing region is recovered in O(1) by masking (I7), with no
// side table required.
type Region uintptr

const (
	offNFree     = 0 * wordSize
	offNUsed     = 1 * wordSize
	offNext      = 2 * wordSize
	offPrev      = 3 * wordSize
	offStart     = 4 * wordSize
	offBlockList = 5 * wordSize
)

func (r Region) addr() uintptr { return uintptr(r) }

func (r Region) NFree() int   { return int(loadUintptr(r.addr() + offNFree)) }
func (r Region) NUsed() int   { return int(loadUintptr(r.addr() + offNUsed)) }
func (r Region) Next() Region { return Region(loadUintptr(r.addr() + offNext)) }
func (r Region) Prev() Region { return Region(loadUintptr(r.addr() + offPrev)) }
func (r Region) Start() uintptr     { return loadUintptr(r.addr() + offStart) }
func (r Region) BlockList() uintptr { return loadUintptr(r.addr() + offBlockList) }

func (r Region) setNFree(n int)         { storeUintptr(r.addr()+offNFree, uintptr(n)) }
func (r Region) setNUsed(n int)         { storeUintptr(r.addr()+offNUsed, uintptr(n)) }
func (r Region) setNext(n Region)       { storeUintptr(r.addr()+offNext, uintptr(n)) }
func (r Region) setPrev(p Region)       { storeUintptr(r.addr()+offPrev, uintptr(p)) }
func (r Region) setBlockList(b uintptr) { storeUintptr(r.addr()+offBlockList, b) }

func (r Region) incNFree() { r.setNFree(r.NFree() + 1) }
func (r Region) decNFree() { r.setNFree(r.NFree() - 1) }
func (r Region) incNUsed() { r.setNUsed(r.NUsed() + 1) }
func (r Region) decNUsed() { r.setNUsed(r.NUsed() - 1) }

// terminator returns the address of the region's terminator block.
func (r Region) terminator(regionSize uintptr) uintptr {
	return r.addr() + regionSize - terminatorSize
}

// initRegion lays out a freshly mapped region per the design's
// initialization procedure (§4.4): header, sentinel, one big free block,
// terminator.
func initRegion(base, regionSize uintptr) Region {
	r := Region(base)

	storeUintptr(base+offNext, 0)
	storeUintptr(base+offPrev, 0)

	sentinel := base + sentinelOffset
	storeUintptr(base+offStart, sentinel)
	setSizeAndFlags(sentinel, sentinelSize, true)

	firstFree := sentinel + sentinelSize
	freeSize := r.terminator(regionSize) - firstFree
	setSizeAndFlags(firstFree, freeSize, false)
	storeUintptr(payloadOf(firstFree)+0*pointerSize, 0) // flNext
	storeUintptr(payloadOf(firstFree)+1*pointerSize, 0) // flPrev

	storeWord(r.terminator(regionSize), makeWord(0, true))

	r.setBlockList(firstFree)
	r.setNFree(1)
	r.setNUsed(0)

	return r
}

// UsableFreeBytes returns the payload capacity of a freshly initialized
// region's single free block — "free bytes available to callers" rather
// than the raw region size, correcting the bytes_unused accounting issue
// noted in the design.
func UsableFreeBytes(regionSize uintptr) uintptr {
	firstFree := sentinelOffset + sentinelSize
	freeBlockSize := (regionSize - terminatorSize) - uintptr(firstFree)
	return freeBlockSize - wordSize - wordSize
}
