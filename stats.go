package lynxalloc

// Stats is a snapshot of the allocator's observability counters (§6).
// Every field except BytesUsed and BytesUnused is monotone; those two
// move in opposite directions on every allocate/release.
type Stats struct {
	RegionAllocs     uint64
	RegionFrees      uint64
	TotalAllocs      uint64
	TotalFrees       uint64
	LargeBlockAllocs uint64
	LargeBlockFrees  uint64
	BlocksChecked    uint64
	CheckAmount      uint64
	BytesUsed        uint64
	BytesUnused      uint64
	PeakUtilization  float64
}

// statsState is the mutable counters the façade tracks directly; region
// allocation/free counts, blocks checked, check amount and bytes unused
// are read live from the small-object engine instead of being
// duplicated here.
type statsState struct {
	totalAllocs      uint64
	totalFrees       uint64
	largeBlockAllocs uint64
	largeBlockFrees  uint64
	bytesUsedSmall   uint64
	bytesUsedLarge   uint64
	peakUtilization  float64
}

func (s *statsState) recordSmallAlloc(blockSize uint64, freeBytes uint64) {
	s.totalAllocs++
	s.bytesUsedSmall += blockSize
	s.updatePeak(freeBytes)
}

func (s *statsState) recordSmallFree(blockSize uint64) {
	s.totalFrees++

	if s.bytesUsedSmall >= blockSize {
		s.bytesUsedSmall -= blockSize
	} else {
		s.bytesUsedSmall = 0
	}
}

func (s *statsState) recordLargeAlloc(total uint64) {
	s.totalAllocs++
	s.largeBlockAllocs++
	s.bytesUsedLarge += total
	s.updatePeak(heap.FreeBytes())
}

func (s *statsState) recordLargeFree(total uint64) {
	s.totalFrees++
	s.largeBlockFrees++

	if s.bytesUsedLarge >= total {
		s.bytesUsedLarge -= total
	} else {
		s.bytesUsedLarge = 0
	}
}

// updatePeak recomputes utilization against the small-object engine's
// current free capacity, guarding the denominator against the first
// allocation's zero-capacity reading (§9).
func (s *statsState) updatePeak(freeBytes uint64) {
	used := s.bytesUsedSmall + s.bytesUsedLarge
	total := used + freeBytes

	if total == 0 {
		return
	}

	u := float64(used) / float64(total)
	if u > s.peakUtilization {
		s.peakUtilization = u
	}
}
