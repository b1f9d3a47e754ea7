package region

// split carves a used block of size n out of a free block, provided the
// remainder is at least minSplit bytes; minSplit is the caller's
// effective threshold, already floored to minBlockSize. It writes both
// resulting blocks' boundary tags and returns the trailing free
// remainder. The caller is responsible for splicing the remainder into
// the free list (replaceInPlace) and for all n_free/n_used bookkeeping —
// split itself only ever writes memory, per the design's resolution of
// the split/merge bookkeeping ambiguity noted for the source allocator.
func split(block, n, minSplit uintptr) (trailing uintptr, did bool) {
	total := sizeAt(block)

	remainder := total - n
	if remainder < minSplit {
		return 0, false
	}

	setSizeAndFlags(block, n, true)

	trailing = nextBlock(block, n)
	setSizeAndFlags(trailing, remainder, false)
	setFlNext(trailing, 0)
	setFlPrev(trailing, 0)

	return trailing, true
}
