package region

// blockOf returns the block header address for a payload pointer.
func blockOf(payload uintptr) uintptr {
	return payload - wordSize
}

// payloadOf returns the payload pointer for a block header address.
func payloadOf(block uintptr) uintptr {
	return block + wordSize
}

// sizeAt returns the decoded size of the block at addr, read from its
// header.
func sizeAt(block uintptr) uintptr {
	return sizeOf(loadWord(block))
}

func usedAt(block uintptr) bool {
	return usedOf(loadWord(block))
}

// footerOf returns the footer address of a block given its header
// address and decoded size.
func footerOf(block, size uintptr) uintptr {
	return block + size - wordSize
}

// nextBlock returns the header address of the block immediately
// following block.
func nextBlock(block, size uintptr) uintptr {
	return block + size
}

// prevFooterOf returns the address of the footer word belonging to the
// block immediately preceding block.
func prevFooterOf(block uintptr) uintptr {
	return block - wordSize
}

// prevBlock returns the header address of the block immediately
// preceding block, using its footer to determine its size.
func prevBlock(block uintptr) uintptr {
	prevSize := sizeOf(loadWord(prevFooterOf(block)))
	return block - prevSize
}

// regionOf masks a block address down to its enclosing region's base,
// relying on every region being regionSize-aligned (I7).
func regionOf(block, regionSize uintptr) uintptr {
	return block &^ (regionSize - 1)
}

// setSizeAndFlags writes both the header and footer of a block with a
// consistent size-and-flags word (I1).
func setSizeAndFlags(block, size uintptr, used bool) {
	w := makeWord(size, used)
	storeWord(block, w)
	storeWord(footerOf(block, size), w)
}

// isTerminator reports whether block is a region's zero-size terminator.
func isTerminator(block uintptr) bool {
	w := loadWord(block)
	return sizeOf(w) == 0 && usedOf(w)
}
