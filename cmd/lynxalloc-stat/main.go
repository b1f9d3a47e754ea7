// Command lynxalloc-stat drives a small synthetic workload through the
// allocator and prints the resulting counters (§6) as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"unsafe"

	"github.com/orizon-lang/lynxalloc"
)

func main() {
	smallCount := flag.Int("small-count", 2000, "number of 16-4080 byte allocations to cycle through (sizes above the max block size take the large path)")
	largeCount := flag.Int("large-count", 8, "number of large (>max-block-size) allocations to cycle through")
	largeSize := flag.Uint64("large-size", 1<<20, "payload size in bytes for each large allocation")
	keep := flag.Int("keep-fraction", 4, "retain every Nth small allocation instead of freeing it immediately")

	flag.Parse()

	if *keep <= 0 {
		fmt.Fprintln(os.Stderr, "lynxalloc-stat: -keep-fraction must be positive")
		os.Exit(2)
	}

	var kept []unsafe.Pointer

	for i := 0; i < *smallCount; i++ {
		size := uintptr(16 + (i%255)*16)

		p := lynxalloc.Allocate(size)
		if p == nil {
			fmt.Fprintf(os.Stderr, "lynxalloc-stat: allocation %d of size %d failed\n", i, size)
			os.Exit(1)
		}

		if i%*keep == 0 {
			kept = append(kept, p)
		} else {
			lynxalloc.Release(p)
		}
	}

	var largePtrs []unsafe.Pointer

	for i := 0; i < *largeCount; i++ {
		p := lynxalloc.Allocate(uintptr(*largeSize))
		if p == nil {
			fmt.Fprintf(os.Stderr, "lynxalloc-stat: large allocation %d failed\n", i)
			os.Exit(1)
		}

		largePtrs = append(largePtrs, p)
	}

	for _, p := range largePtrs {
		lynxalloc.Release(p)
	}

	for _, p := range kept {
		lynxalloc.Release(p)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(lynxalloc.CurrentStats()); err != nil {
		fmt.Fprintf(os.Stderr, "lynxalloc-stat: %v\n", err)
		os.Exit(1)
	}
}
