// Package codepage allocates page-aligned, writable-and-executable
// memory for JIT-compiled native code, and guarantees its release.
package codepage

import "tracejit/internal/tjerr"

const minSize = 4096

// Page is a live W+X memory region holding machine code.
type Page struct {
	bytes []byte
}

// Bytes returns the page's backing slice. The allocator maps the region
// writable and executable at once, so bytes written here can be run
// directly, matching spec.md §4.F's single-region contract.
func (p *Page) Bytes() []byte { return p.bytes }

// Addr returns the address of byte 0 of the page, the entry point a
// caller jumps to.
func (p *Page) Addr() uintptr {
	if len(p.bytes) == 0 {
		return 0
	}
	return addrOf(p.bytes)
}

func roundUpToPage(n int) int {
	if n < minSize {
		n = minSize
	}
	const pageSize = 4096
	return (n + pageSize - 1) &^ (pageSize - 1)
}

func sizeErr(err error) error {
	return tjerr.Wrap(tjerr.Resource, err, "failed to allocate executable code page")
}
