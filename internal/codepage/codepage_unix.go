//go:build !windows

package codepage

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Alloc reserves a page-aligned, >=4096-byte region with PROT_EXEC set
// alongside PROT_READ|PROT_WRITE, the W+X contract spec.md §4.F requires.
func Alloc(size int) (*Page, error) {
	n := roundUpToPage(size)
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, sizeErr(err)
	}
	return &Page{bytes: b}, nil
}

// Free releases the page. Callers must not use p.Bytes()/p.Addr() after
// this returns.
func (p *Page) Free() error {
	if len(p.bytes) == 0 {
		return nil
	}
	err := unix.Munmap(p.bytes)
	p.bytes = nil
	if err != nil {
		return sizeErr(err)
	}
	return nil
}

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
