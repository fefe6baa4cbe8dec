//go:build windows

package codepage

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Alloc reserves a page-aligned, >=4096-byte region via VirtualAlloc
// with PAGE_EXECUTE_READWRITE, the Windows equivalent of the Unix
// PROT_READ|PROT_WRITE|PROT_EXEC mapping in codepage_unix.go.
func Alloc(size int) (*Page, error) {
	n := roundUpToPage(size)
	addr, err := windows.VirtualAlloc(0, uintptr(n), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return nil, sizeErr(err)
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	return &Page{bytes: b}, nil
}

func (p *Page) Free() error {
	if len(p.bytes) == 0 {
		return nil
	}
	addr := addrOf(p.bytes)
	p.bytes = nil
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
