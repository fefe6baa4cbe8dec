//go:build amd64

package jit

import "tracejit/internal/iosink"

// activeSink is the destination IWrite callbacks from JIT-compiled code
// write through. It mirrors original_source/jit.cpp's free-standing
// `iwrite_call` function, which also reaches a single global sink
// (std::cout) rather than taking one as an argument — the generated
// machine code has no way to pass a Go interface value as an argument,
// so the callback instead closes over package state the same way the
// source's C-linkage function does.
var activeSink iosink.Writer

// SetSink installs the writer iwriteHostCall forwards to. Must be
// called before any compiled block that contains IWrite is executed.
func SetSink(w iosink.Writer) { activeSink = w }

// callCompiledBlock invokes the machine code at entry, passing regsBase
// as the block's flat register-file pointer in RDI (this engine's SysV
// deviation from the source's Microsoft-x64 RCX-based convention, see
// DESIGN.md) and returns whatever the generated code leaves in RAX.
// Implemented in trampoline_amd64.s.
func callCompiledBlock(entry, regsBase uintptr) uint64

// iwriteTrampoline is the address embedded into every compiled block's
// IWrite call site. The generated code loads the printed register's
// value into RDI and `call`s here; this stub forwards it to
// iwriteHostCall using the stack-passed calling convention the Go
// ABI0-to-ABIInternal wrapper expects for a call originating from hand-
// written assembly. Implemented in trampoline_amd64.s.
func iwriteTrampoline()

// iwriteHostCall is the actual Go-side handler, analogous to the
// source's `void iwrite_call(int64_t x)`.
func iwriteHostCall(v int64) {
	if activeSink == nil {
		return
	}
	_ = activeSink.WriteInt(v)
}
