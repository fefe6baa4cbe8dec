// Package jit compiles a hot IR block to native x86-64 and executes it
// directly, following original_source/jit.cpp's Jit::compile() body
// structure (prologue, per-instruction switch, epilogue) and JitCall's
// function-pointer-cast invocation idiom, ported to Go via a small
// assembly trampoline (trampoline_amd64.go/.s) instead of an unsafe
// func-value cast.
package jit

import (
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"tracejit/internal/asmx64"
	"tracejit/internal/codepage"
	"tracejit/internal/ir"
	"tracejit/internal/iosink"
	"tracejit/internal/tjerr"
)

type cacheKey struct {
	fn, block string
}

// CompiledBlock is a native page ready to be entered directly.
type CompiledBlock struct {
	page        *codepage.Page
	prologueEnd int
}

// Execute runs the compiled block with flat as its register-file base,
// returning whatever the generated code leaves in RAX (spec.md §9 Open
// Question: exposed here rather than discarded, though nothing in the
// IR currently consumes it).
func (cb *CompiledBlock) Execute(flat []uint64) (uint64, error) {
	if len(flat) == 0 {
		return 0, tjerr.New(tjerr.Resource, "cannot execute JIT block against an empty register file")
	}
	entry := cb.page.Addr()
	// Taking the address of the backing array directly, the same way
	// wazero's amd64 JIT engine addresses its code segment and memory
	// buffer (uintptr(unsafe.Pointer(&slice[0]))).
	regsBase := uintptr(unsafe.Pointer(&flat[0]))
	return callCompiledBlock(entry, regsBase), nil
}

// Engine compiles and caches native translations of hot blocks.
type Engine struct {
	cache map[cacheKey]*CompiledBlock
	log   *zap.SugaredLogger
}

// NewEngine builds a JIT engine that writes IWrite output through sink
// and logs compilation events through log.
func NewEngine(sink iosink.Writer, log *zap.SugaredLogger) *Engine {
	SetSink(sink)
	return &Engine{cache: map[cacheKey]*CompiledBlock{}, log: log}
}

// Lookup returns a previously compiled block, if any.
func (e *Engine) Lookup(fn, block string) (*CompiledBlock, bool) {
	cb, ok := e.cache[cacheKey{fn, block}]
	return cb, ok
}

// CompileBlock translates blk's body to native code and caches the
// result under (fnName, blk.Name). Supported instructions are I2I, Add,
// AddImm, Mult, the four relational ops, a Cbr that loops back to the
// block itself (fed by a relational op earlier in the block), IWrite,
// Nop and Ret; anything else is a tjerr.Unsupported error, like the
// source's `default` case returning EK_INVALID_INST.
func (e *Engine) CompileBlock(fnName string, blk *ir.Block) (*CompiledBlock, error) {
	if cb, ok := e.Lookup(fnName, blk.Name); ok {
		return cb, nil
	}

	var a asmx64.Asm
	emitPrologue(&a)
	prologueEnd := a.Len()

	for _, in := range blk.Instrs {
		switch in.Op {
		case ir.OpI2I:
			a.LoadReg(uint32(in.Src1), asmx64.R8)
			a.StoreReg(asmx64.R8, uint32(in.Dst))
		case ir.OpMult:
			a.LoadReg(uint32(in.Src1), asmx64.R8)
			a.LoadReg(uint32(in.Src2), asmx64.RAX)
			a.IMul(asmx64.R8, asmx64.RAX)
			a.StoreReg(asmx64.RAX, uint32(in.Dst))
		case ir.OpAdd:
			a.LoadReg(uint32(in.Src1), asmx64.R8)
			a.LoadReg(uint32(in.Src2), asmx64.RAX)
			a.Add(asmx64.R8, asmx64.RAX)
			a.StoreReg(asmx64.RAX, uint32(in.Dst))
		case ir.OpAddImm:
			bits, err := in.Imm.ToBytes()
			if err != nil {
				return nil, err
			}
			a.LoadReg(uint32(in.Src1), asmx64.RAX)
			a.AddImm32(uint32(bits), asmx64.RAX)
			a.StoreReg(asmx64.RAX, uint32(in.Dst))
		case ir.OpCmpLT, ir.OpCmpLE, ir.OpCmpGT, ir.OpCmpGE:
			a.LoadReg(uint32(in.Src1), asmx64.R8)
			a.LoadReg(uint32(in.Src2), asmx64.RAX)
			a.Cmp(asmx64.R8, asmx64.RAX)
		case ir.OpCbr:
			// The emitter supports exactly one control-flow shape: a
			// Cbr whose target is the block's own start, implementing a
			// tight loop (spec.md §9 "Control-flow limits of the JIT").
			// Any other target is a forward/cross-block branch, which
			// this single-block code generator cannot express.
			if in.Target != blk.Name {
				return nil, tjerr.New(tjerr.Unsupported, "JIT only supports a cbr that loops back to its own block (%q branches to %q)", blk.Name, in.Target)
			}
			jumpOp, err := condJumpFor(lastRelational(blk))
			if err != nil {
				return nil, err
			}
			a.Jcc(jumpOp, prologueEnd)
		case ir.OpIWrite:
			emitIWrite(&a, uint32(in.Src1))
		case ir.OpNop:
			// nothing to emit
		case ir.OpRet:
			// handled by epilogue below; nothing mid-body to emit
		default:
			return nil, tjerr.New(tjerr.Unsupported, "JIT cannot compile instruction %s", in.Op)
		}
	}

	emitEpilogue(&a)

	page, err := codepage.Alloc(a.Len())
	if err != nil {
		return nil, err
	}
	copy(page.Bytes(), a.Code)

	cb := &CompiledBlock{page: page, prologueEnd: prologueEnd}
	e.cache[cacheKey{fnName, blk.Name}] = cb
	if e.log != nil {
		e.log.Infof("compiled block %s.%s (%d bytes)", fnName, blk.Name, a.Len())
	}
	return cb, nil
}

func lastRelational(blk *ir.Block) ir.Op {
	for i := len(blk.Instrs) - 1; i >= 0; i-- {
		if blk.Instrs[i].Op.IsRelational() {
			return blk.Instrs[i].Op
		}
	}
	return ir.OpNop
}

func condJumpFor(op ir.Op) (asmx64.CondJumpOp, error) {
	switch op {
	case ir.OpCmpLT:
		return asmx64.JumpLT, nil
	case ir.OpCmpLE:
		return asmx64.JumpLE, nil
	case ir.OpCmpGT:
		return asmx64.JumpGT, nil
	case ir.OpCmpGE:
		return asmx64.JumpGE, nil
	default:
		return 0, tjerr.New(tjerr.Unsupported, "cbr with no preceding relational op")
	}
}

// emitPrologue mirrors jit.cpp's compile() preamble: save the caller's
// base pointer and the incoming register-file pointer, then reserve
// scratch stack space for any foreign calls the body makes.
func emitPrologue(a *asmx64.Asm) {
	a.Push(asmx64.RBP)
	a.Push(asmx64.RegsBase)
	a.SubImm32(32, asmx64.RSP)
}

// emitEpilogue mirrors jit.cpp's compile() tail: undo the scratch
// reservation, restore the register-file pointer and base pointer, ret.
func emitEpilogue(a *asmx64.Asm) {
	a.AddImm32(32, asmx64.RSP)
	a.Pop(asmx64.RegsBase)
	a.Pop(asmx64.RBP)
	a.Ret()
}

// emitIWrite mirrors jit.cpp's IK_IWRITE case: save the register-file
// base pointer across the foreign call (it doubles as the callee's
// first-argument register under this engine's SysV convention, same
// reason the source saves/restores RCX), load the call target, call,
// restore.
func emitIWrite(a *asmx64.Asm, reg uint32) {
	a.Push(asmx64.RegsBase)
	a.SubImm32(16, asmx64.RSP)
	a.LoadReg(reg, asmx64.RegsBase)
	a.LoadImm64(uint64(trampolineAddr()), asmx64.RAX)
	a.CallRAX()
	a.AddImm32(16, asmx64.RSP)
	a.Pop(asmx64.RegsBase)
}

func trampolineAddr() uintptr {
	return reflect.ValueOf(iwriteTrampoline).Pointer()
}

// Release frees the page backing cb. Callers must stop executing cb
// before calling this.
func (cb *CompiledBlock) Release() error {
	return cb.page.Free()
}
