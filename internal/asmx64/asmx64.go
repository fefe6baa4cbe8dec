// Package asmx64 emits raw x86-64 machine code byte-for-byte, following
// original_source/jit.cpp's write_* helpers: REX-prefixed register-
// register and register-memory mov, add/sub/imul, cmp, conditional near
// jumps, push/pop, call, ret.
//
// Two deviations from the source are documented in DESIGN.md: the
// register-file base pointer is RDI (SysV first argument) instead of
// RCX (Microsoft x64 first argument), and the flat register array's
// per-slot stride is 8 bytes, not sizeof(Value)+8.
package asmx64

import "encoding/binary"

// Reg is a machine register operand, encoded as the low 3 bits of its
// value plus a REX extension bit for r8-r15.
type Reg uint8

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

func (r Reg) encode() byte { return byte(r) & 0x7 }
func (r Reg) ext() byte {
	if r >= 8 {
		return 1
	}
	return 0
}

// RegsBase is the register the JIT prologue keeps the flat register
// array's base pointer in for the lifetime of a compiled block.
const RegsBase = RDI

// RegStride is the byte width of one slot in the flat register array.
const RegStride = 8

// Asm is an append-only machine code buffer with byte-cursor helpers
// mirroring jit.cpp's write_byte/write_dword/write_qword.
type Asm struct {
	Code []byte
}

func (a *Asm) writeByte(b byte) { a.Code = append(a.Code, b) }

func (a *Asm) writeDword(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	a.Code = append(a.Code, buf[:]...)
}

func (a *Asm) writeQword(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	a.Code = append(a.Code, buf[:]...)
}

// Len reports the current emitted length, used by callers (internal/jit)
// to record offsets for backward jump targets.
func (a *Asm) Len() int { return len(a.Code) }

// Push emits `push reg`.
func (a *Asm) Push(r Reg) {
	if r.ext() != 0 {
		a.writeByte(0x41)
	}
	a.writeByte(0x50 | r.encode())
}

// Pop emits `pop reg`.
func (a *Asm) Pop(r Reg) {
	if r.ext() != 0 {
		a.writeByte(0x41)
	}
	a.writeByte(0x58 | r.encode())
}

// Mov emits a register-to-register `mov dst, src`.
func (a *Asm) Mov(src, dst Reg) {
	a.writeByte(0x48 | src.ext()<<2 | dst.ext())
	a.writeByte(0x89)
	a.writeByte(0xc0 | src.encode()<<3 | dst.encode())
}

// LoadReg emits `mov to, [RegsBase + reg*RegStride]`, loading a flat
// register-file slot into a machine register.
func (a *Asm) LoadReg(reg uint32, to Reg) {
	a.writeByte(0x48 | to.ext()<<2 | RegsBase.ext())
	a.writeByte(0x8b)
	a.writeByte(0x80 | to.encode()<<3 | RegsBase.encode())
	a.writeDword(reg * RegStride)
}

// StoreReg emits `mov [RegsBase + reg*RegStride], from`, the inverse of
// LoadReg.
func (a *Asm) StoreReg(from Reg, reg uint32) {
	a.writeByte(0x48 | from.ext()<<2 | RegsBase.ext())
	a.writeByte(0x89)
	a.writeByte(0x80 | from.encode()<<3 | RegsBase.encode())
	a.writeDword(reg * RegStride)
}

// LoadImm64 emits `mov to, imm64`. The opcode-embedded register (B8+rd)
// is extended by REX.B, not REX.R.
func (a *Asm) LoadImm64(imm uint64, to Reg) {
	a.writeByte(0x48 | to.ext())
	a.writeByte(0xb8 | to.encode())
	a.writeQword(imm)
}

// Add emits `add dst, src` (64-bit register form).
func (a *Asm) Add(src, dst Reg) {
	a.writeByte(0x48 | src.ext()<<2 | dst.ext())
	a.writeByte(0x01)
	a.writeByte(0xc0 | src.encode()<<3 | dst.encode())
}

// AddImm32 emits `add dst, imm32`.
func (a *Asm) AddImm32(imm uint32, dst Reg) {
	a.writeByte(0x48 | dst.ext())
	a.writeByte(0x81)
	a.writeByte(0xc0 | dst.encode())
	a.writeDword(imm)
}

// SubImm32 emits `sub dst, imm32`.
func (a *Asm) SubImm32(imm uint32, dst Reg) {
	a.writeByte(0x48 | dst.ext())
	a.writeByte(0x81)
	a.writeByte(0xe8 | dst.encode())
	a.writeDword(imm)
}

// IMul emits `imul dst, src` (64-bit, two-operand form, `0F AF /r`). Unlike
// Add's `01 /r` (where the opcode's r/m field is the destination), AF's
// reg field is the destination and r/m is the source, so dst takes the
// reg slot (and REX.R) and src takes r/m (and REX.B).
func (a *Asm) IMul(src, dst Reg) {
	a.writeByte(0x48 | dst.ext()<<2 | src.ext())
	a.writeByte(0x0f)
	a.writeByte(0xaf)
	a.writeByte(0xc0 | dst.encode()<<3 | src.encode())
}

// Cmp emits `cmp rhs, lhs` (64-bit register form, `39 /r`): lhs takes
// the ModRM reg field and rhs the r/m field, so the flags reflect rhs-lhs.
func (a *Asm) Cmp(lhs, rhs Reg) {
	a.writeByte(0x48 | lhs.ext()<<2 | rhs.ext())
	a.writeByte(0x39)
	a.writeByte(0xc0 | lhs.encode()<<3 | rhs.encode())
}

// CondJumpOp selects which conditional near jump Jcc emits, matching
// the four relational IR ops.
type CondJumpOp uint8

const (
	JumpLT CondJumpOp = iota
	JumpLE
	JumpGT
	JumpGE
)

// opcode maps a relational op to the Jcc condition that tests the flags
// left by Cmp(R8, RAX) where R8 holds the comparison's left operand and
// RAX its right operand (internal/jit's load order): that encoding
// computes RAX-R8, i.e. rhs-lhs, so "lhs < rhs" is true exactly when the
// computed value is positive (JG), not when it's negative. See
// DESIGN.md for the full derivation and why this differs from a naive
// LT->JL mapping.
func (op CondJumpOp) opcode() byte {
	switch op {
	case JumpLT:
		return 0x8f // JG: lhs < rhs  <=>  rhs-lhs > 0
	case JumpLE:
		return 0x8d // JGE: lhs <= rhs  <=>  rhs-lhs >= 0
	case JumpGT:
		return 0x8c // JL: lhs > rhs  <=>  rhs-lhs < 0
	case JumpGE:
		return 0x8e // JLE: lhs >= rhs  <=>  rhs-lhs <= 0
	default:
		return 0x8f
	}
}

// Jcc emits a near conditional jump (0F 8x) with a 32-bit relative
// displacement computed from the current position to target, given the
// offset the loop body's prologue ended at.
func (a *Asm) Jcc(op CondJumpOp, target int) {
	a.writeByte(0x0f)
	a.writeByte(op.opcode())
	disp := int32(target - (a.Len() + 4))
	a.writeDword(uint32(disp))
}

// CallRAX emits `call rax`.
func (a *Asm) CallRAX() {
	a.writeByte(0xff)
	a.writeByte(0xd0)
}

// Ret emits `ret`.
func (a *Asm) Ret() {
	a.writeByte(0xc3)
}
