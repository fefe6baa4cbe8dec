package ir

import "fmt"

// Op enumerates every instruction variant the engine knows about. The
// set is flattened into a single Instr struct below rather than a sum
// of per-kind types — the same choice the teacher's Instruction struct
// makes for its own (much smaller) stack-machine opcode set, and the
// shape wazero's SSA Instruction uses for a much larger opcode set.
type Op uint8

const (
	OpI2I Op = iota
	OpLoadImm
	OpAdd
	OpAddImm
	OpMult
	OpMultImm
	OpCmpGT
	OpCmpGE
	OpCmpLT
	OpCmpLE
	OpCbr
	OpRet
	OpNop
	OpIWrite
)

func (o Op) String() string {
	switch o {
	case OpI2I:
		return "i2i"
	case OpLoadImm:
		return "loadI"
	case OpAdd:
		return "add"
	case OpAddImm:
		return "addI"
	case OpMult:
		return "mult"
	case OpMultImm:
		return "multI"
	case OpCmpGT:
		return "cmp_GT"
	case OpCmpGE:
		return "cmp_GE"
	case OpCmpLT:
		return "cmp_LT"
	case OpCmpLE:
		return "cmp_LE"
	case OpCbr:
		return "cbr"
	case OpRet:
		return "ret"
	case OpNop:
		return "nop"
	case OpIWrite:
		return "iwrite"
	default:
		return "?"
	}
}

// Instr is one instruction. Only the fields meaningful for Op are
// populated; the rest are zero. Dst/Src1/Src2 are register operands,
// Imm carries an immediate (for *Imm ops), and Target names the single
// branch destination for Cbr — the symbolic label carried as the
// instruction's embedded Loc-kind operand (spec's "loc-value").
type Instr struct {
	Op     Op
	Dst    Register
	Src1   Register
	Src2   Register
	Imm    Value
	Target string
}

func I2I(dst, src Register) Instr           { return Instr{Op: OpI2I, Dst: dst, Src1: src} }
func LoadImm(dst Register, v Value) Instr   { return Instr{Op: OpLoadImm, Dst: dst, Imm: v} }
func Add(dst, a, b Register) Instr          { return Instr{Op: OpAdd, Dst: dst, Src1: a, Src2: b} }
func AddImm(dst, a Register, v Value) Instr { return Instr{Op: OpAddImm, Dst: dst, Src1: a, Imm: v} }
func Mult(dst, a, b Register) Instr         { return Instr{Op: OpMult, Dst: dst, Src1: a, Src2: b} }
func MultImm(dst, a Register, v Value) Instr {
	return Instr{Op: OpMultImm, Dst: dst, Src1: a, Imm: v}
}
func CmpGT(dst, a, b Register) Instr { return Instr{Op: OpCmpGT, Dst: dst, Src1: a, Src2: b} }
func CmpGE(dst, a, b Register) Instr { return Instr{Op: OpCmpGE, Dst: dst, Src1: a, Src2: b} }
func CmpLT(dst, a, b Register) Instr { return Instr{Op: OpCmpLT, Dst: dst, Src1: a, Src2: b} }
func CmpLE(dst, a, b Register) Instr { return Instr{Op: OpCmpLE, Dst: dst, Src1: a, Src2: b} }

// Cbr branches to target if cond holds a nonzero Int; otherwise execution
// continues with the next instruction as if there were no branch at all,
// reaching the block's own Fallthrough link when Cbr is the last one.
func Cbr(cond Register, target string) Instr {
	return Instr{Op: OpCbr, Src1: cond, Target: target}
}
func Ret() Instr                { return Instr{Op: OpRet} }
func Nop() Instr                { return Instr{Op: OpNop} }
func IWrite(src Register) Instr { return Instr{Op: OpIWrite, Src1: src} }

// String renders the instruction in the textual grammar spec.md §6
// describes, used by the --trace dump and round-tripped by tests.
func (in Instr) String() string {
	switch in.Op {
	case OpI2I:
		return fmt.Sprintf("i2i %s => %s", in.Src1, in.Dst)
	case OpLoadImm:
		return fmt.Sprintf("loadI %s => %s", in.Imm, in.Dst)
	case OpAdd:
		return fmt.Sprintf("add %s, %s => %s", in.Src1, in.Src2, in.Dst)
	case OpAddImm:
		return fmt.Sprintf("addI %s, %s => %s", in.Src1, in.Imm, in.Dst)
	case OpMult:
		return fmt.Sprintf("mult %s, %s => %s", in.Src1, in.Src2, in.Dst)
	case OpMultImm:
		return fmt.Sprintf("multI %s, %s => %s", in.Src1, in.Imm, in.Dst)
	case OpCmpGT, OpCmpGE, OpCmpLT, OpCmpLE:
		return fmt.Sprintf("%s %s, %s => %s", in.Op, in.Src1, in.Src2, in.Dst)
	case OpCbr:
		return fmt.Sprintf("cbr %s -> %s", in.Src1, in.Target)
	case OpRet:
		return "ret"
	case OpNop:
		return "nop"
	case OpIWrite:
		return fmt.Sprintf("iwrite %s", in.Src1)
	default:
		return "?"
	}
}

// IsRelational reports whether op is one of the four comparison ops,
// the set a preceding Cbr must be fed from.
func (o Op) IsRelational() bool {
	switch o {
	case OpCmpGT, OpCmpGE, OpCmpLT, OpCmpLE:
		return true
	default:
		return false
	}
}
