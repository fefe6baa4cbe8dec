package interp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracejit/internal/ir"
	"tracejit/internal/iosink"
	"tracejit/internal/obslog"
	"tracejit/internal/tjerr"
)

// buildCountdownProgram assembles:
//
//	main:
//	__start__:
//	  r0 = loadimm 3
//	  r1 = loadimm 0
//	loop:
//	  iwrite r0
//	  r0 = addimm r0, -1
//	  r2 = cmp_gt r0, r1
//	  cbr r2 -> loop
//	done:
//	  ret
func buildCountdownProgram(t *testing.T) *ir.Program {
	t.Helper()
	b := ir.NewBuilder()
	require.NoError(t, b.StartText())
	require.NoError(t, b.PushFrame("main", 0, nil))
	require.NoError(t, b.PushLabel("__start__"))
	require.NoError(t, b.PushInstr(ir.LoadImm(0, ir.IntVal(3))))
	require.NoError(t, b.PushLabel("loop"))
	require.NoError(t, b.PushInstr(ir.IWrite(0)))
	require.NoError(t, b.PushInstr(ir.AddImm(0, 0, ir.IntVal(-1))))
	require.NoError(t, b.PushInstr(ir.CmpGT(2, 0, 1)))
	require.NoError(t, b.PushInstr(ir.Cbr(2, "loop")))
	require.NoError(t, b.PushLabel("done"))
	require.NoError(t, b.PushInstr(ir.Ret()))
	prog, err := b.Finalize()
	require.NoError(t, err)

	// r1 (the comparison bound) needs to be 0 for cmp_gt r0, r1 to mean
	// "r0 > 0"; loadimm it once in __start__.
	startFn, _ := prog.Func("main")
	startBlk, _ := startFn.Block("__start__")
	startBlk.Instrs = append(startBlk.Instrs, ir.LoadImm(1, ir.IntVal(0)))
	return prog
}

func TestInterpreterRunsCountdownLoopWithoutJIT(t *testing.T) {
	prog := buildCountdownProgram(t)
	var sb strings.Builder
	sink := iosink.NewWriter(&sb)
	in := New(prog, sink, obslog.Nop())
	// Disabled: executing a JIT-compiled native page is only meaningful
	// on a real amd64 host and is covered at the compile (non-executing)
	// level in internal/jit; this test exercises pure interpretation.
	in.DisableJIT = true
	require.NoError(t, in.Run("main"))
	assert.Equal(t, "3\n2\n1\n", sb.String())
}

func TestInterpreterHaltsOnEmptyFallthroughLikeRet(t *testing.T) {
	b := ir.NewBuilder()
	require.NoError(t, b.StartText())
	require.NoError(t, b.PushFrame("f", 0, nil))
	require.NoError(t, b.PushLabel("__start__"))
	require.NoError(t, b.PushInstr(ir.LoadImm(0, ir.IntVal(1))))
	prog, err := b.Finalize()
	require.NoError(t, err)

	in := New(prog, iosink.NewWriter(&strings.Builder{}), obslog.Nop())
	in.DisableJIT = true
	assert.NoError(t, in.Run("f"))
}

// TestInterpreterRegFaultOnUnassignedIWrite reproduces spec.md §8 scenario
// S6: `iwrite r9` with no prior assignment to r9 must fail with Reg, not
// with a Type mismatch (an unassigned register is absent, not Null).
func TestInterpreterRegFaultOnUnassignedIWrite(t *testing.T) {
	b := ir.NewBuilder()
	require.NoError(t, b.StartText())
	require.NoError(t, b.PushFrame("f", 0, nil))
	require.NoError(t, b.PushLabel("__start__"))
	require.NoError(t, b.PushInstr(ir.Instr{Op: ir.OpIWrite, Src1: 9}))
	prog, err := b.Finalize()
	require.NoError(t, err)

	in := New(prog, iosink.NewWriter(&strings.Builder{}), obslog.Nop())
	in.DisableJIT = true
	err = in.Run("f")
	require.Error(t, err)
	kind, ok := tjerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, tjerr.Reg, kind)
}

func TestInterpreterTypeFaultOnNonIntIWrite(t *testing.T) {
	b := ir.NewBuilder()
	require.NoError(t, b.StartText())
	require.NoError(t, b.PushFrame("f", 0, nil))
	require.NoError(t, b.PushLabel("__start__"))
	require.NoError(t, b.PushInstr(ir.LoadImm(0, ir.FloatVal(1.5))))
	require.NoError(t, b.PushInstr(ir.IWrite(0)))
	prog, err := b.Finalize()
	require.NoError(t, err)

	in := New(prog, iosink.NewWriter(&strings.Builder{}), obslog.Nop())
	in.DisableJIT = true
	err = in.Run("f")
	require.Error(t, err)
	kind, ok := tjerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, tjerr.Type, kind)
}
