package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracejit/internal/ir"
	"tracejit/internal/obslog"
)

func TestCompileBlockRejectsUnsupportedOp(t *testing.T) {
	e := NewEngine(nil, obslog.Nop())
	blk := &ir.Block{Name: "b", Instrs: []ir.Instr{{Op: 0xFF}}}
	_, err := e.CompileBlock("f", blk)
	require.Error(t, err)
}

func TestCompileBlockCachesByFunctionAndBlockName(t *testing.T) {
	e := NewEngine(nil, obslog.Nop())
	blk := &ir.Block{Name: "loop", Instrs: []ir.Instr{ir.Ret()}}
	cb1, err := e.CompileBlock("f", blk)
	require.NoError(t, err)
	cb2, err := e.CompileBlock("f", blk)
	require.NoError(t, err)
	assert.Same(t, cb1, cb2)

	_, ok := e.Lookup("f", "loop")
	assert.True(t, ok)
	_, ok = e.Lookup("f", "other")
	assert.False(t, ok)
}

func TestCompileBlockRejectsNonSelfLoopCbr(t *testing.T) {
	e := NewEngine(nil, obslog.Nop())
	blk := &ir.Block{Name: "loop", Instrs: []ir.Instr{
		ir.CmpLT(1, 0, 0),
		ir.Cbr(1, "elsewhere"),
	}}
	_, err := e.CompileBlock("f", blk)
	require.Error(t, err)
}

func TestCompileBlockAcceptsSelfLoopCbr(t *testing.T) {
	e := NewEngine(nil, obslog.Nop())
	blk := &ir.Block{Name: "loop", Instrs: []ir.Instr{
		ir.CmpLT(1, 0, 0),
		ir.Cbr(1, "loop"),
	}}
	cb, err := e.CompileBlock("f", blk)
	require.NoError(t, err)
	require.NoError(t, cb.Release())
}

func TestExecuteMultWritesProductIntoDestinationSlot(t *testing.T) {
	e := NewEngine(nil, obslog.Nop())
	blk := &ir.Block{Name: "b", Instrs: []ir.Instr{
		ir.Mult(2, 0, 1),
		ir.Ret(),
	}}
	cb, err := e.CompileBlock("f", blk)
	require.NoError(t, err)
	defer cb.Release()

	flat := []uint64{3, 5, 0}
	_, err = cb.Execute(flat)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), flat[2])
}

func TestCompileBlockEmitsNonEmptyCode(t *testing.T) {
	e := NewEngine(nil, obslog.Nop())
	blk := &ir.Block{Name: "b", Instrs: []ir.Instr{
		ir.Add(2, 0, 1),
		ir.Ret(),
	}}
	cb, err := e.CompileBlock("f", blk)
	require.NoError(t, err)
	require.NotNil(t, cb)
	assert.NotZero(t, cb.page.Addr())
	require.NoError(t, cb.Release())
}
