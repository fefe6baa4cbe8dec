package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracejit/internal/interp"
	"tracejit/internal/iosink"
	"tracejit/internal/obslog"
	"tracejit/internal/tjerr"
)

const countdownSrc = `
.text
.frame main, 0
__start__:
  loadI 3 => r0
  loadI 0 => r1
loop:
  iwrite r0
  addI r0, -1 => r0
  cmp_GT r0, r1 => r2
  cbr r2 -> loop
done:
  ret
`

func TestParseCountdownProgram(t *testing.T) {
	prog, err := Parse(countdownSrc)
	require.NoError(t, err)

	fn, ok := prog.Func("main")
	require.True(t, ok)
	assert.Len(t, fn.Blocks, 3)

	loop, ok := fn.Block("loop")
	require.True(t, ok)
	assert.Len(t, loop.Instrs, 4)
	assert.Equal(t, "done", loop.Fallthrough)
}

func TestParseAndInterpretCountdownProducesSpecOutput(t *testing.T) {
	prog, err := Parse(countdownSrc)
	require.NoError(t, err)

	var sb strings.Builder
	in := interp.New(prog, iosink.NewWriter(&sb), obslog.Nop())
	in.DisableJIT = true
	require.NoError(t, in.Run("main"))
	assert.Equal(t, "3\n2\n1\n", sb.String())
}

func TestParseRejectsUnknownInstruction(t *testing.T) {
	_, err := Parse(".text\n.frame f, 0\n__start__:\n  bogus r0\n")
	require.Error(t, err)
}

func TestParseGlobalsAndDataSection(t *testing.T) {
	src := ".data\nlimit = 10\n.text\n.frame f, 0\n__start__:\n  ret\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	assert.Contains(t, prog.Globals, "limit")
}

func TestParseConstantLoadAndPrint(t *testing.T) {
	src := ".text\n.frame main, 0\n__start__:\n  loadI 7 => r0\n  iwrite r0\n  ret\n"
	prog, err := Parse(src)
	require.NoError(t, err)

	var sb strings.Builder
	in := interp.New(prog, iosink.NewWriter(&sb), obslog.Nop())
	in.DisableJIT = true
	require.NoError(t, in.Run("main"))
	assert.Equal(t, "7\n", sb.String())
}

func TestParseImmediateArithmetic(t *testing.T) {
	src := ".text\n.frame main, 0\n__start__:\n" +
		"  loadI 3 => r0\n" +
		"  addI r0, 4 => r1\n" +
		"  multI r1, 5 => r2\n" +
		"  iwrite r2\n" +
		"  ret\n"
	prog, err := Parse(src)
	require.NoError(t, err)

	var sb strings.Builder
	in := interp.New(prog, iosink.NewWriter(&sb), obslog.Nop())
	in.DisableJIT = true
	require.NoError(t, in.Run("main"))
	assert.Equal(t, "35\n", sb.String())
}

func TestParseCbrToNumericLiteralIsParseError(t *testing.T) {
	src := ".text\n.frame main, 0\n__start__:\n  loadI 1 => r0\n  cbr r0 -> 7\n"
	_, err := Parse(src)
	require.Error(t, err)
	kind, ok := tjerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, tjerr.Parse, kind)
}

func TestInstrRoundTripsThroughPrettyPrintAndParse(t *testing.T) {
	src := ".text\n.frame main, 0\n__start__:\n" +
		"  loadI 3 => r0\n" +
		"  i2i r0 => r1\n" +
		"  add r0, r1 => r2\n" +
		"  addI r0, 4 => r1\n" +
		"  mult r0, r1 => r2\n" +
		"  multI r1, 5 => r2\n" +
		"  cmp_LT r0, r1 => r2\n" +
		"  cmp_LE r0, r1 => r2\n" +
		"  cmp_GT r0, r1 => r2\n" +
		"  cmp_GE r0, r1 => r2\n" +
		"  iwrite r0\n" +
		"  ret\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	fn, ok := prog.Func("main")
	require.True(t, ok)
	blk, ok := fn.Block("__start__")
	require.True(t, ok)

	var rendered strings.Builder
	for _, in := range blk.Instrs {
		rendered.WriteString(in.String())
		rendered.WriteString("\n")
	}

	reparsed, err := Parse(".text\n.frame main, 0\n__start__:\n" + rendered.String())
	require.NoError(t, err)
	refn, _ := reparsed.Func("main")
	reblk, _ := refn.Block("__start__")
	assert.Equal(t, blk.Instrs, reblk.Instrs)
}
