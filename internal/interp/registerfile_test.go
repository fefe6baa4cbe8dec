package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracejit/internal/ir"
)

func TestRegisterFileGetReportsAbsence(t *testing.T) {
	rf := NewRegisterFile(4)
	_, ok := rf.Get(0)
	assert.False(t, ok)
}

func TestRegisterFileSetMirrorsFlatArray(t *testing.T) {
	rf := NewRegisterFile(4)
	require.NoError(t, rf.Set(2, ir.IntVal(7)))
	assert.Equal(t, uint64(7), rf.Flat()[2])
	v, ok := rf.Get(2)
	require.True(t, ok)
	i, err := v.AsInt()
	require.NoError(t, err)
	assert.Equal(t, int64(7), i)
}

func TestRegisterFileSyncFromFlatRebuildsSparseView(t *testing.T) {
	rf := NewRegisterFile(4)
	require.NoError(t, rf.Set(1, ir.IntVal(1)))
	rf.Flat()[1] = 99 // simulate a JIT-compiled block mutating the flat array directly
	require.NoError(t, rf.SyncFromFlat())
	v, ok := rf.Get(1)
	require.True(t, ok)
	i, err := v.AsInt()
	require.NoError(t, err)
	assert.Equal(t, int64(99), i)
}
