// Package interp is the bytecode interpreter: a sparse register file
// with a write-through flat-array mirror, a call stack, fallthrough-
// chasing dispatch, and hot-block detection that hands blocks off to
// internal/jit once their exec count crosses a threshold.
package interp

import (
	"tracejit/internal/ir"
	"tracejit/internal/tjerr"
)

// RegisterFile is the dual representation component E requires: a
// sparse map (the authoritative source of truth, used by the
// interpreter) and a flat []uint64 mirror (the ABI surface JIT-compiled
// code reads and writes directly via internal/asmx64's RegsBase/RegStride
// convention). Every write goes through Set so the two stay in sync.
type RegisterFile struct {
	sparse map[ir.Register]ir.Value
	flat   []uint64
	kinds  []ir.Kind // kind recorded per slot so Flat-origin writes can be read back as typed Values
}

// NewRegisterFile allocates a file with n addressable slots.
func NewRegisterFile(n int) *RegisterFile {
	return &RegisterFile{
		sparse: make(map[ir.Register]ir.Value, n),
		flat:   make([]uint64, n),
		kinds:  make([]ir.Kind, n),
	}
}

// Get reads a register, reporting whether it has ever been written.
// Callers that need spec.md §4.E's "Reg fail if absent" behavior should
// check the bool rather than treat a missing register as Null.
func (rf *RegisterFile) Get(r ir.Register) (ir.Value, bool) {
	v, ok := rf.sparse[r]
	return v, ok
}

// Set writes both the sparse map and, for projectable kinds (Int/Float),
// the flat mirror. Str/Loc/Null values simply aren't visible to JIT'd
// code, matching ToBytes's fault-on-non-numeric contract.
func (rf *RegisterFile) Set(r ir.Register, v ir.Value) error {
	rf.ensure(int(r))
	rf.sparse[r] = v
	if bits, err := v.ToBytes(); err == nil {
		rf.flat[r] = bits
		rf.kinds[r] = v.Kind()
	}
	return nil
}

// SyncFromFlat re-reads every slot's current flat-array word back into
// the sparse map, using the last-known kind for that slot. Called after
// a JIT-compiled block returns, since the native code only ever touches
// the flat array.
func (rf *RegisterFile) SyncFromFlat() error {
	for i, bits := range rf.flat {
		if rf.kinds[i] == ir.KindNull && rf.sparse[ir.Register(i)].Kind() == ir.KindNull {
			continue
		}
		v, err := ir.FromBytes(rf.kinds[i], bits)
		if err != nil {
			return tjerr.Wrap(tjerr.Reg, err, "failed to sync register %d from flat array", i)
		}
		rf.sparse[ir.Register(i)] = v
	}
	return nil
}

// Flat exposes the backing array for the JIT to pass as the compiled
// block's register-file base pointer.
func (rf *RegisterFile) Flat() []uint64 { return rf.flat }

func (rf *RegisterFile) ensure(n int) {
	if n < len(rf.flat) {
		return
	}
	grown := make([]uint64, n+1)
	copy(grown, rf.flat)
	rf.flat = grown
	grownKinds := make([]ir.Kind, n+1)
	copy(grownKinds, rf.kinds)
	rf.kinds = grownKinds
}
