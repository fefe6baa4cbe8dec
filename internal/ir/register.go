package ir

import "fmt"

// Register names a slot in a function's register file. Registers are
// scoped per-function, not global, matching the source's Reg type.
type Register uint32

func (r Register) String() string { return fmt.Sprintf("r%d", uint32(r)) }
