package asmx64

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadImm64EncodesRexAndOpcode(t *testing.T) {
	var a Asm
	a.LoadImm64(0x1122334455667788, RAX)
	assert.Equal(t, []byte{0x48, 0xb8, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, a.Code)
}

func TestLoadImm64ExtendedRegisterSetsRexB(t *testing.T) {
	var a Asm
	a.LoadImm64(1, R8)
	assert.Equal(t, byte(0x48|R8.ext()), a.Code[0])
	assert.Equal(t, byte(0xb8|R8.encode()), a.Code[1])
}

func TestIMulPutsDestinationInRegField(t *testing.T) {
	var a Asm
	a.IMul(R8, RAX)
	assert.Equal(t, byte(0x48|RAX.ext()<<2|R8.ext()), a.Code[0])
	assert.Equal(t, byte(0x0f), a.Code[1])
	assert.Equal(t, byte(0xaf), a.Code[2])
	assert.Equal(t, byte(0xc0|RAX.encode()<<3|R8.encode()), a.Code[3])
}

func TestLoadStoreRegRoundTripOffsets(t *testing.T) {
	var a Asm
	a.LoadReg(3, R8)
	assert.Equal(t, uint32(3*RegStride), leU32(a.Code[3:7]))

	a.Code = nil
	a.StoreReg(R8, 5)
	assert.Equal(t, uint32(5*RegStride), leU32(a.Code[3:7]))
}

func TestPushPopEncodeRexForExtendedRegs(t *testing.T) {
	var a Asm
	a.Push(R12)
	assert.Equal(t, []byte{0x41, 0x50 | R12.encode()}, a.Code)

	a.Code = nil
	a.Pop(RBP)
	assert.Equal(t, []byte{0x58 | RBP.encode()}, a.Code)
}

func TestJccComputesBackwardDisplacement(t *testing.T) {
	var a Asm
	// simulate a body emitted after a 9-byte prologue
	a.Code = make([]byte, 40)
	prologueEnd := 9
	a.Jcc(JumpLT, prologueEnd)
	disp := int32(leU32(a.Code[len(a.Code)-4:]))
	assert.Equal(t, int32(prologueEnd-40-2-4), disp)
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
