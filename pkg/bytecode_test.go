package hydrogen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestInstructionRoundTrip(t *testing.T) {
	cases := []struct {
		op         Opcode
		a0, a1, a2 uint16
	}{
		{MOV_LI, 0, 0, 0},
		{ADD_LL, 1, 2, 3},
		{CALL, 0xffff, 0x8000, 0x7fff},
		{JMP, 42, 0, 0},
		{STRUCT_FIELD, 3, 1, 17},
	}

	for _, c := range cases {
		ins := NewInstruction(c.op, c.a0, c.a1, c.a2)
		got := [4]uint16{uint16(ins.Op()), ins.Arg(0), ins.Arg(1), ins.Arg(2)}
		want := [4]uint16{uint16(c.op), c.a0, c.a1, c.a2}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestInstructionWithArg(t *testing.T) {
	ins := NewInstruction(MUL_LL, 1, 2, 3)

	for k := 0; k < 3; k++ {
		patched := ins.WithArg(k, 99)
		assert.Equal(t, MUL_LL, patched.Op())
		for j := 0; j < 3; j++ {
			want := ins.Arg(j)
			if j == k {
				want = 99
			}
			assert.Equal(t, want, patched.Arg(j), "arg %d after patching arg %d", j, k)
		}
	}
}

func TestInstructionWithOp(t *testing.T) {
	ins := NewInstruction(ARRAY_GET_I, 4, 5, 6)
	patched := ins.WithOp(ARRAY_I_SET_L)

	assert.Equal(t, ARRAY_I_SET_L, patched.Op())
	assert.Equal(t, uint16(4), patched.Arg(0))
	assert.Equal(t, uint16(5), patched.Arg(1))
	assert.Equal(t, uint16(6), patched.Arg(2))
}

func TestInstructionSignedArg(t *testing.T) {
	ins := NewInstruction(MOV_LI, 0, u16(-7), 0)
	assert.Equal(t, int16(-7), ins.SignedArg(1))
}

func TestOpcodeFamilyArithmetic(t *testing.T) {
	// Families are laid out so an opcode is its base plus the operand type.
	assert.Equal(t, MOV_LS, movLocalOp(operandString))
	assert.Equal(t, MOV_UP, movUpvalOp(operandPrimitive))
	assert.Equal(t, MOV_TF, movTopLevelOp(operandFunction))
	assert.Equal(t, EQ_LN, eqOp(operandNumber))
	assert.Equal(t, NEQ_LV, neqOp(operandNative))
	assert.Equal(t, RET_I, retOp(operandInteger))
	assert.Equal(t, STRUCT_SET_S, structSetOp(operandString))
	assert.Equal(t, ARRAY_I_SET_P, arrayISetOp(operandPrimitive))
	assert.Equal(t, ARRAY_L_SET_F, arrayLSetOp(operandFunction))
}
