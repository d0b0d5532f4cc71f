package avm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainlab-dev/chainlab/internal/avm"
)

func TestAssembleBasics(t *testing.T) {
	prog, err := avm.Assemble(`
// push and add
int 2
int 3
+
return
`)
	require.NoError(t, err)
	require.Len(t, prog.Instrs, 4)
	assert.Equal(t, avm.OpInt, prog.Instrs[0].Op)
	assert.Equal(t, uint64(2), prog.Instrs[0].Uint)
	assert.Equal(t, 3, prog.Instrs[0].Line) // comments and blanks keep line numbers
	assert.Equal(t, avm.OpAdd, prog.Instrs[2].Op)
}

func TestAssembleLabels(t *testing.T) {
	prog, err := avm.Assemble(`
int 1
bnz done
err
done:
int 1
return
`)
	require.NoError(t, err)
	// bnz must resolve to the instruction after the label.
	require.Equal(t, avm.OpBnz, prog.Instrs[1].Op)
	assert.Equal(t, 3, prog.Instrs[1].Target)
	assert.Equal(t, "done", prog.Instrs[1].Label)
}

func TestAssembleByteLiterals(t *testing.T) {
	prog, err := avm.Assemble(`
byte "counter"
byte 0xdeadbeef
return
`)
	require.NoError(t, err)
	assert.Equal(t, []byte("counter"), prog.Instrs[0].Bytes)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, prog.Instrs[1].Bytes)
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown opcode", "frobnicate"},
		{"undefined label", "int 1\nbnz nowhere\nreturn"},
		{"duplicate label", "x:\nx:\nint 1\nreturn"},
		{"bad int", "int twelve"},
		{"bare byte literal", "byte owner"},
		{"gtxn missing field", "gtxn 0"},
		{"int with extras", "int 1 2"},
		{"empty program", "// nothing\n"},
		{"bad address", "addr NOTANADDRESS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := avm.Assemble(tt.src)
			assert.ErrorIs(t, err, avm.ErrAssemble)
		})
	}
}
