package avm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainlab-dev/chainlab/internal/avm"
)

func mustAssemble(t *testing.T, src string) *avm.Program {
	t.Helper()
	prog, err := avm.Assemble(src)
	require.NoError(t, err)
	return prog
}

func singleTxnCtx() *avm.Context {
	return &avm.Context{
		Group: []avm.Txn{{
			Type:   avm.TypeAppl,
			Sender: []byte("SENDER"),
			Amount: 42,
		}},
	}
}

func TestEvalArithmeticAndCompare(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		approved bool
	}{
		{"add", "int 2\nint 3\n+\nint 5\n==\nreturn", true},
		{"sub", "int 7\nint 3\n-\nint 4\n==\nreturn", true},
		{"ge true", "int 5\nint 5\n>=\nreturn", true},
		{"ge false", "int 4\nint 5\n>=\nreturn", false},
		{"gt", "int 6\nint 5\n>\nreturn", true},
		{"lt", "int 4\nint 5\n<\nreturn", true},
		{"and short", "int 1\nint 0\n&&\nreturn", false},
		{"or", "int 0\nint 1\n||\nreturn", true},
		{"not", "int 0\n!\nreturn", true},
		{"bytes eq", `byte "abc"` + "\n" + `byte "abc"` + "\n==\nreturn", true},
		{"return zero rejects", "int 0\nreturn", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approved, err := avm.Eval(mustAssemble(t, tt.src), singleTxnCtx())
			require.NoError(t, err)
			assert.Equal(t, tt.approved, approved)
		})
	}
}

func TestEvalUnderflowFaults(t *testing.T) {
	prog := mustAssemble(t, "int 0\nint 1\n-\nreturn")
	approved, err := avm.Eval(prog, singleTxnCtx())

	assert.False(t, approved)
	require.ErrorIs(t, err, avm.ErrUnderflow)

	var fault *avm.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, 3, fault.Line)
	assert.Equal(t, "-", fault.Op)
}

func TestEvalFaults(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"assert zero", "int 0\nassert\nint 1\nreturn", avm.ErrAssertFailed},
		{"err opcode", "err", avm.ErrExplicit},
		{"type mismatch", `byte "x"` + "\nint 1\n+\nreturn", avm.ErrTypeMismatch},
		{"stack underrun", "+\nreturn", avm.ErrStackEmpty},
		{"no return", "int 1\npop", avm.ErrNoReturn},
		{"gtxn out of range", "gtxn 3 Amount\nreturn", avm.ErrBadGroupIdx},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := avm.Eval(mustAssemble(t, tt.src), singleTxnCtx())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvalGlobalState(t *testing.T) {
	src := `
byte "counter"
byte "counter"
gget
int 1
+
gput
int 1
return
`
	ctx := singleTxnCtx()
	approved, err := avm.Eval(mustAssemble(t, src), ctx)
	require.NoError(t, err)
	require.True(t, approved)

	// Missing key read as 0, then incremented and stored.
	assert.True(t, ctx.Globals["counter"].Equal(avm.Uint64(1)))

	// Run again over the mutated state.
	approved, err = avm.Eval(mustAssemble(t, src), ctx)
	require.NoError(t, err)
	require.True(t, approved)
	assert.True(t, ctx.Globals["counter"].Equal(avm.Uint64(2)))
}

func TestEvalGlobalDel(t *testing.T) {
	ctx := singleTxnCtx()
	ctx.Globals = avm.GlobalState{"k": avm.Uint64(9)}

	src := "byte \"k\"\ngdel\nint 1\nreturn"
	approved, err := avm.Eval(mustAssemble(t, src), ctx)
	require.NoError(t, err)
	require.True(t, approved)
	_, ok := ctx.Globals["k"]
	assert.False(t, ok)
}

func TestEvalTxnFields(t *testing.T) {
	ctx := &avm.Context{
		Group: []avm.Txn{
			{Type: avm.TypePay, Sender: []byte("A"), Receiver: []byte("B"), Amount: 11, GroupIndex: 0},
			{Type: avm.TypeAppl, Sender: []byte("A"), AppID: 7, OnCompletion: avm.OnUpdate, GroupIndex: 1},
		},
		TxnIndex: 1,
	}

	src := `
txn ApplicationID
int 7
==
gtxn 0 Amount
int 11
==
&&
txn OnCompletion
int 3
==
&&
txn GroupSize
int 2
==
&&
return
`
	approved, err := avm.Eval(mustAssemble(t, src), ctx)
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestEvalBudget(t *testing.T) {
	// Infinite loop must hit the cost budget, not hang.
	src := "top:\nint 1\npop\nb top"
	ctx := singleTxnCtx()
	ctx.Budget = 50
	_, err := avm.Eval(mustAssemble(t, src), ctx)
	assert.ErrorIs(t, err, avm.ErrBudget)
}

func TestSessionStepAndReset(t *testing.T) {
	src := "int 1\nint 2\n+\nreturn"
	prog := mustAssemble(t, src)
	sess := avm.NewSession(prog, singleTxnCtx())

	frame, err := sess.Step()
	require.NoError(t, err)
	assert.Equal(t, 0, frame.PC)
	assert.Equal(t, "int 1", frame.Op)
	require.Len(t, frame.Stack, 1)

	frame, err = sess.Step()
	require.NoError(t, err)
	require.Len(t, frame.Stack, 2)

	frame, err = sess.Step()
	require.NoError(t, err)
	require.Len(t, frame.Stack, 1)
	assert.True(t, frame.Stack[0].Equal(avm.Uint64(3)))

	_, err = sess.Step()
	require.NoError(t, err)
	assert.True(t, sess.Done())
	approved, err := sess.Result()
	require.NoError(t, err)
	assert.True(t, approved)

	sess.Reset()
	assert.False(t, sess.Done())
	assert.Equal(t, 0, sess.PC())
}

func TestSessionResetRestoresGlobals(t *testing.T) {
	src := "byte \"k\"\nint 5\ngput\nint 1\nreturn"
	ctx := singleTxnCtx()
	sess := avm.NewSession(mustAssemble(t, src), ctx)

	for !sess.Done() {
		_, err := sess.Step()
		require.NoError(t, err)
	}
	assert.True(t, ctx.Globals["k"].Equal(avm.Uint64(5)))

	sess.Reset()
	_, ok := ctx.Globals["k"]
	assert.False(t, ok)
}

func TestEvalTraceCollectsFrames(t *testing.T) {
	src := "int 0\nint 1\n-\nreturn"
	frames, approved, err := avm.EvalTrace(mustAssemble(t, src), singleTxnCtx())

	assert.False(t, approved)
	assert.ErrorIs(t, err, avm.ErrUnderflow)
	// The two pushes executed before the fault.
	require.Len(t, frames, 2)
	assert.Equal(t, "int 0", frames[0].Op)
	assert.Equal(t, "int 1", frames[1].Op)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "42", avm.Uint64(42).String())
	assert.Equal(t, `"owner"`, avm.Bytes([]byte("owner")).String())
	assert.Equal(t, "0x00ff", avm.Bytes([]byte{0x00, 0xff}).String())
}
