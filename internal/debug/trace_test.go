package debug_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainlab-dev/chainlab/internal/avm"
	"github.com/chainlab-dev/chainlab/internal/contract"
	"github.com/chainlab-dev/chainlab/internal/debug"
)

func counterProg(t *testing.T, fixed bool) *avm.Program {
	t.Helper()
	src, err := contract.Compile(contract.Counter(fixed))
	require.NoError(t, err)
	prog, err := avm.Assemble(src)
	require.NoError(t, err)
	return prog
}

func createCtx() *avm.Context {
	return &avm.Context{
		Group: []avm.Txn{{Type: avm.TypeAppl, Sender: []byte("OWNER")}},
	}
}

func TestTraceApproval(t *testing.T) {
	var buf bytes.Buffer
	approved, err := debug.Trace(&buf, counterProg(t, true), createCtx())

	require.NoError(t, err)
	assert.True(t, approved)

	out := buf.String()
	assert.Contains(t, out, "program approved")
	assert.Contains(t, out, "gput")
	// Final global state dump.
	assert.Contains(t, out, "counter")
	assert.Contains(t, out, "owner")
}

func TestTraceUnderflowFault(t *testing.T) {
	prog := counterProg(t, false)

	// Create, then replay a below-threshold call at counter 0.
	ctx := createCtx()
	_, err := avm.Eval(prog, ctx)
	require.NoError(t, err)

	callCtx := &avm.Context{
		Group: []avm.Txn{
			{Type: avm.TypePay, Sender: []byte("BOB"), Receiver: []byte("OWNER"), Amount: 1},
			{Type: avm.TypeAppl, Sender: []byte("BOB"), AppID: 1, GroupIndex: 1},
		},
		TxnIndex: 1,
		Globals:  ctx.Globals,
	}

	var buf bytes.Buffer
	approved, err := debug.Trace(&buf, prog, callCtx)

	assert.False(t, approved)
	assert.ErrorIs(t, err, avm.ErrUnderflow)
	assert.Contains(t, buf.String(), "underflowed")
}

func TestDebuggerStepsToFault(t *testing.T) {
	prog := counterProg(t, false)
	ctx := createCtx()
	_, err := avm.Eval(prog, ctx)
	require.NoError(t, err)

	sess := avm.NewSession(prog, &avm.Context{
		Group: []avm.Txn{
			{Type: avm.TypePay, Sender: []byte("BOB"), Receiver: []byte("OWNER"), Amount: 1},
			{Type: avm.TypeAppl, Sender: []byte("BOB"), AppID: 1, GroupIndex: 1},
		},
		TxnIndex: 1,
		Globals:  ctx.Globals,
	})

	steps := 0
	for !sess.Done() {
		_, err = sess.Step()
		steps++
		require.Less(t, steps, 500, "debugger session did not terminate")
		if err != nil {
			break
		}
	}

	var fault *avm.Fault
	require.ErrorAs(t, err, &fault)
	assert.ErrorIs(t, fault.Err, avm.ErrUnderflow)
	assert.Equal(t, "-", fault.Op)
	assert.Greater(t, fault.Line, 0)
}
