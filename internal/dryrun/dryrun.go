// Package dryrun captures everything needed to replay one app call outside
// the live ledger: the transaction group, the target program, and snapshots
// of global state and balances. The capture serializes to a compact RLP file
// consumed by `chainlab debug`.
package dryrun

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"go.uber.org/zap"

	"github.com/chainlab-dev/chainlab/internal/avm"
	"github.com/chainlab-dev/chainlab/internal/ledger"
)

// File format: 4-byte magic, 1-byte version, RLP payload.
var magic = []byte("CLDR")

const version = 1

// Errors.
var (
	ErrBadMagic   = errors.New("not a dry-run context file")
	ErrBadVersion = errors.New("unsupported dry-run context version")
)

// KV is one global state entry, flattened for RLP (which has no maps).
type KV struct {
	Key   string
	Kind  uint64
	Uint  uint64
	Bytes []byte
}

// AccountBalance snapshots one account touched by the group.
type AccountBalance struct {
	Address string
	Balance uint64
}

// Context is a replayable snapshot of a single app-call evaluation.
type Context struct {
	Round    uint64
	AppID    uint64
	TxnIndex uint64
	Group    []ledger.Transaction
	Approval string // approval program assembly source
	Globals  []KV
	Accounts []AccountBalance
	Budget   uint64 // VM cost budget at capture time; 0 means the default
}

// Capture builds a dry-run context for the app call at index idx of group,
// against the current ledger state. Nothing is committed.
func Capture(l *ledger.Ledger, group []ledger.Transaction, idx int) (*Context, error) {
	vmCtx, app, err := l.Simulate(group, idx)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Round:    l.Round(),
		AppID:    app.ID,
		TxnIndex: uint64(idx),
		Group:    group,
		Approval: app.Approval,
		Globals:  flattenGlobals(vmCtx.Globals),
		Budget:   uint64(vmCtx.Budget),
	}

	seen := make(map[string]bool)
	for _, t := range group {
		for _, addr := range []string{t.Sender, t.Receiver} {
			if addr == "" || seen[addr] {
				continue
			}
			seen[addr] = true
			ctx.Accounts = append(ctx.Accounts, AccountBalance{
				Address: addr,
				Balance: l.Balance(addr),
			})
		}
	}
	return ctx, nil
}

// VMContext reconstructs the program and evaluation context for replay.
func (c *Context) VMContext(log *zap.Logger) (*avm.Program, *avm.Context, error) {
	prog, err := avm.Assemble(c.Approval)
	if err != nil {
		return nil, nil, fmt.Errorf("assembling captured program: %w", err)
	}

	vmGroup := make([]avm.Txn, len(c.Group))
	for i := range c.Group {
		vmGroup[i] = c.Group[i].VMTxn(i)
	}

	globals := make(avm.GlobalState, len(c.Globals))
	for _, kv := range c.Globals {
		if avm.Kind(kv.Kind) == avm.KindBytes {
			globals[kv.Key] = avm.Bytes(kv.Bytes)
		} else {
			globals[kv.Key] = avm.Uint64(kv.Uint)
		}
	}

	return prog, &avm.Context{
		Group:    vmGroup,
		TxnIndex: int(c.TxnIndex),
		Globals:  globals,
		Budget:   int(c.Budget),
		Log:      log,
	}, nil
}

// WriteFile serializes the context to path.
func (c *Context) WriteFile(path string) error {
	payload, err := rlp.EncodeToBytes(c)
	if err != nil {
		return fmt.Errorf("encoding dry-run context: %w", err)
	}
	var buf bytes.Buffer
	buf.Write(magic)
	buf.WriteByte(version)
	buf.Write(payload)
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// ReadFile loads a context written by WriteFile.
func ReadFile(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < len(magic)+1 || !bytes.Equal(data[:len(magic)], magic) {
		return nil, ErrBadMagic
	}
	if data[len(magic)] != version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, data[len(magic)])
	}
	var ctx Context
	if err := rlp.DecodeBytes(data[len(magic)+1:], &ctx); err != nil {
		return nil, fmt.Errorf("decoding dry-run context: %w", err)
	}
	return &ctx, nil
}

func flattenGlobals(g avm.GlobalState) []KV {
	out := make([]KV, 0, len(g))
	for k, v := range g {
		out = append(out, KV{
			Key:   k,
			Kind:  uint64(v.Kind),
			Uint:  v.Uint,
			Bytes: v.Bytes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
