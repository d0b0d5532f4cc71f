// Package avm implements the approval-program virtual machine: a small
// stack interpreter over uint64 and byte-string values, with single-step
// execution support for the debugger.
package avm

import (
	"fmt"
	"strconv"
	"unicode"
)

// Kind discriminates stack value types.
type Kind uint8

const (
	KindUint Kind = iota
	KindBytes
)

// Value is a single stack or state value.
type Value struct {
	Kind  Kind
	Uint  uint64
	Bytes []byte
}

// Uint64 wraps a uint64 in a Value.
func Uint64(v uint64) Value { return Value{Kind: KindUint, Uint: v} }

// Bytes wraps a byte string in a Value.
func Bytes(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// String renders the value for traces and state dumps.
func (v Value) String() string {
	if v.Kind == KindUint {
		return strconv.FormatUint(v.Uint, 10)
	}
	if isPrintable(v.Bytes) {
		return strconv.Quote(string(v.Bytes))
	}
	return fmt.Sprintf("0x%x", v.Bytes)
}

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == KindUint {
		return v.Uint == o.Uint
	}
	return string(v.Bytes) == string(o.Bytes)
}

func isPrintable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, r := range string(b) {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// GlobalState is an application's global key-value store.
type GlobalState map[string]Value

// Clone returns a deep copy.
func (g GlobalState) Clone() GlobalState {
	out := make(GlobalState, len(g))
	for k, v := range g {
		if v.Kind == KindBytes {
			v.Bytes = append([]byte(nil), v.Bytes...)
		}
		out[k] = v
	}
	return out
}
