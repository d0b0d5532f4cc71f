// Package contract provides a small declarative builder for approval
// programs. Expressions compose into a tree that compiles down to the VM's
// assembly text; the tutorial counter contract in this package is the
// canonical user.
package contract

import (
	"fmt"
	"strings"

	"github.com/chainlab-dev/chainlab/internal/avm"
)

// Expr is a node of a contract program. Expressions that leave no value on
// the stack (GlobalPut, Assert, Seq, ...) are used as statements; the
// distinction is enforced at runtime by the VM, as in the assembly itself.
type Expr interface {
	emit(b *builder)
}

// Compile renders an expression tree to assembly source and verifies it
// assembles cleanly.
func Compile(e Expr) (string, error) {
	b := &builder{}
	e.emit(b)
	src := b.sb.String()
	if _, err := avm.Assemble(src); err != nil {
		return "", fmt.Errorf("compiled program does not assemble: %w", err)
	}
	return src, nil
}

// MustCompile is Compile for programs known good at build time.
func MustCompile(e Expr) string {
	src, err := Compile(e)
	if err != nil {
		panic(err)
	}
	return src
}

type builder struct {
	sb       strings.Builder
	labelSeq int
}

func (b *builder) op(format string, args ...any) {
	fmt.Fprintf(&b.sb, format, args...)
	b.sb.WriteByte('\n')
}

func (b *builder) label(hint string) string {
	b.labelSeq++
	return fmt.Sprintf("%s_%d", hint, b.labelSeq)
}

func (b *builder) placeLabel(name string) {
	b.op("%s:", name)
}

// --- literals and fields ---

type intExpr uint64

func (e intExpr) emit(b *builder) { b.op("int %d", uint64(e)) }

// Int pushes a uint64 constant.
func Int(v uint64) Expr { return intExpr(v) }

type strExpr string

func (e strExpr) emit(b *builder) { b.op("byte %q", string(e)) }

// Str pushes a byte-string constant.
func Str(s string) Expr { return strExpr(s) }

type txnExpr avm.TxnField

func (e txnExpr) emit(b *builder) { b.op("txn %s", fieldName(avm.TxnField(e))) }

// Txn reads a field of the current transaction.
func Txn(f avm.TxnField) Expr { return txnExpr(f) }

type gtxnExpr struct {
	idx   uint64
	field avm.TxnField
}

func (e gtxnExpr) emit(b *builder) { b.op("gtxn %d %s", e.idx, fieldName(e.field)) }

// Gtxn reads a field of group transaction idx.
func Gtxn(idx uint64, f avm.TxnField) Expr { return gtxnExpr{idx: idx, field: f} }

// --- binary and unary operators ---

type binExpr struct {
	op   string
	a, b Expr
}

func (e binExpr) emit(b *builder) {
	e.a.emit(b)
	e.b.emit(b)
	b.op("%s", e.op)
}

// Eq compares two values of the same kind.
func Eq(a, b Expr) Expr { return binExpr{op: "==", a: a, b: b} }

// Ge is uint >=.
func Ge(a, b Expr) Expr { return binExpr{op: ">=", a: a, b: b} }

// Gt is uint >.
func Gt(a, b Expr) Expr { return binExpr{op: ">", a: a, b: b} }

// Lt is uint <.
func Lt(a, b Expr) Expr { return binExpr{op: "<", a: a, b: b} }

// Add is checked uint addition.
func Add(a, b Expr) Expr { return binExpr{op: "+", a: a, b: b} }

// Sub is checked uint subtraction; going below zero faults the program.
func Sub(a, b Expr) Expr { return binExpr{op: "-", a: a, b: b} }

type naryExpr struct {
	op    string
	exprs []Expr
}

func (e naryExpr) emit(b *builder) {
	e.exprs[0].emit(b)
	for _, x := range e.exprs[1:] {
		x.emit(b)
		b.op("%s", e.op)
	}
}

// And folds two or more conditions with &&.
func And(exprs ...Expr) Expr {
	if len(exprs) < 2 {
		panic("And needs at least two operands")
	}
	return naryExpr{op: "&&", exprs: exprs}
}

// Or folds two or more conditions with ||.
func Or(exprs ...Expr) Expr {
	if len(exprs) < 2 {
		panic("Or needs at least two operands")
	}
	return naryExpr{op: "||", exprs: exprs}
}

type notExpr struct{ a Expr }

func (e notExpr) emit(b *builder) {
	e.a.emit(b)
	b.op("!")
}

// Not is logical negation.
func Not(a Expr) Expr { return notExpr{a: a} }

// --- global state ---

type globalGet struct{ key Expr }

func (e globalGet) emit(b *builder) {
	e.key.emit(b)
	b.op("gget")
}

// GlobalGet reads a global state key; missing keys read as 0.
func GlobalGet(key Expr) Expr { return globalGet{key: key} }

type globalPut struct{ key, val Expr }

func (e globalPut) emit(b *builder) {
	e.key.emit(b)
	e.val.emit(b)
	b.op("gput")
}

// GlobalPut writes a global state key.
func GlobalPut(key, val Expr) Expr { return globalPut{key: key, val: val} }

type globalDel struct{ key Expr }

func (e globalDel) emit(b *builder) {
	e.key.emit(b)
	b.op("gdel")
}

// GlobalDel removes a global state key.
func GlobalDel(key Expr) Expr { return globalDel{key: key} }

// --- control flow ---

type assertExpr struct{ cond Expr }

func (e assertExpr) emit(b *builder) {
	e.cond.emit(b)
	b.op("assert")
}

// Assert faults the program unless cond is nonzero.
func Assert(cond Expr) Expr { return assertExpr{cond: cond} }

type retExpr struct{ v Expr }

func (e retExpr) emit(b *builder) {
	e.v.emit(b)
	b.op("return")
}

// Return finishes the program; nonzero approves.
func Return(v Expr) Expr { return retExpr{v: v} }

// Approve is Return(Int(1)).
func Approve() Expr { return Return(Int(1)) }

// Reject is Return(Int(0)).
func Reject() Expr { return Return(Int(0)) }

type seqExpr []Expr

func (e seqExpr) emit(b *builder) {
	for _, x := range e {
		x.emit(b)
	}
}

// Seq runs expressions in order.
func Seq(exprs ...Expr) Expr { return seqExpr(exprs) }

type ifExpr struct {
	cond, then, els Expr
}

func (e ifExpr) emit(b *builder) {
	end := b.label("if_end")
	e.cond.emit(b)
	if e.els == nil {
		b.op("bz %s", end)
		e.then.emit(b)
	} else {
		els := b.label("if_else")
		b.op("bz %s", els)
		e.then.emit(b)
		b.op("b %s", end)
		b.placeLabel(els)
		e.els.emit(b)
	}
	b.placeLabel(end)
}

// If runs then when cond is nonzero; the optional second branch otherwise.
func If(cond, then Expr, els ...Expr) Expr {
	e := ifExpr{cond: cond, then: then}
	switch len(els) {
	case 0:
	case 1:
		e.els = els[0]
	default:
		panic("If takes at most one else branch")
	}
	return e
}

// CondCase is one arm of a Cond.
type CondCase struct {
	When Expr
	Then Expr // must end execution (Return/Approve/Reject or a fault)
}

type condExpr []CondCase

func (e condExpr) emit(b *builder) {
	for _, c := range e {
		next := b.label("cond_next")
		c.When.emit(b)
		b.op("bz %s", next)
		c.Then.emit(b)
		b.placeLabel(next)
	}
	// No arm matched.
	b.op("err")
}

// Cond evaluates arms in order and runs the first whose condition holds;
// if none match the program faults.
func Cond(cases ...CondCase) Expr { return condExpr(cases) }

func fieldName(f avm.TxnField) string {
	switch f {
	case avm.FieldSender:
		return "Sender"
	case avm.FieldReceiver:
		return "Receiver"
	case avm.FieldAmount:
		return "Amount"
	case avm.FieldTypeEnum:
		return "TypeEnum"
	case avm.FieldApplicationID:
		return "ApplicationID"
	case avm.FieldOnCompletion:
		return "OnCompletion"
	case avm.FieldGroupIndex:
		return "GroupIndex"
	case avm.FieldGroupSize:
		return "GroupSize"
	}
	panic(fmt.Sprintf("unknown txn field %d", f))
}
