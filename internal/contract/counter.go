package contract

import "github.com/chainlab-dev/chainlab/internal/avm"

// Global state keys of the counter contract.
const (
	KeyOwner   = "owner"
	KeyCounter = "counter"
)

// PaymentThreshold is the payment amount, in microunits, at or above which a
// call increments the counter instead of decrementing it.
const PaymentThreshold = 10 * 1_000_000

// Counter builds the tutorial contract: an owner-gated counter driven by a
// two-transaction group where transaction 0 pays the owner and transaction 1
// calls the app.
//
// The buggy build (fixed=false) decrements unconditionally, so a
// below-threshold call at counter==0 underflows and faults the whole group.
// The fixed build decrements only while counter > 0.
func Counter(fixed bool) Expr {
	create := Seq(
		GlobalPut(Str(KeyOwner), Txn(avm.FieldSender)),
		GlobalPut(Str(KeyCounter), Int(0)),
		Approve(),
	)

	isOwner := Eq(Txn(avm.FieldSender), GlobalGet(Str(KeyOwner)))

	// The group must be [payment to owner, this app call].
	groupChecks := And(
		Eq(Gtxn(0, avm.FieldTypeEnum), Int(avm.TypePay)),
		Eq(Gtxn(0, avm.FieldReceiver), GlobalGet(Str(KeyOwner))),
		Eq(Txn(avm.FieldTypeEnum), Int(avm.TypeAppl)),
	)

	counter := GlobalGet(Str(KeyCounter))

	decrement := Expr(GlobalPut(Str(KeyCounter), Sub(counter, Int(1))))
	if fixed {
		decrement = If(Gt(counter, Int(0)), decrement)
	}

	call := Seq(
		Assert(groupChecks),
		If(Ge(Gtxn(0, avm.FieldAmount), Int(PaymentThreshold)),
			GlobalPut(Str(KeyCounter), Add(counter, Int(1))),
			decrement,
		),
		Approve(),
	)

	return Cond(
		CondCase{When: Eq(Txn(avm.FieldApplicationID), Int(0)), Then: create},
		CondCase{When: Eq(Txn(avm.FieldOnCompletion), Int(avm.OnDelete)), Then: Return(isOwner)},
		CondCase{When: Eq(Txn(avm.FieldOnCompletion), Int(avm.OnUpdate)), Then: Return(isOwner)},
		CondCase{When: Eq(Txn(avm.FieldOnCompletion), Int(avm.OnOptIn)), Then: Approve()},
		CondCase{When: Eq(Txn(avm.FieldOnCompletion), Int(avm.OnCloseOut)), Then: Approve()},
		CondCase{When: Eq(Txn(avm.FieldOnCompletion), Int(avm.OnNoOp)), Then: call},
	)
}

// Clear is the clear-state program: always approve.
func Clear() Expr {
	return Approve()
}
