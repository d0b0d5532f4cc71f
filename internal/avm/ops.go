package avm

// Transaction type enum values, as seen by `txn TypeEnum`.
const (
	TypePay  uint64 = 1
	TypeAppl uint64 = 2
)

// OnCompletion values for application calls.
const (
	OnNoOp     uint64 = 0
	OnOptIn    uint64 = 1
	OnCloseOut uint64 = 2
	OnUpdate   uint64 = 3
	OnDelete   uint64 = 4
)

// OnCompletionName renders an OnCompletion value for display.
func OnCompletionName(oc uint64) string {
	switch oc {
	case OnNoOp:
		return "NoOp"
	case OnOptIn:
		return "OptIn"
	case OnCloseOut:
		return "CloseOut"
	case OnUpdate:
		return "Update"
	case OnDelete:
		return "Delete"
	}
	return "Unknown"
}

// Txn is the VM's read-only view of one transaction in the group.
// Sender and Receiver carry the textual address as bytes so programs can
// compare them against stored state directly.
type Txn struct {
	Type         uint64
	Sender       []byte
	Receiver     []byte
	Amount       uint64
	AppID        uint64
	OnCompletion uint64
	GroupIndex   uint64
}

// TxnField selects a transaction field for txn/gtxn.
type TxnField uint8

const (
	FieldSender TxnField = iota
	FieldReceiver
	FieldAmount
	FieldTypeEnum
	FieldApplicationID
	FieldOnCompletion
	FieldGroupIndex
	FieldGroupSize
)

var fieldNames = map[TxnField]string{
	FieldSender:        "Sender",
	FieldReceiver:      "Receiver",
	FieldAmount:        "Amount",
	FieldTypeEnum:      "TypeEnum",
	FieldApplicationID: "ApplicationID",
	FieldOnCompletion:  "OnCompletion",
	FieldGroupIndex:    "GroupIndex",
	FieldGroupSize:     "GroupSize",
}

var fieldByName = func() map[string]TxnField {
	m := make(map[string]TxnField, len(fieldNames))
	for f, n := range fieldNames {
		m[n] = f
	}
	return m
}()

// Opcode identifies a VM instruction.
type Opcode uint8

const (
	OpInt Opcode = iota
	OpByte
	OpAddr
	OpTxn
	OpGtxn
	OpGlobalGet
	OpGlobalPut
	OpGlobalDel
	OpAdd
	OpSub
	OpEq
	OpGe
	OpGt
	OpLt
	OpAnd
	OpOr
	OpNot
	OpDup
	OpPop
	OpAssert
	OpReturn
	OpBranch
	OpBnz
	OpBz
	OpErr
)

var opNames = map[Opcode]string{
	OpInt:       "int",
	OpByte:      "byte",
	OpAddr:      "addr",
	OpTxn:       "txn",
	OpGtxn:      "gtxn",
	OpGlobalGet: "gget",
	OpGlobalPut: "gput",
	OpGlobalDel: "gdel",
	OpAdd:       "+",
	OpSub:       "-",
	OpEq:        "==",
	OpGe:        ">=",
	OpGt:        ">",
	OpLt:        "<",
	OpAnd:       "&&",
	OpOr:        "||",
	OpNot:       "!",
	OpDup:       "dup",
	OpPop:       "pop",
	OpAssert:    "assert",
	OpReturn:    "return",
	OpBranch:    "b",
	OpBnz:       "bnz",
	OpBz:        "bz",
	OpErr:       "err",
}

var opByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opNames))
	for op, n := range opNames {
		m[n] = op
	}
	return m
}()

// Name returns the assembly mnemonic for the opcode.
func (op Opcode) Name() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return "(bad opcode)"
}

// Instr is one assembled instruction.
type Instr struct {
	Op     Opcode
	Uint   uint64   // immediate for int; group index for gtxn
	Field  TxnField // for txn/gtxn
	Bytes  []byte   // immediate for byte/addr
	Label  string   // branch target label, kept for display
	Target int      // resolved instruction index for b/bnz/bz
	Line   int      // 1-based source line
}

// Program is an assembled approval or clear program plus its source text.
type Program struct {
	Instrs []Instr
	Source string
	Lines  []string // source split by line, for the debugger's source pane
}
